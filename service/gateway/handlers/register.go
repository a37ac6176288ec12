package handlers

import (
	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
)

// RegisterAll wires the full handler set onto one server: wire event
// handlers, per-channel-type domain hooks and disconnect purges.
func RegisterAll(s *gateway.Server) {
	s.RegisterHandler(NewPingHandler())
	s.RegisterHandler(NewRoomJoinHandler())
	s.RegisterHandler(NewRoomLeaveHandler())

	ctx := &gateway.Context{S: s}

	training := NewTrainingHandler()
	training.Register(s)
	s.Mgr().OnDisconnect(training.OnDisconnectPurge(ctx))

	NewCalendarHandler().Register(s)

	dashboard := NewDashboardHandler()
	dashboard.Register(s)
	s.Mgr().OnDisconnect(dashboard.OnDisconnectPurge(ctx))

	collab := NewCollaborationHandler()
	collab.Register(s)
	s.Mgr().OnDisconnect(collab.OnDisconnectPurge(ctx))

	NewActivityHandler().Register(s)
}
