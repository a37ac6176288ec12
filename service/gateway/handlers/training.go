package handlers

import (
	"sync"

	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
	decode "github.com/Stormrider66/hockey-hub-sub043/tools/decode"
	errs "github.com/Stormrider66/hockey-hub-sub043/tools/errs"
)

// TrainingHandler tracks live training-session participation and
// relays session updates. A session has no standalone lifecycle here:
// its participant set appears with the first join and disappears with
// the last leave or a "completed" status update.
type TrainingHandler struct {
	mu           sync.Mutex
	participants map[string]map[string]struct{} // session -> user ids
}

func NewTrainingHandler() *TrainingHandler {
	return &TrainingHandler{participants: make(map[string]map[string]struct{})}
}

func (h *TrainingHandler) Register(s *gateway.Server) {
	s.RegisterHook(h)
	s.RegisterHandler(gateway.HandlerFunc(gateway.EvtTrainingJoin, h.handleJoin))
	s.RegisterHandler(gateway.HandlerFunc(gateway.EvtTrainingLeave, h.handleLeave))
	s.RegisterHandler(gateway.HandlerFunc(gateway.EvtTrainingUpdate, h.handleUpdate))
}

func (h *TrainingHandler) ChannelType() string { return gateway.ChannelTraining }

// OnJoin (via the generic room path) mirrors the dedicated join event.
func (h *TrainingHandler) OnJoin(ctx *gateway.Context, c *gateway.WsConn, sessionID string, _ map[string]any) {
	h.addParticipant(ctx, c, sessionID)
}

func (h *TrainingHandler) OnLeave(ctx *gateway.Context, c *gateway.WsConn, sessionID string) {
	h.removeParticipant(ctx, c, sessionID)
}

// handleJoin is the dedicated join shortcut: it joins the training
// channel itself instead of requiring a prior room:join.
func (h *TrainingHandler) handleJoin(ctx *gateway.Context, c *gateway.WsConn, f *gateway.Frame) error {
	p, err := decode.DecodeMap[gateway.TrainingJoinPayload](f.Data)
	if err != nil {
		return err
	}
	if _, jerr := ctx.S.Mgr().JoinChannel(c, gateway.ChannelTraining, p.SessionID); jerr != nil {
		ce, _ := errs.AsCodeError(jerr)
		c.SendEvent(gateway.EvtRoomDenied, gateway.RoomDeniedPayload{
			RoomType: gateway.ChannelTraining,
			RoomID:   p.SessionID,
			Code:     ce.Code,
			Message:  ce.Msg,
		})
		return nil
	}
	h.addParticipant(ctx, c, p.SessionID)
	return nil
}

func (h *TrainingHandler) handleLeave(ctx *gateway.Context, c *gateway.WsConn, f *gateway.Frame) error {
	p, err := decode.DecodeMap[gateway.TrainingJoinPayload](f.Data)
	if err != nil {
		return err
	}
	h.removeParticipant(ctx, c, p.SessionID)
	ctx.S.Mgr().LeaveChannel(c, gateway.ChannelTraining, p.SessionID)
	return nil
}

// handleUpdate relays a session mutation. Only elevated roles may
// push; a completed session drops its participant tracking. The update
// reaches the session channel plus, when known, the owning team and
// the pusher's organization, so dashboards off the session channel
// still see it.
func (h *TrainingHandler) handleUpdate(ctx *gateway.Context, c *gateway.WsConn, f *gateway.Frame) error {
	p, err := decode.DecodeMap[gateway.TrainingUpdatePayload](f.Data)
	if err != nil {
		return err
	}
	if !gateway.CanMutate(c.Identity) {
		c.SendEvent(gateway.EvtPermissionDenied, gateway.ErrorPayload{
			Code:    errs.PermissionDeniedCode,
			Message: "training update requires an elevated role",
		})
		return nil
	}

	out := gateway.TrainingUpdatePayload{
		SessionID: p.SessionID,
		TeamID:    p.TeamID,
		Updates:   p.Updates,
	}
	ctx.S.Mgr().BroadcastToChannel(gateway.ChannelTraining, p.SessionID, gateway.EvtTrainingUpdate, out, c)
	if p.TeamID != "" {
		ctx.S.Bcast().ToTeam(p.TeamID, gateway.EvtTrainingUpdate, out)
	}
	ctx.S.Bcast().ToOrganization(c.Identity.OrganizationID, gateway.EvtTrainingUpdate, out)
	ctx.S.Emit(gateway.TopicGatewayEvents, gateway.EvtTrainingUpdate, out)

	if status, ok := p.Updates["status"].(string); ok && status == "completed" {
		h.mu.Lock()
		delete(h.participants, p.SessionID)
		h.mu.Unlock()
	}
	return nil
}

// OnDisconnectPurge drops the user from every session whose training
// channel no longer holds any of their connections.
func (h *TrainingHandler) OnDisconnectPurge(ctx *gateway.Context) gateway.DisconnectHook {
	return func(c *gateway.WsConn) {
		h.mu.Lock()
		sessions := make([]string, 0, len(h.participants))
		for sid, set := range h.participants {
			if _, ok := set[c.UserID()]; ok {
				sessions = append(sessions, sid)
			}
		}
		h.mu.Unlock()
		for _, sid := range sessions {
			h.removeParticipant(ctx, c, sid)
		}
	}
}

func (h *TrainingHandler) addParticipant(ctx *gateway.Context, c *gateway.WsConn, sessionID string) {
	uid := c.UserID()

	h.mu.Lock()
	set := h.participants[sessionID]
	if set == nil {
		set = make(map[string]struct{})
		h.participants[sessionID] = set
	}
	_, already := set[uid]
	set[uid] = struct{}{}
	h.mu.Unlock()

	if !already {
		ctx.S.Mgr().BroadcastToChannel(gateway.ChannelTraining, sessionID, gateway.EvtTrainingJoin, gateway.TrainingMemberPayload{
			SessionID: sessionID,
			UserID:    uid,
		}, c)
	}
	c.SendEvent(gateway.EvtTrainingParticipants, gateway.TrainingParticipantsPayload{
		SessionID:    sessionID,
		Participants: h.snapshot(sessionID),
	})
}

func (h *TrainingHandler) removeParticipant(ctx *gateway.Context, c *gateway.WsConn, sessionID string) {
	uid := c.UserID()

	// the user may have another connection still in the session
	for _, other := range ctx.S.Mgr().ChannelConns(gateway.ChannelTraining, sessionID) {
		if other.UserID() == uid && other.ConnID != c.ConnID {
			return
		}
	}

	h.mu.Lock()
	set := h.participants[sessionID]
	if set == nil {
		h.mu.Unlock()
		return
	}
	if _, ok := set[uid]; !ok {
		h.mu.Unlock()
		return
	}
	delete(set, uid)
	if len(set) == 0 {
		delete(h.participants, sessionID)
	}
	h.mu.Unlock()

	ctx.S.Mgr().BroadcastToChannel(gateway.ChannelTraining, sessionID, gateway.EvtTrainingLeave, gateway.TrainingMemberPayload{
		SessionID: sessionID,
		UserID:    uid,
	}, c)
}

func (h *TrainingHandler) snapshot(sessionID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.participants[sessionID]
	out := make([]string, 0, len(set))
	for uid := range set {
		out = append(out, uid)
	}
	return out
}

// Participants is a read view used by tests and the stats surface.
func (h *TrainingHandler) Participants(sessionID string) []string {
	return h.snapshot(sessionID)
}
