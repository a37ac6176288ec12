package handlers

import (
	"encoding/json"
	"testing"

	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
	"github.com/Stormrider66/hockey-hub-sub043/service/storage"
	security "github.com/Stormrider66/hockey-hub-sub043/tools/security"
)

// newTestServer builds a fully wired server with inline fan-out so
// every delivery is synchronous and assertable.
func newTestServer() (*gateway.Server, *gateway.Context) {
	mgr := gateway.NewConnManager("gw-test")
	activity := storage.NewActivityCache(storage.DefaultActivityCap)
	fanout := gateway.NewFanout(0, 0)
	bcast := gateway.NewBroadcaster(mgr, fanout, activity)
	s := gateway.NewServer("gw-test", nil, mgr, bcast, activity)
	RegisterAll(s)
	return s, &gateway.Context{S: s}
}

func connect(s *gateway.Server, connID, user, org string, teams, roles []string) *gateway.WsConn {
	c := gateway.NewWsConn(connID, &security.Identity{
		UserID:         user,
		OrganizationID: org,
		TeamIDs:        teams,
		Roles:          roles,
	}, nil)
	s.Mgr().Connect(c)
	return c
}

func frame(event string, data map[string]any) *gateway.Frame {
	return &gateway.Frame{Event: event, Data: data}
}

// dispatch runs a frame through the real dispatcher, so handler errors
// surface exactly as they would in production.
func dispatch(ctx *gateway.Context, c *gateway.WsConn, event string, data map[string]any) {
	ctx.S.Disp().Dispatch(ctx, c, frame(event, data))
}

func drain(t *testing.T, c *gateway.WsConn) []gateway.Frame {
	t.Helper()
	var out []gateway.Frame
	for {
		select {
		case raw := <-c.Send:
			var f gateway.Frame
			if err := json.Unmarshal(raw, &f); err != nil {
				t.Fatalf("bad frame: %v", err)
			}
			out = append(out, f)
		default:
			return out
		}
	}
}

func findEvent(frames []gateway.Frame, event string) (gateway.Frame, bool) {
	for _, f := range frames {
		if f.Event == event {
			return f, true
		}
	}
	return gateway.Frame{}, false
}

func countEvent(frames []gateway.Frame, event string) int {
	n := 0
	for _, f := range frames {
		if f.Event == event {
			n++
		}
	}
	return n
}
