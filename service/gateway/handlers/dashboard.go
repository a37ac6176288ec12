package handlers

import (
	"sync"

	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
	decode "github.com/Stormrider66/hockey-hub-sub043/tools/decode"
)

// DashboardHandler manages per-widget subscriptions. A subscription is
// just membership of the widget:<id> channel; the handler keeps a
// reverse index so a disconnect can drop every subscription the
// connection held.
type DashboardHandler struct {
	mu   sync.Mutex
	subs map[string]map[string]struct{} // conn_id -> widget ids
}

func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{subs: make(map[string]map[string]struct{})}
}

func (h *DashboardHandler) Register(s *gateway.Server) {
	s.RegisterHook(h)
	s.RegisterHandler(gateway.HandlerFunc(gateway.EvtWidgetSubscribe, h.handleSubscribe))
	s.RegisterHandler(gateway.HandlerFunc(gateway.EvtWidgetUnsubscribe, h.handleUnsubscribe))
}

func (h *DashboardHandler) ChannelType() string { return gateway.ChannelDashboard }

// OnJoin / OnLeave cover the org-wide dashboard channel reached via
// room:join; metric pushes land there without per-widget bookkeeping.
func (h *DashboardHandler) OnJoin(_ *gateway.Context, _ *gateway.WsConn, _ string, _ map[string]any) {
}

func (h *DashboardHandler) OnLeave(_ *gateway.Context, _ *gateway.WsConn, _ string) {}

func (h *DashboardHandler) handleSubscribe(ctx *gateway.Context, c *gateway.WsConn, f *gateway.Frame) error {
	p, err := decode.DecodeMap[gateway.WidgetSubscribePayload](f.Data)
	if err != nil {
		return err
	}
	if _, jerr := ctx.S.Mgr().JoinChannel(c, gateway.ChannelWidget, p.WidgetID); jerr != nil {
		return jerr
	}
	h.mu.Lock()
	set := h.subs[c.ConnID]
	if set == nil {
		set = make(map[string]struct{})
		h.subs[c.ConnID] = set
	}
	set[p.WidgetID] = struct{}{}
	h.mu.Unlock()
	return nil
}

func (h *DashboardHandler) handleUnsubscribe(ctx *gateway.Context, c *gateway.WsConn, f *gateway.Frame) error {
	p, err := decode.DecodeMap[gateway.WidgetSubscribePayload](f.Data)
	if err != nil {
		return err
	}
	ctx.S.Mgr().LeaveChannel(c, gateway.ChannelWidget, p.WidgetID)
	h.mu.Lock()
	if set := h.subs[c.ConnID]; set != nil {
		delete(set, p.WidgetID)
		if len(set) == 0 {
			delete(h.subs, c.ConnID)
		}
	}
	h.mu.Unlock()
	return nil
}

// OnDisconnectPurge forgets the connection's widget subscriptions. The
// registry has already removed its channel memberships.
func (h *DashboardHandler) OnDisconnectPurge(_ *gateway.Context) gateway.DisconnectHook {
	return func(c *gateway.WsConn) {
		h.mu.Lock()
		delete(h.subs, c.ConnID)
		h.mu.Unlock()
	}
}

// Subscriptions is a read view used by tests.
func (h *DashboardHandler) Subscriptions(connID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[connID]
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	return out
}
