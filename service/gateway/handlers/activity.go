package handlers

import (
	"strings"

	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
	"github.com/Stormrider66/hockey-hub-sub043/service/storage"
	decode "github.com/Stormrider66/hockey-hub-sub043/tools/decode"
)

// ActivityHandler subscribes connections to their organization's
// activity feed and backfills the recent cache on subscribe. The feed
// channel id is always the subscriber's own organization; the policy
// rejects anything else.
type ActivityHandler struct{}

func NewActivityHandler() *ActivityHandler { return &ActivityHandler{} }

func (h *ActivityHandler) Register(s *gateway.Server) {
	s.RegisterHandler(gateway.HandlerFunc(gateway.EvtActivitySubscribe, h.handleSubscribe))
	s.RegisterHandler(gateway.HandlerFunc(gateway.EvtActivityUnsubscribe, h.handleUnsubscribe))
}

func (h *ActivityHandler) handleSubscribe(ctx *gateway.Context, c *gateway.WsConn, f *gateway.Frame) error {
	p, err := decode.DecodeMap[gateway.ActivitySubscribePayload](f.Data)
	if err != nil {
		return err
	}
	orgID := c.Identity.OrganizationID
	if _, jerr := ctx.S.Mgr().JoinChannel(c, gateway.ChannelActivity, orgID); jerr != nil {
		return jerr
	}

	limit := p.Limit
	if limit <= 0 || limit > storage.DefaultActivityCap {
		limit = storage.DefaultActivityCap
	}
	entries := ctx.S.Activity().Recent(orgID, limit, c.Identity)
	if p.Types != "" {
		entries = filterActivityTypes(entries, p.Types)
	}
	c.SendEvent(gateway.EvtActivityRecent, gateway.ActivityRecentPayload{
		OrganizationID: orgID,
		Entries:        entries,
	})
	return nil
}

func (h *ActivityHandler) handleUnsubscribe(ctx *gateway.Context, c *gateway.WsConn, _ *gateway.Frame) error {
	ctx.S.Mgr().LeaveChannel(c, gateway.ChannelActivity, c.Identity.OrganizationID)
	return nil
}

func filterActivityTypes(entries []storage.ActivityEntry, types string) []storage.ActivityEntry {
	want := make(map[string]struct{})
	for _, t := range strings.Split(types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			want[t] = struct{}{}
		}
	}
	if len(want) == 0 {
		return entries
	}
	out := entries[:0:0]
	for _, e := range entries {
		if _, ok := want[e.Type]; ok {
			out = append(out, e)
		}
	}
	return out
}
