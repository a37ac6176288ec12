package handlers

import (
	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
	decode "github.com/Stormrider66/hockey-hub-sub043/tools/decode"
	errs "github.com/Stormrider66/hockey-hub-sub043/tools/errs"
)

// CalendarHandler relays calendar mutations. The gateway holds no
// calendar state; subscribers simply sit in calendar:<id> channels and
// mutations fan out to them plus the affected team and the mutator's
// organization.
type CalendarHandler struct{}

func NewCalendarHandler() *CalendarHandler { return &CalendarHandler{} }

func (h *CalendarHandler) Register(s *gateway.Server) {
	s.RegisterHandler(gateway.HandlerFunc(gateway.EvtCalendarCreated, h.relay(gateway.EvtCalendarCreated)))
	s.RegisterHandler(gateway.HandlerFunc(gateway.EvtCalendarUpdated, h.relay(gateway.EvtCalendarUpdated)))
	s.RegisterHandler(gateway.HandlerFunc(gateway.EvtCalendarDeleted, h.relay(gateway.EvtCalendarDeleted)))
}

func (h *CalendarHandler) relay(event string) func(*gateway.Context, *gateway.WsConn, *gateway.Frame) error {
	return func(ctx *gateway.Context, c *gateway.WsConn, f *gateway.Frame) error {
		p, err := decode.DecodeMap[gateway.CalendarEventPayload](f.Data)
		if err != nil {
			return err
		}
		if !gateway.CanMutate(c.Identity) {
			c.SendEvent(gateway.EvtPermissionDenied, gateway.ErrorPayload{
				Code:    errs.PermissionDeniedCode,
				Message: "calendar mutation requires an elevated role",
			})
			return nil
		}

		ctx.S.Bcast().PushCalendarEvent(event, *p)
		if p.TeamID != "" {
			ctx.S.Bcast().ToTeam(p.TeamID, event, *p)
		}
		ctx.S.Bcast().ToOrganization(c.Identity.OrganizationID, event, *p)
		ctx.S.Emit(gateway.TopicGatewayEvents, event, *p)
		return nil
	}
}
