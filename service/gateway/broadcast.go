package gateway

import (
	"github.com/Stormrider66/hockey-hub-sub043/service/storage"
)

// Broadcaster is the outward-facing fan-out facade. External services
// push events through it without any connection-level knowledge.
// Delivery is best-effort: an empty channel is a silent no-op, there is
// no queuing and no retry.
type Broadcaster struct {
	mgr    *ConnManager
	fanout *Fanout
	cache  *storage.ActivityCache
}

func NewBroadcaster(mgr *ConnManager, fanout *Fanout, cache *storage.ActivityCache) *Broadcaster {
	return &Broadcaster{mgr: mgr, fanout: fanout, cache: cache}
}

func (b *Broadcaster) ToUser(userID, event string, data any) int {
	return b.toChannel(ChannelUser, userID, event, data)
}

func (b *Broadcaster) ToTeam(teamID, event string, data any) int {
	return b.toChannel(ChannelTeam, teamID, event, data)
}

func (b *Broadcaster) ToOrganization(orgID, event string, data any) int {
	return b.toChannel(ChannelOrganization, orgID, event, data)
}

func (b *Broadcaster) ToRole(orgID, role, event string, data any) int {
	return b.toChannel(ChannelRole, orgID+":"+role, event, data)
}

func (b *Broadcaster) toChannel(ctype, id, event string, data any) int {
	conns := b.mgr.ChannelConns(ctype, id)
	if len(conns) == 0 {
		return 0
	}
	payload := EncodeFrame(event, data)
	if payload == nil {
		return 0
	}
	b.fanout.Broadcast(conns, payload)
	return len(conns)
}

// ===== per-domain helpers =====

// PushWidgetUpdate reaches the subscribers of one dashboard widget.
func (b *Broadcaster) PushWidgetUpdate(widgetID string, data map[string]any) int {
	return b.toChannel(ChannelWidget, widgetID, EvtWidgetUpdate, data)
}

// PushMetricUpdate reaches every dashboard viewer of the organization.
func (b *Broadcaster) PushMetricUpdate(orgID string, data map[string]any) int {
	return b.toChannel(ChannelDashboard, orgID, EvtMetricUpdate, data)
}

// PushCalendarEvent relays a calendar change to its calendar channel.
func (b *Broadcaster) PushCalendarEvent(event string, p CalendarEventPayload) int {
	return b.toChannel(ChannelCalendar, p.CalendarID, event, p)
}

// PublishActivity appends an entry to the organization's recent cache
// and delivers it to that organization's feed subscribers, applying
// the entry's visibility scope per recipient. Private and team-scoped
// entries therefore cannot use the shared fan-out payload path.
func (b *Broadcaster) PublishActivity(e storage.ActivityEntry) int {
	if b.cache != nil {
		b.cache.Append(e)
	}
	conns := b.mgr.ChannelConns(ChannelActivity, e.OrganizationID)
	if len(conns) == 0 {
		return 0
	}
	payload := EncodeFrame(EvtActivityNew, e)
	if payload == nil {
		return 0
	}
	n := 0
	for _, c := range conns {
		if !e.VisibleTo(c.Identity) {
			continue
		}
		if c.Enqueue(payload) {
			n++
		}
	}
	return n
}
