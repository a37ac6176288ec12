package natsx

import (
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/Stormrider66/hockey-hub-sub043/logger"
	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
)

// Subject layout for broadcast ingress. The payload is a wire frame
// ({"event": ..., "data": ...}); the subject tail carries the target:
//
//	hub.broadcast.org.<orgId>
//	hub.broadcast.team.<teamId>
//	hub.broadcast.user.<userId>
//	hub.broadcast.role.<orgId>.<role>
const (
	SubjectBroadcastRoot = "hub.broadcast"
	subjectBroadcastAll  = SubjectBroadcastRoot + ".>"
)

// Ingress feeds externally published broadcasts into the local fan-out
// facade.
type Ingress struct {
	client *Client
	bcast  *gateway.Broadcaster
}

func NewIngress(client *Client, bcast *gateway.Broadcaster) *Ingress {
	return &Ingress{client: client, bcast: bcast}
}

// Start subscribes to the broadcast subject tree. Plain subscribe:
// each gateway instance holds a disjoint set of connections and all of
// them must see every broadcast.
func (in *Ingress) Start() error {
	sub, err := in.client.nc.Subscribe(subjectBroadcastAll, in.handle)
	if err != nil {
		return err
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)
	in.client.mu.Lock()
	in.client.subs = append(in.client.subs, sub)
	in.client.mu.Unlock()
	logger.Infof("[natsx] broadcast ingress on %s", subjectBroadcastAll)
	return nil
}

func (in *Ingress) handle(m *nats.Msg) {
	f, err := gateway.ParseFrame(m.Data)
	if err != nil {
		logger.Infof("[natsx] bad ingress frame subject=%s err=%v", m.Subject, err)
		return
	}

	tail := strings.TrimPrefix(m.Subject, SubjectBroadcastRoot+".")
	parts := strings.Split(tail, ".")
	if len(parts) < 2 {
		logger.Infof("[natsx] bad ingress subject %s", m.Subject)
		return
	}

	var n int
	switch parts[0] {
	case "org":
		n = in.bcast.ToOrganization(parts[1], f.Event, f.Data)
	case "team":
		n = in.bcast.ToTeam(parts[1], f.Event, f.Data)
	case "user":
		n = in.bcast.ToUser(parts[1], f.Event, f.Data)
	case "role":
		if len(parts) < 3 {
			logger.Infof("[natsx] role subject missing role: %s", m.Subject)
			return
		}
		n = in.bcast.ToRole(parts[1], parts[2], f.Event, f.Data)
	default:
		logger.Infof("[natsx] unknown ingress target %s", parts[0])
		return
	}
	logger.Debugf("[natsx] ingress %s event=%s delivered=%d", m.Subject, f.Event, n)
}
