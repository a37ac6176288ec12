package gateway

import (
	"sync"

	"github.com/Stormrider66/hockey-hub-sub043/logger"
	errs "github.com/Stormrider66/hockey-hub-sub043/tools/errs"
)

// PresenceNotifier receives online/offline edge crossings, e.g. to
// mirror them into redis. Implementations must not block.
type PresenceNotifier interface {
	Online(userID string)
	Offline(userID string)
}

// DisconnectHook lets a domain handler purge its own tracking
// structures when a connection goes away. Hooks run after the registry
// has already removed the connection from every channel.
type DisconnectHook func(c *WsConn)

// ConnManager is the authoritative registry of connections, channel
// membership and presence. All four maps are guarded by the one mutex:
// a per-channel lock discipline invites lock-ordering deadlocks across
// the reverse indexes, so there is exactly one.
type ConnManager struct {
	mu           sync.RWMutex
	byConn       map[string]*WsConn            // conn_id -> conn
	byUser       map[string]map[string]*WsConn // user_id -> conn_id -> conn (presence)
	channels     map[string]map[string]*WsConn // channel key -> conn_id -> conn
	connChannels map[string]map[string]struct{} // conn_id -> set of channel keys

	gwID     string
	mirror   PresenceNotifier
	hooks    []DisconnectHook
	stopOnce sync.Once
}

func NewConnManager(gwID string) *ConnManager {
	return &ConnManager{
		byConn:       make(map[string]*WsConn),
		byUser:       make(map[string]map[string]*WsConn),
		channels:     make(map[string]map[string]*WsConn),
		connChannels: make(map[string]map[string]struct{}),
		gwID:         gwID,
	}
}

func (m *ConnManager) GwID() string { return m.gwID }

// SetPresenceMirror wires the optional redis mirror. Call before the
// first Connect.
func (m *ConnManager) SetPresenceMirror(p PresenceNotifier) { m.mirror = p }

// OnDisconnect registers a domain cleanup hook. Call during bootstrap,
// before connections start arriving.
func (m *ConnManager) OnDisconnect(h DisconnectHook) {
	m.hooks = append(m.hooks, h)
}

// ===== connect / disconnect =====

// Connect records an authenticated connection and joins it to its
// mandatory default channels. Emits the presence online edge when this
// is the user's first open connection.
func (m *ConnManager) Connect(c *WsConn) {
	id := c.Identity

	m.mu.Lock()
	m.byConn[c.ConnID] = c

	um := m.byUser[id.UserID]
	first := len(um) == 0
	if um == nil {
		um = make(map[string]*WsConn)
		m.byUser[id.UserID] = um
	}
	um[c.ConnID] = c

	for _, key := range DefaultChannels(id) {
		m.joinLocked(c, key)
	}
	m.mu.Unlock()

	if first {
		m.broadcastPresence(id.UserID, id.OrganizationID, "online")
		if m.mirror != nil {
			m.mirror.Online(id.UserID)
		}
	}
}

// Disconnect tears a connection out of every structure and runs the
// domain hooks. It runs exactly once per connection: a second call is
// a no-op. Membership removal is atomic under the registry lock, so no
// other task can observe a half-disconnected connection.
func (m *ConnManager) Disconnect(c *WsConn) {
	m.mu.Lock()
	if _, ok := m.byConn[c.ConnID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.byConn, c.ConnID)

	for key := range m.connChannels[c.ConnID] {
		m.leaveLocked(c, key)
	}
	delete(m.connChannels, c.ConnID)

	uid := c.UserID()
	last := false
	if um := m.byUser[uid]; um != nil {
		delete(um, c.ConnID)
		if len(um) == 0 {
			delete(m.byUser, uid)
			last = true
		}
	}
	hooks := m.hooks
	m.mu.Unlock()

	c.Close()

	if last {
		m.broadcastPresence(uid, c.Identity.OrganizationID, "offline")
		if m.mirror != nil {
			m.mirror.Offline(uid)
		}
	}
	// cleanup is unconditional: it must run for abnormal drops too
	for _, h := range hooks {
		h(c)
	}
}

// ===== channel membership =====

// JoinChannel consults the authorization policy and, on allow, adds
// membership both ways and returns the channel's current member user
// ids (including the joiner). On deny nothing is mutated and a typed
// denial comes back.
func (m *ConnManager) JoinChannel(c *WsConn, ctype, channelID string) ([]string, error) {
	if !Authorize(c.Identity, ctype, channelID) {
		return nil, errs.ErrChannelAccessDenied.WithDetail(ChannelKey(ctype, channelID))
	}

	key := ChannelKey(ctype, channelID)
	m.mu.Lock()
	if _, ok := m.byConn[c.ConnID]; !ok {
		// disconnected concurrently: do not resurrect membership
		m.mu.Unlock()
		return nil, errs.ErrChannelAccessDenied.WithDetail("connection closed")
	}
	m.joinLocked(c, key)
	users := m.channelUserIDsLocked(key)
	m.mu.Unlock()
	return users, nil
}

// LeaveChannel is idempotent; the channel entry disappears with its
// last member.
func (m *ConnManager) LeaveChannel(c *WsConn, ctype, channelID string) {
	key := ChannelKey(ctype, channelID)
	m.mu.Lock()
	m.leaveLocked(c, key)
	if set := m.connChannels[c.ConnID]; set != nil {
		delete(set, key)
		if len(set) == 0 {
			delete(m.connChannels, c.ConnID)
		}
	}
	m.mu.Unlock()
}

func (m *ConnManager) joinLocked(c *WsConn, key string) {
	ch := m.channels[key]
	if ch == nil {
		ch = make(map[string]*WsConn)
		m.channels[key] = ch
	}
	ch[c.ConnID] = c

	set := m.connChannels[c.ConnID]
	if set == nil {
		set = make(map[string]struct{})
		m.connChannels[c.ConnID] = set
	}
	set[key] = struct{}{}
}

// leaveLocked removes channel-side membership only; the caller owns
// the connChannels side.
func (m *ConnManager) leaveLocked(c *WsConn, key string) {
	if ch := m.channels[key]; ch != nil {
		delete(ch, c.ConnID)
		if len(ch) == 0 {
			delete(m.channels, key)
		}
	}
}

// ===== read views =====

// ChannelConns returns a membership snapshot.
func (m *ConnManager) ChannelConns(ctype, channelID string) []*WsConn {
	key := ChannelKey(ctype, channelID)
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch := m.channels[key]
	if len(ch) == 0 {
		return nil
	}
	out := make([]*WsConn, 0, len(ch))
	for _, c := range ch {
		out = append(out, c)
	}
	return out
}

// ChannelUserIDs returns the distinct user ids currently in a channel.
func (m *ConnManager) ChannelUserIDs(ctype, channelID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channelUserIDsLocked(ChannelKey(ctype, channelID))
}

func (m *ConnManager) channelUserIDsLocked(key string) []string {
	ch := m.channels[key]
	seen := make(map[string]struct{}, len(ch))
	out := make([]string, 0, len(ch))
	for _, c := range ch {
		uid := c.UserID()
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		out = append(out, uid)
	}
	return out
}

// InChannel reports whether the connection currently belongs to the
// channel.
func (m *ConnManager) InChannel(c *WsConn, ctype, channelID string) bool {
	key := ChannelKey(ctype, channelID)
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.connChannels[c.ConnID][key]
	return ok
}

// ConnsByUser lists a user's open connections.
func (m *ConnManager) ConnsByUser(userID string) []*WsConn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	um := m.byUser[userID]
	if len(um) == 0 {
		return nil
	}
	out := make([]*WsConn, 0, len(um))
	for _, c := range um {
		out = append(out, c)
	}
	return out
}

func (m *ConnManager) IsOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userID]) > 0
}

// ===== broadcast =====

// BroadcastToChannel encodes once and enqueues to every member,
// optionally excluding one connection (the typical "rest of the room"
// shape). Best-effort: zero members is a silent no-op.
func (m *ConnManager) BroadcastToChannel(ctype, channelID, event string, data any, except *WsConn) int {
	conns := m.ChannelConns(ctype, channelID)
	if len(conns) == 0 {
		return 0
	}
	payload := EncodeFrame(event, data)
	if payload == nil {
		return 0
	}
	n := 0
	for _, c := range conns {
		if except != nil && c.ConnID == except.ConnID {
			continue
		}
		if c.Enqueue(payload) {
			n++
		}
	}
	return n
}

// broadcastPresence emits the edge-triggered presence event to the
// user's organization channel.
func (m *ConnManager) broadcastPresence(userID, orgID, status string) {
	n := m.BroadcastToChannel(ChannelOrganization, orgID, EvtPresenceUpdate, PresencePayload{
		UserID:         userID,
		OrganizationID: orgID,
		Status:         status,
	}, nil)
	logger.Debugf("[manager] presence %s user=%s org=%s notified=%d", status, userID, orgID, n)
}

// ===== stats =====

type Stats struct {
	ConnectedCount         int            `json:"connectedCount"`
	ActiveChannelCount     int            `json:"activeChannelCount"`
	ActiveUserCount        int            `json:"activeUserCount"`
	PerChannelMemberCounts map[string]int `json:"perChannelMemberCounts"`
}

func (m *ConnManager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	per := make(map[string]int, len(m.channels))
	for key, ch := range m.channels {
		per[key] = len(ch)
	}
	return Stats{
		ConnectedCount:         len(m.byConn),
		ActiveChannelCount:     len(m.channels),
		ActiveUserCount:        len(m.byUser),
		PerChannelMemberCounts: per,
	}
}

// Close drops every connection. Used on shutdown.
func (m *ConnManager) Close() {
	m.stopOnce.Do(func() {
		m.mu.RLock()
		conns := make([]*WsConn, 0, len(m.byConn))
		for _, c := range m.byConn {
			conns = append(conns, c)
		}
		m.mu.RUnlock()
		for _, c := range conns {
			m.Disconnect(c)
		}
	})
}

// ChannelCount is a test/debug helper: the number of channels a
// connection belongs to.
func (m *ConnManager) ChannelCount(c *WsConn) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connChannels[c.ConnID])
}
