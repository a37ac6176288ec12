package gateway

import (
	"encoding/json"
	"fmt"
	"testing"

	errs "github.com/Stormrider66/hockey-hub-sub043/tools/errs"
)

type recordingMirror struct {
	online  []string
	offline []string
}

func (r *recordingMirror) Online(userID string)  { r.online = append(r.online, userID) }
func (r *recordingMirror) Offline(userID string) { r.offline = append(r.offline, userID) }

func newTestConn(connID string, id, org string, teams, roles []string) *WsConn {
	return NewWsConn(connID, testIdentity(id, org, teams, roles), nil)
}

// drainEvents decodes everything queued on a connection.
func drainEvents(t *testing.T, c *WsConn) []Frame {
	t.Helper()
	var out []Frame
	for {
		select {
		case raw := <-c.Send:
			var f Frame
			if err := json.Unmarshal(raw, &f); err != nil {
				t.Fatalf("bad frame on queue: %v", err)
			}
			out = append(out, f)
		default:
			return out
		}
	}
}

func eventNames(frames []Frame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Event)
	}
	return out
}

func TestConnectJoinsDefaults(t *testing.T) {
	m := NewConnManager("gw-test")
	c := newTestConn("c1", "u1", "org1", []string{"t1"}, []string{"player"})
	m.Connect(c)

	for _, probe := range []struct{ ctype, id string }{
		{ChannelUser, "u1"},
		{ChannelOrganization, "org1"},
		{ChannelTeam, "t1"},
		{ChannelRole, "org1:player"},
	} {
		if !m.InChannel(c, probe.ctype, probe.id) {
			t.Errorf("connection missing default channel %s:%s", probe.ctype, probe.id)
		}
	}
	if got := m.ChannelCount(c); got != 4 {
		t.Errorf("default channel count = %d, want 4", got)
	}
}

func TestPresenceEdgeTriggering(t *testing.T) {
	m := NewConnManager("gw-test")
	mirror := &recordingMirror{}
	m.SetPresenceMirror(mirror)

	c1 := newTestConn("c1", "u1", "org1", nil, nil)
	c2 := newTestConn("c2", "u1", "org1", nil, nil)

	m.Connect(c1)
	if len(mirror.online) != 1 {
		t.Fatalf("first connection should emit one online edge, got %v", mirror.online)
	}
	m.Connect(c2)
	if len(mirror.online) != 1 {
		t.Errorf("second connection of same user must not re-emit online, got %v", mirror.online)
	}

	m.Disconnect(c1)
	if len(mirror.offline) != 0 {
		t.Errorf("offline must not fire while a connection remains, got %v", mirror.offline)
	}
	m.Disconnect(c2)
	if len(mirror.offline) != 1 {
		t.Errorf("last disconnect should emit exactly one offline edge, got %v", mirror.offline)
	}

	// watcher in the same org sees both presence edges
	watcher := newTestConn("c3", "u2", "org1", nil, nil)
	m.Connect(watcher)
	drainEvents(t, watcher)
	c4 := newTestConn("c4", "u1", "org1", nil, nil)
	m.Connect(c4)
	frames := drainEvents(t, watcher)
	if len(frames) != 1 || frames[0].Event != EvtPresenceUpdate {
		t.Fatalf("watcher events = %v, want one %s", eventNames(frames), EvtPresenceUpdate)
	}
	if frames[0].Data["status"] != "online" || frames[0].Data["userId"] != "u1" {
		t.Errorf("presence payload = %v", frames[0].Data)
	}
}

func TestJoinChannelDenialMutatesNothing(t *testing.T) {
	m := NewConnManager("gw-test")
	c := newTestConn("c1", "u1", "org1", nil, []string{"player"})
	m.Connect(c)
	before := m.ChannelCount(c)

	_, err := m.JoinChannel(c, ChannelTeam, "t-foreign")
	if err == nil {
		t.Fatal("foreign team join must be denied")
	}
	ce, ok := errs.AsCodeError(err)
	if !ok || ce.Code != errs.ChannelAccessDeniedCode {
		t.Fatalf("denial error = %v, want code %d", err, errs.ChannelAccessDeniedCode)
	}
	if got := m.ChannelCount(c); got != before {
		t.Errorf("denied join changed membership: %d -> %d", before, got)
	}
	if m.InChannel(c, ChannelTeam, "t-foreign") {
		t.Error("denied join left membership behind")
	}
}

func TestDisconnectRemovesEverything(t *testing.T) {
	m := NewConnManager("gw-test")
	c := newTestConn("c1", "u1", "org1", []string{"t1", "t2"}, []string{"coach"})
	m.Connect(c)
	for i := 0; i < 5; i++ {
		if _, err := m.JoinChannel(c, ChannelTraining, fmt.Sprintf("sess-%d", i)); err != nil {
			t.Fatalf("join sess-%d: %v", i, err)
		}
	}
	if _, err := m.JoinChannel(c, ChannelDocument, "doc1"); err != nil {
		t.Fatalf("join doc1: %v", err)
	}

	m.Disconnect(c)

	st := m.Stats()
	if st.ConnectedCount != 0 || st.ActiveUserCount != 0 || st.ActiveChannelCount != 0 {
		t.Errorf("stats after disconnect = %+v, want all zero", st)
	}
	if m.IsOnline("u1") {
		t.Error("user still online after last disconnect")
	}

	// second disconnect is a no-op
	m.Disconnect(c)
}

func TestDisconnectHooksRun(t *testing.T) {
	m := NewConnManager("gw-test")
	var got []string
	m.OnDisconnect(func(c *WsConn) { got = append(got, c.ConnID) })

	c := newTestConn("c1", "u1", "org1", nil, nil)
	m.Connect(c)
	m.Disconnect(c)
	m.Disconnect(c)

	if len(got) != 1 || got[0] != "c1" {
		t.Errorf("hook calls = %v, want exactly one for c1", got)
	}
}

func TestEmptyChannelIsRemoved(t *testing.T) {
	m := NewConnManager("gw-test")
	c := newTestConn("c1", "u1", "org1", nil, nil)
	m.Connect(c)
	if _, err := m.JoinChannel(c, ChannelTraining, "s1"); err != nil {
		t.Fatal(err)
	}
	m.LeaveChannel(c, ChannelTraining, "s1")

	if _, ok := m.Stats().PerChannelMemberCounts["training:s1"]; ok {
		t.Error("empty channel still present in registry")
	}
	// leaving again is fine
	m.LeaveChannel(c, ChannelTraining, "s1")
}

func TestBroadcastToChannelExcept(t *testing.T) {
	m := NewConnManager("gw-test")
	a := newTestConn("c1", "u1", "org1", nil, nil)
	b := newTestConn("c2", "u2", "org1", nil, nil)
	m.Connect(a)
	m.Connect(b)
	drainEvents(t, a)
	drainEvents(t, b)

	n := m.BroadcastToChannel(ChannelOrganization, "org1", "x:ping", map[string]any{"k": "v"}, a)
	if n != 1 {
		t.Errorf("delivered = %d, want 1", n)
	}
	if frames := drainEvents(t, a); len(frames) != 0 {
		t.Errorf("excluded connection received %v", eventNames(frames))
	}
	if frames := drainEvents(t, b); len(frames) != 1 || frames[0].Event != "x:ping" {
		t.Errorf("peer frames = %v", eventNames(frames))
	}
}

func TestChannelUserIDsDeduplicates(t *testing.T) {
	m := NewConnManager("gw-test")
	c1 := newTestConn("c1", "u1", "org1", nil, nil)
	c2 := newTestConn("c2", "u1", "org1", nil, nil)
	c3 := newTestConn("c3", "u2", "org1", nil, nil)
	m.Connect(c1)
	m.Connect(c2)
	m.Connect(c3)

	users := m.ChannelUserIDs(ChannelOrganization, "org1")
	if len(users) != 2 {
		t.Errorf("distinct users = %v, want 2 entries", users)
	}
}

func TestStats(t *testing.T) {
	m := NewConnManager("gw-test")
	c := newTestConn("c1", "u1", "org1", []string{"t1"}, nil)
	m.Connect(c)

	st := m.Stats()
	if st.ConnectedCount != 1 || st.ActiveUserCount != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.PerChannelMemberCounts["organization:org1"] != 1 {
		t.Errorf("per-channel counts = %v", st.PerChannelMemberCounts)
	}
}
