package handlers

import (
	"testing"

	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
	errs "github.com/Stormrider66/hockey-hub-sub043/tools/errs"
)

func TestPingPong(t *testing.T) {
	s, ctx := newTestServer()
	c := connect(s, "c1", "u1", "org1", nil, nil)
	drain(t, c)

	dispatch(ctx, c, gateway.EvtPing, nil)
	frames := drain(t, c)
	if len(frames) != 1 || frames[0].Event != gateway.EvtPong {
		t.Errorf("frames = %v", frames)
	}
}

func TestRoomJoinDeniedOnlyToRequester(t *testing.T) {
	s, ctx := newTestServer()
	a := connect(s, "c1", "u1", "org1", nil, []string{"player"})
	b := connect(s, "c2", "u2", "org1", nil, []string{"player"})
	drain(t, a)
	drain(t, b)

	dispatch(ctx, a, gateway.EvtRoomJoin, map[string]any{
		"roomType": gateway.ChannelTeam,
		"roomId":   "t-foreign",
	})
	aFrames := drain(t, a)
	denied, ok := findEvent(aFrames, gateway.EvtRoomDenied)
	if !ok {
		t.Fatalf("no denial: %v", aFrames)
	}
	if int(denied.Data["code"].(float64)) != errs.ChannelAccessDeniedCode {
		t.Errorf("code = %v", denied.Data["code"])
	}
	if frames := drain(t, b); len(frames) != 0 {
		t.Errorf("denial leaked to bystander: %v", frames)
	}
	if s.Mgr().InChannel(a, gateway.ChannelTeam, "t-foreign") {
		t.Error("denied join created membership")
	}
}

func TestRoomJoinBroadcastsMemberList(t *testing.T) {
	s, ctx := newTestServer()
	a := connect(s, "c1", "u1", "org1", nil, []string{"player"})
	b := connect(s, "c2", "u2", "org1", nil, []string{"player"})
	drain(t, a)
	drain(t, b)

	dispatch(ctx, a, gateway.EvtRoomJoin, map[string]any{
		"roomType": gateway.ChannelTraining, "roomId": "s1",
	})
	drain(t, a)
	dispatch(ctx, b, gateway.EvtRoomJoin, map[string]any{
		"roomType": gateway.ChannelTraining, "roomId": "s1",
	})

	for _, c := range []*gateway.WsConn{a, b} {
		frames := drain(t, c)
		upd, ok := findEvent(frames, gateway.EvtRoomUsersUpdate)
		if !ok {
			t.Fatalf("%s missed users update: %v", c.ConnID, frames)
		}
		if users, _ := upd.Data["users"].([]any); len(users) != 2 {
			t.Errorf("users = %v, want 2", upd.Data["users"])
		}
	}
}

func TestWidgetSubscribeRouting(t *testing.T) {
	s, ctx := newTestServer()
	a := connect(s, "c1", "u1", "org1", nil, []string{"coach"})
	b := connect(s, "c2", "u2", "org1", nil, []string{"coach"})
	drain(t, a)
	drain(t, b)

	dispatch(ctx, a, gateway.EvtWidgetSubscribe, map[string]any{"widgetId": "w1"})
	n := s.Bcast().PushWidgetUpdate("w1", map[string]any{"points": 42})
	if n != 1 {
		t.Errorf("delivered = %d, want 1", n)
	}
	frames := drain(t, a)
	if _, ok := findEvent(frames, gateway.EvtWidgetUpdate); !ok {
		t.Fatalf("subscriber missed widget update: %v", frames)
	}
	if frames := drain(t, b); len(frames) != 0 {
		t.Errorf("non-subscriber received: %v", frames)
	}

	dispatch(ctx, a, gateway.EvtWidgetUnsubscribe, map[string]any{"widgetId": "w1"})
	if n := s.Bcast().PushWidgetUpdate("w1", nil); n != 0 {
		t.Errorf("delivered after unsubscribe = %d", n)
	}
}
