package handlers

import (
	"fmt"
	"testing"
	"time"

	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
	"github.com/Stormrider66/hockey-hub-sub043/service/storage"
)

func seedActivity(s *gateway.Server, org string, n int, typ string) {
	for i := 0; i < n; i++ {
		s.Activity().Append(storage.ActivityEntry{
			ID:             fmt.Sprintf("%s-%d", typ, i),
			OrganizationID: org,
			Type:           typ,
			Actor:          "u-staff",
			Action:         "created",
			Timestamp:      time.Now().UnixMilli(),
			Visibility:     storage.VisibilityPublic,
		})
	}
}

func TestActivitySubscribeBackfills(t *testing.T) {
	s, ctx := newTestServer()
	seedActivity(s, "org1", 5, "training")

	c := connect(s, "c1", "u1", "org1", nil, []string{"player"})
	drain(t, c)

	dispatch(ctx, c, gateway.EvtActivitySubscribe, map[string]any{"limit": 3})
	frames := drain(t, c)
	recent, ok := findEvent(frames, gateway.EvtActivityRecent)
	if !ok {
		t.Fatalf("no backfill: %v", frames)
	}
	entries, _ := recent.Data["entries"].([]any)
	if len(entries) != 3 {
		t.Fatalf("backfill size = %d, want 3", len(entries))
	}
	// newest-last window
	last := entries[2].(map[string]any)
	if last["id"] != "training-4" {
		t.Errorf("newest entry = %v", last["id"])
	}

	// live publishes now reach the subscriber
	s.Bcast().PublishActivity(storage.ActivityEntry{
		ID: "live-1", OrganizationID: "org1", Type: "calendar",
		Actor: "u9", Action: "created", Visibility: storage.VisibilityPublic,
	})
	frames = drain(t, c)
	if _, ok := findEvent(frames, gateway.EvtActivityNew); !ok {
		t.Fatalf("subscriber missed live entry: %v", frames)
	}
}

func TestActivityTypeFilter(t *testing.T) {
	s, ctx := newTestServer()
	seedActivity(s, "org1", 2, "training")
	seedActivity(s, "org1", 2, "calendar")

	c := connect(s, "c1", "u1", "org1", nil, []string{"player"})
	drain(t, c)
	dispatch(ctx, c, gateway.EvtActivitySubscribe, map[string]any{"types": "calendar"})
	frames := drain(t, c)
	recent, ok := findEvent(frames, gateway.EvtActivityRecent)
	if !ok {
		t.Fatal("no backfill")
	}
	entries, _ := recent.Data["entries"].([]any)
	if len(entries) != 2 {
		t.Fatalf("filter kept %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.(map[string]any)["type"] != "calendar" {
			t.Errorf("wrong type slipped through: %v", e)
		}
	}
}

func TestActivityVisibilityOnBackfillAndLive(t *testing.T) {
	s, ctx := newTestServer()
	s.Activity().Append(storage.ActivityEntry{
		ID: "priv-1", OrganizationID: "org1", Type: "medical",
		Actor: "u-doc", Action: "noted", Visibility: storage.VisibilityPrivate,
	})

	other := connect(s, "c1", "u1", "org1", nil, []string{"player"})
	actor := connect(s, "c2", "u-doc", "org1", nil, []string{"medical_staff"})
	drain(t, other)
	drain(t, actor)

	dispatch(ctx, other, gateway.EvtActivitySubscribe, map[string]any{})
	dispatch(ctx, actor, gateway.EvtActivitySubscribe, map[string]any{})

	frames := drain(t, other)
	recent, _ := findEvent(frames, gateway.EvtActivityRecent)
	if entries, _ := recent.Data["entries"].([]any); len(entries) != 0 {
		t.Errorf("private entry leaked on backfill: %v", entries)
	}
	frames = drain(t, actor)
	recent, _ = findEvent(frames, gateway.EvtActivityRecent)
	if entries, _ := recent.Data["entries"].([]any); len(entries) != 1 {
		t.Errorf("actor missing own private entry: %v", entries)
	}

	// live private entry follows the same rule
	s.Bcast().PublishActivity(storage.ActivityEntry{
		ID: "priv-2", OrganizationID: "org1", Type: "medical",
		Actor: "u-doc", Action: "noted", Visibility: storage.VisibilityPrivate,
	})
	if frames := drain(t, other); countEvent(frames, gateway.EvtActivityNew) != 0 {
		t.Error("private live entry leaked")
	}
	if frames := drain(t, actor); countEvent(frames, gateway.EvtActivityNew) != 1 {
		t.Error("actor missed own private live entry")
	}
}

func TestActivityUnsubscribe(t *testing.T) {
	s, ctx := newTestServer()
	c := connect(s, "c1", "u1", "org1", nil, []string{"player"})
	drain(t, c)

	dispatch(ctx, c, gateway.EvtActivitySubscribe, map[string]any{})
	drain(t, c)
	dispatch(ctx, c, gateway.EvtActivityUnsubscribe, nil)

	s.Bcast().PublishActivity(storage.ActivityEntry{
		ID: "x", OrganizationID: "org1", Type: "training",
		Actor: "u2", Action: "created", Visibility: storage.VisibilityPublic,
	})
	if frames := drain(t, c); countEvent(frames, gateway.EvtActivityNew) != 0 {
		t.Errorf("unsubscribed connection still receives: %v", frames)
	}
}
