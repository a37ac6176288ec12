package storage

import (
	"fmt"
	"testing"

	security "github.com/Stormrider66/hockey-hub-sub043/tools/security"
)

func entry(org, id, actor, visibility string) ActivityEntry {
	return ActivityEntry{
		ID:             id,
		OrganizationID: org,
		Type:           "training",
		Actor:          actor,
		Action:         "completed",
		Visibility:     visibility,
	}
}

func TestActivityCacheEviction(t *testing.T) {
	c := NewActivityCache(DefaultActivityCap)
	for i := 0; i < DefaultActivityCap+1; i++ {
		c.Append(entry("org1", fmt.Sprintf("e%d", i), "u1", VisibilityPublic))
	}

	if got := c.Len("org1"); got != DefaultActivityCap {
		t.Fatalf("len = %d, want %d", got, DefaultActivityCap)
	}
	got := c.Recent("org1", 0, nil)
	if got[0].ID != "e1" {
		t.Errorf("oldest surviving entry = %s, want e1 (e0 evicted)", got[0].ID)
	}
	if got[len(got)-1].ID != fmt.Sprintf("e%d", DefaultActivityCap) {
		t.Errorf("newest entry = %s", got[len(got)-1].ID)
	}
}

func TestActivityCachePerOrgIsolation(t *testing.T) {
	c := NewActivityCache(10)
	c.Append(entry("org1", "a", "u1", VisibilityPublic))
	c.Append(entry("org2", "b", "u2", VisibilityPublic))

	if c.Len("org1") != 1 || c.Len("org2") != 1 {
		t.Errorf("org buffers crossed: org1=%d org2=%d", c.Len("org1"), c.Len("org2"))
	}
	if len(c.Recent("org3", 0, nil)) != 0 {
		t.Error("unknown org should have no entries")
	}
}

func TestActivityVisibility(t *testing.T) {
	actor := &security.Identity{UserID: "u1", OrganizationID: "org1", TeamIDs: []string{"t1"}}
	teammate := &security.Identity{UserID: "u2", OrganizationID: "org1", TeamIDs: []string{"t1"}}
	outsider := &security.Identity{UserID: "u3", OrganizationID: "org1"}
	otherOrg := &security.Identity{UserID: "u4", OrganizationID: "org2", TeamIDs: []string{"t1"}}

	pub := entry("org1", "p", "u1", VisibilityPublic)
	priv := entry("org1", "q", "u1", VisibilityPrivate)
	team := entry("org1", "r", "u1", "team:t1")

	cases := []struct {
		name string
		e    ActivityEntry
		id   *security.Identity
		want bool
	}{
		{"public to anyone in org", pub, outsider, true},
		{"public blocked cross-org", pub, otherOrg, false},
		{"private to actor", priv, actor, true},
		{"private hidden from teammate", priv, teammate, false},
		{"team to member", team, teammate, true},
		{"team hidden from non-member", team, outsider, false},
		{"team blocked cross-org", team, otherOrg, false},
	}
	for _, tc := range cases {
		if got := tc.e.VisibleTo(tc.id); got != tc.want {
			t.Errorf("%s: VisibleTo = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRecentAppliesLimitAndVisibility(t *testing.T) {
	c := NewActivityCache(50)
	viewer := &security.Identity{UserID: "u2", OrganizationID: "org1"}
	for i := 0; i < 10; i++ {
		vis := VisibilityPublic
		if i%2 == 1 {
			vis = VisibilityPrivate // authored by u1, invisible to u2
		}
		c.Append(entry("org1", fmt.Sprintf("e%d", i), "u1", vis))
	}

	got := c.Recent("org1", 3, viewer)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// newest-last of the 5 visible public entries
	if got[2].ID != "e8" || got[0].ID != "e4" {
		t.Errorf("window = [%s..%s], want [e4..e8]", got[0].ID, got[2].ID)
	}
}
