package storage

import (
	"strings"
	"sync"

	security "github.com/Stormrider66/hockey-hub-sub043/tools/security"
)

// DefaultActivityCap bounds the per-organization recent-activity buffer.
const DefaultActivityCap = 100

// Visibility scopes for activity entries.
const (
	VisibilityPublic  = "public"  // whole organization
	VisibilityPrivate = "private" // actor only
	// team-scoped entries use "team:<teamId>"
	visibilityTeamPrefix = "team:"
)

// ActivityEntry is one item of the organization activity feed.
type ActivityEntry struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	Type           string         `json:"type"`
	Actor          string         `json:"actor"`
	Action         string         `json:"action"`
	Target         string         `json:"target,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Timestamp      int64          `json:"timestamp"`
	Visibility     string         `json:"visibility"`
}

// VisibleTo applies the entry's visibility scope to an identity:
// private entries only reach their actor, team entries only members of
// that team, everything else is organization-wide.
func (e *ActivityEntry) VisibleTo(id *security.Identity) bool {
	if e.OrganizationID != id.OrganizationID {
		return false
	}
	switch {
	case e.Visibility == VisibilityPrivate:
		return e.Actor == id.UserID
	case strings.HasPrefix(e.Visibility, visibilityTeamPrefix):
		return id.InTeam(strings.TrimPrefix(e.Visibility, visibilityTeamPrefix))
	default:
		return true
	}
}

// ActivityCache keeps a bounded FIFO of recent entries per
// organization, newest-last. Oldest entries are evicted on overflow.
type ActivityCache struct {
	mu    sync.RWMutex
	byOrg map[string][]ActivityEntry
	cap   int
}

func NewActivityCache(capacity int) *ActivityCache {
	if capacity <= 0 {
		capacity = DefaultActivityCap
	}
	return &ActivityCache{
		byOrg: make(map[string][]ActivityEntry),
		cap:   capacity,
	}
}

// Append adds an entry to its organization's buffer, evicting the
// oldest entry when the buffer is full.
func (a *ActivityCache) Append(e ActivityEntry) {
	if e.OrganizationID == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	buf := a.byOrg[e.OrganizationID]
	if len(buf) >= a.cap {
		// shift instead of re-slice so the backing array does not pin
		// evicted entries
		copy(buf, buf[1:])
		buf = buf[:len(buf)-1]
	}
	a.byOrg[e.OrganizationID] = append(buf, e)
}

// Recent returns up to limit entries visible to the identity,
// newest-last. limit <= 0 means the whole buffer.
func (a *ActivityCache) Recent(orgID string, limit int, id *security.Identity) []ActivityEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	buf := a.byOrg[orgID]
	out := make([]ActivityEntry, 0, len(buf))
	for _, e := range buf {
		if id == nil || e.VisibleTo(id) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Len reports the current buffer size for an organization.
func (a *ActivityCache) Len(orgID string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.byOrg[orgID])
}
