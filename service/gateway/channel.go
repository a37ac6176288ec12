package gateway

import (
	"strings"

	security "github.com/Stormrider66/hockey-hub-sub043/tools/security"
)

// Channel types. A channel is identified by (type, id); its key in the
// registry maps is "type:id".
const (
	ChannelUser         = "user"
	ChannelOrganization = "organization"
	ChannelTeam         = "team"
	ChannelRole         = "role" // id is "<orgId>:<role>"
	ChannelTraining     = "training"
	ChannelCalendar     = "calendar"
	ChannelDashboard    = "dashboard"
	ChannelDocument     = "document"
	ChannelWidget       = "widget"
	ChannelActivity     = "activity" // id is the organization id
)

func ChannelKey(ctype, id string) string { return ctype + ":" + id }

// Roles allowed to edit/save collaborative documents.
var documentEditorRoles = map[string]struct{}{
	"coach":            {},
	"admin":            {},
	"club_admin":       {},
	"medical_staff":    {},
	"physical_trainer": {},
}

// Roles allowed to push mutations through the coarser-gated handlers
// (training/calendar/dashboard updates).
var elevatedRoles = map[string]struct{}{
	"coach":            {},
	"admin":            {},
	"club_admin":       {},
	"physical_trainer": {},
}

// Authorize is the pure channel-join policy. It never mutates anything;
// denial is a normal outcome, not an error.
func Authorize(id *security.Identity, ctype, channelID string) bool {
	if id == nil {
		return false
	}
	switch ctype {
	case ChannelUser:
		return channelID == id.UserID
	case ChannelOrganization:
		return channelID == id.OrganizationID
	case ChannelTeam:
		return id.InTeam(channelID)
	case ChannelRole:
		org, role, ok := splitRoleChannel(channelID)
		if !ok {
			return false
		}
		return org == id.OrganizationID && id.HasRole(role)
	case ChannelTraining, ChannelCalendar, ChannelDashboard, ChannelWidget:
		// join is open to any authenticated identity; mutations are
		// gated per-event
		return true
	case ChannelDocument:
		// same: join open, edit/save gated by CanEditDocument
		return true
	case ChannelActivity:
		return channelID == id.OrganizationID
	default:
		// unrecognized channel type
		return false
	}
}

func splitRoleChannel(channelID string) (org, role string, ok bool) {
	i := strings.LastIndex(channelID, ":")
	if i <= 0 || i == len(channelID)-1 {
		return "", "", false
	}
	return channelID[:i], channelID[i+1:], true
}

// CanEditDocument reports whether the identity holds a document editor
// role.
func CanEditDocument(id *security.Identity) bool {
	for _, r := range id.Roles {
		if _, ok := documentEditorRoles[r]; ok {
			return true
		}
	}
	return false
}

// CanMutate reports whether the identity may push coarse mutation
// events (training/calendar/dashboard updates).
func CanMutate(id *security.Identity) bool {
	for _, r := range id.Roles {
		if _, ok := elevatedRoles[r]; ok {
			return true
		}
	}
	return false
}

// DefaultChannels are the channels every connection joins at Connect:
// its own user channel, its organization, one per team, one per
// (organization, role) pair.
func DefaultChannels(id *security.Identity) []string {
	keys := make([]string, 0, 2+len(id.TeamIDs)+len(id.Roles))
	keys = append(keys,
		ChannelKey(ChannelUser, id.UserID),
		ChannelKey(ChannelOrganization, id.OrganizationID),
	)
	for _, t := range id.TeamIDs {
		keys = append(keys, ChannelKey(ChannelTeam, t))
	}
	for _, r := range id.Roles {
		keys = append(keys, ChannelKey(ChannelRole, id.OrganizationID+":"+r))
	}
	return keys
}
