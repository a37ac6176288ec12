package kafka

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
	"github.com/Stormrider66/hockey-hub-sub043/service/storage"
	ids "github.com/Stormrider66/hockey-hub-sub043/tools/ids"
)

// RegisterActivityIngest binds the activity topic to the feed: each
// record is a JSON ActivityEntry that lands in the recent cache and
// fans out to the organization's subscribers.
func RegisterActivityIngest(bcast *gateway.Broadcaster) {
	RegisterHandler(gateway.TopicActivity, func(_ string, _, value []byte) error {
		var e storage.ActivityEntry
		if err := json.Unmarshal(value, &e); err != nil {
			return errors.Wrap(err, "decode activity entry")
		}
		if e.OrganizationID == "" {
			return errors.New("activity entry missing organizationId")
		}
		if e.ID == "" {
			e.ID = ids.GenerateString()
		}
		if e.Timestamp == 0 {
			e.Timestamp = time.Now().UnixMilli()
		}
		if e.Visibility == "" {
			e.Visibility = storage.VisibilityPublic
		}
		bcast.PublishActivity(e)
		return nil
	})
}
