package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/Stormrider66/hockey-hub-sub043/logger"
	"github.com/Stormrider66/hockey-hub-sub043/service/storage"
)

// Wire event catalog. The set is closed: every event name on the wire
// appears here, and every payload is one of the structs below. Clients
// send Frame{Event, Data}; the dispatcher decodes Data into the typed
// payload of the named event.
const (
	// connection lifecycle (server -> client)
	EvtConnectionSuccess = "connection:success"
	EvtConnectionError   = "connection:error"
	EvtPresenceUpdate    = "presence:update"

	// heartbeat
	EvtPing = "ping"
	EvtPong = "pong"

	// room membership
	EvtRoomJoin        = "room:join"
	EvtRoomLeave       = "room:leave"
	EvtRoomUsersUpdate = "room:users:update"
	EvtRoomDenied      = "room:denied"

	// operation-level denial (requester only)
	EvtPermissionDenied = "permission:denied"

	// training sessions
	EvtTrainingJoin         = "training:session:join"
	EvtTrainingLeave        = "training:session:leave"
	EvtTrainingUpdate       = "training:session:update"
	EvtTrainingParticipants = "training:session:participants"

	// calendar relay
	EvtCalendarCreated = "calendar:event:created"
	EvtCalendarUpdated = "calendar:event:update"
	EvtCalendarDeleted = "calendar:event:deleted"

	// dashboard widgets (pushes are server -> client)
	EvtWidgetSubscribe   = "dashboard:widget:subscribe"
	EvtWidgetUnsubscribe = "dashboard:widget:unsubscribe"
	EvtWidgetUpdate      = "dashboard:widget:update"
	EvtMetricUpdate      = "dashboard:metric:update"

	// collaborative documents
	EvtCollabRoster     = "collaboration:roster"
	EvtCollabJoined     = "collaboration:collaborator-joined"
	EvtCollabLeft       = "collaboration:collaborator-left"
	EvtCollabCursor     = "collaboration:cursor"
	EvtCollabEdit       = "collaboration:edit"
	EvtCollabEditAck    = "collaboration:edit:ack"
	EvtCollabSave       = "collaboration:save"
	EvtCollabSaved      = "collaboration:saved"

	// activity feed
	EvtActivitySubscribe   = "activity:subscribe"
	EvtActivityUnsubscribe = "activity:unsubscribe"
	EvtActivityRecent      = "activity:recent"
	EvtActivityNew         = "activity:new"
)

// Frame is the wire envelope: {"event": "...", "data": {...}}.
type Frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("frame missing event name")
	}
	return f, nil
}

// EncodeFrame marshals an outgoing event. A marshal failure is a
// programming error on a server-built payload; it is logged and the
// frame dropped rather than propagated.
func EncodeFrame(event string, data any) []byte {
	b, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: data})
	if err != nil {
		logger.Errorf("[events] marshal %s failed: %v", event, err)
		return nil
	}
	return b
}

// ===== payloads, client -> server =====

type RoomJoinPayload struct {
	RoomType string         `json:"roomType"`
	RoomID   string         `json:"roomId"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type RoomLeavePayload struct {
	RoomType string `json:"roomType"`
	RoomID   string `json:"roomId"`
}

type TrainingJoinPayload struct {
	SessionID string `json:"sessionId"`
}

type TrainingUpdatePayload struct {
	SessionID string         `json:"sessionId"`
	TeamID    string         `json:"teamId,omitempty"`
	Updates   map[string]any `json:"updates"`
}

type CalendarEventPayload struct {
	CalendarID string         `json:"calendarId"`
	EventID    string         `json:"eventId"`
	TeamID     string         `json:"teamId,omitempty"`
	Event      map[string]any `json:"event,omitempty"`
}

type WidgetSubscribePayload struct {
	WidgetID string `json:"widgetId"`
}

type CursorPayload struct {
	DocumentID string `json:"documentId"`
	Position   int    `json:"position"`
	Selection  *Range `json:"selection,omitempty"`
}

type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type EditPayload struct {
	DocumentID string           `json:"documentId"`
	Changes    []map[string]any `json:"changes"`
	Version    int64            `json:"version"`
}

type SavePayload struct {
	DocumentID string `json:"documentId"`
	Version    int64  `json:"version"`
}

type ActivitySubscribePayload struct {
	Limit int    `json:"limit,omitempty"`
	Types string `json:"types,omitempty"` // optional comma-joined type filter
}

// ===== payloads, server -> client =====

type ConnectionSuccessPayload struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type RoomDeniedPayload struct {
	RoomType string `json:"roomType"`
	RoomID   string `json:"roomId"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
}

type RoomUsersPayload struct {
	RoomID string   `json:"roomId"`
	Users  []string `json:"users"`
}

type PresencePayload struct {
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
	Status         string `json:"status"` // online | offline
}

type TrainingParticipantsPayload struct {
	SessionID    string   `json:"sessionId"`
	Participants []string `json:"participants"`
}

type TrainingMemberPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

type CollaboratorPayload struct {
	DocumentID string `json:"documentId"`
	UserID     string `json:"userId"`
	Color      string `json:"color,omitempty"`
}

type RosterEntry struct {
	UserID   string `json:"userId"`
	Color    string `json:"color"`
	JoinedAt int64  `json:"joinedAt"`
}

type RosterPayload struct {
	DocumentID    string        `json:"documentId"`
	Collaborators []RosterEntry `json:"collaborators"`
}

type CursorBroadcastPayload struct {
	DocumentID string `json:"documentId"`
	UserID     string `json:"userId"`
	Position   int    `json:"position"`
	Selection  *Range `json:"selection,omitempty"`
}

type EditBroadcastPayload struct {
	DocumentID string           `json:"documentId"`
	UserID     string           `json:"userId"`
	Changes    []map[string]any `json:"changes"`
	Version    int64            `json:"version"`
}

type EditAckPayload struct {
	DocumentID string `json:"documentId"`
	Version    int64  `json:"version"`
}

type SavedPayload struct {
	DocumentID string `json:"documentId"`
	SavedBy    string `json:"savedBy"`
	Version    int64  `json:"version"`
	Timestamp  int64  `json:"timestamp"`
}

type ActivityRecentPayload struct {
	OrganizationID string                  `json:"organizationId"`
	Entries        []storage.ActivityEntry `json:"entries"`
}
