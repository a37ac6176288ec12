package handlers

import (
	"sync"
	"time"

	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
	decode "github.com/Stormrider66/hockey-hub-sub043/tools/decode"
	errs "github.com/Stormrider66/hockey-hub-sub043/tools/errs"
)

// Palette for collaborator colors. Assignment is by join order modulo
// the palette size, so rosters built in the same order color the same
// way on any gateway instance.
var collabPalette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c",
}

type collaborator struct {
	Color    string
	JoinedAt int64
	ConnID   string
}

// CollaborationHandler tracks per-document rosters and relays cursor,
// edit and save traffic. Document state machine:
// no entry -> roster(>=1) -> empty roster deletes the entry.
type CollaborationHandler struct {
	mu      sync.Mutex
	rosters map[string]map[string]*collaborator // doc -> user -> info
}

func NewCollaborationHandler() *CollaborationHandler {
	return &CollaborationHandler{rosters: make(map[string]map[string]*collaborator)}
}

// Register wires the handler onto the server: its domain hook, its
// wire events and its disconnect purge.
func (h *CollaborationHandler) Register(s *gateway.Server) {
	s.RegisterHook(h)
	s.RegisterHandler(gateway.HandlerFunc(gateway.EvtCollabCursor, h.handleCursor))
	s.RegisterHandler(gateway.HandlerFunc(gateway.EvtCollabEdit, h.handleEdit))
	s.RegisterHandler(gateway.HandlerFunc(gateway.EvtCollabSave, h.handleSave))
}

func (h *CollaborationHandler) ChannelType() string { return gateway.ChannelDocument }

// OnJoin assigns the next palette color, inserts into the roster,
// tells the rest of the roster, and replies to the joiner with the
// full current roster (itself included).
func (h *CollaborationHandler) OnJoin(ctx *gateway.Context, c *gateway.WsConn, docID string, _ map[string]any) {
	uid := c.UserID()

	h.mu.Lock()
	roster := h.rosters[docID]
	if roster == nil {
		roster = make(map[string]*collaborator)
		h.rosters[docID] = roster
	}
	member, rejoin := roster[uid]
	if !rejoin {
		member = &collaborator{
			Color:    collabPalette[len(roster)%len(collabPalette)],
			JoinedAt: time.Now().UnixMilli(),
			ConnID:   c.ConnID,
		}
		roster[uid] = member
	} else {
		member.ConnID = c.ConnID
	}
	snapshot := rosterSnapshot(roster)
	h.mu.Unlock()

	if !rejoin {
		ctx.S.Mgr().BroadcastToChannel(gateway.ChannelDocument, docID, gateway.EvtCollabJoined, gateway.CollaboratorPayload{
			DocumentID: docID,
			UserID:     uid,
			Color:      member.Color,
		}, c)
	}
	c.SendEvent(gateway.EvtCollabRoster, gateway.RosterPayload{
		DocumentID:    docID,
		Collaborators: snapshot,
	})
}

func (h *CollaborationHandler) OnLeave(ctx *gateway.Context, c *gateway.WsConn, docID string) {
	h.removeCollaborator(ctx, c, docID)
}

// OnDisconnectPurge removes the connection's user from every roster
// it is in, unless another of the user's connections still sits in
// that document channel.
func (h *CollaborationHandler) OnDisconnectPurge(ctx *gateway.Context) gateway.DisconnectHook {
	return func(c *gateway.WsConn) {
		h.mu.Lock()
		docs := make([]string, 0, len(h.rosters))
		for docID, roster := range h.rosters {
			if _, ok := roster[c.UserID()]; ok {
				docs = append(docs, docID)
			}
		}
		h.mu.Unlock()
		for _, docID := range docs {
			h.removeCollaborator(ctx, c, docID)
		}
	}
}

func (h *CollaborationHandler) removeCollaborator(ctx *gateway.Context, c *gateway.WsConn, docID string) {
	uid := c.UserID()

	// another open connection of the same user keeps the roster entry
	for _, other := range ctx.S.Mgr().ChannelConns(gateway.ChannelDocument, docID) {
		if other.UserID() == uid && other.ConnID != c.ConnID {
			return
		}
	}

	h.mu.Lock()
	roster := h.rosters[docID]
	if roster == nil {
		h.mu.Unlock()
		return
	}
	if _, ok := roster[uid]; !ok {
		h.mu.Unlock()
		return
	}
	delete(roster, uid)
	if len(roster) == 0 {
		delete(h.rosters, docID)
	}
	h.mu.Unlock()

	ctx.S.Mgr().BroadcastToChannel(gateway.ChannelDocument, docID, gateway.EvtCollabLeft, gateway.CollaboratorPayload{
		DocumentID: docID,
		UserID:     uid,
	}, c)
}

// handleCursor relays verbatim to the rest of the roster. Cursors are
// non-authoritative: drops and reordering are tolerated, nothing is
// persisted.
func (h *CollaborationHandler) handleCursor(ctx *gateway.Context, c *gateway.WsConn, f *gateway.Frame) error {
	p, err := decode.DecodeMap[gateway.CursorPayload](f.Data)
	if err != nil {
		return err
	}
	if !ctx.S.Mgr().InChannel(c, gateway.ChannelDocument, p.DocumentID) {
		return nil
	}
	ctx.S.Mgr().BroadcastToChannel(gateway.ChannelDocument, p.DocumentID, gateway.EvtCollabCursor, gateway.CursorBroadcastPayload{
		DocumentID: p.DocumentID,
		UserID:     c.UserID(),
		Position:   p.Position,
		Selection:  p.Selection,
	}, c)
	return nil
}

// handleEdit gates on the editor role set. The ack to the sender and
// the broadcast to the rest of the roster are two distinct messages so
// the sender can tell "my edit was relayed" from "someone else
// edited".
func (h *CollaborationHandler) handleEdit(ctx *gateway.Context, c *gateway.WsConn, f *gateway.Frame) error {
	p, err := decode.DecodeMap[gateway.EditPayload](f.Data)
	if err != nil {
		return err
	}
	if !ctx.S.Mgr().InChannel(c, gateway.ChannelDocument, p.DocumentID) {
		return nil
	}
	if !gateway.CanEditDocument(c.Identity) {
		c.SendEvent(gateway.EvtPermissionDenied, gateway.ErrorPayload{
			Code:    errs.PermissionDeniedCode,
			Message: "edit requires an editor role",
		})
		return nil
	}

	ctx.S.Mgr().BroadcastToChannel(gateway.ChannelDocument, p.DocumentID, gateway.EvtCollabEdit, gateway.EditBroadcastPayload{
		DocumentID: p.DocumentID,
		UserID:     c.UserID(),
		Changes:    p.Changes,
		Version:    p.Version,
	}, c)
	c.SendEvent(gateway.EvtCollabEditAck, gateway.EditAckPayload{
		DocumentID: p.DocumentID,
		Version:    p.Version,
	})
	return nil
}

// handleSave gates like edit but fans out to everyone, the saver
// included.
func (h *CollaborationHandler) handleSave(ctx *gateway.Context, c *gateway.WsConn, f *gateway.Frame) error {
	p, err := decode.DecodeMap[gateway.SavePayload](f.Data)
	if err != nil {
		return err
	}
	if !ctx.S.Mgr().InChannel(c, gateway.ChannelDocument, p.DocumentID) {
		return nil
	}
	if !gateway.CanEditDocument(c.Identity) {
		c.SendEvent(gateway.EvtPermissionDenied, gateway.ErrorPayload{
			Code:    errs.PermissionDeniedCode,
			Message: "save requires an editor role",
		})
		return nil
	}

	saved := gateway.SavedPayload{
		DocumentID: p.DocumentID,
		SavedBy:    c.UserID(),
		Version:    p.Version,
		Timestamp:  time.Now().UnixMilli(),
	}
	ctx.S.Mgr().BroadcastToChannel(gateway.ChannelDocument, p.DocumentID, gateway.EvtCollabSaved, saved, nil)
	ctx.S.Emit(gateway.TopicGatewayEvents, gateway.EvtCollabSaved, saved)
	return nil
}

func rosterSnapshot(roster map[string]*collaborator) []gateway.RosterEntry {
	out := make([]gateway.RosterEntry, 0, len(roster))
	for uid, m := range roster {
		out = append(out, gateway.RosterEntry{
			UserID:   uid,
			Color:    m.Color,
			JoinedAt: m.JoinedAt,
		})
	}
	return out
}
