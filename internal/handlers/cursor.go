package handlers

import (
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/protocol"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/room"
)

// CursorHandler handles cursor position updates. There is no throttling
// here; clients sample their own pointer.
type CursorHandler struct {
	registry    Registry
	broadcaster Broadcaster
}

func NewCursorHandler(registry Registry, broadcaster Broadcaster) *CursorHandler {
	return &CursorHandler{
		registry:    registry,
		broadcaster: broadcaster,
	}
}

// Handle stores the position and relays it to the rest of the room.
// Moves from connections that are not participants are dropped.
func (h *CursorHandler) Handle(p room.Peer, env protocol.Envelope) error {
	var move protocol.CursorMove
	if err := env.DecodeData(&move); err != nil {
		return err
	}

	if !h.registry.UpdateCursor(move.DocumentID, p.ConnectionID(), move.Position) {
		return nil
	}
	sender, ok := h.registry.Lookup(move.DocumentID, p.ConnectionID())
	if !ok {
		return nil
	}

	msg, err := protocol.Encode(protocol.EventCursorMoved, protocol.CursorMoved{
		DocumentID: move.DocumentID,
		UserID:     sender.ID,
		Position:   move.Position,
	})
	if err != nil {
		return err
	}
	h.broadcaster.Broadcast(move.DocumentID, msg, p.ConnectionID())
	return nil
}
