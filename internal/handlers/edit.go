package handlers

import (
	"fmt"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/protocol"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/room"
)

// EditHandler fans edit events out to the rest of a room. Payloads are
// forwarded byte for byte under the relayed channel name; the server
// reads nothing but the document id.
type EditHandler struct {
	broadcaster Broadcaster
}

func NewEditHandler(broadcaster Broadcaster) *EditHandler {
	return &EditHandler{
		broadcaster: broadcaster,
	}
}

// Handle relays an asset-* or layers-reordered frame.
func (h *EditHandler) Handle(p room.Peer, env protocol.Envelope) error {
	out, ok := protocol.RelayedEvent(env.Event)
	if !ok {
		return fmt.Errorf("%w: %s", protocol.ErrUnknownEvent, env.Event)
	}

	documentID, err := protocol.DocumentOf(env.Data)
	if err != nil {
		return fmt.Errorf("%s: %w", env.Event, err)
	}

	msg, err := protocol.EncodeRaw(out, env.Data)
	if err != nil {
		return err
	}
	h.broadcaster.Broadcast(documentID, msg, p.ConnectionID())
	return nil
}
