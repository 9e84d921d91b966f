package room

import (
	"github.com/labstack/gommon/log"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/protocol"
)

// Members lists who is in a room.
type Members interface {
	ListParticipants(documentID string) []protocol.Participant
}

// Broadcaster delivers frames to the connections of a room.
type Broadcaster struct {
	hub     *Hub
	members Members
}

// NewBroadcaster creates a broadcaster resolving rooms through members
// and connections through hub.
func NewBroadcaster(hub *Hub, members Members) *Broadcaster {
	return &Broadcaster{
		hub:     hub,
		members: members,
	}
}

// Broadcast sends msg to every participant of documentID except the
// connection named by except (pass "" to include everyone). Delivery is
// at most once: a peer that cannot take the frame is skipped and closes
// itself. Returns the number of peers that accepted the frame.
func (b *Broadcaster) Broadcast(documentID string, msg []byte, except string) int {
	participants := b.members.ListParticipants(documentID)

	delivered := 0
	for _, p := range participants {
		if p.ConnectionID == except {
			continue
		}
		if b.SendTo(p.ConnectionID, msg) {
			delivered++
		}
	}
	return delivered
}

// SendTo delivers msg to a single connection.
func (b *Broadcaster) SendTo(connectionID string, msg []byte) bool {
	peer, ok := b.hub.Get(connectionID)
	if !ok {
		return false
	}
	if !peer.Send(msg) {
		log.Warnf("Broadcast failed for connection %s: send queue full", connectionID)
		return false
	}
	return true
}
