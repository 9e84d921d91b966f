package handlers

import (
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/protocol"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/session"
)

// Registry is the membership bookkeeping the handlers drive.
type Registry interface {
	Join(documentID, connectionID string, participant protocol.Participant)
	Leave(documentID, connectionID string) (protocol.Participant, bool)
	UpdateCursor(documentID, connectionID string, position protocol.Position) bool
	Lookup(documentID, connectionID string) (protocol.Participant, bool)
	ListParticipants(documentID string) []protocol.Participant
	DropConnection(connectionID string) []session.Departure
}

// Broadcaster defines how frames reach the connections of a room.
type Broadcaster interface {
	Broadcast(documentID string, msg []byte, except string) int
}
