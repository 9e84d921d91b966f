package handlers

import (
	"fmt"

	"github.com/labstack/gommon/log"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/protocol"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/room"
)

// SessionHandler handles joins, leaves and disconnects.
type SessionHandler struct {
	registry    Registry
	broadcaster Broadcaster
}

func NewSessionHandler(registry Registry, broadcaster Broadcaster) *SessionHandler {
	return &SessionHandler{
		registry:    registry,
		broadcaster: broadcaster,
	}
}

// HandleJoin admits the connection to the room. The whole room, joiner
// included, gets a fresh snapshot; everyone else is told who joined.
// An invalid identity is refused without any reply.
func (h *SessionHandler) HandleJoin(p room.Peer, env protocol.Envelope) error {
	var join protocol.JoinSession
	if err := env.DecodeData(&join); err != nil {
		return err
	}
	if err := protocol.ValidateJoin(join); err != nil {
		return fmt.Errorf("join refused for connection %s: %w", p.ConnectionID(), err)
	}

	h.registry.Join(join.DocumentID, p.ConnectionID(), protocol.Participant{Profile: join.Participant})
	joined, ok := h.registry.Lookup(join.DocumentID, p.ConnectionID())
	if !ok {
		// dropped between join and lookup
		return nil
	}
	log.Infof("User %s joined document %s on connection %s", joined.ID, join.DocumentID, p.ConnectionID())

	if err := h.broadcastUsers(join.DocumentID); err != nil {
		return err
	}

	msg, err := protocol.Encode(protocol.EventUserJoined, protocol.UserJoined{DocumentID: join.DocumentID, User: joined})
	if err != nil {
		return err
	}
	h.broadcaster.Broadcast(join.DocumentID, msg, p.ConnectionID())
	return nil
}

// HandleLeave removes the connection from the room named in the payload.
func (h *SessionHandler) HandleLeave(p room.Peer, env protocol.Envelope) error {
	var leave protocol.LeaveSession
	if err := env.DecodeData(&leave); err != nil {
		return err
	}

	left, ok := h.registry.Leave(leave.DocumentID, p.ConnectionID())
	if !ok {
		return nil
	}
	log.Infof("User %s left document %s", left.ID, leave.DocumentID)
	return h.notifyDeparture(leave.DocumentID, left.ID)
}

// HandleDisconnect treats a dropped transport as a leave of every room
// the connection was in.
func (h *SessionHandler) HandleDisconnect(p room.Peer) {
	for _, d := range h.registry.DropConnection(p.ConnectionID()) {
		log.Infof("User %s disconnected from document %s", d.Participant.ID, d.DocumentID)
		if d.Remaining == 0 {
			continue
		}
		if err := h.notifyDeparture(d.DocumentID, d.Participant.ID); err != nil {
			log.Errorf("Error: notifying departure from %s - %v", d.DocumentID, err)
		}
	}
}

func (h *SessionHandler) notifyDeparture(documentID, userID string) error {
	if len(h.registry.ListParticipants(documentID)) == 0 {
		return nil
	}

	msg, err := protocol.Encode(protocol.EventUserLeft, protocol.UserLeft{DocumentID: documentID, UserID: userID})
	if err != nil {
		return err
	}
	h.broadcaster.Broadcast(documentID, msg, "")
	return h.broadcastUsers(documentID)
}

// broadcastUsers sends the full participant list to the whole room.
func (h *SessionHandler) broadcastUsers(documentID string) error {
	users := h.registry.ListParticipants(documentID)
	msg, err := protocol.Encode(protocol.EventSessionUsersUpdated, protocol.SessionUsersUpdated{DocumentID: documentID, Users: users})
	if err != nil {
		return err
	}
	h.broadcaster.Broadcast(documentID, msg, "")
	return nil
}
