package handlers

import (
	"fmt"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/protocol"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/room"
)

// MessageRouter routes incoming frames to the handler for their channel.
type MessageRouter struct {
	sessionHandler *SessionHandler
	cursorHandler  *CursorHandler
	editHandler    *EditHandler
}

func NewMessageRouter(registry Registry, broadcaster Broadcaster) *MessageRouter {
	return &MessageRouter{
		sessionHandler: NewSessionHandler(registry, broadcaster),
		cursorHandler:  NewCursorHandler(registry, broadcaster),
		editHandler:    NewEditHandler(broadcaster),
	}
}

// Route processes one frame from p to completion.
func (mr *MessageRouter) Route(p room.Peer, msg []byte) error {
	env, err := protocol.Decode(msg)
	if err != nil {
		return err
	}

	switch env.Event {
	case protocol.EventJoinSession:
		return mr.sessionHandler.HandleJoin(p, env)
	case protocol.EventLeaveSession:
		return mr.sessionHandler.HandleLeave(p, env)
	case protocol.EventCursorMove:
		return mr.cursorHandler.Handle(p, env)
	case protocol.EventAssetCreated, protocol.EventAssetUpdated, protocol.EventAssetDeleted, protocol.EventLayersReordered:
		return mr.editHandler.Handle(p, env)
	default:
		return fmt.Errorf("%w: %s", protocol.ErrUnknownEvent, env.Event)
	}
}

// Disconnect runs the implicit leave for a dropped connection.
func (mr *MessageRouter) Disconnect(p room.Peer) {
	mr.sessionHandler.HandleDisconnect(p)
}
