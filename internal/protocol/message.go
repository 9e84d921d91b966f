package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/object"
)

var (
	// ErrUnknownEvent is returned for envelopes naming a channel nobody handles.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrMissingEvent is returned for envelopes without an event name.
	ErrMissingEvent = errors.New("missing event name")
)

// Envelope is the frame exchanged over the socket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals data and wraps it in an envelope for event.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return EncodeRaw(event, raw)
}

// EncodeRaw wraps already encoded data. HTML characters inside data are
// left unescaped so relayed payloads keep their bytes.
func EncodeRaw(event string, data json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Envelope{Event: event, Data: data}); err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", event, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses a frame into its envelope. The payload is left raw.
func Decode(msg []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, ErrMissingEvent
	}
	return env, nil
}

// DecodeData unmarshals the envelope payload into v.
func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: missing data", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", e.Event, err)
	}
	return nil
}

// JoinSession is sent by a client to enter a document's room.
type JoinSession struct {
	DocumentID  string  `json:"documentId" validate:"required,max=256"`
	Participant Profile `json:"participant"`
}

// LeaveSession is sent by a client leaving a document's room.
type LeaveSession struct {
	DocumentID string `json:"documentId"`
}

// CursorMove carries the sender's pointer position.
type CursorMove struct {
	DocumentID string   `json:"documentId"`
	Position   Position `json:"position"`
}

// DocumentRef is the part of every edit payload the server reads.
type DocumentRef struct {
	DocumentID string `json:"documentId"`
}

// AssetPayload is the data of asset-created/asset-updated and
// asset-add/asset-update.
type AssetPayload struct {
	DocumentID string        `json:"documentId,omitempty"`
	Asset      object.Visual `json:"asset"`
}

// AssetDeleted is the data of asset-deleted/asset-remove.
type AssetDeleted struct {
	DocumentID string `json:"documentId,omitempty"`
	AssetID    string `json:"assetId"`
}

// LayersReordered is the data of layers-reordered/update-layers.
type LayersReordered struct {
	DocumentID string          `json:"documentId,omitempty"`
	Layers     []object.Visual `json:"layers"`
}

// SessionUsersUpdated is the full participant snapshot of a room.
// DocumentID names the room on every presence frame; clients treat an
// empty one as their current room.
type SessionUsersUpdated struct {
	DocumentID string        `json:"documentId,omitempty"`
	Users      []Participant `json:"users"`
}

// UserJoined announces a new participant to the rest of the room.
type UserJoined struct {
	DocumentID string      `json:"documentId,omitempty"`
	User       Participant `json:"user"`
}

// UserLeft announces a departure to the remaining participants.
type UserLeft struct {
	DocumentID string `json:"documentId,omitempty"`
	UserID     string `json:"userId"`
}

// CursorMoved relays a participant's pointer position.
type CursorMoved struct {
	DocumentID string   `json:"documentId,omitempty"`
	UserID     string   `json:"userId"`
	Position   Position `json:"position"`
}
