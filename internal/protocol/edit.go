package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/object"
)

// EditKind tags an EditEvent.
type EditKind string

const (
	EditCreate  EditKind = "create"
	EditUpdate  EditKind = "update"
	EditDelete  EditKind = "delete"
	EditReorder EditKind = "reorder"
)

// EditEvent is a structured mutation of the document. Only the field
// matching Kind is meaningful. It carries no ordering metadata: receivers
// apply events in arrival order and the last update wins.
type EditEvent struct {
	Kind     EditKind
	Object   object.Visual   // create, update
	ObjectID string          // delete
	Objects  []object.Visual // reorder
}

// CreateEvent builds a create edit.
func CreateEvent(obj object.Visual) EditEvent {
	return EditEvent{Kind: EditCreate, Object: obj}
}

// UpdateEvent builds an update edit.
func UpdateEvent(obj object.Visual) EditEvent {
	return EditEvent{Kind: EditUpdate, Object: obj}
}

// DeleteEvent builds a delete edit.
func DeleteEvent(id string) EditEvent {
	return EditEvent{Kind: EditDelete, ObjectID: id}
}

// ReorderEvent builds a reorder edit.
func ReorderEvent(objects []object.Visual) EditEvent {
	return EditEvent{Kind: EditReorder, Objects: objects}
}

// Outbound returns the client to server channel and payload for e.
func (e EditEvent) Outbound(documentID string) (string, any, error) {
	switch e.Kind {
	case EditCreate:
		return EventAssetCreated, AssetPayload{DocumentID: documentID, Asset: e.Object}, nil
	case EditUpdate:
		return EventAssetUpdated, AssetPayload{DocumentID: documentID, Asset: e.Object}, nil
	case EditDelete:
		return EventAssetDeleted, AssetDeleted{DocumentID: documentID, AssetID: e.ObjectID}, nil
	case EditReorder:
		layers := e.Objects
		if layers == nil {
			layers = []object.Visual{}
		}
		return EventLayersReordered, LayersReordered{DocumentID: documentID, Layers: layers}, nil
	default:
		return "", nil, fmt.Errorf("unknown edit kind %q", e.Kind)
	}
}

// DecodeEdit turns a relayed server to client frame into an EditEvent.
func DecodeEdit(env Envelope) (EditEvent, error) {
	switch env.Event {
	case EventAssetAdd, EventAssetUpdate:
		var p AssetPayload
		if err := env.DecodeData(&p); err != nil {
			return EditEvent{}, err
		}
		kind := EditCreate
		if env.Event == EventAssetUpdate {
			kind = EditUpdate
		}
		return EditEvent{Kind: kind, Object: p.Asset}, nil
	case EventAssetRemove:
		var p AssetDeleted
		if err := env.DecodeData(&p); err != nil {
			return EditEvent{}, err
		}
		return DeleteEvent(p.AssetID), nil
	case EventUpdateLayers:
		var p LayersReordered
		if err := env.DecodeData(&p); err != nil {
			return EditEvent{}, err
		}
		return ReorderEvent(p.Layers), nil
	default:
		return EditEvent{}, fmt.Errorf("%w: %s", ErrUnknownEvent, env.Event)
	}
}

// DocumentOf extracts the documentId every client payload carries.
func DocumentOf(data json.RawMessage) (string, error) {
	var ref DocumentRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return "", fmt.Errorf("unmarshal document reference: %w", err)
	}
	if ref.DocumentID == "" {
		return "", fmt.Errorf("missing documentId")
	}
	return ref.DocumentID, nil
}
