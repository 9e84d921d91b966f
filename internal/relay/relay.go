// Package relay connects the editor's document to a collaboration
// session. Local edits are applied first and then broadcast; remote
// edits are applied in arrival order, last write wins.
package relay

import (
	"errors"
	"fmt"

	"github.com/labstack/gommon/log"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/object"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/observer"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/protocol"
)

// Origin tells whether an applied edit came from this editor or a peer.
type Origin int

const (
	Local Origin = iota
	Remote
)

func (o Origin) String() string {
	if o == Local {
		return "local"
	}
	return "remote"
}

// Sender broadcasts edits to the session. client.Agent implements it.
type Sender interface {
	BroadcastEdit(e protocol.EditEvent) error
}

// EditSource delivers edits made by other participants.
type EditSource interface {
	OnEdit(fn func(protocol.EditEvent)) func()
}

type applied struct {
	edit   protocol.EditEvent
	origin Origin
}

type Relay struct {
	doc       *object.Document
	sender    Sender
	validator *object.Validator
	applied   observer.Set[applied]
}

// New creates a relay writing to doc and broadcasting through sender.
// A nil doc starts empty; a nil sender keeps edits local.
func New(doc *object.Document, sender Sender) *Relay {
	if doc == nil {
		doc = object.NewDocument()
	}
	return &Relay{
		doc:       doc,
		sender:    sender,
		validator: object.NewValidator(),
	}
}

// Document returns the document the relay writes to.
func (r *Relay) Document() *object.Document {
	return r.doc
}

// ApplyLocal applies e to the document and then hands it to the sender.
// The document is updated even when the broadcast fails.
func (r *Relay) ApplyLocal(e protocol.EditEvent) error {
	if err := r.validate(e); err != nil {
		return err
	}
	if r.apply(e) {
		r.applied.Emit(applied{edit: e, origin: Local})
	}
	if r.sender == nil {
		return nil
	}
	if err := r.sender.BroadcastEdit(e); err != nil {
		return fmt.Errorf("broadcast %s: %w", e.Kind, err)
	}
	return nil
}

func (r *Relay) Create(obj object.Visual) error {
	return r.ApplyLocal(protocol.CreateEvent(obj))
}

func (r *Relay) Update(obj object.Visual) error {
	return r.ApplyLocal(protocol.UpdateEvent(obj))
}

func (r *Relay) Delete(id string) error {
	return r.ApplyLocal(protocol.DeleteEvent(id))
}

func (r *Relay) Reorder(objects []object.Visual) error {
	return r.ApplyLocal(protocol.ReorderEvent(objects))
}

// ApplyRemote applies an edit received from a peer. Malformed edits are
// logged and dropped.
func (r *Relay) ApplyRemote(e protocol.EditEvent) {
	if err := r.validate(e); err != nil {
		log.Warnf("Dropping remote %s edit: %v", e.Kind, err)
		return
	}
	if r.apply(e) {
		r.applied.Emit(applied{edit: e, origin: Remote})
	}
}

// Attach applies every edit src delivers. The returned func detaches.
func (r *Relay) Attach(src EditSource) func() {
	return src.OnEdit(r.ApplyRemote)
}

// OnApplied subscribes to edits that changed the document.
func (r *Relay) OnApplied(fn func(protocol.EditEvent, Origin)) func() {
	return r.applied.Add(func(a applied) { fn(a.edit, a.origin) })
}

// apply reports whether the document changed. Update and Delete of an
// absent id are no-ops.
func (r *Relay) apply(e protocol.EditEvent) bool {
	switch e.Kind {
	case protocol.EditCreate:
		r.doc.Append(e.Object)
		return true
	case protocol.EditUpdate:
		return r.doc.Replace(e.Object)
	case protocol.EditDelete:
		return r.doc.Remove(e.ObjectID)
	case protocol.EditReorder:
		r.doc.Reset(e.Objects)
		return true
	default:
		return false
	}
}

func (r *Relay) validate(e protocol.EditEvent) error {
	switch e.Kind {
	case protocol.EditCreate, protocol.EditUpdate:
		return r.validator.Validate(e.Object)
	case protocol.EditDelete:
		if e.ObjectID == "" {
			return errors.New("delete without object id")
		}
		return nil
	case protocol.EditReorder:
		return r.validator.ValidateAll(e.Objects)
	default:
		return fmt.Errorf("unknown edit kind %q", e.Kind)
	}
}
