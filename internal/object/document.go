package object

import "sync"

// Document is the client-local ordered list of visual objects. Order is
// layer order: later objects render above earlier ones.
type Document struct {
	objects []Visual
	mu      sync.RWMutex
}

// NewDocument creates a document holding objects in the given order.
func NewDocument(objects ...Visual) *Document {
	d := &Document{}
	d.Reset(objects)
	return d
}

// Objects returns a snapshot of the document in layer order.
func (d *Document) Objects() []Visual {
	d.mu.RLock()
	defer d.mu.RUnlock()

	snapshot := make([]Visual, len(d.objects))
	for i, obj := range d.objects {
		snapshot[i] = obj.Clone()
	}
	return snapshot
}

// Get returns the object with id.
func (d *Document) Get(id string) (Visual, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, obj := range d.objects {
		if obj.ID == id {
			return obj.Clone(), true
		}
	}
	return Visual{}, false
}

// Len returns the number of objects.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.objects)
}

// Append adds obj on top of the layer stack.
func (d *Document) Append(obj Visual) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.objects = append(d.objects, obj.Clone())
}

// Replace swaps every object sharing obj's id for obj, wholesale.
// Returns false if no object matched.
func (d *Document) Replace(obj Visual) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	replaced := false
	for i := range d.objects {
		if d.objects[i].ID == obj.ID {
			d.objects[i] = obj.Clone()
			replaced = true
		}
	}
	return replaced
}

// Remove deletes every object with id. Returns false if none existed.
func (d *Document) Remove(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.objects[:0]
	for _, obj := range d.objects {
		if obj.ID != id {
			kept = append(kept, obj)
		}
	}
	removed := len(kept) != len(d.objects)
	// clear the tail so dropped objects can be collected
	for i := len(kept); i < len(d.objects); i++ {
		d.objects[i] = Visual{}
	}
	d.objects = kept
	return removed
}

// Reset replaces the whole ordered list.
func (d *Document) Reset(objects []Visual) {
	next := make([]Visual, len(objects))
	for i, obj := range objects {
		next[i] = obj.Clone()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.objects = next
}
