// Package observer provides a typed set of callbacks.
package observer

import "sync"

type entry[T any] struct {
	id uint64
	fn func(T)
}

// Set holds callbacks for values of type T. Emit calls them in the order
// they were added. The zero value is ready to use.
type Set[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	entries []entry[T]
}

// Add registers fn and returns a function removing it again. The
// returned function may be called any number of times.
func (s *Set[T]) Add(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.entries = append(s.entries, entry[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *Set[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return
		}
	}
}

// Emit calls every registered callback with v. Callbacks added or
// removed while Emit runs take effect on the next call.
func (s *Set[T]) Emit(v T) {
	s.mu.Lock()
	snapshot := make([]func(T), len(s.entries))
	for i, e := range s.entries {
		snapshot[i] = e.fn
	}
	s.mu.Unlock()

	for _, fn := range snapshot {
		fn(v)
	}
}

// Len returns the number of registered callbacks.
func (s *Set[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
