// Package session holds the membership table of collaboration sessions.
//
// A session exists while at least one connection has joined it under a
// document key. The Registry is pure bookkeeping: it never routes
// messages and never interprets edits. Lookups for unknown documents or
// connections are silent no-ops because presence traffic racing a
// disconnect is expected.
package session

import (
	"sort"
	"sync"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/protocol"
)

// Departure describes one membership removed by DropConnection.
type Departure struct {
	DocumentID  string
	Participant protocol.Participant
	Remaining   int
}

// session is the participant set of one document, kept in join order.
type session struct {
	order        []string
	participants map[string]*protocol.Participant
}

func newSession() *session {
	return &session{participants: make(map[string]*protocol.Participant)}
}

func (s *session) remove(connectionID string) (protocol.Participant, bool) {
	p, ok := s.participants[connectionID]
	if !ok {
		return protocol.Participant{}, false
	}
	delete(s.participants, connectionID)
	for i, id := range s.order {
		if id == connectionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return *p, true
}

// Registry maps document ids to their connected participants.
type Registry struct {
	sessions map[string]*session
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
	}
}

// Join inserts participant under connectionID, creating the session if
// needed. Joining again with the same connection overwrites the entry in
// place.
func (r *Registry) Join(documentID, connectionID string, participant protocol.Participant) {
	participant.ConnectionID = connectionID

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[documentID]
	if !ok {
		s = newSession()
		r.sessions[documentID] = s
	}

	if existing, ok := s.participants[connectionID]; ok {
		*existing = participant
		return
	}
	s.participants[connectionID] = &participant
	s.order = append(s.order, connectionID)
}

// Leave removes the connection from the session. The session is deleted
// once it has no participants left. ok is false when nothing was removed.
func (r *Registry) Leave(documentID, connectionID string) (protocol.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[documentID]
	if !ok {
		return protocol.Participant{}, false
	}
	p, ok := s.remove(connectionID)
	if len(s.participants) == 0 {
		delete(r.sessions, documentID)
	}
	return p, ok
}

// UpdateCursor records the connection's cursor. Returns false, changing
// nothing, if the connection is not a participant of that session.
func (r *Registry) UpdateCursor(documentID, connectionID string, position protocol.Position) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[documentID]
	if !ok {
		return false
	}
	p, ok := s.participants[connectionID]
	if !ok {
		return false
	}
	p.Cursor = position
	return true
}

// Lookup returns the participant entry of a connection in a session.
func (r *Registry) Lookup(documentID, connectionID string) (protocol.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[documentID]
	if !ok {
		return protocol.Participant{}, false
	}
	p, ok := s.participants[connectionID]
	if !ok {
		return protocol.Participant{}, false
	}
	return *p, true
}

// ListParticipants returns the session's participants in join order.
// The result is a copy and is never nil.
func (r *Registry) ListParticipants(documentID string) []protocol.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[documentID]
	if !ok {
		return []protocol.Participant{}
	}
	snapshot := make([]protocol.Participant, 0, len(s.order))
	for _, id := range s.order {
		snapshot = append(snapshot, *s.participants[id])
	}
	return snapshot
}

// DropConnection removes the connection from every session it belongs
// to and reports each removal, ordered by document id.
func (r *Registry) DropConnection(connectionID string) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	var departures []Departure
	// a connection normally sits in one session, but scan them all
	for documentID, s := range r.sessions {
		p, ok := s.remove(connectionID)
		if !ok {
			continue
		}
		departures = append(departures, Departure{
			DocumentID:  documentID,
			Participant: p,
			Remaining:   len(s.participants),
		})
		if len(s.participants) == 0 {
			delete(r.sessions, documentID)
		}
	}

	sort.Slice(departures, func(i, j int) bool {
		return departures[i].DocumentID < departures[j].DocumentID
	})
	return departures
}

// Has reports whether a session exists for documentID.
func (r *Registry) Has(documentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.sessions[documentID]
	return ok
}

// SessionCount returns the number of live sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
