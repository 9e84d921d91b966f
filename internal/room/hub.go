package room

import "sync"

// Peer is a connection that can receive frames.
type Peer interface {
	ConnectionID() string
	// Send queues msg and reports whether it was accepted.
	Send(msg []byte) bool
}

// Hub is the directory of live connections by connection id.
type Hub struct {
	peers map[string]Peer
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		peers: make(map[string]Peer),
	}
}

// Register adds p, replacing any peer with the same id.
func (h *Hub) Register(p Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p.ConnectionID()] = p
}

// Unregister removes the peer with connectionID.
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers, connectionID)
}

// Get returns the peer registered under connectionID.
func (h *Hub) Get(connectionID string) (Peer, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.peers[connectionID]
	return p, ok
}

// Count returns the number of registered peers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}
