package user

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// DefaultQueueSize is the number of outbound frames buffered per connection.
const DefaultQueueSize = 256

// User is one physical socket. Its ID is the connection id used as the
// registry key; the user id a client asserts lives in its participant
// entry instead.
type User struct {
	ID          string
	Connection  *websocket.Conn
	RateLimiter *rate.Limiter

	send   chan []byte
	mu     sync.Mutex
	closed bool
}

// New wraps conn. A nil limiter disables per-connection rate limiting.
func New(conn *websocket.Conn, queueSize int, limiter *rate.Limiter) *User {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &User{
		ID:          GenerateID(),
		Connection:  conn,
		RateLimiter: limiter,
		send:        make(chan []byte, queueSize),
	}
}

// GenerateID returns a fresh connection id.
func GenerateID() string {
	return uuid.NewString()
}

// ConnectionID returns the id the registry knows this socket by.
func (u *User) ConnectionID() string {
	return u.ID
}

// Send queues msg for the write pump. A full queue means the peer cannot
// keep up; the user is closed and the frame dropped.
func (u *User) Send(msg []byte) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return false
	}

	select {
	case u.send <- msg:
		return true
	default:
		u.closeLocked()
		return false
	}
}

// Allow reports whether another inbound message fits the rate limit.
func (u *User) Allow() bool {
	if u.RateLimiter == nil {
		return true
	}
	return u.RateLimiter.Allow()
}

// SendChan is drained by the write pump. It is closed by Close.
func (u *User) SendChan() <-chan []byte {
	return u.send
}

// Close stops accepting frames. Safe to call more than once.
func (u *User) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closeLocked()
}

// IsClosed reports whether Close has run.
func (u *User) IsClosed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed
}

func (u *User) closeLocked() {
	if u.closed {
		return
	}
	u.closed = true
	close(u.send)
}
