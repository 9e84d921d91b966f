package transport

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/gommon/log"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/middleware"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/protocol"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/room"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/user"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // send pings at 90% of pong deadline
	writeWait  = 10 * time.Second
)

// Router is what the read loop hands frames to.
type Router interface {
	Route(p room.Peer, msg []byte) error
	Disconnect(p room.Peer)
}

// Handler upgrades HTTP requests to WebSocket connections and runs them.
type Handler struct {
	upgrader      websocket.Upgrader
	hub           *room.Hub
	router        Router
	limits        *middleware.RateLimit
	ipRateLimiter *middleware.IPRateLimit
}

// NewHandler creates a handler accepting the given origins. An empty
// list, or one containing "*", accepts every origin.
func NewHandler(hub *room.Hub, router Router, limits *middleware.RateLimit, ipRateLimiter *middleware.IPRateLimit, allowedOrigins []string) *Handler {
	if limits == nil {
		limits = middleware.DefaultRateLimit()
	}
	h := &Handler{
		hub:           hub,
		router:        router,
		limits:        limits,
		ipRateLimiter: ipRateLimiter,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: CheckOrigin(allowedOrigins),
	}
	return h
}

// CheckOrigin returns the CORS policy for the upgrader. Requests without
// an Origin header come from non-browser clients and are accepted.
func CheckOrigin(allowed []string) func(r *http.Request) bool {
	for _, a := range allowed {
		if strings.TrimSpace(a) == "*" {
			allowed = nil
			break
		}
	}
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if origin == strings.TrimSpace(a) {
				return true
			}
		}
		return false
	}
}

// GetClientIP: extracts the client IP from the request
func GetClientIP(r *http.Request) string {
	// RemoteAddr only, headers can be spoofed by the client
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ServeHTTP upgrades the request and blocks until the connection ends.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := GetClientIP(r)
	if h.ipRateLimiter != nil && !h.ipRateLimiter.Allow(clientIP) {
		log.Warnf("Rate limit exceeded for IP: %s", clientIP)
		http.Error(w, "Too many connections", http.StatusTooManyRequests)
		return
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Error: Failed to upgrade connection - %v", err)
		return
	}

	u := user.New(conn, h.limits.SendQueueSize, h.limits.NewConnectionLimiter())
	h.hub.Register(u)
	log.Infof("Connection %s opened from %s", u.ID, clientIP)

	go writePump(u)
	h.readPump(u)
}

// readPump handles every frame of u to completion, in order. When the
// socket dies the connection is dropped from all rooms before the hub
// forgets it.
func (h *Handler) readPump(u *user.User) {
	conn := u.Connection
	defer func() {
		h.router.Disconnect(u)
		h.hub.Unregister(u.ID)
		u.Close()
		log.Infof("Connection %s closed", u.ID)
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warnf("Error: Reading message from %s - %v", u.ID, err)
			}
			return
		}

		if !h.limits.ValidateMessageSize(len(msg)) {
			log.Warnf("Message too large from connection %s: %d bytes", u.ID, len(msg))
			continue
		}

		// cursor updates are sampled by clients, not limited here
		env, decodeErr := protocol.Decode(msg)
		cursor := decodeErr == nil && env.Event == protocol.EventCursorMove
		if !cursor && !u.Allow() {
			log.Warnf("Rate limit exceeded for connection: %s", u.ID)
			continue
		}

		if err := h.checkComplexity(env, decodeErr); err != nil {
			log.Warnf("Dropping frame from connection %s: %v", u.ID, err)
			continue
		}

		if err := h.router.Route(u, msg); err != nil {
			log.Warnf("Error handling message from connection %s: %v", u.ID, err)
		}
	}
}

// checkComplexity bounds the shape of edit payloads, the only frames
// fanned out without being decoded.
func (h *Handler) checkComplexity(env protocol.Envelope, decodeErr error) error {
	if decodeErr != nil || !protocol.IsEditEvent(env.Event) {
		return nil
	}
	return h.limits.ValidatePayloadComplexity(env.Data)
}

// writePump is the only writer of the socket. It drains the send queue
// and keeps the connection alive with pings.
func writePump(u *user.User) {
	conn := u.Connection
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-u.SendChan():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Warnf("Error: Writing to connection %s - %v", u.ID, err)
				u.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				u.Close()
				return
			}
		}
	}
}
