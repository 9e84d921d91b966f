// Package client is the client side of a collaboration session. An Agent
// owns one WebSocket connection to the coordinator, joins and leaves
// document sessions, and republishes what the server sends as typed
// events.
//
// Handlers registered with the On* methods run one at a time on a
// single dispatch goroutine, in registration order. They must not block
// for long and must not call Close.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/observer"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/protocol"
)

// DefaultCursorRate is the cursor-move sampling rate, in messages per
// second, used by DefaultOptions.
const DefaultCursorRate = 60

const writeWait = 10 * time.Second

var (
	ErrNoIdentity       = errors.New("no participant identity set")
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrClosed           = errors.New("agent closed")
	ErrNoDocument       = errors.New("document id is empty")
)

// State is the transport state of an Agent.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configure an Agent.
type Options struct {
	// URL of the coordinator WebSocket endpoint, e.g. ws://host:8080/ws.
	URL string
	// Identity asserted on join. May be set later with SetIdentity.
	Identity *protocol.Profile
	// CursorRate caps outgoing cursor-move messages per second. Zero
	// disables sampling.
	CursorRate float64
	Dialer     *websocket.Dialer
	Header     http.Header
}

// DefaultOptions returns Options for url with cursor sampling on.
func DefaultOptions(url string) Options {
	return Options{
		URL:        url,
		CursorRate: DefaultCursorRate,
	}
}

// Agent is the client session agent.
type Agent struct {
	opts   Options
	dialer *websocket.Dialer
	loop   *eventLoop

	mu            sync.Mutex
	state         State
	conn          *websocket.Conn
	identity      *protocol.Profile
	documentID    string
	collaborating bool
	participants  []protocol.Participant
	cursors       map[string]protocol.Position
	cursorLimiter *rate.Limiter
	closed        bool

	writeMu sync.Mutex

	participantSubs observer.Set[[]protocol.Participant]
	cursorSubs      observer.Set[protocol.CursorMoved]
	editSubs        observer.Set[protocol.EditEvent]
	joinedSubs      observer.Set[protocol.Participant]
	leftSubs        observer.Set[string]
	stateSubs       observer.Set[State]
}

// New creates a disconnected agent.
func New(opts Options) *Agent {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	a := &Agent{
		opts:    opts,
		dialer:  dialer,
		loop:    newEventLoop(),
		cursors: make(map[string]protocol.Position),
	}
	if opts.Identity != nil {
		id := *opts.Identity
		a.identity = &id
	}
	if opts.CursorRate > 0 {
		a.cursorLimiter = rate.NewLimiter(rate.Limit(opts.CursorRate), 1)
	}
	return a
}

// Connect dials the coordinator. The agent goes Disconnected, Connecting,
// Connected; a failed dial returns it to Disconnected.
func (a *Agent) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.state != Disconnected {
		a.mu.Unlock()
		return ErrAlreadyConnected
	}
	a.state = Connecting
	a.mu.Unlock()
	a.emitState(Connecting)

	conn, _, err := a.dialer.DialContext(ctx, a.opts.URL, a.opts.Header)
	if err != nil {
		a.mu.Lock()
		a.state = Disconnected
		a.mu.Unlock()
		a.emitState(Disconnected)
		return fmt.Errorf("dial %s: %w", a.opts.URL, err)
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	a.conn = conn
	a.state = Connected
	a.mu.Unlock()

	log.Debugf("Connected to %s", a.opts.URL)
	a.emitState(Connected)
	go a.readLoop(conn)
	return nil
}

// Disconnect closes the connection. Collaboration state is dropped; a
// later Connect starts idle and must join again.
func (a *Agent) Disconnect() error {
	a.mu.Lock()
	conn := a.conn
	if conn == nil {
		a.mu.Unlock()
		return nil
	}
	a.resetLocked()
	a.mu.Unlock()

	a.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	a.writeMu.Unlock()

	err := conn.Close()
	a.emitState(Disconnected)
	return err
}

// Close disconnects and stops the dispatch goroutine after it has
// delivered everything already queued.
func (a *Agent) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	err := a.Disconnect()
	a.loop.close()
	return err
}

// resetLocked drops the connection and every cache. a.mu must be held.
func (a *Agent) resetLocked() {
	a.conn = nil
	a.state = Disconnected
	a.collaborating = false
	a.documentID = ""
	a.participants = nil
	a.cursors = make(map[string]protocol.Position)
}

func (a *Agent) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			a.connectionLost(conn, err)
			return
		}
		a.handleFrame(msg)
	}
}

func (a *Agent) connectionLost(conn *websocket.Conn, err error) {
	a.mu.Lock()
	if a.conn != conn {
		// already torn down by Disconnect
		a.mu.Unlock()
		return
	}
	a.resetLocked()
	a.mu.Unlock()

	conn.Close()
	log.Warnf("Connection to %s lost: %v", a.opts.URL, err)
	a.emitState(Disconnected)
}

// SetIdentity sets the identity used by the next JoinSession.
func (a *Agent) SetIdentity(p protocol.Profile) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.identity = &p
}

// Identity returns the current identity, if any.
func (a *Agent) Identity() (protocol.Profile, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.identity == nil {
		return protocol.Profile{}, false
	}
	return *a.identity, true
}

// JoinSession enters the room of documentID. Joining another document
// while collaborating leaves the current one first.
func (a *Agent) JoinSession(documentID string) error {
	if documentID == "" {
		return ErrNoDocument
	}

	a.mu.Lock()
	if a.identity == nil {
		a.mu.Unlock()
		return ErrNoIdentity
	}
	if a.conn == nil {
		a.mu.Unlock()
		return ErrNotConnected
	}
	previous := ""
	if a.collaborating && a.documentID != documentID {
		previous = a.documentID
	}
	if a.documentID != documentID {
		a.participants = nil
		a.cursors = make(map[string]protocol.Position)
	}
	// collaborate before sending so the snapshot reply is not ignored
	a.collaborating = true
	a.documentID = documentID
	identity := *a.identity
	a.mu.Unlock()

	if previous != "" {
		if err := a.send(protocol.EventLeaveSession, protocol.LeaveSession{DocumentID: previous}); err != nil {
			log.Warnf("Error: leaving %s - %v", previous, err)
		}
	}

	err := a.send(protocol.EventJoinSession, protocol.JoinSession{DocumentID: documentID, Participant: identity})
	if err != nil {
		a.mu.Lock()
		if a.documentID == documentID {
			a.collaborating = false
			a.documentID = ""
		}
		a.mu.Unlock()
		return err
	}
	return nil
}

// LeaveSession leaves the current room. It is a no-op when not
// collaborating.
func (a *Agent) LeaveSession() error {
	a.mu.Lock()
	if !a.collaborating {
		a.mu.Unlock()
		return nil
	}
	documentID := a.documentID
	a.collaborating = false
	a.documentID = ""
	a.participants = nil
	a.cursors = make(map[string]protocol.Position)
	a.mu.Unlock()

	a.loop.post(func() { a.participantSubs.Emit([]protocol.Participant{}) })
	return a.send(protocol.EventLeaveSession, protocol.LeaveSession{DocumentID: documentID})
}

// UpdateCursor sends the local pointer position. It is dropped when not
// collaborating or when it exceeds the sampling rate.
func (a *Agent) UpdateCursor(position protocol.Position) error {
	a.mu.Lock()
	if !a.collaborating {
		a.mu.Unlock()
		return nil
	}
	if a.cursorLimiter != nil && !a.cursorLimiter.Allow() {
		a.mu.Unlock()
		return nil
	}
	documentID := a.documentID
	a.mu.Unlock()

	return a.send(protocol.EventCursorMove, protocol.CursorMove{DocumentID: documentID, Position: position})
}

// BroadcastEdit sends e to the other participants. It is dropped when
// not collaborating; nothing is buffered for later.
func (a *Agent) BroadcastEdit(e protocol.EditEvent) error {
	a.mu.Lock()
	if !a.collaborating {
		a.mu.Unlock()
		return nil
	}
	documentID := a.documentID
	a.mu.Unlock()

	event, payload, err := e.Outbound(documentID)
	if err != nil {
		return err
	}
	return a.send(event, payload)
}

func (a *Agent) send(event string, data any) error {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	msg, err := protocol.Encode(event, data)
	if err != nil {
		return err
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

// handleFrame updates the caches and queues delivery to subscribers.
// Frames arriving while not collaborating, or naming a document other
// than the current one, are ignored.
func (a *Agent) handleFrame(msg []byte) {
	env, err := protocol.Decode(msg)
	if err != nil {
		log.Warnf("Error: decoding frame - %v", err)
		return
	}

	switch env.Event {
	case protocol.EventSessionUsersUpdated:
		var p protocol.SessionUsersUpdated
		if err := env.DecodeData(&p); err != nil {
			log.Warnf("Error: %v", err)
			return
		}
		a.mu.Lock()
		if !a.inRoomLocked(p.DocumentID) {
			a.mu.Unlock()
			return
		}
		a.participants = append([]protocol.Participant(nil), p.Users...)
		present := make(map[string]bool, len(p.Users))
		for _, u := range p.Users {
			present[u.ID] = true
		}
		for id := range a.cursors {
			if !present[id] {
				delete(a.cursors, id)
			}
		}
		users := append([]protocol.Participant{}, p.Users...)
		a.mu.Unlock()
		a.loop.post(func() { a.participantSubs.Emit(users) })

	case protocol.EventUserJoined:
		var p protocol.UserJoined
		if err := env.DecodeData(&p); err != nil {
			log.Warnf("Error: %v", err)
			return
		}
		a.mu.Lock()
		inRoom := a.inRoomLocked(p.DocumentID)
		a.mu.Unlock()
		if !inRoom {
			return
		}
		a.loop.post(func() { a.joinedSubs.Emit(p.User) })

	case protocol.EventUserLeft:
		var p protocol.UserLeft
		if err := env.DecodeData(&p); err != nil {
			log.Warnf("Error: %v", err)
			return
		}
		a.mu.Lock()
		if !a.inRoomLocked(p.DocumentID) {
			a.mu.Unlock()
			return
		}
		delete(a.cursors, p.UserID)
		a.mu.Unlock()
		a.loop.post(func() { a.leftSubs.Emit(p.UserID) })

	case protocol.EventCursorMoved:
		var p protocol.CursorMoved
		if err := env.DecodeData(&p); err != nil {
			log.Warnf("Error: %v", err)
			return
		}
		a.mu.Lock()
		if !a.inRoomLocked(p.DocumentID) {
			a.mu.Unlock()
			return
		}
		a.cursors[p.UserID] = p.Position
		a.mu.Unlock()
		a.loop.post(func() { a.cursorSubs.Emit(p) })

	case protocol.EventAssetAdd, protocol.EventAssetUpdate, protocol.EventAssetRemove, protocol.EventUpdateLayers:
		edit, err := protocol.DecodeEdit(env)
		if err != nil {
			log.Warnf("Error: %v", err)
			return
		}
		a.mu.Lock()
		current, collaborating := a.documentID, a.collaborating
		a.mu.Unlock()
		if !collaborating {
			return
		}
		if doc, err := protocol.DocumentOf(env.Data); err == nil && doc != current {
			return
		}
		a.loop.post(func() { a.editSubs.Emit(edit) })

	default:
		log.Debugf("Ignoring event %s", env.Event)
	}
}

// inRoomLocked reports whether a frame for documentID belongs to the
// current room. Frames without a document id are attributed to it.
func (a *Agent) inRoomLocked(documentID string) bool {
	return a.collaborating && (documentID == "" || documentID == a.documentID)
}

func (a *Agent) emitState(s State) {
	a.loop.post(func() { a.stateSubs.Emit(s) })
}

// OnParticipants subscribes to full participant snapshots. An empty
// snapshot is delivered after LeaveSession.
func (a *Agent) OnParticipants(fn func([]protocol.Participant)) func() {
	return a.participantSubs.Add(fn)
}

// OnCursorMoved subscribes to remote cursor positions.
func (a *Agent) OnCursorMoved(fn func(protocol.CursorMoved)) func() {
	return a.cursorSubs.Add(fn)
}

// OnEdit subscribes to edits made by other participants.
func (a *Agent) OnEdit(fn func(protocol.EditEvent)) func() {
	return a.editSubs.Add(fn)
}

// OnUserJoined subscribes to arrivals of other participants.
func (a *Agent) OnUserJoined(fn func(protocol.Participant)) func() {
	return a.joinedSubs.Add(fn)
}

// OnUserLeft subscribes to departures, by user id.
func (a *Agent) OnUserLeft(fn func(userID string)) func() {
	return a.leftSubs.Add(fn)
}

// OnConnectionState subscribes to transport state changes.
func (a *Agent) OnConnectionState(fn func(State)) func() {
	return a.stateSubs.Add(fn)
}

func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) IsCollaborating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.collaborating
}

// DocumentID returns the document of the current session, or "".
func (a *Agent) DocumentID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.documentID
}

// Participants returns the last snapshot received for the current session.
func (a *Agent) Participants() []protocol.Participant {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]protocol.Participant{}, a.participants...)
}

// Cursors returns the last known position of every remote cursor, by user id.
func (a *Agent) Cursors() map[string]protocol.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]protocol.Position, len(a.cursors))
	for id, pos := range a.cursors {
		out[id] = pos
	}
	return out
}
