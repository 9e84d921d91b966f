// Package presence projects session state into what a collaborator sees:
// who is here, where their cursors are, whether the connection is up,
// and short-lived join and leave notices.
package presence

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/client"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/observer"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/protocol"
)

const (
	DefaultMaxToasts = 5
	DefaultToastTTL  = 4 * time.Second
)

const unknownName = "Someone"

// ToastKind says what a toast announces.
type ToastKind int

const (
	ToastJoined ToastKind = iota
	ToastLeft
)

// Toast is a transient notice.
type Toast struct {
	ID      uint64
	Kind    ToastKind
	UserID  string
	Text    string
	Created time.Time
}

// Cursor is a remote pointer ready to draw.
type Cursor struct {
	UserID      string
	DisplayName string
	Position    protocol.Position
	Color       string
}

// Source is the session state a View follows. client.Agent implements it.
type Source interface {
	OnParticipants(fn func([]protocol.Participant)) func()
	OnCursorMoved(fn func(protocol.CursorMoved)) func()
	OnUserJoined(fn func(protocol.Participant)) func()
	OnUserLeft(fn func(userID string)) func()
	OnConnectionState(fn func(client.State)) func()
}

type Options struct {
	MaxToasts   int
	ToastTTL    time.Duration
	PaletteSize int
	Clock       Clock
}

type toastEntry struct {
	Toast
	timer Timer
}

// View is the presence projection. All methods are safe for concurrent use.
type View struct {
	maxToasts int
	ttl       time.Duration
	clock     Clock
	palette   *Palette
	policy    *bluemonday.Policy

	mu           sync.Mutex
	connected    bool
	participants []protocol.Participant
	cursors      map[string]protocol.Position
	toasts       []toastEntry
	nextToast    uint64

	changed observer.Set[struct{}]
}

// New creates an empty, disconnected view. Zero options take defaults.
func New(opts Options) *View {
	if opts.MaxToasts <= 0 {
		opts.MaxToasts = DefaultMaxToasts
	}
	if opts.ToastTTL <= 0 {
		opts.ToastTTL = DefaultToastTTL
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	return &View{
		maxToasts: opts.MaxToasts,
		ttl:       opts.ToastTTL,
		clock:     opts.Clock,
		palette:   NewPalette(opts.PaletteSize),
		policy:    bluemonday.StrictPolicy(),
		cursors:   make(map[string]protocol.Position),
	}
}

// Attach follows src until the returned func is called.
func (v *View) Attach(src Source) func() {
	detach := []func(){
		src.OnConnectionState(v.SetConnectionState),
		src.OnParticipants(v.SetParticipants),
		src.OnCursorMoved(v.MoveCursor),
		src.OnUserJoined(v.UserJoined),
		src.OnUserLeft(v.UserLeft),
	}
	return func() {
		for _, fn := range detach {
			fn()
		}
	}
}

// OnChange subscribes to any change of the view.
func (v *View) OnChange(fn func()) func() {
	return v.changed.Add(func(struct{}) { fn() })
}

func (v *View) notify() {
	v.changed.Emit(struct{}{})
}

// SetConnectionState updates the indicator. Losing the connection clears
// everything, colour assignments included.
func (v *View) SetConnectionState(s client.State) {
	v.mu.Lock()
	v.connected = s == client.Connected
	if s == client.Disconnected {
		v.participants = nil
		v.cursors = make(map[string]protocol.Position)
		for _, t := range v.toasts {
			t.timer.Stop()
		}
		v.toasts = nil
		v.palette.Reset()
	}
	v.mu.Unlock()
	v.notify()
}

// SetParticipants replaces the participant list.
func (v *View) SetParticipants(users []protocol.Participant) {
	v.mu.Lock()
	v.participants = append([]protocol.Participant(nil), users...)
	present := make(map[string]bool, len(users))
	for _, u := range users {
		present[u.ID] = true
		v.palette.Color(u.ID)
	}
	for id := range v.cursors {
		if !present[id] {
			delete(v.cursors, id)
		}
	}
	v.mu.Unlock()
	v.notify()
}

// MoveCursor records a remote pointer.
func (v *View) MoveCursor(c protocol.CursorMoved) {
	v.mu.Lock()
	v.cursors[c.UserID] = c.Position
	v.mu.Unlock()
	v.notify()
}

// UserJoined raises a join toast.
func (v *View) UserJoined(p protocol.Participant) {
	v.mu.Lock()
	v.palette.Color(p.ID)
	v.addToastLocked(ToastJoined, p.ID, fmt.Sprintf("%s joined", v.displayName(p.DisplayName)))
	v.mu.Unlock()
	v.notify()
}

// UserLeft drops the user's cursor and raises a leave toast. The name is
// taken from the participant list, which still holds the user until the
// next snapshot.
func (v *View) UserLeft(userID string) {
	v.mu.Lock()
	name := ""
	for _, p := range v.participants {
		if p.ID == userID {
			name = p.DisplayName
			break
		}
	}
	delete(v.cursors, userID)
	v.addToastLocked(ToastLeft, userID, fmt.Sprintf("%s left", v.displayName(name)))
	v.mu.Unlock()
	v.notify()
}

// displayName makes a client-asserted name safe to show.
func (v *View) displayName(name string) string {
	name = strings.TrimSpace(v.policy.Sanitize(name))
	if name == "" {
		return unknownName
	}
	return name
}

func (v *View) addToastLocked(kind ToastKind, userID, text string) {
	v.nextToast++
	id := v.nextToast
	entry := toastEntry{
		Toast: Toast{
			ID:      id,
			Kind:    kind,
			UserID:  userID,
			Text:    text,
			Created: v.clock.Now(),
		},
	}
	entry.timer = v.clock.AfterFunc(v.ttl, func() { v.expire(id) })
	v.toasts = append(v.toasts, entry)

	for len(v.toasts) > v.maxToasts {
		v.toasts[0].timer.Stop()
		v.toasts = v.toasts[1:]
	}
}

func (v *View) expire(id uint64) {
	v.mu.Lock()
	removed := false
	for i, t := range v.toasts {
		if t.ID == id {
			v.toasts = append(v.toasts[:i:i], v.toasts[i+1:]...)
			removed = true
			break
		}
	}
	v.mu.Unlock()
	if removed {
		v.notify()
	}
}

// Connected reports the connection indicator.
func (v *View) Connected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.connected
}

// Participants returns the current list in server order.
func (v *View) Participants() []protocol.Participant {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]protocol.Participant{}, v.participants...)
}

// Cursors returns the remote cursors sorted by user id.
func (v *View) Cursors() []Cursor {
	v.mu.Lock()
	defer v.mu.Unlock()

	names := make(map[string]string, len(v.participants))
	for _, p := range v.participants {
		names[p.ID] = p.DisplayName
	}
	out := make([]Cursor, 0, len(v.cursors))
	for id, pos := range v.cursors {
		out = append(out, Cursor{
			UserID:      id,
			DisplayName: v.displayName(names[id]),
			Position:    pos,
			Color:       v.palette.Color(id),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Toasts returns the live toasts, oldest first.
func (v *View) Toasts() []Toast {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Toast, len(v.toasts))
	for i, t := range v.toasts {
		out[i] = t.Toast
	}
	return out
}

// Color returns the colour assigned to userID.
func (v *View) Color(userID string) string {
	return v.palette.Color(userID)
}
