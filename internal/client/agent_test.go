package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/config"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/object"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/protocol"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/server"
)

const waitFor = 2 * time.Second

func startServer(t *testing.T) string {
	t.Helper()
	cfg := config.Default()
	cfg.ConnectionsPerMinute = 0
	cfg.MessagesPerSecond = 0
	srv := httptest.NewServer(server.NewServer(cfg).Handler())
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func newAgent(t *testing.T, url, id, name string) *Agent {
	t.Helper()
	opts := DefaultOptions(url)
	opts.CursorRate = 0
	if id != "" {
		opts.Identity = &protocol.Profile{ID: id, DisplayName: name}
	}
	a := New(opts)
	t.Cleanup(func() { a.Close() })
	return a
}

func connect(t *testing.T, a *Agent) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
}

// participantsOf returns a channel receiving every snapshot a delivers.
func participantsOf(a *Agent) <-chan []protocol.Participant {
	ch := make(chan []protocol.Participant, 32)
	a.OnParticipants(func(users []protocol.Participant) { ch <- users })
	return ch
}

func waitSnapshot(t *testing.T, ch <-chan []protocol.Participant, size int) []protocol.Participant {
	t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case users := <-ch:
			if len(users) == size {
				return users
			}
		case <-timeout:
			t.Fatalf("no snapshot of %d users", size)
			return nil
		}
	}
}

func TestJoinRequiresIdentityAndConnection(t *testing.T) {
	url := startServer(t)

	anon := newAgent(t, url, "", "")
	if err := anon.JoinSession("doc"); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("expected ErrNoIdentity, got %v", err)
	}

	a := newAgent(t, url, "u1", "Ann")
	if err := a.JoinSession("doc"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := a.JoinSession(""); !errors.Is(err, ErrNoDocument) {
		t.Errorf("expected ErrNoDocument, got %v", err)
	}
	if a.IsCollaborating() {
		t.Error("failed joins must not start collaborating")
	}
}

func TestConnectionStates(t *testing.T) {
	url := startServer(t)
	a := newAgent(t, url, "u1", "Ann")

	states := make(chan State, 8)
	a.OnConnectionState(func(s State) { states <- s })

	connect(t, a)
	if a.State() != Connected {
		t.Fatalf("expected connected, got %s", a.State())
	}
	if err := a.Connect(context.Background()); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}

	if err := a.Disconnect(); err != nil {
		t.Fatal(err)
	}
	want := []State{Connecting, Connected, Disconnected}
	for _, w := range want {
		select {
		case s := <-states:
			if s != w {
				t.Fatalf("expected %s, got %s", w, s)
			}
		case <-time.After(waitFor):
			t.Fatalf("missing state %s", w)
		}
	}
}

func TestDialFailureReturnsToDisconnected(t *testing.T) {
	a := New(DefaultOptions("ws://127.0.0.1:1/ws"))
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	if err := a.Connect(ctx); err == nil {
		t.Fatal("expected dial error")
	}
	if a.State() != Disconnected {
		t.Errorf("expected disconnected, got %s", a.State())
	}
}

func TestPresenceAndCursors(t *testing.T) {
	url := startServer(t)
	ann := newAgent(t, url, "u1", "Ann")
	ben := newAgent(t, url, "u2", "Ben")
	annUsers := participantsOf(ann)
	benUsers := participantsOf(ben)

	joined := make(chan protocol.Participant, 4)
	ann.OnUserJoined(func(p protocol.Participant) { joined <- p })
	cursors := make(chan protocol.CursorMoved, 4)
	ben.OnCursorMoved(func(c protocol.CursorMoved) { cursors <- c })

	connect(t, ann)
	connect(t, ben)
	if err := ann.JoinSession("doc-42"); err != nil {
		t.Fatal(err)
	}
	waitSnapshot(t, annUsers, 1)
	if err := ben.JoinSession("doc-42"); err != nil {
		t.Fatal(err)
	}
	waitSnapshot(t, annUsers, 2)
	users := waitSnapshot(t, benUsers, 2)
	if users[0].ID != "u1" || users[1].ID != "u2" {
		t.Errorf("snapshot out of join order: %+v", users)
	}

	select {
	case p := <-joined:
		if p.ID != "u2" {
			t.Errorf("expected u2 to join, got %s", p.ID)
		}
	case <-time.After(waitFor):
		t.Fatal("ann was not told about ben")
	}

	if err := ann.UpdateCursor(protocol.Position{X: 3, Y: 4}); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-cursors:
		if c.UserID != "u1" || c.Position != (protocol.Position{X: 3, Y: 4}) {
			t.Errorf("unexpected cursor %+v", c)
		}
	case <-time.After(waitFor):
		t.Fatal("ben never saw ann's cursor")
	}
	if pos, ok := ben.Cursors()["u1"]; !ok || pos.X != 3 {
		t.Errorf("cursor cache not updated: %+v", ben.Cursors())
	}

	left := make(chan string, 1)
	ben.OnUserLeft(func(id string) { left <- id })
	if err := ann.LeaveSession(); err != nil {
		t.Fatal(err)
	}
	select {
	case id := <-left:
		if id != "u1" {
			t.Errorf("expected u1 to leave, got %s", id)
		}
	case <-time.After(waitFor):
		t.Fatal("ben was not told ann left")
	}
	waitSnapshot(t, benUsers, 1)
	if _, ok := ben.Cursors()["u1"]; ok {
		t.Error("departed user's cursor should be dropped")
	}
	if ann.IsCollaborating() || len(ann.Participants()) != 0 {
		t.Error("leave should clear ann's session state")
	}
}

func TestEditsReachOthersOnly(t *testing.T) {
	url := startServer(t)
	ann := newAgent(t, url, "u1", "Ann")
	ben := newAgent(t, url, "u2", "Ben")
	benUsers := participantsOf(ben)

	annEdits := make(chan protocol.EditEvent, 4)
	ann.OnEdit(func(e protocol.EditEvent) { annEdits <- e })
	benEdits := make(chan protocol.EditEvent, 4)
	ben.OnEdit(func(e protocol.EditEvent) { benEdits <- e })

	connect(t, ann)
	connect(t, ben)
	ann.JoinSession("doc")
	ben.JoinSession("doc")
	waitSnapshot(t, benUsers, 2)

	obj := object.Visual{ID: "o1", Transform: object.Transform{X: 10, Y: 20}}
	if err := ann.BroadcastEdit(protocol.CreateEvent(obj)); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-benEdits:
		if e.Kind != protocol.EditCreate || e.Object.ID != "o1" || e.Object.X != 10 {
			t.Errorf("unexpected edit %+v", e)
		}
	case <-time.After(waitFor):
		t.Fatal("ben never received the edit")
	}

	select {
	case e := <-annEdits:
		t.Errorf("sender received its own edit: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIdleAgentDropsOutgoing(t *testing.T) {
	url := startServer(t)
	a := newAgent(t, url, "u1", "Ann")
	connect(t, a)

	if err := a.BroadcastEdit(protocol.DeleteEvent("x")); err != nil {
		t.Errorf("idle edit should be dropped silently, got %v", err)
	}
	if err := a.UpdateCursor(protocol.Position{}); err != nil {
		t.Errorf("idle cursor should be dropped silently, got %v", err)
	}
	if err := a.LeaveSession(); err != nil {
		t.Errorf("idle leave should be a no-op, got %v", err)
	}
}

func TestCursorSampling(t *testing.T) {
	a := New(Options{URL: "ws://unused", CursorRate: 1})
	defer a.Close()
	if a.cursorLimiter == nil {
		t.Fatal("expected a cursor limiter")
	}
	if !a.cursorLimiter.Allow() || a.cursorLimiter.Allow() {
		t.Error("expected one cursor message per second")
	}
}

// droppingCoordinator answers the first join with a snapshot and then
// kills the connection.
func droppingCoordinator(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			env, err := protocol.Decode(msg)
			if err != nil || env.Event != protocol.EventJoinSession {
				continue
			}
			var join protocol.JoinSession
			env.DecodeData(&join)
			reply, _ := protocol.Encode(protocol.EventSessionUsersUpdated, protocol.SessionUsersUpdated{
				Users: []protocol.Participant{{Profile: join.Participant, ConnectionID: "c1"}},
			})
			conn.WriteMessage(websocket.TextMessage, reply)
			return
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectionLossClearsState(t *testing.T) {
	url := droppingCoordinator(t)
	a := newAgent(t, url, "u1", "Ann")
	users := participantsOf(a)

	states := make(chan State, 8)
	a.OnConnectionState(func(s State) { states <- s })

	connect(t, a)
	if err := a.JoinSession("doc"); err != nil {
		t.Fatal(err)
	}
	waitSnapshot(t, users, 1)

	timeout := time.After(waitFor)
	for {
		select {
		case s := <-states:
			if s != Disconnected {
				continue
			}
			if a.IsCollaborating() || a.DocumentID() != "" || len(a.Participants()) != 0 {
				t.Error("connection loss should clear collaboration state")
			}
			if err := a.JoinSession("doc"); !errors.Is(err, ErrNotConnected) {
				t.Errorf("expected ErrNotConnected after loss, got %v", err)
			}
			return
		case <-timeout:
			t.Fatal("agent never noticed the dropped connection")
		}
	}
}

func TestRejoinAfterReconnect(t *testing.T) {
	url := startServer(t)
	a := newAgent(t, url, "u1", "Ann")
	users := participantsOf(a)

	connect(t, a)
	a.JoinSession("doc")
	waitSnapshot(t, users, 1)

	a.Disconnect()
	connect(t, a)
	if a.IsCollaborating() {
		t.Fatal("reconnect must start idle")
	}
	if err := a.JoinSession("doc"); err != nil {
		t.Fatal(err)
	}
	waitSnapshot(t, users, 1)
}

func TestSwitchingDocumentsLeavesTheOldRoom(t *testing.T) {
	url := startServer(t)
	ann := newAgent(t, url, "u1", "Ann")
	ben := newAgent(t, url, "u2", "Ben")
	benUsers := participantsOf(ben)

	connect(t, ann)
	connect(t, ben)
	ben.JoinSession("doc-1")
	ann.JoinSession("doc-1")
	waitSnapshot(t, benUsers, 2)

	if err := ann.JoinSession("doc-2"); err != nil {
		t.Fatal(err)
	}
	waitSnapshot(t, benUsers, 1)
	if ann.DocumentID() != "doc-2" {
		t.Errorf("expected doc-2, got %s", ann.DocumentID())
	}
}

// switchingCoordinator answers a join with presence frames still in flight
// from another room, then the new room's snapshot and one cursor.
func switchingCoordinator(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			env, err := protocol.Decode(msg)
			if err != nil || env.Event != protocol.EventJoinSession {
				continue
			}
			var join protocol.JoinSession
			env.DecodeData(&join)
			stranger := protocol.Participant{Profile: protocol.Profile{ID: "u9", DisplayName: "Old"}, ConnectionID: "c9"}
			self := protocol.Participant{Profile: join.Participant, ConnectionID: "c1"}
			frames := []struct {
				event string
				data  any
			}{
				{protocol.EventCursorMoved, protocol.CursorMoved{DocumentID: "old", UserID: "u9"}},
				{protocol.EventUserJoined, protocol.UserJoined{DocumentID: "old", User: stranger}},
				{protocol.EventSessionUsersUpdated, protocol.SessionUsersUpdated{DocumentID: "old", Users: []protocol.Participant{self, stranger}}},
				{protocol.EventSessionUsersUpdated, protocol.SessionUsersUpdated{DocumentID: join.DocumentID, Users: []protocol.Participant{self}}},
				{protocol.EventCursorMoved, protocol.CursorMoved{DocumentID: join.DocumentID, UserID: "u1", Position: protocol.Position{X: 7}}},
			}
			for _, f := range frames {
				out, _ := protocol.Encode(f.event, f.data)
				conn.WriteMessage(websocket.TextMessage, out)
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestFramesFromAnotherRoomAreIgnored(t *testing.T) {
	a := newAgent(t, switchingCoordinator(t), "u1", "Ann")
	users := participantsOf(a)
	joined := make(chan protocol.Participant, 4)
	a.OnUserJoined(func(p protocol.Participant) { joined <- p })
	cursors := make(chan protocol.CursorMoved, 4)
	a.OnCursorMoved(func(c protocol.CursorMoved) { cursors <- c })

	connect(t, a)
	if err := a.JoinSession("new"); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-users:
		if len(got) != 1 || got[0].ID != "u1" {
			t.Errorf("first snapshot should be the new room's, got %+v", got)
		}
	case <-time.After(waitFor):
		t.Fatal("no snapshot")
	}
	select {
	case c := <-cursors:
		if c.UserID != "u1" {
			t.Errorf("cursor from the old room delivered: %+v", c)
		}
	case <-time.After(waitFor):
		t.Fatal("no cursor")
	}

	if len(joined) != 0 {
		t.Errorf("user-joined from the old room delivered: %+v", <-joined)
	}
	if _, ok := a.Cursors()["u9"]; ok {
		t.Error("old room cursor cached")
	}
	if got := a.Participants(); len(got) != 1 {
		t.Errorf("expected 1 participant, got %+v", got)
	}
}

func TestCloseIsFinal(t *testing.T) {
	a := New(DefaultOptions("ws://unused"))
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if err := a.Connect(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
