package roomclient

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/robalobadob/wordduel/internal/api"
	"github.com/robalobadob/wordduel/internal/httpserver"
	"github.com/robalobadob/wordduel/internal/match"
	"github.com/robalobadob/wordduel/internal/store"
)

// fixedWords always deals the same target and accepts a small list.
type fixedWords struct{ word string }

func (f fixedWords) RandomWord() string { return f.word }
func (f fixedWords) IsValidWord(s string) bool {
	return s == f.word || s == "lemon" || s == "shout"
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httpserver.New(store.NewMemory(), httpserver.Options{
		JWTSecret: "test-secret",
		Words:     fixedWords{word: "crane"},
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func loggedIn(t *testing.T, ts *httptest.Server, name string) *Client {
	t.Helper()
	c, err := New(ts.URL, WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.Login(ctx, name, "password-"+name); err != nil {
		t.Fatalf("login %s: %v", name, err)
	}
	if c.UserID() == "" {
		t.Fatalf("login %s: no user id", name)
	}
	return c
}

func waitEvent(t *testing.T, co *match.Coordinator, kind match.EventKind) match.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-co.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v", kind)
		}
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	if _, err := New("ftp://example.com"); err == nil {
		t.Fatal("expected error for non-http scheme")
	}
	if _, err := New("://"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDuel_EndToEnd(t *testing.T) {
	ts := newServer(t)
	alice, bob := loggedIn(t, ts, "alice"), loggedIn(t, ts, "bob")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	words := fixedWords{word: "crane"}
	host := match.NewCoordinator(alice, words, alice.UserID(), match.WithPollInterval(50*time.Millisecond))
	guest := match.NewCoordinator(bob, words, bob.UserID(), match.WithPollInterval(50*time.Millisecond))
	defer host.Leave(ctx)
	defer guest.Leave(ctx)

	room, err := host.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := guest.Join(ctx, room.Code); err != nil {
		t.Fatalf("join: %v", err)
	}
	waitEvent(t, host, match.EventOpponentJoined)

	if err := guest.Report(ctx, match.ParticipantState{GuessCount: 3, GreenCount: 5, Status: match.StatusWon}); err != nil {
		t.Fatalf("guest report: %v", err)
	}
	if err := host.Report(ctx, match.ParticipantState{GuessCount: 6, GreenCount: 2, Status: match.StatusLost}); err != nil {
		t.Fatalf("host report: %v", err)
	}

	hr := waitEvent(t, host, match.EventResult)
	gr := waitEvent(t, guest, match.EventResult)
	if hr.Result.WinnerID != bob.UserID() || gr.Result.WinnerID != bob.UserID() {
		t.Fatalf("winners disagree: host=%q guest=%q", hr.Result.WinnerID, gr.Result.WinnerID)
	}
	if hr.Result.Won(alice.UserID()) || !gr.Result.Won(bob.UserID()) {
		t.Fatalf("won flags disagree: %+v", hr.Result)
	}

	h, err := alice.HeadToHead(ctx, alice.UserID(), bob.UserID())
	if err != nil {
		t.Fatal(err)
	}
	if h != (match.HeadToHead{WinsB: 1, Total: 1}) {
		t.Fatalf("durable h2h = %+v", h)
	}

	// The guest's next puzzle reaches the host over the room stream.
	if err := guest.NextPuzzle(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	ev := waitEvent(t, host, match.EventPuzzleReset)
	if ev.Room.Puzzle != 2 {
		t.Fatalf("puzzle = %d, want 2", ev.Room.Puzzle)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	ts := newServer(t)
	alice, carol := loggedIn(t, ts, "alice"), loggedIn(t, ts, "carol")
	ctx := context.Background()

	if _, err := alice.JoinRoom(ctx, "QQQQQQ", ""); !errors.Is(err, match.ErrRoomNotFound) {
		t.Fatalf("unknown code = %v", err)
	}
	room, err := alice.CreateRoom(ctx, alice.UserID(), "crane")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := carol.GetRoom(ctx, room.ID); !errors.Is(err, match.ErrForbidden) {
		t.Fatalf("outsider get = %v", err)
	}
	if _, err := alice.CreateRoom(ctx, alice.UserID(), "zzzzz"); !errors.Is(err, api.ErrBadRequest) {
		t.Fatalf("bad word = %v", err)
	}
	if _, err := carol.SubscribeRoom(ctx, room.ID, func(match.Room) {}); !errors.Is(err, match.ErrForbidden) {
		t.Fatalf("outsider stream = %v", err)
	}

	anon, err := New(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer anon.Close()
	if _, err := anon.GetRoom(ctx, room.ID); !errors.Is(err, match.ErrNotAuthenticated) {
		t.Fatalf("anonymous get = %v", err)
	}
}

func TestClient_TransportError(t *testing.T) {
	ts := newServer(t)
	c := loggedIn(t, ts, "alice")
	ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.GetRoom(ctx, "whatever"); !errors.Is(err, match.ErrTransport) {
		t.Fatalf("GetRoom after shutdown = %v, want ErrTransport", err)
	}
	if _, err := c.SubscribeRoom(ctx, "whatever", func(match.Room) {}); !errors.Is(err, match.ErrTransport) {
		t.Fatalf("SubscribeRoom after shutdown = %v, want ErrTransport", err)
	}
}

func TestStream_CloseEndsSubscriptions(t *testing.T) {
	ts := newServer(t)
	alice := loggedIn(t, ts, "alice")
	ctx := context.Background()
	room, err := alice.CreateRoom(ctx, alice.UserID(), "crane")
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan match.Room, 4)
	sub, err := alice.SubscribeRoom(ctx, room.ID, func(r match.Room) { got <- r })
	if err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-got:
		if r.ID != room.ID {
			t.Fatalf("pushed room %q", r.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no initial room frame")
	}

	alice.Close()
	sub.Unsubscribe()
	sub.Unsubscribe()
}
