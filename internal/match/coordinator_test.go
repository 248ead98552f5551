package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/wordduel/internal/game"
)

func waitFor(t *testing.T, c *Coordinator, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %v event", kind)
		}
	}
}

// countFor drains events for d and counts those of kind.
func countFor(c *Coordinator, kind EventKind, d time.Duration) int {
	n := 0
	deadline := time.After(d)
	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == kind {
				n++
			}
		case <-deadline:
			return n
		}
	}
}

func hostedRoom(t *testing.T, fs *fakeStore, opts ...Option) *Coordinator {
	t.Helper()
	c := NewCoordinator(fs, &wordQueue{words: []string{"crane", "lemon"}}, "alice", opts...)
	if _, err := c.Create(context.Background()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	fs.seatGuest("bob")
	return c
}

func TestCoordinator_PushAndPollRaceSettleOnce(t *testing.T) {
	for i := 0; i < 25; i++ {
		fs := newFakeStore()
		fs.pushOnSubscribe = true
		c := hostedRoom(t, fs, WithPollInterval(time.Millisecond))

		// Opponent finished first; both channels will see it in the same instant.
		fs.setState("bob", won("bob", 3))
		if err := c.Report(context.Background(), won("alice", 4)); err != nil {
			t.Fatalf("Report: %v", err)
		}

		ev := waitFor(t, c, EventResult)
		if ev.Result == nil || ev.Result.WinnerID != "bob" || ev.Result.Draw {
			t.Fatalf("result = %+v", ev.Result)
		}
		if extra := countFor(c, EventResult, 50*time.Millisecond); extra != 0 {
			t.Fatalf("iteration %d: %d extra results", i, extra)
		}
		if n := fs.saveCount(); n != 1 {
			t.Fatalf("iteration %d: %d saves, want 1", i, n)
		}
		if ev.Score.Total != 1 || ev.Score.WinsB != 1 {
			t.Fatalf("score = %+v, want one win for the opponent", ev.Score)
		}
		if got := c.ledger.Lookup("alice", "bob").Total; got != 1 {
			t.Fatalf("ledger total = %d, want 1", got)
		}
		_ = c.Leave(context.Background())
	}
}

func TestCoordinator_ResultArrivesByPushAfterReport(t *testing.T) {
	fs := newFakeStore()
	c := hostedRoom(t, fs, WithPollInterval(time.Hour))

	if err := c.Report(context.Background(), won("alice", 2)); err != nil {
		t.Fatal(err)
	}
	// Poll ran once immediately and saw nothing; only push can deliver now.
	deadline := time.Now().Add(time.Second)
	for fs.pushSubscribers() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	fs.setState("bob", lost("bob"))

	ev := waitFor(t, c, EventResult)
	if !ev.Result.Won("alice") || *ev.Result.MyGuessCount != 2 || ev.Result.OpponentGuessCount != nil {
		t.Fatalf("result = %+v", ev.Result)
	}
	if fs.pushSubscribers() != 1 {
		// Only the progress subscription from entering the room remains.
		t.Fatalf("push subscribers = %d, want 1 after settling", fs.pushSubscribers())
	}
}

func TestCoordinator_PollingOnlyWhenPushUnavailable(t *testing.T) {
	fs := newFakeStore()
	fs.subErr = errOffline
	c := hostedRoom(t, fs, WithPollInterval(5*time.Millisecond))

	if err := c.Report(context.Background(), lost("alice")); err != nil {
		t.Fatal(err)
	}
	fs.setState("bob", lost("bob"))

	ev := waitFor(t, c, EventResult)
	if !ev.Result.Draw || ev.Result.WinnerID != "" {
		t.Fatalf("both lost should draw: %+v", ev.Result)
	}
	if ev.Score.Draws != 1 || ev.Score.Total != 1 {
		t.Fatalf("score = %+v", ev.Score)
	}
}

func TestCoordinator_ReportFailureStillWaits(t *testing.T) {
	fs := newFakeStore()
	c := hostedRoom(t, fs, WithPollInterval(5*time.Millisecond))
	fs.repErr = errOffline

	err := c.Report(context.Background(), won("alice", 3))
	if !errors.Is(err, errOffline) {
		t.Fatalf("Report = %v, want errOffline", err)
	}
	fs.setState("bob", won("bob", 5))
	if ev := waitFor(t, c, EventResult); !ev.Result.Won("alice") {
		t.Fatalf("result = %+v", ev.Result)
	}
}

func TestCoordinator_GuestDoesNotPersist(t *testing.T) {
	fs := newFakeStore()
	fs.room = Room{ID: "room-1", Code: "XYZ789", HostID: "bob", Word: "crane", Puzzle: 1, Status: RoomWaiting}
	c := NewCoordinator(fs, &wordQueue{words: []string{"lemon"}}, "alice", WithPollInterval(5*time.Millisecond))

	room, err := c.Join(context.Background(), "XYZ789")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if room.Word != "crane" || c.IsAuthority() {
		t.Fatalf("joined room %+v authority=%v", room, c.IsAuthority())
	}
	fs.setState("bob", won("bob", 5))
	if err := c.ReportOutcome(context.Background(), game.Outcome{Row: 3, Status: game.StatusWon, Correct: 5}); err != nil {
		t.Fatal(err)
	}

	ev := waitFor(t, c, EventResult)
	if !ev.Result.Won("alice") {
		t.Fatalf("result = %+v", ev.Result)
	}
	if fs.saveCount() != 0 {
		t.Fatal("guest must not write match results")
	}
	// No durable row exists, so the score falls back to the local tally.
	if ev.Score.WinsA != 1 || ev.Score.Total != 1 {
		t.Fatalf("score = %+v", ev.Score)
	}
}

func TestCoordinator_JoinErrors(t *testing.T) {
	fs := newFakeStore()
	c := NewCoordinator(fs, &wordQueue{words: []string{"crane"}}, "alice")
	if _, err := c.Join(context.Background(), "NOPE00"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("Join unknown = %v", err)
	}
	if err := c.Report(context.Background(), won("alice", 1)); !errors.Is(err, ErrNoRoom) {
		t.Fatalf("Report outside a room = %v", err)
	}
}

func TestCoordinator_OpponentJoinedAndNextPuzzle(t *testing.T) {
	fs := newFakeStore()
	c := NewCoordinator(fs, &wordQueue{words: []string{"crane", "lemon"}}, "alice")
	if _, err := c.Create(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !c.IsAuthority() {
		t.Fatal("host should be the authority")
	}
	fs.seatGuest("bob")
	ev := waitFor(t, c, EventOpponentJoined)
	if ev.Room.GuestID != "bob" || ev.Room.Status != RoomPlaying {
		t.Fatalf("joined event room = %+v", ev.Room)
	}

	if err := c.NextPuzzle(context.Background()); err != nil {
		t.Fatalf("NextPuzzle: %v", err)
	}
	ev = waitFor(t, c, EventPuzzleReset)
	if ev.Word != "lemon" || ev.Room.Puzzle != 2 {
		t.Fatalf("reset event = %+v", ev)
	}
	if n := countFor(c, EventPuzzleReset, 20*time.Millisecond); n != 0 {
		t.Fatalf("%d duplicate reset events", n)
	}
}

func TestCoordinator_NextPuzzleCancelsPendingWait(t *testing.T) {
	fs := newFakeStore()
	c := hostedRoom(t, fs, WithPollInterval(5*time.Millisecond))
	if err := c.Report(context.Background(), won("alice", 3)); err != nil {
		t.Fatal(err)
	}
	if err := c.NextPuzzle(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, c, EventPuzzleReset)

	// A terminal state arriving now belongs to the new puzzle, which alice has not finished.
	fs.setState("bob", won("bob", 1))
	if n := countFor(c, EventResult, 50*time.Millisecond); n != 0 {
		t.Fatalf("%d results after reset", n)
	}
}

func TestCoordinator_LeaveDisarms(t *testing.T) {
	fs := newFakeStore()
	c := hostedRoom(t, fs, WithPollInterval(5*time.Millisecond))
	if err := c.Report(context.Background(), won("alice", 3)); err != nil {
		t.Fatal(err)
	}
	if err := c.Leave(context.Background()); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed after Leave")
	}

	fs.setState("bob", won("bob", 2))
	if n := countFor(c, EventResult, 50*time.Millisecond); n != 0 {
		t.Fatalf("%d results after Leave", n)
	}
	if fs.saveCount() != 0 || fs.pushSubscribers() != 0 {
		t.Fatalf("saves=%d subscribers=%d after Leave", fs.saveCount(), fs.pushSubscribers())
	}
	if !fs.left {
		t.Fatal("room should be marked finished")
	}
	if err := c.Leave(context.Background()); err != nil {
		t.Fatalf("second Leave: %v", err)
	}
	if _, err := c.Create(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Create after Leave = %v, want ErrClosed", err)
	}
}

func TestCoordinator_DuplicateTerminalReportIgnored(t *testing.T) {
	fs := newFakeStore()
	c := hostedRoom(t, fs, WithPollInterval(5*time.Millisecond))
	_ = c.Report(context.Background(), won("alice", 3))
	_ = c.Report(context.Background(), won("alice", 3))
	fs.setState("bob", lost("bob"))

	waitFor(t, c, EventResult)
	if n := countFor(c, EventResult, 50*time.Millisecond); n != 0 {
		t.Fatalf("%d extra results", n)
	}
	if fs.saveCount() != 1 {
		t.Fatalf("saves = %d", fs.saveCount())
	}
}

func TestCoordinator_ReportOverlappingPuzzleResetDoesNotSettle(t *testing.T) {
	fs := newFakeStore()
	c := hostedRoom(t, fs, WithPollInterval(5*time.Millisecond))
	defer c.Leave(context.Background())

	// The opponent starts the next puzzle while alice's final report is in flight.
	var once sync.Once
	fs.beforeReport = func() {
		once.Do(func() {
			if err := fs.StartNextPuzzle(context.Background(), "room-1", "lemon"); err != nil {
				t.Errorf("StartNextPuzzle: %v", err)
			}
		})
	}
	err := c.Report(context.Background(), won("alice", 3))
	if !errors.Is(err, ErrStalePuzzle) {
		t.Fatalf("Report = %v, want ErrStalePuzzle", err)
	}
	if room, _ := c.Room(); room.Puzzle != 2 || room.Word != "lemon" {
		t.Fatalf("room = %+v, want puzzle 2", room)
	}

	// bob finishes the new puzzle; alice has not played it.
	fs.setState("bob", won("bob", 2))
	if n := countFor(c, EventResult, 60*time.Millisecond); n != 0 {
		t.Fatalf("%d results for a puzzle alice never finished", n)
	}
	if fs.saveCount() != 0 {
		t.Fatalf("saves = %d, want 0", fs.saveCount())
	}
	c.mu.Lock()
	w := c.watch
	c.mu.Unlock()
	if w != nil {
		t.Fatal("a watch was armed for the superseded puzzle")
	}
}

func TestCoordinator_ProgressFromOtherPuzzleIgnored(t *testing.T) {
	fs := newFakeStore()
	c := hostedRoom(t, fs, WithPollInterval(time.Hour))
	defer c.Leave(context.Background())
	waitFor(t, c, EventOpponentJoined)

	fs.setState("bob", ParticipantState{GuessCount: 1, GreenCount: 2, Status: StatusPlaying})
	if ev := waitFor(t, c, EventOpponentProgress); ev.Opponent.Puzzle != 1 || ev.Opponent.GreenCount != 2 {
		t.Fatalf("progress = %+v", ev.Opponent)
	}

	// A late state stamped with an older puzzle is not progress in the current one.
	c.mu.Lock()
	c.room.Puzzle = 2
	c.mu.Unlock()
	fs.mu.Lock()
	fns := make([]func(ParticipantState), 0, len(fs.pushFns))
	for _, fn := range fs.pushFns {
		fns = append(fns, fn)
	}
	fs.mu.Unlock()
	for _, fn := range fns {
		fn(ParticipantState{ParticipantID: "bob", Puzzle: 1, GuessCount: 2, Status: StatusPlaying})
	}
	if n := countFor(c, EventOpponentProgress, 30*time.Millisecond); n != 0 {
		t.Fatalf("%d progress events from a superseded puzzle", n)
	}
}
