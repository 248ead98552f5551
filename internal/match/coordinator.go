// internal/match/coordinator.go
//
// Match coordination for one player in one room.
// Responsibilities:
//   - Create or join a room and follow its lifecycle (waiting → playing → finished).
//   - Report the local player's progress to the room store.
//   - Once the local session is terminal, learn the opponent's terminal state
//     (push or poll, see watch.go) and surface exactly one Result per match.
//   - Persist the result (room host only) and keep the head-to-head score.
//
// All notifications flow through a single tagged event stream, Events().
// A Coordinator lives as long as one room: Leave disposes it.

package match

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordduel/internal/game"
)

const (
	defaultPollInterval = time.Second
	defaultEventBuffer  = 32
	settleTimeout       = 10 * time.Second
)

// EventKind tags an Event.
type EventKind int

const (
	EventOpponentJoined   EventKind = iota + 1 // Room and Score are set
	EventOpponentProgress                      // Opponent is set
	EventPuzzleReset                           // Room and Word are set
	EventResult                                // Result and Score are set
	EventRoomClosed                            // Room is set
)

func (k EventKind) String() string {
	switch k {
	case EventOpponentJoined:
		return "opponent_joined"
	case EventOpponentProgress:
		return "opponent_progress"
	case EventPuzzleReset:
		return "puzzle_reset"
	case EventResult:
		return "result"
	case EventRoomClosed:
		return "room_closed"
	}
	return "unknown"
}

// Event is one notification from the coordinator.
type Event struct {
	Kind     EventKind
	Room     Room
	Opponent ParticipantState
	Word     string
	Result   *Result
	Score    HeadToHead // oriented (self, opponent)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPollInterval sets how often the opponent's state is polled while waiting.
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.pollEvery = d
		}
	}
}

// WithLedger shares a ledger between coordinators (e.g. successive rooms).
func WithLedger(l *Ledger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.ledger = l
		}
	}
}

// Coordinator arbitrates matches for the local player selfID.
type Coordinator struct {
	store     RoomStore
	words     Words
	self      string
	pollEvery time.Duration
	ledger    *Ledger

	mu          sync.Mutex
	room        Room
	inRoom      bool
	mine        ParticipantState
	score       HeadToHead
	watch       *watch
	roomSub     Subscription
	progressSub Subscription

	// life bounds the room and progress subscriptions; Leave ends it.
	life     context.Context
	stopLife context.CancelFunc

	events    chan Event
	closed    chan struct{}
	closeOnce sync.Once
}

// NewCoordinator constructs a coordinator for selfID.
func NewCoordinator(store RoomStore, words Words, selfID string, opts ...Option) *Coordinator {
	life, stop := context.WithCancel(context.Background())
	c := &Coordinator{
		life:      life,
		stopLife:  stop,
		store:     store,
		words:     words,
		self:      selfID,
		pollEvery: defaultPollInterval,
		ledger:    NewLedger(),
		mine:      Playing(selfID),
		events:    make(chan Event, defaultEventBuffer),
		closed:    make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Events is the coordinator's notification stream. It is never closed; select
// on Done to stop reading after Leave.
func (c *Coordinator) Events() <-chan Event { return c.events }

// Done is closed once the coordinator has left its room.
func (c *Coordinator) Done() <-chan struct{} { return c.closed }

// Self returns the local participant id.
func (c *Coordinator) Self() string { return c.self }

// Room returns the last known room row.
func (c *Coordinator) Room() (Room, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.inRoom
}

// IsAuthority reports whether the local player writes durable results (room host).
func (c *Coordinator) IsAuthority() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inRoom && c.room.HostID == c.self
}

// Scoreboard returns the head-to-head score oriented (self, opponent).
func (c *Coordinator) Scoreboard() HeadToHead {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.score
}

// Create opens a new room with a random word and waits for an opponent.
func (c *Coordinator) Create(ctx context.Context) (Room, error) {
	if err := c.ready(); err != nil {
		return Room{}, err
	}
	room, err := c.store.CreateRoom(ctx, c.self, c.words.RandomWord())
	if err != nil {
		return Room{}, err
	}
	c.enter(room)
	log.Info().Str("room", room.ID).Str("code", room.Code).Msg("room created")
	return room, nil
}

// Join takes the second seat of the room with the given code.
func (c *Coordinator) Join(ctx context.Context, code string) (Room, error) {
	if err := c.ready(); err != nil {
		return Room{}, err
	}
	room, err := c.store.JoinRoom(ctx, code, c.self)
	if err != nil {
		return Room{}, err
	}
	c.enter(room)
	c.loadScore(ctx, room.OpponentOf(c.self))
	log.Info().Str("room", room.ID).Str("code", room.Code).Msg("room joined")
	return room, nil
}

func (c *Coordinator) ready() error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inRoom {
		return ErrClosed
	}
	return nil
}

// enter records room and attaches the room and progress subscriptions.
// A failed subscription is logged; polling still resolves matches.
func (c *Coordinator) enter(room Room) {
	c.mu.Lock()
	c.room = room
	c.inRoom = true
	c.mine = Playing(c.self)
	c.mu.Unlock()

	roomSub, err := c.store.SubscribeRoom(c.life, room.ID, c.applyRoom)
	if err != nil {
		log.Warn().Err(err).Str("room", room.ID).Msg("room subscription unavailable")
	}
	progressSub, err := c.store.SubscribeOpponentState(c.life, room.ID, c.self, func(st ParticipantState) {
		if st.Puzzle != c.currentPuzzle() {
			return
		}
		c.emit(Event{Kind: EventOpponentProgress, Opponent: st})
	})
	if err != nil {
		log.Warn().Err(err).Str("room", room.ID).Msg("opponent progress subscription unavailable")
	}

	c.mu.Lock()
	c.roomSub, c.progressSub = roomSub, progressSub
	c.mu.Unlock()
}

func (c *Coordinator) currentPuzzle() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room.Puzzle
}

// applyRoom reacts to a new room row: opponent joined, puzzle reset, room closed.
func (c *Coordinator) applyRoom(updated Room) {
	c.mu.Lock()
	old := c.room
	if !c.inRoom || updated.ID != old.ID || updated.Puzzle < old.Puzzle {
		c.mu.Unlock()
		return
	}
	c.room = updated
	c.mu.Unlock()

	if old.GuestID == "" && updated.GuestID != "" && updated.HostID == c.self {
		ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
		c.loadScore(ctx, updated.GuestID)
		cancel()
		c.emit(Event{Kind: EventOpponentJoined, Room: updated, Score: c.Scoreboard()})
	}
	if updated.Status == RoomPlaying && (updated.Puzzle != old.Puzzle || updated.Word != old.Word) {
		c.resetMatch()
		c.emit(Event{Kind: EventPuzzleReset, Room: updated, Word: updated.Word})
	}
	if updated.Status == RoomFinished && old.Status != RoomFinished {
		c.resetMatch()
		c.emit(Event{Kind: EventRoomClosed, Room: updated})
	}
}

// resetMatch abandons any pending completion watch and forgets local progress.
func (c *Coordinator) resetMatch() {
	c.mu.Lock()
	w := c.watch
	c.watch = nil
	c.mine = Playing(c.self)
	c.mu.Unlock()
	if w != nil {
		w.cancel()
	}
}

// ReportOutcome reports an accepted submission of the local session.
func (c *Coordinator) ReportOutcome(ctx context.Context, o game.Outcome) error {
	return c.Report(ctx, StateFromOutcome(c.self, o))
}

// Report publishes the local player's state. A terminal state also starts
// waiting for the opponent; that wait proceeds even if the report itself fails.
func (c *Coordinator) Report(ctx context.Context, st ParticipantState) error {
	st.ParticipantID = c.self
	c.mu.Lock()
	if !c.inRoom {
		c.mu.Unlock()
		return ErrNoRoom
	}
	room := c.room
	st.Puzzle = room.Puzzle
	c.mine = st
	c.mu.Unlock()

	err := c.store.ReportState(ctx, room.ID, c.self, st)
	if err != nil {
		log.Warn().Err(err).Str("room", room.ID).Str("status", string(st.Status)).Msg("report state")
	}
	if st.Terminal() {
		c.awaitOpponent(st, room)
	}
	return err
}

// awaitOpponent arms a completion watch for the current match. A second
// terminal report for the same puzzle is ignored, and so is a report whose
// puzzle was replaced (or whose room was left) while it was in flight.
func (c *Coordinator) awaitOpponent(mine ParticipantState, room Room) {
	c.mu.Lock()
	if !c.inRoom || c.room.ID != room.ID || c.room.Puzzle != room.Puzzle {
		c.mu.Unlock()
		log.Debug().Str("room", room.ID).Int("puzzle", room.Puzzle).Msg("puzzle changed before the report settled, not waiting")
		return
	}
	if c.watch != nil && c.watch.room.Puzzle == room.Puzzle {
		c.mu.Unlock()
		return
	}
	old := c.watch
	w := newWatch(c, mine, room)
	c.watch = w
	c.mu.Unlock()
	if old != nil {
		old.cancel()
	}
	w.arm()
}

// settle runs exactly once per match, on whichever channel reported the
// opponent terminal first.
func (c *Coordinator) settle(w *watch, theirs ParticipantState) {
	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()

	res := Decide(w.mine, theirs, w.room.Word)
	opponent := theirs.ParticipantID
	if opponent == "" {
		opponent = w.room.OpponentOf(c.self)
	}

	if w.room.HostID == c.self {
		rec := NewRecord(w.room, w.mine, theirs, res)
		if err := c.store.SaveMatchResult(ctx, rec); err != nil {
			log.Warn().Err(err).Str("room", w.room.ID).Int("puzzle", w.room.Puzzle).Msg("save match result")
		}
	}

	local := c.ledger.Record(c.self, opponent, res.WinnerID)
	score := local
	durable, err := c.store.HeadToHead(ctx, c.self, opponent)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("room", w.room.ID).Msg("head-to-head unavailable, using local score")
	case durable.Total >= local.Total:
		score = durable
		c.ledger.Set(c.self, opponent, durable)
	}

	c.mu.Lock()
	c.score = score
	c.mu.Unlock()

	log.Info().
		Str("room", w.room.ID).
		Int("puzzle", w.room.Puzzle).
		Str("winner", res.WinnerID).
		Bool("draw", res.Draw).
		Msg("match settled")
	c.emit(Event{Kind: EventResult, Room: w.room, Result: &res, Score: score})
}

// loadScore seeds the scoreboard from the durable head-to-head record.
func (c *Coordinator) loadScore(ctx context.Context, opponent string) {
	if opponent == "" {
		return
	}
	h, err := c.store.HeadToHead(ctx, c.self, opponent)
	if err != nil {
		log.Warn().Err(err).Str("opponent", opponent).Msg("load head-to-head")
		h = c.ledger.Lookup(c.self, opponent)
	} else {
		c.ledger.Set(c.self, opponent, h)
	}
	c.mu.Lock()
	c.score = h
	c.mu.Unlock()
}

// NextPuzzle starts a new word in the current room.
func (c *Coordinator) NextPuzzle(ctx context.Context) error {
	c.mu.Lock()
	room, in := c.room, c.inRoom
	c.mu.Unlock()
	if !in {
		return ErrNoRoom
	}
	if err := c.store.StartNextPuzzle(ctx, room.ID, c.words.RandomWord()); err != nil {
		return err
	}
	// The room subscription normally delivers this too; applyRoom ignores repeats.
	updated, err := c.store.GetRoom(ctx, room.ID)
	if err != nil {
		log.Warn().Err(err).Str("room", room.ID).Msg("reload room after next puzzle")
		return nil
	}
	c.applyRoom(updated)
	return nil
}

// Leave disarms every channel, releases subscriptions, marks the room finished
// and disposes the coordinator. Calling it again is a no-op.
func (c *Coordinator) Leave(ctx context.Context) error {
	c.mu.Lock()
	w := c.watch
	room, in := c.room, c.inRoom
	roomSub, progressSub := c.roomSub, c.progressSub
	c.watch, c.roomSub, c.progressSub = nil, nil, nil
	c.inRoom = false
	c.mu.Unlock()

	if w != nil {
		w.cancel()
	}
	if roomSub != nil {
		roomSub.Unsubscribe()
	}
	if progressSub != nil {
		progressSub.Unsubscribe()
	}
	c.stopLife()
	c.closeOnce.Do(func() { close(c.closed) })

	if !in {
		return nil
	}
	return c.store.LeaveRoom(ctx, room.ID)
}

// emit delivers ev unless the coordinator has been disposed.
func (c *Coordinator) emit(ev Event) {
	select {
	case <-c.closed:
		return
	default:
	}
	select {
	case c.events <- ev:
	case <-c.closed:
	}
}
