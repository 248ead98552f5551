package match

import (
	"context"
	"errors"
	"sync"
)

type fakeSub struct {
	once sync.Once
	fn   func()
}

func (s *fakeSub) Unsubscribe() { s.once.Do(s.fn) }

// fakeStore is an in-process RoomStore with switches for failure modes.
type fakeStore struct {
	mu      sync.Mutex
	room    Room
	states  map[string]ParticipantState
	saves   []Record
	ledger  *Ledger
	nextID  int
	left    bool
	subErr  error
	pollErr error
	repErr  error
	// beforeReport runs at the start of ReportState, outside the lock.
	beforeReport func()
	// pushOnSubscribe replays the opponent's current state to new subscribers.
	pushOnSubscribe bool

	pushFns map[int]func(ParticipantState)
	roomFns map[int]func(Room)
	pushFor map[int]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		states:  map[string]ParticipantState{},
		ledger:  NewLedger(),
		pushFns: map[int]func(ParticipantState){},
		roomFns: map[int]func(Room){},
		pushFor: map[int]string{},
	}
}

func (f *fakeStore) CreateRoom(_ context.Context, hostID, word string) (Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.room = Room{ID: "room-1", Code: "ABC234", HostID: hostID, Word: word, Puzzle: 1, Status: RoomWaiting}
	return f.room, nil
}

func (f *fakeStore) JoinRoom(_ context.Context, code, playerID string) (Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.room.ID == "" || code != f.room.Code {
		return Room{}, ErrRoomNotFound
	}
	if f.room.Status != RoomWaiting {
		return Room{}, ErrRoomFull
	}
	f.room.GuestID = playerID
	f.room.Status = RoomPlaying
	return f.room, nil
}

func (f *fakeStore) GetRoom(_ context.Context, roomID string) (Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if roomID != f.room.ID {
		return Room{}, ErrRoomNotFound
	}
	return f.room, nil
}

func (f *fakeStore) ReportState(_ context.Context, _ string, playerID string, st ParticipantState) error {
	if f.beforeReport != nil {
		f.beforeReport()
	}
	f.mu.Lock()
	if f.repErr != nil {
		f.mu.Unlock()
		return f.repErr
	}
	if st.Puzzle != f.room.Puzzle {
		f.mu.Unlock()
		return ErrStalePuzzle
	}
	f.mu.Unlock()
	f.setState(playerID, st)
	return nil
}

func (f *fakeStore) OpponentState(_ context.Context, _ string, myID string) (ParticipantState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return ParticipantState{}, f.pollErr
	}
	opp := f.room.OpponentOf(myID)
	if st, ok := f.states[opp]; ok {
		return st, nil
	}
	st := Playing(opp)
	st.Puzzle = f.room.Puzzle
	return st, nil
}

func (f *fakeStore) SubscribeOpponentState(_ context.Context, _ string, myID string, fn func(ParticipantState)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.nextID++
	id := f.nextID
	f.pushFns[id] = fn
	f.pushFor[id] = myID
	if f.pushOnSubscribe {
		if st, ok := f.states[f.room.OpponentOf(myID)]; ok {
			go fn(st)
		}
	}
	return &fakeSub{fn: func() {
		f.mu.Lock()
		delete(f.pushFns, id)
		f.mu.Unlock()
	}}, nil
}

func (f *fakeStore) SubscribeRoom(_ context.Context, _ string, fn func(Room)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.nextID++
	id := f.nextID
	f.roomFns[id] = fn
	return &fakeSub{fn: func() {
		f.mu.Lock()
		delete(f.roomFns, id)
		f.mu.Unlock()
	}}, nil
}

func (f *fakeStore) SaveMatchResult(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.saves {
		if r.RoomID == rec.RoomID && r.Puzzle == rec.Puzzle {
			return nil
		}
	}
	f.saves = append(f.saves, rec)
	f.ledger.Record(rec.HostID, rec.GuestID, rec.WinnerID)
	return nil
}

func (f *fakeStore) HeadToHead(_ context.Context, a, b string) (HeadToHead, error) {
	return f.ledger.Lookup(a, b), nil
}

func (f *fakeStore) StartNextPuzzle(_ context.Context, roomID, word string) error {
	f.mu.Lock()
	if roomID != f.room.ID {
		f.mu.Unlock()
		return ErrRoomNotFound
	}
	f.room.Puzzle++
	f.room.Word = word
	f.room.Status = RoomPlaying
	f.states = map[string]ParticipantState{}
	f.mu.Unlock()
	f.notifyRoom()
	return nil
}

func (f *fakeStore) LeaveRoom(_ context.Context, roomID string) error {
	f.mu.Lock()
	if roomID != f.room.ID {
		f.mu.Unlock()
		return ErrRoomNotFound
	}
	f.left = true
	f.room.Status = RoomFinished
	f.mu.Unlock()
	f.notifyRoom()
	return nil
}

// setState stores st for player under the current puzzle and pushes it to the
// other participant's subscribers.
func (f *fakeStore) setState(player string, st ParticipantState) {
	st.ParticipantID = player
	f.mu.Lock()
	st.Puzzle = f.room.Puzzle
	f.states[player] = st
	var fns []func(ParticipantState)
	for id, fn := range f.pushFns {
		if f.pushFor[id] != player {
			fns = append(fns, fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

func (f *fakeStore) seatGuest(id string) {
	f.mu.Lock()
	f.room.GuestID = id
	f.room.Status = RoomPlaying
	f.mu.Unlock()
	f.notifyRoom()
}

func (f *fakeStore) notifyRoom() {
	f.mu.Lock()
	room := f.room
	var fns []func(Room)
	for _, fn := range f.roomFns {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(room)
	}
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStore) pushSubscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushFns)
}

var errOffline = errors.New("offline")

type wordQueue struct {
	mu    sync.Mutex
	words []string
}

func (q *wordQueue) RandomWord() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	w := q.words[0]
	if len(q.words) > 1 {
		q.words = q.words[1:]
	}
	return w
}
