// internal/store/memory.go
//
// In-memory implementation of Backend.
// Characteristics:
//   - Rooms, states, results and users live in maps.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Match results are unique per (room, puzzle); head-to-head comes from a match.Ledger.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robalobadob/wordduel/internal/match"
	"github.com/robalobadob/wordduel/internal/realtime"
	"github.com/robalobadob/wordduel/internal/stats"
)

type memRoom struct {
	room   match.Room
	states map[string]match.ParticipantState
}

// Memory is a map-based Backend.
type Memory struct {
	mu      sync.RWMutex
	rooms   map[string]*memRoom // keyed by room id
	codes   map[string]string   // open room code -> room id
	results map[resultKey]match.Record
	ledger  *match.Ledger

	users  map[string]User   // keyed by id
	byName map[string]string // lower(username) -> id
	stats  map[string]stats.Stats

	roomHub  *realtime.Topics[match.Room]
	stateHub *realtime.Topics[match.ParticipantState]
}

// NewMemory constructs an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		rooms:    make(map[string]*memRoom),
		codes:    make(map[string]string),
		results:  make(map[resultKey]match.Record),
		ledger:   match.NewLedger(),
		users:    make(map[string]User),
		byName:   make(map[string]string),
		stats:    make(map[string]stats.Stats),
		roomHub:  realtime.NewTopics[match.Room](),
		stateHub: realtime.NewTopics[match.ParticipantState](),
	}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// CreateRoom opens a waiting room hosted by hostID.
func (m *Memory) CreateRoom(_ context.Context, hostID, word string) (match.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := newRoomCode()
	for m.codes[code] != "" {
		code = newRoomCode()
	}
	r := &memRoom{
		room: match.Room{
			ID:        genID(),
			Code:      code,
			HostID:    hostID,
			Word:      strings.ToLower(word),
			Puzzle:    1,
			Status:    match.RoomWaiting,
			CreatedAt: time.Now().UTC(),
		},
		states: map[string]match.ParticipantState{hostID: playing(hostID, 1)},
	}
	m.rooms[r.room.ID] = r
	m.codes[code] = r.room.ID
	return r.room, nil
}

// JoinRoom seats playerID as guest of the waiting room with code.
// A player already seated gets the room back unchanged.
func (m *Memory) JoinRoom(_ context.Context, code, playerID string) (match.Room, error) {
	m.mu.Lock()
	id, ok := m.codes[normalizeCode(code)]
	if !ok {
		m.mu.Unlock()
		return match.Room{}, match.ErrRoomNotFound
	}
	r := m.rooms[id]
	if r.room.Has(playerID) {
		room := r.room
		m.mu.Unlock()
		return room, nil
	}
	if r.room.Status != match.RoomWaiting {
		m.mu.Unlock()
		return match.Room{}, match.ErrRoomFull
	}
	r.room.GuestID = playerID
	r.room.Status = match.RoomPlaying
	r.states[playerID] = playing(playerID, r.room.Puzzle)
	room := r.room
	m.mu.Unlock()

	m.roomHub.Publish(room.ID, room)
	return room, nil
}

// GetRoom returns the current room row.
func (m *Memory) GetRoom(_ context.Context, roomID string) (match.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return match.Room{}, match.ErrRoomNotFound
	}
	return r.room, nil
}

// ReportState records playerID's progress and pushes it to subscribers.
// Reports for any puzzle but the room's current one fail with match.ErrStalePuzzle.
func (m *Memory) ReportState(_ context.Context, roomID, playerID string, st match.ParticipantState) error {
	st.ParticipantID = playerID
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return match.ErrRoomNotFound
	}
	if !r.room.Has(playerID) {
		m.mu.Unlock()
		return match.ErrForbidden
	}
	if st.Puzzle != r.room.Puzzle {
		m.mu.Unlock()
		return match.ErrStalePuzzle
	}
	r.states[playerID] = st
	m.mu.Unlock()

	m.stateHub.Publish(roomID, st)
	return nil
}

// OpponentState returns the other participant's last reported state.
func (m *Memory) OpponentState(_ context.Context, roomID, myID string) (match.ParticipantState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return match.ParticipantState{}, match.ErrRoomNotFound
	}
	if !r.room.Has(myID) {
		return match.ParticipantState{}, match.ErrForbidden
	}
	opp := r.room.OpponentOf(myID)
	if st, ok := r.states[opp]; ok {
		return st, nil
	}
	return playing(opp, r.room.Puzzle), nil
}

// SubscribeOpponentState pushes every state reported by someone other than myID.
func (m *Memory) SubscribeOpponentState(ctx context.Context, roomID, myID string, fn func(match.ParticipantState)) (match.Subscription, error) {
	hub, err := memHub(m, roomID, m.stateHub)
	if err != nil {
		return nil, err
	}
	if hub == nil {
		return endedSub{}, nil
	}
	return hub.Listen(ctx, func(st match.ParticipantState) {
		if st.ParticipantID != myID {
			fn(st)
		}
	}), nil
}

// SubscribeRoom pushes every change of the room row.
func (m *Memory) SubscribeRoom(ctx context.Context, roomID string, fn func(match.Room)) (match.Subscription, error) {
	hub, err := memHub(m, roomID, m.roomHub)
	if err != nil {
		return nil, err
	}
	if hub == nil {
		return endedSub{}, nil
	}
	return hub.Listen(ctx, fn), nil
}

// memHub returns the broadcaster of roomID in topics, or nil once the room
// finished. Checked under the store lock so LeaveRoom's Drop cannot race a
// late subscriber into a fresh, never-dropped broadcaster.
func memHub[T any](m *Memory, roomID string, topics *realtime.Topics[T]) (*realtime.Broadcaster[T], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, match.ErrRoomNotFound
	}
	if r.room.Status == match.RoomFinished {
		return nil, nil
	}
	return topics.Get(roomID), nil
}

// SaveMatchResult stores rec once per (room, puzzle); repeats are ignored.
func (m *Memory) SaveMatchResult(_ context.Context, rec match.Record) error {
	k := resultKey{rec.RoomID, rec.Puzzle}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.results[k]; dup {
		return nil
	}
	m.results[k] = rec
	m.ledger.Record(rec.HostID, rec.GuestID, rec.WinnerID)
	return nil
}

// HeadToHead returns the tally between idA and idB, oriented (idA, idB).
func (m *Memory) HeadToHead(_ context.Context, idA, idB string) (match.HeadToHead, error) {
	return m.ledger.Lookup(idA, idB), nil
}

// StartNextPuzzle sets a new word and resets both participants to playing.
func (m *Memory) StartNextPuzzle(_ context.Context, roomID, word string) error {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return match.ErrRoomNotFound
	}
	r.room.Word = strings.ToLower(word)
	r.room.Puzzle++
	if r.room.GuestID != "" {
		r.room.Status = match.RoomPlaying
	}
	for id := range r.states {
		r.states[id] = playing(id, r.room.Puzzle)
	}
	room := r.room
	m.mu.Unlock()

	m.roomHub.Publish(roomID, room)
	return nil
}

// LeaveRoom marks the room finished and frees its code.
func (m *Memory) LeaveRoom(_ context.Context, roomID string) error {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return match.ErrRoomNotFound
	}
	if r.room.Status == match.RoomFinished {
		m.mu.Unlock()
		return nil
	}
	r.room.Status = match.RoomFinished
	delete(m.codes, r.room.Code)
	room := r.room
	m.mu.Unlock()

	m.roomHub.Publish(roomID, room)
	m.roomHub.Drop(roomID)
	m.stateHub.Drop(roomID)
	return nil
}

// CreateUser adds an account; usernames are unique case-insensitively.
func (m *Memory) CreateUser(_ context.Context, username, passwordHash string) (User, error) {
	key := strings.ToLower(username)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byName[key]; taken {
		return User{}, ErrUserExists
	}
	u := User{ID: genID(), Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	m.users[u.ID] = u
	m.byName[key] = u.ID
	return u, nil
}

// UserByName looks a user up case-insensitively.
func (m *Memory) UserByName(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[strings.ToLower(username)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return m.users[id], nil
}

// UserByID looks a user up by id.
func (m *Memory) UserByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// Stats returns userID's stats; unknown users have zero stats.
func (m *Memory) Stats(_ context.Context, userID string) (stats.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats[userID], nil
}

// UpdateStats applies one finished game to userID's stats.
func (m *Memory) UpdateStats(_ context.Context, userID string, won bool, guesses int) (stats.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats[userID].Apply(won, guesses)
	m.stats[userID] = s
	return s, nil
}
