// internal/store/store.go
//
// Room Store backends shared by the duel server and offline play.
// Two implementations:
//   - Memory: maps under an RWMutex; state is lost on restart.
//   - SQL:    SQLite via mattn/go-sqlite3; durable rooms, results, users, stats.
//
// Both satisfy match.RoomStore and publish room/state changes to in-process
// subscribers through internal/realtime.

package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robalobadob/wordduel/internal/match"
	"github.com/robalobadob/wordduel/internal/stats"
)

// User errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("username taken")
)

// User is an account row.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Backend is everything the HTTP server needs from storage.
type Backend interface {
	match.RoomStore

	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	UserByName(ctx context.Context, username string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)

	Stats(ctx context.Context, userID string) (stats.Stats, error)
	UpdateStats(ctx context.Context, userID string, won bool, guesses int) (stats.Stats, error)

	Close() error
}

// codeAlphabet omits I, O, 0 and 1.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// newRoomCode returns a random human-typeable room code.
func newRoomCode() string {
	var b [codeLength]byte
	_, _ = rand.Read(b[:])
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b[:])
}

// normalizeCode makes joins case-insensitive.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// genID creates a 22-char URL-safe, crypto-random identifier (no padding).
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// playing is the fresh state of id at the start of puzzle.
func playing(id string, puzzle int) match.ParticipantState {
	st := match.Playing(id)
	st.Puzzle = puzzle
	return st
}

// endedSub is handed out for rooms that already finished: nothing will be pushed.
type endedSub struct{}

func (endedSub) Unsubscribe() {}

// persistErr wraps a backend failure so callers can match match.ErrPersistence.
func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, match.ErrPersistence, err)
}

// resultKey identifies one match: a room and its puzzle number.
type resultKey struct {
	roomID string
	puzzle int
}
