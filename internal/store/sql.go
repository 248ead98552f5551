// internal/store/sql.go
//
// SQLite implementation of Backend.
// Characteristics:
//   - rooms / game_states / match_results / users / user_stats tables (migrations/).
//   - Joins and stats updates run in a transaction; result writes are
//     INSERT OR IGNORE on UNIQUE(room_id, puzzle).
//   - Head-to-head is a single aggregate query over match_results.
//   - Push subscriptions are served in-process: this store is the only writer,
//     so it publishes after each successful commit.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordduel/internal/match"
	"github.com/robalobadob/wordduel/internal/realtime"
	"github.com/robalobadob/wordduel/internal/stats"
)

// SQL is a SQLite-backed Backend.
type SQL struct {
	db *sql.DB

	// hubMu orders subscriber registration against LeaveRoom dropping the hubs.
	hubMu    sync.Mutex
	roomHub  *realtime.Topics[match.Room]
	stateHub *realtime.Topics[match.ParticipantState]
}

// OpenSQL opens the database at path and applies migrations.
func OpenSQL(path string) (*SQL, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, persistErr("open db", err)
	}
	if err := migrate(db, migrationFS); err != nil {
		_ = db.Close()
		return nil, persistErr("migrate", err)
	}
	log.Info().Str("path", path).Msg("sqlite store ready")
	return &SQL{
		db:       db,
		roomHub:  realtime.NewTopics[match.Room](),
		stateHub: realtime.NewTopics[match.ParticipantState](),
	}, nil
}

// Close closes the database.
func (s *SQL) Close() error { return s.db.Close() }

const roomColumns = `id, code, host_id, guest_id, word, puzzle, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (match.Room, error) {
	var r match.Room
	var status, created string
	if err := row.Scan(&r.ID, &r.Code, &r.HostID, &r.GuestID, &r.Word, &r.Puzzle, &status, &created); err != nil {
		return match.Room{}, err
	}
	r.Status = match.RoomStatus(status)
	r.CreatedAt = mustParse(created)
	return r, nil
}

// mustParse parses RFC3339 timestamps; on error returns zero time.
func mustParse(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// CreateRoom opens a waiting room hosted by hostID.
func (s *SQL) CreateRoom(ctx context.Context, hostID, word string) (match.Room, error) {
	r := match.Room{
		ID:        genID(),
		HostID:    hostID,
		Word:      strings.ToLower(word),
		Puzzle:    1,
		Status:    match.RoomWaiting,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return match.Room{}, persistErr("create room", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Codes only need to be unique among open rooms.
	for {
		r.Code = newRoomCode()
		var taken int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE code=? AND status!='finished'`, r.Code).Scan(&taken)
		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return match.Room{}, persistErr("create room", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO rooms (`+roomColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		r.ID, r.Code, r.HostID, "", r.Word, r.Puzzle, string(r.Status), r.CreatedAt.Format(time.RFC3339)); err != nil {
		return match.Room{}, persistErr("create room", err)
	}
	if err := upsertState(ctx, tx, r.ID, playing(hostID, r.Puzzle)); err != nil {
		return match.Room{}, persistErr("create room", err)
	}
	if err := tx.Commit(); err != nil {
		return match.Room{}, persistErr("create room", err)
	}
	return r, nil
}

// JoinRoom seats playerID as guest of the waiting room with code.
func (s *SQL) JoinRoom(ctx context.Context, code, playerID string) (match.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return match.Room{}, persistErr("join room", err)
	}
	defer func() { _ = tx.Rollback() }()

	r, err := scanRoom(tx.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE code=? AND status!='finished' ORDER BY created_at DESC LIMIT 1`,
		normalizeCode(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return match.Room{}, match.ErrRoomNotFound
	}
	if err != nil {
		return match.Room{}, persistErr("join room", err)
	}
	if r.Has(playerID) {
		return r, nil
	}
	if r.Status != match.RoomWaiting {
		return match.Room{}, match.ErrRoomFull
	}

	res, err := tx.ExecContext(ctx, `UPDATE rooms SET guest_id=?, status='playing' WHERE id=? AND status='waiting'`, playerID, r.ID)
	if err != nil {
		return match.Room{}, persistErr("join room", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return match.Room{}, match.ErrRoomFull
	}
	if err := upsertState(ctx, tx, r.ID, playing(playerID, r.Puzzle)); err != nil {
		return match.Room{}, persistErr("join room", err)
	}
	if err := tx.Commit(); err != nil {
		return match.Room{}, persistErr("join room", err)
	}

	r.GuestID = playerID
	r.Status = match.RoomPlaying
	s.roomHub.Publish(r.ID, r)
	return r, nil
}

// GetRoom returns the current room row.
func (s *SQL) GetRoom(ctx context.Context, roomID string) (match.Room, error) {
	r, err := scanRoom(s.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=?`, roomID))
	if errors.Is(err, sql.ErrNoRows) {
		return match.Room{}, match.ErrRoomNotFound
	}
	if err != nil {
		return match.Room{}, persistErr("get room", err)
	}
	return r, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertState(ctx context.Context, db execer, roomID string, st match.ParticipantState) error {
	_, err := db.ExecContext(ctx, `
        INSERT INTO game_states (room_id, player_id, puzzle, guess_count, green_count, yellow_count, status, updated_at)
        VALUES (?,?,?,?,?,?,?,?)
        ON CONFLICT(room_id, player_id) DO UPDATE SET
            puzzle=excluded.puzzle,
            guess_count=excluded.guess_count,
            green_count=excluded.green_count,
            yellow_count=excluded.yellow_count,
            status=excluded.status,
            updated_at=excluded.updated_at`,
		roomID, st.ParticipantID, st.Puzzle, st.GuessCount, st.GreenCount, st.YellowCount, string(st.Status), now())
	return err
}

// ReportState records playerID's progress and pushes it to subscribers.
// Reports for any puzzle but the room's current one fail with match.ErrStalePuzzle;
// the check and the write share a transaction with StartNextPuzzle's.
func (s *SQL) ReportState(ctx context.Context, roomID, playerID string, st match.ParticipantState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("report state", err)
	}
	defer func() { _ = tx.Rollback() }()

	r, err := scanRoom(tx.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=?`, roomID))
	if errors.Is(err, sql.ErrNoRows) {
		return match.ErrRoomNotFound
	}
	if err != nil {
		return persistErr("report state", err)
	}
	if !r.Has(playerID) {
		return match.ErrForbidden
	}
	if st.Puzzle != r.Puzzle {
		return match.ErrStalePuzzle
	}
	st.ParticipantID = playerID
	if err := upsertState(ctx, tx, roomID, st); err != nil {
		return persistErr("report state", err)
	}
	if err := tx.Commit(); err != nil {
		return persistErr("report state", err)
	}
	s.stateHub.Publish(roomID, st)
	return nil
}

// OpponentState returns the other participant's last reported state.
func (s *SQL) OpponentState(ctx context.Context, roomID, myID string) (match.ParticipantState, error) {
	r, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return match.ParticipantState{}, err
	}
	if !r.Has(myID) {
		return match.ParticipantState{}, match.ErrForbidden
	}
	opp := r.OpponentOf(myID)
	st := match.ParticipantState{ParticipantID: opp}
	var status string
	err = s.db.QueryRowContext(ctx,
		`SELECT puzzle, guess_count, green_count, yellow_count, status FROM game_states WHERE room_id=? AND player_id=?`,
		roomID, opp).Scan(&st.Puzzle, &st.GuessCount, &st.GreenCount, &st.YellowCount, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return playing(opp, r.Puzzle), nil
	}
	if err != nil {
		return match.ParticipantState{}, persistErr("opponent state", err)
	}
	st.Status = match.Status(status)
	return st, nil
}

// SubscribeOpponentState pushes every state reported by someone other than myID.
func (s *SQL) SubscribeOpponentState(ctx context.Context, roomID, myID string, fn func(match.ParticipantState)) (match.Subscription, error) {
	hub, err := sqlHub(ctx, s, roomID, s.stateHub)
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
func (s *SQL) SubscribeRoom(ctx context.Context, roomID string, fn func(match.Room)) (match.Subscription, error) {
	hub, err := sqlHub(ctx, s, roomID, s.roomHub)
	if err != nil {
		return nil, err
	}
	if hub == nil {
		return endedSub{}, nil
	}
	return hub.Listen(ctx, fn), nil
}

// sqlHub returns the broadcaster of roomID in topics, or nil once the room finished.
func sqlHub[T any](ctx context.Context, s *SQL, roomID string, topics *realtime.Topics[T]) (*realtime.Broadcaster[T], error) {
	s.hubMu.Lock()
	defer s.hubMu.Unlock()
	r, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if r.Status == match.RoomFinished {
		return nil, nil
	}
	return topics.Get(roomID), nil
}

// SaveMatchResult inserts rec; a second write for the same (room, puzzle) is ignored.
func (s *SQL) SaveMatchResult(ctx context.Context, rec match.Record) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO match_results
            (room_id, puzzle, host_id, guest_id, winner_id, host_guesses, guest_guesses, word, created_at)
        VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.RoomID, rec.Puzzle, rec.HostID, rec.GuestID, rec.WinnerID, rec.HostGuesses, rec.GuestGuesses, rec.Word, now())
	if err != nil {
		return persistErr("save match result", err)
	}
	return nil
}

// HeadToHead aggregates all results between idA and idB, oriented (idA, idB).
func (s *SQL) HeadToHead(ctx context.Context, idA, idB string) (match.HeadToHead, error) {
	var h match.HeadToHead
	err := s.db.QueryRowContext(ctx, `
        SELECT
            COALESCE(SUM(CASE WHEN winner_id = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN winner_id = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN winner_id = '' THEN 1 ELSE 0 END), 0),
            COUNT(1)
        FROM match_results
        WHERE (host_id = ? AND guest_id = ?) OR (host_id = ? AND guest_id = ?)`,
		idA, idB, idA, idB, idB, idA).Scan(&h.WinsA, &h.WinsB, &h.Draws, &h.Total)
	if err != nil {
		return match.HeadToHead{}, persistErr("head to head", err)
	}
	return h, nil
}

// StartNextPuzzle sets a new word and resets both participants to playing.
func (s *SQL) StartNextPuzzle(ctx context.Context, roomID, word string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("next puzzle", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
        UPDATE rooms SET word=?, puzzle=puzzle+1,
            status=CASE WHEN guest_id != '' THEN 'playing' ELSE status END
        WHERE id=?`, strings.ToLower(word), roomID)
	if err != nil {
		return persistErr("next puzzle", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return match.ErrRoomNotFound
	}
	r, err := scanRoom(tx.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=?`, roomID))
	if err != nil {
		return persistErr("next puzzle", err)
	}
	if _, err := tx.ExecContext(ctx, `
        UPDATE game_states SET puzzle=?, guess_count=0, green_count=0, yellow_count=0, status='playing', updated_at=?
        WHERE room_id=?`, r.Puzzle, now(), roomID); err != nil {
		return persistErr("next puzzle", err)
	}
	if err := tx.Commit(); err != nil {
		return persistErr("next puzzle", err)
	}
	s.roomHub.Publish(roomID, r)
	return nil
}

// LeaveRoom marks the room finished.
func (s *SQL) LeaveRoom(ctx context.Context, roomID string) error {
	r, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if r.Status == match.RoomFinished {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE rooms SET status='finished' WHERE id=?`, roomID); err != nil {
		return persistErr("leave room", err)
	}
	r.Status = match.RoomFinished

	s.hubMu.Lock()
	s.roomHub.Publish(roomID, r)
	s.roomHub.Drop(roomID)
	s.stateHub.Drop(roomID)
	s.hubMu.Unlock()
	return nil
}

// ------------------------------- users -------------------------------------

// CreateUser inserts an account; usernames are unique case-insensitively.
func (s *SQL) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	u := User{ID: genID(), Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username=?`, username).Scan(&exists)
	if err == nil {
		return User{}, ErrUserExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, persistErr("create user", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.Format(time.RFC3339)); err != nil {
		return User{}, persistErr("create user", err)
	}
	return u, nil
}

func (s *SQL) findUser(ctx context.Context, where string, arg any) (User, error) {
	var u User
	var created string
	err := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, persistErr("find user", err)
	}
	u.CreatedAt = mustParse(created)
	return u, nil
}

// UserByName looks a user up case-insensitively.
func (s *SQL) UserByName(ctx context.Context, username string) (User, error) {
	return s.findUser(ctx, `username=?`, username)
}

// UserByID looks a user up by id.
func (s *SQL) UserByID(ctx context.Context, id string) (User, error) {
	return s.findUser(ctx, `id=?`, id)
}

// ------------------------------- stats -------------------------------------

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadStats(ctx context.Context, db queryRower, userID string) (stats.Stats, error) {
	var st stats.Stats
	var dist string
	err := db.QueryRowContext(ctx, `
        SELECT games_played, games_won, current_streak, max_streak, guess_distribution
        FROM user_stats WHERE user_id=?`, userID).
		Scan(&st.GamesPlayed, &st.GamesWon, &st.CurrentStreak, &st.MaxStreak, &dist)
	if errors.Is(err, sql.ErrNoRows) {
		return stats.Stats{}, nil
	}
	if err != nil {
		return stats.Stats{}, err
	}
	if err := json.Unmarshal([]byte(dist), &st.Distribution); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("bad guess distribution, resetting")
		st.Distribution = stats.Stats{}.Distribution
	}
	return st, nil
}

// Stats returns userID's stats; users who never finished a game have zero stats.
func (s *SQL) Stats(ctx context.Context, userID string) (stats.Stats, error) {
	st, err := loadStats(ctx, s.db, userID)
	if err != nil {
		return stats.Stats{}, persistErr("load stats", err)
	}
	return st, nil
}

// UpdateStats applies one finished game to userID's stats in a transaction.
func (s *SQL) UpdateStats(ctx context.Context, userID string, won bool, guesses int) (stats.Stats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats.Stats{}, persistErr("update stats", err)
	}
	defer func() { _ = tx.Rollback() }()

	st, err := loadStats(ctx, tx, userID)
	if err != nil {
		return stats.Stats{}, persistErr("update stats", err)
	}
	st = st.Apply(won, guesses)
	dist, _ := json.Marshal(st.Distribution)
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO user_stats (user_id, games_played, games_won, current_streak, max_streak, guess_distribution)
        VALUES (?,?,?,?,?,?)
        ON CONFLICT(user_id) DO UPDATE SET
            games_played=excluded.games_played,
            games_won=excluded.games_won,
            current_streak=excluded.current_streak,
            max_streak=excluded.max_streak,
            guess_distribution=excluded.guess_distribution`,
		userID, st.GamesPlayed, st.GamesWon, st.CurrentStreak, st.MaxStreak, string(dist)); err != nil {
		return stats.Stats{}, persistErr("update stats", err)
	}
	if err := tx.Commit(); err != nil {
		return stats.Stats{}, persistErr("update stats", err)
	}
	return st, nil
}
