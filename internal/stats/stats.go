// internal/stats/stats.go
//
// Package stats tracks per-player results: games played and won, streaks and
// the distribution of winning guess counts.
package stats

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordduel/internal/game"
)

// Stats is one player's aggregate record. Distribution[i] counts wins in i+1 guesses.
type Stats struct {
	GamesPlayed   int                   `json:"gamesPlayed" toml:"games_played"`
	GamesWon      int                   `json:"gamesWon" toml:"games_won"`
	CurrentStreak int                   `json:"currentStreak" toml:"current_streak"`
	MaxStreak     int                   `json:"maxStreak" toml:"max_streak"`
	Distribution  [game.MaxAttempts]int `json:"guessDistribution" toml:"guess_distribution"`
}

// Apply returns s updated with one finished game.
func (s Stats) Apply(won bool, guesses int) Stats {
	s.GamesPlayed++
	if !won {
		s.CurrentStreak = 0
		return s
	}
	s.GamesWon++
	s.CurrentStreak++
	if s.CurrentStreak > s.MaxStreak {
		s.MaxStreak = s.CurrentStreak
	}
	if guesses >= 1 && guesses <= game.MaxAttempts {
		s.Distribution[guesses-1]++
	}
	return s
}

// WinPercent is the share of games won, rounded down.
func (s Stats) WinPercent() int {
	if s.GamesPlayed == 0 {
		return 0
	}
	return s.GamesWon * 100 / s.GamesPlayed
}

// Remote is the authoritative stats service.
type Remote interface {
	UpdateStats(ctx context.Context, won bool, guesses int) (Stats, error)
}

// Recorder records finished games remotely and keeps a local copy that takes
// over whenever the remote write fails.
type Recorder struct {
	remote Remote
	path   string

	mu    sync.Mutex
	local Stats
}

// NewRecorder returns a recorder. remote may be nil (offline play).
// path, if non-empty, is a TOML file persisting the local copy between runs.
func NewRecorder(remote Remote, path string) *Recorder {
	r := &Recorder{remote: remote, path: path}
	if path != "" {
		if _, err := toml.DecodeFile(path, &r.local); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("read local stats")
		}
	}
	return r
}

// Record adds one finished game and returns the resulting stats.
func (r *Recorder) Record(ctx context.Context, won bool, guesses int) Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.remote != nil {
		st, err := r.remote.UpdateStats(ctx, won, guesses)
		if err == nil {
			r.local = st
			r.save()
			return st
		}
		log.Warn().Err(err).Msg("remote stats update failed, recording locally")
	}
	r.local = r.local.Apply(won, guesses)
	r.save()
	return r.local
}

// Current returns the last known stats.
func (r *Recorder) Current() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.local
}

func (r *Recorder) save() {
	if r.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		log.Warn().Err(err).Str("path", r.path).Msg("create stats dir")
		return
	}
	f, err := os.Create(r.path)
	if err != nil {
		log.Warn().Err(err).Str("path", r.path).Msg("write local stats")
		return
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(r.local); err != nil {
		log.Warn().Err(err).Str("path", r.path).Msg("encode local stats")
	}
}
