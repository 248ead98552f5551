// internal/game/session.go
//
// Per-player game session.
// Responsibilities:
//   - Hold the target word, accepted guesses and hard-mode hints.
//   - Validate and apply guesses (terminal, length, alphabet, dictionary, hard mode).
//   - Track state transitions: active → won/lost.
//   - Signal the terminal transition through Done().
//
// Notes:
//   - A Session knows nothing about rendering; callers react to the Outcome.
//   - Submit calls are serialized by a mutex so one guess fully resolves
//     before the next one is looked at.

package game

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
)

// Dictionary decides which words are acceptable guesses.
type Dictionary interface {
	IsValidWord(word string) bool
}

// Session is the state machine for one player's puzzle.
type Session struct {
	mu      sync.Mutex
	dict    Dictionary
	id      string
	target  string
	guesses []Guess
	status  Status
	hints   Hints
	done    chan struct{}
}

// NewSession constructs an idle session. Call Start before submitting.
func NewSession(dict Dictionary) *Session {
	return &Session{dict: dict, status: StatusIdle, done: make(chan struct{})}
}

// Start begins a new puzzle for target, discarding history and hints.
func (s *Session) Start(target string) error {
	target = strings.ToLower(strings.TrimSpace(target))
	if len(target) != WordLength || !isAlpha(target) {
		return ErrInvalidTarget
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = randomID()
	s.target = target
	s.guesses = make([]Guess, 0, MaxAttempts)
	s.status = StatusActive
	s.hints = Hints{}
	s.done = make(chan struct{})
	return nil
}

// Submit validates and scores candidate.
//
// Validation order:
//   - Session must be active (ErrSessionTerminal).
//   - Candidate must have WordLength letters (ErrIncompleteGuess).
//   - Candidate must be a–z and in the dictionary (ErrNotAWord).
//   - In hard mode, candidate must honor the hints (*Violation, wraps ErrHardMode).
//
// On error the session is unchanged.
func (s *Session) Submit(candidate string, hard bool) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return Outcome{}, ErrSessionTerminal
	}
	guess := strings.ToLower(strings.TrimSpace(candidate))
	if len(guess) != len(s.target) {
		return Outcome{}, ErrIncompleteGuess
	}
	if !isAlpha(guess) || (s.dict != nil && !s.dict.IsValidWord(guess)) {
		return Outcome{}, ErrNotAWord
	}
	if hard {
		if err := s.hints.Check(guess); err != nil {
			return Outcome{}, err
		}
	}

	states := Evaluate(guess, s.target)
	g := Guess{Word: guess, States: states}
	s.guesses = append(s.guesses, g)
	s.hints = s.hints.Record(guess, states)

	switch {
	case guess == s.target:
		s.finish(StatusWon)
	case len(s.guesses) >= MaxAttempts:
		s.finish(StatusLost)
	}

	correct, present := Count(states)
	return Outcome{
		Guess:   g,
		Row:     len(s.guesses),
		Status:  s.status,
		Correct: correct,
		Present: present,
	}, nil
}

// finish moves to a terminal status and closes done. Caller holds mu.
func (s *Session) finish(st Status) {
	s.status = st
	close(s.done)
}

// Done returns a channel closed once the current puzzle is won or lost.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// ID identifies the current puzzle run (changes on every Start).
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Status reports the current status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Row is the number of accepted guesses.
func (s *Session) Row() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.guesses)
}

// Target returns the word being guessed.
func (s *Session) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Hints returns a snapshot of the hard-mode constraints.
func (s *Session) Hints() Hints {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hints
}

// Guesses returns a copy of the accepted guesses.
func (s *Session) Guesses() []Guess {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Guess, len(s.guesses))
	copy(out, s.guesses)
	return out
}

// isAlpha checks that a string consists only of lowercase a–z.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// randomID returns a compact 16‑hex‑char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
