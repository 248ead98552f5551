// internal/game/types.go
//
// Core type definitions for the guess engine.
// Defines:
//   - LetterState: per-letter result of a guess (absent/present/correct).
//   - Guess: an accepted word together with its evaluation.
//   - Status: lifecycle of a single Session (active → won/lost).
//   - Outcome: what a caller learns from one accepted submission.

package game

import "fmt"

const (
	// WordLength is the fixed number of letters in every word.
	WordLength = 5
	// MaxAttempts is the number of rows a player gets before losing.
	MaxAttempts = 6
)

// LetterState is the evaluation of a single guess letter.
// Values are ordered by strength: Correct > Present > Absent.
type LetterState uint8

const (
	Absent  LetterState = iota // letter not in the target (or already used up)
	Present                    // letter in the target at another position
	Correct                    // letter in the right position
)

var letterStateNames = [...]string{"absent", "present", "correct"}

func (s LetterState) String() string {
	if int(s) < len(letterStateNames) {
		return letterStateNames[s]
	}
	return fmt.Sprintf("LetterState(%d)", uint8(s))
}

// MarshalText encodes the state as its lowercase name.
func (s LetterState) MarshalText() ([]byte, error) {
	if int(s) >= len(letterStateNames) {
		return nil, fmt.Errorf("game: invalid letter state %d", uint8(s))
	}
	return []byte(letterStateNames[s]), nil
}

// UnmarshalText decodes a lowercase state name.
func (s *LetterState) UnmarshalText(b []byte) error {
	for i, name := range letterStateNames {
		if string(b) == name {
			*s = LetterState(i)
			return nil
		}
	}
	return fmt.Errorf("game: unknown letter state %q", b)
}

// Guess is an accepted word and its per-position evaluation.
type Guess struct {
	Word   string        `json:"word"`
	States []LetterState `json:"states"`
}

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusIdle   Status = "idle" // constructed, Start not called yet
	StatusActive Status = "active"
	StatusWon    Status = "won"
	StatusLost   Status = "lost"
)

// Terminal reports whether no further guesses are accepted.
func (s Status) Terminal() bool { return s == StatusWon || s == StatusLost }

// Outcome is returned for every accepted submission.
type Outcome struct {
	Guess   Guess  `json:"guess"`
	Row     int    `json:"row"`     // rows used so far (1..MaxAttempts)
	Status  Status `json:"status"`  // status after this guess
	Correct int    `json:"correct"` // number of Correct tiles in Guess
	Present int    `json:"present"` // number of Present tiles in Guess
}

// Terminal reports whether this submission ended the game.
func (o Outcome) Terminal() bool { return o.Status.Terminal() }
