// internal/game/errors.go
//
// Submission and session errors. Hard-mode failures are *Violation values
// wrapping ErrHardMode (hints.go).

package game

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors returned by Session.Submit. None of them change session state.
var (
	ErrIncompleteGuess = errors.New("not enough letters")
	ErrNotAWord        = errors.New("not in word list")
	ErrHardMode        = errors.New("hard mode violation")
	ErrSessionTerminal = errors.New("game finished")
	ErrInvalidTarget   = errors.New("invalid target word")
)

// ViolationKind distinguishes the two hard-mode rules.
type ViolationKind int

const (
	// PositionViolation: a confirmed letter was not repeated at its position.
	PositionViolation ViolationKind = iota + 1
	// MissingLetterViolation: a revealed letter was not used anywhere.
	MissingLetterViolation
)

// Violation describes the first hard-mode rule a candidate breaks.
type Violation struct {
	Kind     ViolationKind
	Position int  // zero-based; only for PositionViolation
	Letter   byte // the required letter
}

func (v *Violation) Error() string {
	letter := strings.ToUpper(string(v.Letter))
	if v.Kind == PositionViolation {
		n := v.Position + 1
		return fmt.Sprintf("%d%s letter must be %s", n, ordinalSuffix(n), letter)
	}
	return "guess must contain " + letter
}

// Unwrap lets callers match any violation with errors.Is(err, ErrHardMode).
func (v *Violation) Unwrap() error { return ErrHardMode }

func ordinalSuffix(n int) string {
	if v := n % 100; v >= 11 && v <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
