// internal/game/evaluate.go
//
// Guess scoring.
//
// Evaluate implements the classic two‑pass algorithm:
//
// Pass 1:
//   - Mark exact matches Correct.
//   - Count the remaining (unconsumed) target letters.
//
// Pass 2 (left to right):
//   - For each unmatched guess letter: if an unconsumed copy remains in the
//     target, mark Present and consume it; otherwise leave it Absent.
//
// A letter repeated in the guess is therefore only credited up to the number of
// copies the target still has after exact matches are taken out.

package game

import "strings"

// Evaluate scores guess against target. Comparison is case-insensitive.
// The result has one entry per letter; nil is returned if the lengths differ.
// Evaluate has no side effects and does not retain its inputs.
func Evaluate(guess, target string) []LetterState {
	g := strings.ToLower(guess)
	t := strings.ToLower(target)
	n := len(g)
	if n != len(t) {
		return nil
	}
	res := make([]LetterState, n) // zero value is Absent

	var remaining [256]int
	for i := 0; i < n; i++ {
		if g[i] == t[i] {
			res[i] = Correct
		} else {
			remaining[t[i]]++
		}
	}

	for i := 0; i < n; i++ {
		if res[i] == Correct {
			continue
		}
		if c := g[i]; remaining[c] > 0 {
			res[i] = Present
			remaining[c]--
		}
	}
	return res
}

// Count returns the number of Correct and Present entries in states.
func Count(states []LetterState) (correct, present int) {
	for _, s := range states {
		switch s {
		case Correct:
			correct++
		case Present:
			present++
		}
	}
	return correct, present
}
