// internal/game/hints.go
//
// Hard mode constraint tracking.
//
// Hints is a small value type: copying it snapshots the constraints, and
// Record returns a new value instead of mutating the receiver. A Session holds
// exactly one Hints and replaces it after each accepted guess.
//
// Rules:
//   • pinned[p] != 0 → every later guess must have that letter at p.
//   • letter in present set → every later guess must contain it somewhere.
//   • A letter leaves the present set only when it gets pinned.

package game

// Hints is the accumulated hard-mode constraint set of one session.
type Hints struct {
	pinned  [WordLength]byte // 0 = no confirmed letter
	present uint32           // bit i set → letter 'a'+i must appear
}

// Pinned returns the confirmed letter at position p, if any.
func (h Hints) Pinned(p int) (byte, bool) {
	if p < 0 || p >= WordLength || h.pinned[p] == 0 {
		return 0, false
	}
	return h.pinned[p], true
}

// PresentLetters returns the must-use letters in alphabetical order.
func (h Hints) PresentLetters() []byte {
	var out []byte
	for i := 0; i < 26; i++ {
		if h.present&(1<<i) != 0 {
			out = append(out, byte('a'+i))
		}
	}
	return out
}

// Empty reports whether no constraint has been revealed yet.
func (h Hints) Empty() bool {
	return h == Hints{}
}

// Check validates candidate (lowercase) against the constraints.
// Confirmed positions are checked first in ascending order, then present
// letters alphabetically; the first broken rule is returned as *Violation.
func (h Hints) Check(candidate string) error {
	for p := 0; p < WordLength; p++ {
		c := h.pinned[p]
		if c == 0 {
			continue
		}
		if p >= len(candidate) || candidate[p] != c {
			return &Violation{Kind: PositionViolation, Position: p, Letter: c}
		}
	}
	for _, l := range h.PresentLetters() {
		if !containsByte(candidate, l) {
			return &Violation{Kind: MissingLetterViolation, Letter: l}
		}
	}
	return nil
}

// Record returns the constraints after guess was accepted with states.
// Correct positions are pinned (and drop out of the present set); Present
// letters join the present set unless already pinned somewhere.
func (h Hints) Record(guess string, states []LetterState) Hints {
	next := h
	n := len(states)
	if len(guess) < n {
		n = len(guess)
	}
	if n > WordLength {
		n = WordLength
	}
	for p := 0; p < n; p++ {
		if states[p] != Correct {
			continue
		}
		c := guess[p]
		next.pinned[p] = c
		if bit, ok := letterBit(c); ok {
			next.present &^= bit
		}
	}
	for p := 0; p < n; p++ {
		if states[p] != Present {
			continue
		}
		c := guess[p]
		if next.isPinned(c) {
			continue
		}
		if bit, ok := letterBit(c); ok {
			next.present |= bit
		}
	}
	return next
}

func (h Hints) isPinned(c byte) bool {
	for _, p := range h.pinned {
		if p == c {
			return true
		}
	}
	return false
}

func letterBit(c byte) (uint32, bool) {
	if c < 'a' || c > 'z' {
		return 0, false
	}
	return 1 << (c - 'a'), true
}

func containsByte(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return true
		}
	}
	return false
}
