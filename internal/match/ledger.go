// internal/match/ledger.go
//
// Order-independent head-to-head tally kept by each coordinator, so a score
// is available even when the durable record cannot be read.

package match

import "sync"

// pairKey is the order-independent identity of two participants.
type pairKey struct{ lo, hi string }

func keyFor(a, b string) (pairKey, bool) {
	if a <= b {
		return pairKey{a, b}, false
	}
	return pairKey{b, a}, true
}

// Ledger keeps head-to-head tallies per unordered pair of players.
// Every update is a single read-modify-write under the lock.
type Ledger struct {
	mu    sync.Mutex
	pairs map[pairKey]HeadToHead // oriented lo/hi
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{pairs: make(map[pairKey]HeadToHead)}
}

// Record adds one match between a and b. winnerID must be a, b or "" (draw).
// It returns the updated tally oriented to (a, b).
func (l *Ledger) Record(a, b, winnerID string) HeadToHead {
	k, swapped := keyFor(a, b)
	l.mu.Lock()
	defer l.mu.Unlock()
	h := l.pairs[k]
	switch winnerID {
	case k.lo:
		h.WinsA++
	case k.hi:
		h.WinsB++
	default:
		h.Draws++
	}
	h.Total++
	l.pairs[k] = h
	if swapped {
		return h.Swap()
	}
	return h
}

// Lookup returns the tally for a and b oriented to (a, b).
func (l *Ledger) Lookup(a, b string) HeadToHead {
	k, swapped := keyFor(a, b)
	l.mu.Lock()
	h := l.pairs[k]
	l.mu.Unlock()
	if swapped {
		return h.Swap()
	}
	return h
}

// Set replaces the tally for a and b; h is oriented to (a, b).
func (l *Ledger) Set(a, b string, h HeadToHead) {
	k, swapped := keyFor(a, b)
	if swapped {
		h = h.Swap()
	}
	l.mu.Lock()
	l.pairs[k] = h
	l.mu.Unlock()
}
