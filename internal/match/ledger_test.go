package match

import (
	"sync"
	"testing"
)

func TestLedger_OrderIndependent(t *testing.T) {
	l := NewLedger()
	l.Record("alice", "bob", "alice")
	l.Record("bob", "alice", "alice")
	l.Record("bob", "alice", "")
	got := l.Record("alice", "bob", "bob")

	want := HeadToHead{WinsA: 2, WinsB: 1, Draws: 1, Total: 4}
	if got != want {
		t.Fatalf("Record = %+v, want %+v", got, want)
	}
	if ab := l.Lookup("alice", "bob"); ab != want {
		t.Fatalf("Lookup(alice,bob) = %+v", ab)
	}
	if ba := l.Lookup("bob", "alice"); ba != want.Swap() {
		t.Fatalf("Lookup(bob,alice) = %+v, want %+v", ba, want.Swap())
	}
}

func TestLedger_SetOriented(t *testing.T) {
	l := NewLedger()
	l.Set("zed", "amy", HeadToHead{WinsA: 3, WinsB: 1, Total: 4})
	if got := l.Lookup("amy", "zed"); got != (HeadToHead{WinsA: 1, WinsB: 3, Total: 4}) {
		t.Fatalf("Lookup(amy,zed) = %+v", got)
	}
}

func TestLedger_ConcurrentRecordsAreNotLost(t *testing.T) {
	l := NewLedger()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				l.Record("a", "b", "a")
			} else {
				l.Record("b", "a", "")
			}
		}(i)
	}
	wg.Wait()
	h := l.Lookup("a", "b")
	if h.Total != 100 || h.WinsA != 50 || h.Draws != 50 || h.WinsA+h.WinsB+h.Draws != h.Total {
		t.Fatalf("tally = %+v", h)
	}
}
