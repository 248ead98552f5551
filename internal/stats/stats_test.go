package stats

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestApply(t *testing.T) {
	var s Stats
	s = s.Apply(true, 3)
	s = s.Apply(true, 4)
	s = s.Apply(false, 6)
	s = s.Apply(true, 3)

	want := Stats{GamesPlayed: 4, GamesWon: 3, CurrentStreak: 1, MaxStreak: 2}
	want.Distribution[2] = 2
	want.Distribution[3] = 1
	if s != want {
		t.Fatalf("Apply = %+v, want %+v", s, want)
	}
	if s.WinPercent() != 75 {
		t.Fatalf("WinPercent = %d", s.WinPercent())
	}
}

func TestApply_IgnoresOutOfRangeGuesses(t *testing.T) {
	s := Stats{}.Apply(true, 9)
	if s.GamesWon != 1 || s.Distribution != [6]int{} {
		t.Fatalf("Apply(true, 9) = %+v", s)
	}
}

type fakeRemote struct {
	st  Stats
	err error
}

func (f *fakeRemote) UpdateStats(_ context.Context, won bool, guesses int) (Stats, error) {
	if f.err != nil {
		return Stats{}, f.err
	}
	f.st = f.st.Apply(won, guesses)
	return f.st, nil
}

func TestRecorder_FallsBackToLocal(t *testing.T) {
	remote := &fakeRemote{st: Stats{GamesPlayed: 10, GamesWon: 9, CurrentStreak: 5, MaxStreak: 5}}
	r := NewRecorder(remote, "")

	got := r.Record(context.Background(), true, 2)
	if got.GamesPlayed != 11 || got.CurrentStreak != 6 {
		t.Fatalf("remote record = %+v", got)
	}

	remote.err = errors.New("offline")
	got = r.Record(context.Background(), false, 6)
	if got.GamesPlayed != 12 || got.CurrentStreak != 0 || got.MaxStreak != 6 {
		t.Fatalf("local fallback = %+v", got)
	}
	if r.Current() != got {
		t.Fatal("Current should return the last recorded stats")
	}
}

func TestRecorder_PersistsLocalCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.toml")
	r := NewRecorder(nil, path)
	r.Record(context.Background(), true, 4)
	r.Record(context.Background(), true, 1)

	again := NewRecorder(nil, path)
	got := again.Current()
	if got.GamesWon != 2 || got.Distribution[0] != 1 || got.Distribution[3] != 1 {
		t.Fatalf("reloaded stats = %+v", got)
	}
}
