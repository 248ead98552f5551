package words

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEmbedded(t *testing.T) {
	d, err := Embedded()
	if err != nil {
		t.Fatalf("Embedded: %v", err)
	}
	answers, allowed := d.Stats()
	if answers == 0 || allowed < answers {
		t.Fatalf("Stats = (%d, %d)", answers, allowed)
	}
	if !d.IsValidWord("crane") || !d.IsAnswer("crane") {
		t.Fatal("crane should be an answer")
	}
	if !d.IsValidWord("FJORD") {
		t.Fatal("lookups should be case-insensitive")
	}
	if d.IsAnswer("fjord") {
		t.Fatal("fjord is only an allowed guess")
	}
	if d.IsValidWord("zzzzz") {
		t.Fatal("zzzzz should not be valid")
	}
	for i := 0; i < 50; i++ {
		if w := d.RandomWord(); !d.IsAnswer(w) {
			t.Fatalf("RandomWord returned non-answer %q", w)
		}
	}
}

func TestNew_FiltersAndMerges(t *testing.T) {
	d, err := New([]string{"Crane", "cranes", "tr4ce", " lemon ", "crane"}, []string{"fjord", "xx"})
	if err != nil {
		t.Fatal(err)
	}
	if a, g := d.Stats(); a != 2 || g != 3 {
		t.Fatalf("Stats = (%d, %d), want (2, 3)", a, g)
	}
	if _, err := New([]string{"abc"}, nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("New with no valid answers = %v, want ErrEmpty", err)
	}
}

func TestLoad_Files(t *testing.T) {
	dir := t.TempDir()
	ans := filepath.Join(dir, "answers.txt")
	all := filepath.Join(dir, "allowed.txt")
	if err := os.WriteFile(ans, []byte("# answers\ncrane\nlemon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(all, []byte("fjord\n\nshout\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := Load(ans, all)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a, g := d.Stats(); a != 2 || g != 4 {
		t.Fatalf("Stats = (%d, %d), want (2, 4)", a, g)
	}

	d, err = Load("", all)
	if err != nil {
		t.Fatalf("Load allowed only: %v", err)
	}
	if !d.IsAnswer("shout") {
		t.Fatal("allowed-only list should double as answers")
	}

	if _, err := Load(filepath.Join(dir, "missing"), all); err == nil {
		t.Fatal("expected error for missing file")
	}
}
