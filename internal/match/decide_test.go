package match

import (
	"reflect"
	"testing"
)

func won(id string, n int) ParticipantState {
	return ParticipantState{ParticipantID: id, Puzzle: 1, GuessCount: n, Status: StatusWon}
}

func lost(id string) ParticipantState {
	return ParticipantState{ParticipantID: id, Puzzle: 1, GuessCount: 6, Status: StatusLost}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		mine       ParticipantState
		theirs     ParticipantState
		wantWinner string
		wantDraw   bool
		wantMine   *int
		wantTheirs *int
	}{
		{"fewer guesses wins", won("a", 3), won("b", 5), "a", false, intp(3), intp(5)},
		{"opponent fewer guesses", won("a", 4), won("b", 2), "b", false, intp(4), intp(2)},
		{"equal counts draw", won("a", 4), won("b", 4), "", true, intp(4), intp(4)},
		{"win on row six beats loss", won("a", 6), lost("b"), "a", false, intp(6), nil},
		{"opponent wins, I lose", lost("a"), won("b", 6), "b", false, nil, intp(6)},
		{"both lose", lost("a"), lost("b"), "", true, nil, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := Decide(tc.mine, tc.theirs, "crane")
			if r.WinnerID != tc.wantWinner || r.Draw != tc.wantDraw {
				t.Fatalf("Decide = winner %q draw %v, want %q %v", r.WinnerID, r.Draw, tc.wantWinner, tc.wantDraw)
			}
			if !reflect.DeepEqual(r.MyGuessCount, tc.wantMine) || !reflect.DeepEqual(r.OpponentGuessCount, tc.wantTheirs) {
				t.Fatalf("guess counts = %v/%v", deref(r.MyGuessCount), deref(r.OpponentGuessCount))
			}
			if r.Word != "crane" {
				t.Fatalf("Word = %q", r.Word)
			}
			if r.Draw && r.WinnerID != "" {
				t.Fatal("draw must not name a winner")
			}
		})
	}
}

func TestDecide_IsSymmetricAndRepeatable(t *testing.T) {
	a, b := won("a", 3), won("b", 5)
	first := Decide(a, b, "crane")
	if again := Decide(a, b, "crane"); !reflect.DeepEqual(first, again) {
		t.Fatalf("Decide not repeatable: %+v vs %+v", first, again)
	}
	other := Decide(b, a, "crane")
	if other.WinnerID != first.WinnerID || !other.Won("a") || other.Won("b") {
		t.Fatalf("both sides must agree on the winner: %+v vs %+v", first, other)
	}
}

func TestNewRecord_MapsHostAndGuest(t *testing.T) {
	room := Room{ID: "r", Puzzle: 2, HostID: "h", GuestID: "g", Word: "crane"}

	// Written from the host's side.
	res := Decide(lost("h"), won("g", 4), room.Word)
	rec := NewRecord(room, lost("h"), won("g", 4), res)
	want := Record{RoomID: "r", Puzzle: 2, HostID: "h", GuestID: "g", WinnerID: "g", HostGuesses: LossGuessCount, GuestGuesses: 4, Word: "crane"}
	if rec != want {
		t.Fatalf("NewRecord = %+v, want %+v", rec, want)
	}

	// The same match written from the guest's side yields the same row.
	res = Decide(won("g", 4), lost("h"), room.Word)
	if got := NewRecord(room, won("g", 4), lost("h"), res); got != want {
		t.Fatalf("NewRecord (guest view) = %+v, want %+v", got, want)
	}
}

func intp(n int) *int { return &n }

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
