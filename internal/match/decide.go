// internal/match/decide.go
//
// Winner arbitration for one match. Both clients run Decide on the same
// two terminal states and reach the same verdict.

package match

import "github.com/robalobadob/wordduel/internal/game"

// LossGuessCount is the comparable guess count of a participant who did not
// win. It is larger than any winning count, so a loss never ties or beats a win.
const LossGuessCount = game.MaxAttempts + 1

// comparableCount maps a terminal state onto a single number: fewer is better.
func comparableCount(p ParticipantState) int {
	if p.Status == StatusWon {
		return p.GuessCount
	}
	return LossGuessCount
}

// Decide arbitrates two terminal states from mine's point of view.
//
//   - Both won: fewer guesses wins, equal counts draw.
//   - Exactly one won: that player wins regardless of counts.
//   - Neither won: draw.
//
// Decide is pure; calling it again with the same inputs yields an equal Result.
func Decide(mine, theirs ParticipantState, word string) Result {
	r := Result{Word: word}
	if mine.Status == StatusWon {
		n := mine.GuessCount
		r.MyGuessCount = &n
	}
	if theirs.Status == StatusWon {
		n := theirs.GuessCount
		r.OpponentGuessCount = &n
	}

	a, b := comparableCount(mine), comparableCount(theirs)
	switch {
	case a < b:
		r.WinnerID = mine.ParticipantID
	case b < a:
		r.WinnerID = theirs.ParticipantID
	default:
		r.Draw = true
	}
	return r
}

// NewRecord builds the durable row for a decided match in room.
func NewRecord(room Room, mine, theirs ParticipantState, res Result) Record {
	rec := Record{
		RoomID:   room.ID,
		Puzzle:   room.Puzzle,
		HostID:   room.HostID,
		GuestID:  room.GuestID,
		WinnerID: res.WinnerID,
		Word:     room.Word,
	}
	host, guest := mine, theirs
	if mine.ParticipantID != room.HostID {
		host, guest = theirs, mine
	}
	rec.HostGuesses = comparableCount(host)
	rec.GuestGuesses = comparableCount(guest)
	if rec.GuestID == "" {
		rec.GuestID = guest.ParticipantID
	}
	return rec
}
