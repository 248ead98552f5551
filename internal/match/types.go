// internal/match/types.go
//
// Types shared by the coordinator, the room store backends and the remote client.
// Defines:
//   - Status / ParticipantState: one player's externally visible progress.
//   - RoomStatus / Room: the pairing construct holding the shared target word.
//   - Result: the arbitrated outcome of one match, from the local player's view.
//   - Record: the durable row the room authority writes for a match.
//   - HeadToHead: cumulative results between two players.

package match

import (
	"time"

	"github.com/robalobadob/wordduel/internal/game"
)

// Status is a participant's reported progress.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// ParticipantState is the summary one client reports about its own session.
// Puzzle names the room puzzle the summary belongs to; stores reject reports
// for any puzzle but the current one.
type ParticipantState struct {
	ParticipantID string `json:"participantId"`
	Puzzle        int    `json:"puzzle"`
	GuessCount    int    `json:"guessCount"`
	GreenCount    int    `json:"greenCount"`
	YellowCount   int    `json:"yellowCount"`
	Status        Status `json:"status"`
}

// Terminal reports whether the participant has finished the puzzle.
func (p ParticipantState) Terminal() bool {
	return p.Status == StatusWon || p.Status == StatusLost
}

// Playing returns the initial state for id.
func Playing(id string) ParticipantState {
	return ParticipantState{ParticipantID: id, Status: StatusPlaying}
}

// StateFromOutcome converts an accepted submission into the reportable summary.
func StateFromOutcome(id string, o game.Outcome) ParticipantState {
	st := ParticipantState{
		ParticipantID: id,
		GuessCount:    o.Row,
		GreenCount:    o.Correct,
		YellowCount:   o.Present,
		Status:        StatusPlaying,
	}
	switch o.Status {
	case game.StatusWon:
		st.Status = StatusWon
	case game.StatusLost:
		st.Status = StatusLost
	}
	return st
}

// RoomStatus is the lifecycle of a room: waiting → playing → finished.
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// Room pairs a host and a guest on a shared word.
// Puzzle increases with every StartNextPuzzle; (ID, Puzzle) identifies a match.
type Room struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	HostID    string     `json:"hostId"`
	GuestID   string     `json:"guestId,omitempty"`
	Word      string     `json:"word"`
	Puzzle    int        `json:"puzzle"`
	Status    RoomStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}

// OpponentOf returns the other participant's id, or "" if the seat is empty.
func (r Room) OpponentOf(id string) string {
	switch id {
	case r.HostID:
		return r.GuestID
	case r.GuestID:
		return r.HostID
	}
	return ""
}

// Has reports whether id is seated in the room.
func (r Room) Has(id string) bool {
	return id != "" && (id == r.HostID || id == r.GuestID)
}

// Result is the outcome of a match as seen by one participant.
// WinnerID is empty on a draw. Guess counts are nil for a player who did not win.
type Result struct {
	WinnerID           string `json:"winnerId,omitempty"`
	Draw               bool   `json:"draw"`
	MyGuessCount       *int   `json:"myGuessCount"`
	OpponentGuessCount *int   `json:"opponentGuessCount"`
	Word               string `json:"word"`
}

// Won reports whether id won this match.
func (r Result) Won(id string) bool { return !r.Draw && r.WinnerID == id }

// Record is the durable match row. Guess counts use LossGuessCount for non-wins.
type Record struct {
	RoomID       string `json:"roomId"`
	Puzzle       int    `json:"puzzle"`
	HostID       string `json:"hostId"`
	GuestID      string `json:"guestId"`
	WinnerID     string `json:"winnerId,omitempty"`
	HostGuesses  int    `json:"hostGuesses"`
	GuestGuesses int    `json:"guestGuesses"`
	Word         string `json:"word"`
}

// HeadToHead is oriented to the argument order of the call that produced it:
// WinsA belongs to the first id, WinsB to the second.
type HeadToHead struct {
	WinsA int `json:"winsA"`
	WinsB int `json:"winsB"`
	Draws int `json:"draws"`
	Total int `json:"total"`
}

// Swap returns the same record seen from the other side.
func (h HeadToHead) Swap() HeadToHead {
	return HeadToHead{WinsA: h.WinsB, WinsB: h.WinsA, Draws: h.Draws, Total: h.Total}
}
