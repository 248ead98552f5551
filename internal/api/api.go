// internal/api/api.go
//
// Package api holds the JSON wire types and error codes shared by the duel
// server (internal/httpserver) and its remote client (internal/roomclient).
package api

import (
	"errors"
	"net/http"

	"github.com/robalobadob/wordduel/internal/match"
)

// Error codes carried in {"error": code} bodies.
const (
	CodeRoomNotFound = "room_not_found"
	CodeRoomFull     = "room_full"
	CodeStalePuzzle  = "stale_puzzle"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeBadRequest   = "bad_request"
	CodePersistence  = "persistence"
	CodeNotFound     = "not_found"
)

// ErrBadRequest is returned by the client for 400 responses.
var ErrBadRequest = errors.New("bad request")

// ErrorBody is the body of every non-2xx response.
type ErrorBody struct {
	Error string `json:"error"`
}

// Status maps an error onto its HTTP status and code.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, match.ErrRoomNotFound):
		return http.StatusNotFound, CodeRoomNotFound
	case errors.Is(err, match.ErrRoomFull):
		return http.StatusConflict, CodeRoomFull
	case errors.Is(err, match.ErrStalePuzzle):
		return http.StatusConflict, CodeStalePuzzle
	case errors.Is(err, match.ErrNotAuthenticated):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, match.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, CodeBadRequest
	}
	return http.StatusInternalServerError, CodePersistence
}

// Err maps a response status and code back onto the error taxonomy.
func Err(status int, code string) error {
	switch code {
	case CodeRoomNotFound:
		return match.ErrRoomNotFound
	case CodeRoomFull:
		return match.ErrRoomFull
	case CodeStalePuzzle:
		return match.ErrStalePuzzle
	case CodeUnauthorized:
		return match.ErrNotAuthenticated
	case CodeForbidden:
		return match.ErrForbidden
	case CodeBadRequest:
		return ErrBadRequest
	}
	switch status {
	case http.StatusUnauthorized:
		return match.ErrNotAuthenticated
	case http.StatusForbidden:
		return match.ErrForbidden
	case http.StatusNotFound:
		return match.ErrRoomNotFound
	case http.StatusConflict:
		return match.ErrRoomFull
	case http.StatusBadRequest:
		return ErrBadRequest
	}
	return match.ErrPersistence
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for later requests.
type LoginResponse struct {
	Token     string `json:"token"`
	ID        string `json:"id"`
	Username  string `json:"username"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Me is the body of GET /auth/me.
type Me struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// WordRequest is the body of POST /rooms and POST /rooms/{id}/next.
type WordRequest struct {
	Word string `json:"word"`
}

// JoinRequest is the body of POST /rooms/join.
type JoinRequest struct {
	Code string `json:"code"`
}

// StatsUpdate is the body of POST /stats/me.
type StatsUpdate struct {
	Won     bool `json:"won"`
	Guesses int  `json:"guesses"`
}

// Stream topics for GET /rooms/{id}/stream?topic=.
const (
	TopicRoom     = "room"
	TopicOpponent = "opponent"
)

// Frame types.
const (
	FrameRoom  = "room"
	FrameState = "state"
)

// Frame is one push message on a room stream.
type Frame struct {
	T     string                  `json:"t"`
	Room  *match.Room             `json:"room,omitempty"`
	State *match.ParticipantState `json:"state,omitempty"`
}
