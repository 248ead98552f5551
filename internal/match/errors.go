// internal/match/errors.go
//
// Error taxonomy shared by every RoomStore implementation and the coordinator.

package match

import "errors"

// Collaborator errors. Backends wrap their own failures with these so callers
// can branch with errors.Is regardless of which store is in use.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room full")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrStalePuzzle      = errors.New("puzzle superseded")
	ErrPersistence      = errors.New("persistence error")
	ErrTransport        = errors.New("transport error")
)

// Coordinator lifecycle errors.
var (
	ErrNoRoom = errors.New("not in a room")
	ErrClosed = errors.New("coordinator closed")
)
