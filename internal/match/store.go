// internal/match/store.go
//
// Collaborator contracts: the shared room store and the word source.

package match

import "context"

// Subscription is a live push registration. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// RoomStore is the shared state both clients read and write.
// Implementations: store.Memory, store.SQL and roomclient.Client.
type RoomStore interface {
	CreateRoom(ctx context.Context, hostID, word string) (Room, error)
	JoinRoom(ctx context.Context, code, playerID string) (Room, error)
	GetRoom(ctx context.Context, roomID string) (Room, error)
	ReportState(ctx context.Context, roomID, playerID string, st ParticipantState) error
	OpponentState(ctx context.Context, roomID, myID string) (ParticipantState, error)
	// SubscribeOpponentState calls fn for every state the other participant reports.
	SubscribeOpponentState(ctx context.Context, roomID, myID string, fn func(ParticipantState)) (Subscription, error)
	// SubscribeRoom calls fn whenever the room row changes.
	SubscribeRoom(ctx context.Context, roomID string, fn func(Room)) (Subscription, error)
	SaveMatchResult(ctx context.Context, rec Record) error
	HeadToHead(ctx context.Context, idA, idB string) (HeadToHead, error)
	StartNextPuzzle(ctx context.Context, roomID, word string) error
	LeaveRoom(ctx context.Context, roomID string) error
}

// Words supplies target words for new rooms and puzzles.
type Words interface {
	RandomWord() string
}
