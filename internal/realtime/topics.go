// internal/realtime/topics.go
//
// Topic-keyed broadcasters: one per room, created on first subscription and
// dropped when the room finishes.

package realtime

import "sync"

// Topics keeps one Broadcaster per key, created on first use.
type Topics[T any] struct {
	mu   sync.Mutex
	hubs map[string]*Broadcaster[T]
}

// NewTopics creates an empty topic set.
func NewTopics[T any]() *Topics[T] {
	return &Topics[T]{hubs: make(map[string]*Broadcaster[T])}
}

// Get returns the broadcaster for key, creating it if missing.
func (t *Topics[T]) Get(key string) *Broadcaster[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.hubs[key]
	if !ok {
		b = NewBroadcaster[T]()
		t.hubs[key] = b
	}
	return b
}

// Publish sends v to the subscribers of key, if any.
func (t *Topics[T]) Publish(key string, v T) {
	t.mu.Lock()
	b, ok := t.hubs[key]
	t.mu.Unlock()
	if ok {
		b.Publish(v)
	}
}

// Drop closes and forgets the broadcaster for key, ending its subscriptions.
func (t *Topics[T]) Drop(key string) {
	t.mu.Lock()
	b, ok := t.hubs[key]
	delete(t.hubs, key)
	t.mu.Unlock()
	if ok {
		b.Close()
	}
}

// Len returns the number of live keys.
func (t *Topics[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.hubs)
}
