// internal/realtime/broadcaster.go
//
// In-process fan-out for push subscriptions.
// Characteristics:
//   - Each subscriber owns a small buffered channel; Publish never blocks.
//   - A lagging subscriber loses its oldest queued value, never the newest,
//     since published values are full snapshots.
//   - Close ends every subscription; later subscribers get a closed channel.

package realtime

import (
	"context"
	"sync"
)

const subscriberBuffer = 16

// Broadcaster fans values out to subscribers.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[*Sub[T]]struct{}
	closed bool
}

// Sub is one registration on a Broadcaster.
type Sub[T any] struct {
	C    <-chan T
	ch   chan T
	b    *Broadcaster[T]
	once sync.Once
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[*Sub[T]]struct{})}
}

// Subscribe registers a new subscriber. On a closed broadcaster the
// subscription is already ended.
func (b *Broadcaster[T]) Subscribe() *Sub[T] {
	ch := make(chan T, subscriberBuffer)
	s := &Sub[T]{C: ch, ch: ch, b: b}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.once.Do(func() { close(ch) })
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call twice.
func (s *Sub[T]) Unsubscribe() {
	s.once.Do(func() {
		s.b.mu.Lock()
		delete(s.b.subs, s)
		close(s.ch)
		s.b.mu.Unlock()
	})
}

// Publish delivers v to all subscribers.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	for s := range b.subs {
		select {
		case s.ch <- v:
			continue
		default:
		}
		// Lagging: make room by discarding the oldest queued value.
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- v:
		default:
		}
	}
	b.mu.Unlock()
}

// Close ends every subscription. Values already queued are still delivered
// to Listen callbacks before they return.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*Sub[T]]struct{})
	b.mu.Unlock()
	for s := range subs {
		s.Unsubscribe()
	}
}

// Len returns the number of live subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Listen subscribes and calls fn for each value on a dedicated goroutine,
// until the subscription is released or ctx is done.
func (b *Broadcaster[T]) Listen(ctx context.Context, fn func(T)) *Sub[T] {
	s := b.Subscribe()
	go func() {
		defer s.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-s.C:
				if !ok {
					return
				}
				fn(v)
			}
		}
	}()
	return s
}
