// internal/match/watch.go
//
// Completion detection: once the local player is terminal, wait for the
// opponent's terminal state on push and poll at the same time. Exactly one
// delivery settles the match; the other channel is silenced.

package match

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// watch states
const (
	watchArmed int32 = iota
	watchFired
	watchCancelled
)

// watch waits for the opponent's terminal state over two channels at once:
// a push subscription and a poll loop. Whichever sees it first wins the
// armed→fired transition; the other is silenced by release.
type watch struct {
	c    *Coordinator
	mine ParticipantState
	room Room

	ctx  context.Context
	stop context.CancelFunc

	state    atomic.Int32
	released atomic.Bool
	sub      atomic.Pointer[subscriptionRef]
}

type subscriptionRef struct{ Subscription }

func newWatch(c *Coordinator, mine ParticipantState, room Room) *watch {
	ctx, stop := context.WithCancel(c.life)
	return &watch{c: c, mine: mine, room: room, ctx: ctx, stop: stop}
}

// arm starts both delivery channels.
func (w *watch) arm() {
	go w.subscribe()
	go w.poll(w.c.pollEvery)
}

func (w *watch) subscribe() {
	sub, err := w.c.store.SubscribeOpponentState(w.ctx, w.room.ID, w.c.self, w.deliver)
	if err != nil {
		if w.ctx.Err() == nil {
			log.Warn().Err(err).Str("room", w.room.ID).Msg("opponent push unavailable, polling only")
		}
		return
	}
	w.sub.Store(&subscriptionRef{sub})
	// release may have run before the store above.
	if w.released.Load() {
		sub.Unsubscribe()
	}
}

func (w *watch) poll(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		st, err := w.c.store.OpponentState(w.ctx, w.room.ID, w.c.self)
		switch {
		case w.ctx.Err() != nil:
			return
		case err != nil:
			log.Debug().Err(err).Str("room", w.room.ID).Msg("poll opponent state")
		default:
			w.deliver(st)
		}
		select {
		case <-w.ctx.Done():
			return
		case <-t.C:
		}
	}
}

// deliver is called by either channel for every observed opponent state.
func (w *watch) deliver(st ParticipantState) {
	if !st.Terminal() || st.ParticipantID == w.c.self || st.Puzzle != w.room.Puzzle {
		return
	}
	if !w.state.CompareAndSwap(watchArmed, watchFired) {
		return
	}
	w.release()
	w.c.settle(w, st)
}

// cancel disarms the watch if it has not fired yet.
func (w *watch) cancel() {
	w.state.CompareAndSwap(watchArmed, watchCancelled)
	w.release()
}

// release stops polling and drops the push subscription. Idempotent.
func (w *watch) release() {
	if w.released.Swap(true) {
		return
	}
	w.stop()
	if ref := w.sub.Load(); ref != nil {
		ref.Unsubscribe()
	}
}

func (w *watch) fired() bool { return w.state.Load() == watchFired }
