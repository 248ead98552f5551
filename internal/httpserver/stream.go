// internal/httpserver/stream.go
//
// WebSocket push endpoint: GET /rooms/{id}/stream?topic=room|opponent.
// Responsibilities:
//   - Upgrade seated players only (loadRoom runs first).
//   - Relay store subscriptions as api.Frame values, current value first.
//   - Keep the connection alive with pings; end when the client goes away.

package httpserver

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/robalobadob/wordduel/internal/api"
	"github.com/robalobadob/wordduel/internal/match"
)

const (
	streamBuffer  = 16
	pingInterval  = 15 * time.Second
	writeDeadline = 5 * time.Second
)

// handleStream upgrades to a WebSocket and pushes api.Frame values for one topic:
// "room" sends the room row on every change, "opponent" sends every state the
// other participant reports. The current value is sent right after subscribing.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	room := roomFrom(r)
	me := currentUser(r)
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = api.TopicRoom
	}
	if topic != api.TopicRoom && topic != api.TopicOpponent {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.originPatterns()})
	if err != nil {
		log.Warn().Err(err).Str("room", room.ID).Msg("websocket accept")
		return
	}
	defer c.Close(websocket.StatusInternalError, "stream closed")

	// Clients never send; CloseRead handles control frames and ends ctx on disconnect.
	ctx := c.CloseRead(r.Context())

	frames := make(chan api.Frame, streamBuffer)
	push := func(f api.Frame) { pushLatest(frames, f) }

	var sub match.Subscription
	switch topic {
	case api.TopicRoom:
		sub, err = s.store.SubscribeRoom(ctx, room.ID, func(rm match.Room) {
			push(api.Frame{T: api.FrameRoom, Room: &rm})
		})
		if err == nil {
			if cur, gerr := s.store.GetRoom(ctx, room.ID); gerr == nil {
				push(api.Frame{T: api.FrameRoom, Room: &cur})
			}
		}
	case api.TopicOpponent:
		sub, err = s.store.SubscribeOpponentState(ctx, room.ID, me.ID, func(st match.ParticipantState) {
			push(api.Frame{T: api.FrameState, State: &st})
		})
		if err == nil {
			if cur, gerr := s.store.OpponentState(ctx, room.ID, me.ID); gerr == nil {
				push(api.Frame{T: api.FrameState, State: &cur})
			}
		}
	}
	if err != nil {
		log.Warn().Err(err).Str("room", room.ID).Str("topic", topic).Msg("stream subscribe")
		c.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer sub.Unsubscribe()
	log.Debug().Str("room", room.ID).Str("user", me.ID).Str("topic", topic).Msg("stream open")

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case f := <-frames:
			wctx, cancel := context.WithTimeout(ctx, writeDeadline)
			err := wsjson.Write(wctx, c, f)
			cancel()
			if err != nil {
				log.Debug().Err(err).Str("room", room.ID).Msg("stream write")
				return
			}
		case <-ping.C:
			if err := c.Ping(ctx); err != nil {
				return
			}
		}
	}
}

// pushLatest queues f without blocking. Frames are full snapshots, so when the
// client lags the oldest queued frame is discarded and the latest room row or
// opponent state always gets through.
func pushLatest(frames chan api.Frame, f api.Frame) {
	for {
		select {
		case frames <- f:
			return
		default:
		}
		select {
		case <-frames:
		default:
		}
	}
}

// originPatterns allows browser connections from the configured client origin.
func (s *Server) originPatterns() []string {
	u, err := url.Parse(s.opts.ClientOrigin)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
