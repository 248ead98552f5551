// internal/roomclient/stream.go
//
// Push subscriptions over WebSocket.
// Each subscription is one connection to /rooms/{id}/stream, read until the
// caller unsubscribes, its context ends or the Client is closed.

package roomclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/robalobadob/wordduel/internal/api"
	"github.com/robalobadob/wordduel/internal/match"
)

// SubscribeRoom streams room rows until ctx ends, the subscription is
// released or the client is closed.
func (c *Client) SubscribeRoom(ctx context.Context, roomID string, fn func(match.Room)) (match.Subscription, error) {
	return c.stream(ctx, roomID, api.TopicRoom, func(f api.Frame) {
		if f.T == api.FrameRoom && f.Room != nil {
			fn(*f.Room)
		}
	})
}

// SubscribeOpponentState streams the other participant's reported states.
func (c *Client) SubscribeOpponentState(ctx context.Context, roomID, myID string, fn func(match.ParticipantState)) (match.Subscription, error) {
	return c.stream(ctx, roomID, api.TopicOpponent, func(f api.Frame) {
		if f.T == api.FrameState && f.State != nil && f.State.ParticipantID != "" && f.State.ParticipantID != myID {
			fn(*f.State)
		}
	})
}

type streamSub struct {
	cancel context.CancelFunc
	conn   *websocket.Conn
	once   sync.Once
}

// Unsubscribe closes the stream. Idempotent.
func (s *streamSub) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
	})
}

func (c *Client) streamURL(roomID, topic string) string {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += roomPath(roomID, "/stream")
	u.RawQuery = url.Values{"topic": {topic}}.Encode()
	return u.String()
}

func (c *Client) stream(ctx context.Context, roomID, topic string, handle func(api.Frame)) (match.Subscription, error) {
	sctx, cancel := context.WithCancel(ctx)
	stopWithClient := context.AfterFunc(c.life, cancel)

	hdr := http.Header{}
	if b := c.bearer(); b != "" {
		hdr.Set("Authorization", b)
	}
	conn, res, err := websocket.Dial(sctx, c.streamURL(roomID, topic), &websocket.DialOptions{
		HTTPClient: c.http,
		HTTPHeader: hdr,
	})
	if err != nil {
		stopWithClient()
		cancel()
		if res != nil && res.StatusCode >= 300 {
			return nil, fmt.Errorf("stream %s: %w", topic, api.Err(res.StatusCode, ""))
		}
		return nil, fmt.Errorf("stream %s: %w: %v", topic, match.ErrTransport, err)
	}

	sub := &streamSub{cancel: cancel, conn: conn}
	go func() {
		defer stopWithClient()
		defer sub.Unsubscribe()
		for {
			var f api.Frame
			if err := wsjson.Read(sctx, conn, &f); err != nil {
				if sctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
					log.Debug().Err(err).Str("room", roomID).Str("topic", topic).Msg("stream ended")
				}
				return
			}
			handle(f)
		}
	}()
	return sub, nil
}
