// internal/roomclient/client.go
//
// Remote match.RoomStore backed by the duel server.
// Responsibilities:
//   - Login and bearer-token handling.
//   - Commands and polls over JSON/HTTP.
//   - Push subscriptions over WebSocket (stream.go).
//   - Mapping HTTP status codes and network failures onto match's error taxonomy.
//
// A Client is explicitly constructed and explicitly closed; Close ends every
// open stream.

package roomclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/robalobadob/wordduel/internal/api"
	"github.com/robalobadob/wordduel/internal/match"
	"github.com/robalobadob/wordduel/internal/stats"
)

var (
	_ match.RoomStore = (*Client)(nil)
	_ stats.Remote    = (*Client)(nil)
)

// Client talks to one duel server as one user.
type Client struct {
	base *url.URL
	http *http.Client

	mu     sync.RWMutex
	token  string
	userID string

	life context.Context
	stop context.CancelFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Its Timeout must be zero;
// per-call deadlines come from the context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the server at baseURL (http or https).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	life, stop := context.WithCancel(context.Background())
	c := &Client{base: u, http: &http.Client{}, life: life, stop: stop}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Close ends every open stream. The client must not be used afterwards.
func (c *Client) Close() error {
	c.stop()
	c.http.CloseIdleConnections()
	return nil
}

// UserID returns the logged-in user's id.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return ""
	}
	return "Bearer " + c.token
}

// Login authenticates (creating the account on first use) and keeps the token.
func (c *Client) Login(ctx context.Context, username, password string) (api.LoginResponse, error) {
	var res api.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", api.LoginRequest{Username: username, Password: password}, &res); err != nil {
		return api.LoginResponse{}, err
	}
	c.mu.Lock()
	c.token, c.userID = res.Token, res.ID
	c.mu.Unlock()
	return res, nil
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, &buf)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b := c.bearer(); b != "" {
		req.Header.Set("Authorization", b)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, match.ErrTransport, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var eb api.ErrorBody
		_ = json.NewDecoder(res.Body).Decode(&eb)
		return fmt.Errorf("%s %s: %w", method, path, api.Err(res.StatusCode, eb.Error))
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w: %v", method, path, match.ErrTransport, err)
	}
	return nil
}

func roomPath(roomID string, rest string) string {
	return "/rooms/" + url.PathEscape(roomID) + rest
}

// CreateRoom opens a room. The server takes the host from the token, so
// hostID must be the logged-in user.
func (c *Client) CreateRoom(ctx context.Context, hostID, word string) (match.Room, error) {
	var room match.Room
	err := c.do(ctx, http.MethodPost, "/rooms", api.WordRequest{Word: word}, &room)
	return room, err
}

// JoinRoom joins as the logged-in user.
func (c *Client) JoinRoom(ctx context.Context, code, playerID string) (match.Room, error) {
	var room match.Room
	err := c.do(ctx, http.MethodPost, "/rooms/join", api.JoinRequest{Code: code}, &room)
	return room, err
}

// GetRoom fetches the room row.
func (c *Client) GetRoom(ctx context.Context, roomID string) (match.Room, error) {
	var room match.Room
	err := c.do(ctx, http.MethodGet, roomPath(roomID, ""), nil, &room)
	return room, err
}

// ReportState publishes the logged-in user's progress.
func (c *Client) ReportState(ctx context.Context, roomID, playerID string, st match.ParticipantState) error {
	return c.do(ctx, http.MethodPut, roomPath(roomID, "/state"), st, nil)
}

// OpponentState polls the other participant's state.
func (c *Client) OpponentState(ctx context.Context, roomID, myID string) (match.ParticipantState, error) {
	var st match.ParticipantState
	err := c.do(ctx, http.MethodGet, roomPath(roomID, "/opponent"), nil, &st)
	return st, err
}

// SaveMatchResult writes the durable match row (room host only).
func (c *Client) SaveMatchResult(ctx context.Context, rec match.Record) error {
	return c.do(ctx, http.MethodPost, roomPath(rec.RoomID, "/result"), rec, nil)
}

// HeadToHead fetches the tally between idA and idB, oriented (idA, idB).
func (c *Client) HeadToHead(ctx context.Context, idA, idB string) (match.HeadToHead, error) {
	var h match.HeadToHead
	q := url.Values{"a": {idA}, "b": {idB}}
	err := c.do(ctx, http.MethodGet, "/h2h?"+q.Encode(), nil, &h)
	return h, err
}

// StartNextPuzzle sets a new word in the room.
func (c *Client) StartNextPuzzle(ctx context.Context, roomID, word string) error {
	return c.do(ctx, http.MethodPost, roomPath(roomID, "/next"), api.WordRequest{Word: word}, nil)
}

// LeaveRoom marks the room finished.
func (c *Client) LeaveRoom(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodPost, roomPath(roomID, "/leave"), nil, nil)
}

// Stats fetches the logged-in user's statistics.
func (c *Client) Stats(ctx context.Context) (stats.Stats, error) {
	var st stats.Stats
	err := c.do(ctx, http.MethodGet, "/stats/me", nil, &st)
	return st, err
}

// UpdateStats records one finished game for the logged-in user.
func (c *Client) UpdateStats(ctx context.Context, won bool, guesses int) (stats.Stats, error) {
	var st stats.Stats
	err := c.do(ctx, http.MethodPost, "/stats/me", api.StatsUpdate{Won: won, Guesses: guesses}, &st)
	return st, err
}
