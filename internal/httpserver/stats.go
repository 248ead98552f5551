// internal/httpserver/stats.go
//
// Head-to-head and per-player statistics endpoints.
//   - GET  /h2h?a=&b=   tally between two players (a defaults to the caller).
//   - GET  /stats/me    the caller's statistics.
//   - POST /stats/me    record one finished game.

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/wordduel/internal/api"
	"github.com/robalobadob/wordduel/internal/game"
)

func (s *Server) mountStats(r chi.Router) {
	r.Get("/h2h", s.handleHeadToHead)
	r.Get("/stats/me", s.handleGetStats)
	r.Post("/stats/me", s.handleUpdateStats)
}

// handleHeadToHead returns the tally between a (default: caller) and b.
func (s *Server) handleHeadToHead(w http.ResponseWriter, r *http.Request) {
	a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if a == "" {
		a = currentUser(r).ID
	}
	if b == "" || a == b {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest)
		return
	}
	h, err := s.store.HeadToHead(r.Context(), a, b)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, h)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context(), currentUser(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, st)
}

func (s *Server) handleUpdateStats(w http.ResponseWriter, r *http.Request) {
	var body api.StatsUpdate
	if !decode(w, r, &body) {
		return
	}
	if body.Guesses < 1 || body.Guesses > game.MaxAttempts {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest)
		return
	}
	st, err := s.store.UpdateStats(r.Context(), currentUser(r).ID, body.Won, body.Guesses)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, st)
}
