// internal/httpserver/rooms.go
//
// Room endpoints. Every route except create and join runs behind loadRoom,
// which resolves {id} and admits seated players only.
// Responsibilities:
//   - Create / join rooms, read the room row.
//   - Accept progress reports and serve the opponent's latest state.
//   - Accept match results from the room host only.
//   - Start the next puzzle, leave the room.

package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordduel/internal/api"
	"github.com/robalobadob/wordduel/internal/game"
	"github.com/robalobadob/wordduel/internal/match"
)

type ctxRoomKey struct{}

func (s *Server) mountRooms(r chi.Router) {
	r.Post("/rooms", s.handleCreateRoom)
	r.Post("/rooms/join", s.handleJoinRoom)

	seated := r.With(s.loadRoom)
	seated.Get("/rooms/{id}", s.handleGetRoom)
	seated.Put("/rooms/{id}/state", s.handleReportState)
	seated.Get("/rooms/{id}/opponent", s.handleOpponentState)
	seated.Post("/rooms/{id}/result", s.handleSaveResult)
	seated.Post("/rooms/{id}/next", s.handleNextPuzzle)
	seated.Post("/rooms/{id}/leave", s.handleLeaveRoom)
}

// loadRoom resolves {id} and admits only the room's participants.
func (s *Server) loadRoom(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		room, err := s.store.GetRoom(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			fail(w, r, err)
			return
		}
		if !room.Has(currentUser(r).ID) {
			writeError(w, http.StatusForbidden, api.CodeForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxRoomKey{}, room)))
	})
}

func roomFrom(r *http.Request) match.Room {
	room, _ := r.Context().Value(ctxRoomKey{}).(match.Room)
	return room
}

// validWord normalizes a target word; ok is false if it cannot be played.
func (s *Server) validWord(w string) (string, bool) {
	w = strings.ToLower(strings.TrimSpace(w))
	if len(w) != game.WordLength {
		return "", false
	}
	for i := 0; i < len(w); i++ {
		if w[i] < 'a' || w[i] > 'z' {
			return "", false
		}
	}
	if s.opts.Words != nil && !s.opts.Words.IsValidWord(w) {
		return "", false
	}
	return w, true
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var body api.WordRequest
	if !decode(w, r, &body) {
		return
	}
	word, ok := s.validWord(body.Word)
	if !ok {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest)
		return
	}
	me := currentUser(r)
	room, err := s.store.CreateRoom(r.Context(), me.ID, word)
	if err != nil {
		fail(w, r, err)
		return
	}
	log.Info().Str("room", room.ID).Str("code", room.Code).Str("host", me.ID).Msg("room created")
	writeJSON(w, room)
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var body api.JoinRequest
	if !decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Code) == "" {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest)
		return
	}
	me := currentUser(r)
	room, err := s.store.JoinRoom(r.Context(), body.Code, me.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	log.Info().Str("room", room.ID).Str("guest", me.ID).Msg("room joined")
	writeJSON(w, room)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, roomFrom(r))
}

func validState(st match.ParticipantState) bool {
	switch st.Status {
	case match.StatusPlaying, match.StatusWon, match.StatusLost:
	default:
		return false
	}
	in := func(n int) bool { return n >= 0 && n <= game.MaxAttempts }
	return in(st.GuessCount) && st.GreenCount >= 0 && st.GreenCount <= game.WordLength &&
		st.YellowCount >= 0 && st.YellowCount <= game.WordLength
}

func (s *Server) handleReportState(w http.ResponseWriter, r *http.Request) {
	var st match.ParticipantState
	if !decode(w, r, &st) {
		return
	}
	if !validState(st) {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest)
		return
	}
	if err := s.store.ReportState(r.Context(), roomFrom(r).ID, currentUser(r).ID, st); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOpponentState(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.OpponentState(r.Context(), roomFrom(r).ID, currentUser(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, st)
}

// handleSaveResult accepts result writes from the room host only.
func (s *Server) handleSaveResult(w http.ResponseWriter, r *http.Request) {
	room := roomFrom(r)
	me := currentUser(r)
	if me.ID != room.HostID {
		writeError(w, http.StatusForbidden, api.CodeForbidden)
		return
	}
	var rec match.Record
	if !decode(w, r, &rec) {
		return
	}
	rec.RoomID, rec.HostID, rec.GuestID = room.ID, room.HostID, room.GuestID
	if rec.Puzzle < 1 || rec.Puzzle > room.Puzzle || room.GuestID == "" ||
		(rec.WinnerID != "" && !room.Has(rec.WinnerID)) {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest)
		return
	}
	if err := s.store.SaveMatchResult(r.Context(), rec); err != nil {
		fail(w, r, err)
		return
	}
	log.Info().Str("room", room.ID).Int("puzzle", rec.Puzzle).Str("winner", rec.WinnerID).Msg("match result saved")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNextPuzzle(w http.ResponseWriter, r *http.Request) {
	var body api.WordRequest
	if !decode(w, r, &body) {
		return
	}
	word, ok := s.validWord(body.Word)
	if !ok {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest)
		return
	}
	if err := s.store.StartNextPuzzle(r.Context(), roomFrom(r).ID, word); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.store.LeaveRoom(r.Context(), roomFrom(r).ID); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
