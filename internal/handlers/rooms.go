package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vinhpn/boardroom/internal/room"
)

type createGomokuRequest struct {
	Secret string `json:"secret,omitempty"`
}

type createChessRequest struct {
	Name string `json:"name,omitempty"`
}

// CreateGomokuRoomHandler builds a fresh gomoku room and returns it. The
// caller becomes a guest if they were not one already; creating does not
// seat anybody, joining happens over the room socket.
func (s *Server) CreateGomokuRoomHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := EnsureGuest(w, r); err != nil {
		http.Error(w, "could not establish guest identity", http.StatusInternalServerError)
		return
	}

	var req createGomokuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
		http.Error(w, "bad room request payload", http.StatusBadRequest)
		return
	}

	created, err := s.Gomoku.Create(r.Context(), req.Secret)
	if err != nil {
		s.Log.Errorf("create gomoku room: %v", err)
		http.Error(w, "could not create room", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, created.Redacted())
}

func (s *Server) GetGomokuRoomHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Gomoku.Get(r.Context(), r.PathValue("code"))
	if errors.Is(err, room.ErrNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "could not load room", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap.Redacted())
}

func (s *Server) CreateChessRoomHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := EnsureGuest(w, r); err != nil {
		http.Error(w, "could not establish guest identity", http.StatusInternalServerError)
		return
	}

	var req createChessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
		http.Error(w, "bad room request payload", http.StatusBadRequest)
		return
	}

	created, err := s.Chess.Create(r.Context(), req.Name)
	if err != nil {
		s.Log.Errorf("create chess room: %v", err)
		http.Error(w, "could not create room", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) GetChessRoomHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Chess.Get(r.Context(), r.PathValue("code"))
	if errors.Is(err, room.ErrNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "could not load room", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
