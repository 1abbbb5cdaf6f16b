// Package handlers exposes the service over HTTP: room creation endpoints
// and the per-room WebSocket sessions that stream snapshots and accept
// mutator commands.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vinhpn/boardroom/internal/cache"
	"github.com/vinhpn/boardroom/internal/chess"
	"github.com/vinhpn/boardroom/internal/gomoku"
)

// Server bundles both game services behind one route table.
type Server struct {
	Gomoku *gomoku.Service
	Chess  *chess.Service
	Log    *log.Logger
}

func NewServer(g *gomoku.Service, c *chess.Service, logger *log.Logger) *Server {
	s := &Server{Gomoku: g, Chess: c, Log: logger}
	g.OnFinish = s.recordGomokuFinish
	c.OnFinish = s.recordChessFinish
	return s
}

// recordGomokuFinish queues a finished round for the historian. Matches the
// fire-and-forget shape of every other history write: Redis down just means
// no record.
func (s *Server) recordGomokuFinish(r *gomoku.Room) {
	moves, err := json.Marshal(r.Moves)
	if err != nil {
		s.Log.Warnf("marshal gomoku moves for %s: %v", r.ID, err)
		return
	}
	s.publishRecord(cache.MatchRecord{
		Game:       "gomoku",
		RoomID:     r.ID,
		Status:     string(r.Status),
		Winner:     string(r.Winner),
		MoveCount:  len(r.Moves),
		Moves:      moves,
		FinishedAt: r.FinishedAt,
	})
}

func (s *Server) recordChessFinish(r *chess.Room) {
	moves, err := json.Marshal(r.Moves)
	if err != nil {
		s.Log.Warnf("marshal chess moves for %s: %v", r.ID, err)
		return
	}
	s.publishRecord(cache.MatchRecord{
		Game:       "chess",
		RoomID:     r.ID,
		Status:     string(r.Status),
		Winner:     string(r.Winner),
		MoveCount:  len(r.Moves),
		Moves:      moves,
		FinishedAt: r.FinishedAt,
	})
}

func (s *Server) publishRecord(rec cache.MatchRecord) {
	go func() {
		if cache.Rdb == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishMatchRecord(ctx, rec); err != nil {
			s.Log.Warnf("publish match record for %s/%s: %v", rec.Game, rec.RoomID, err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
