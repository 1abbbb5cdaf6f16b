// Package gomoku implements the sixteen-by-sixteen five-in-a-row room:
// the board and win detection, the room record, and the transactional
// mutators that drive it.
package gomoku

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vinhpn/boardroom/internal/auth"
	"github.com/vinhpn/boardroom/internal/room"
	"github.com/vinhpn/boardroom/internal/store"
)

// Service owns all room mutation. Every mutator is one conditional
// read-modify-write cycle against the whole room record; rule violations
// (out of turn, occupied cell, spectator input) leave the room untouched
// and are not reported, while structural problems (missing room, wrong
// secret, full room) come back as errors.
type Service struct {
	rooms store.Store[Room]
	log   *logrus.Logger

	// OnFinish, when set, is invoked with a snapshot of the room each time
	// a round reaches ROUND_END. Called on the mutator's goroutine's
	// behalf; implementations should not block.
	OnFinish func(*Room)
}

func NewService(rooms store.Store[Room], log *logrus.Logger) *Service {
	return &Service{rooms: rooms, log: log}
}

// Create builds a fresh empty room. A non-empty secret is stored as an
// argon2id hash and required on join from then on.
func (s *Service) Create(ctx context.Context, secret string) (*Room, error) {
	var secretHash string
	if secret != "" {
		var err error
		if secretHash, err = auth.HashSecret(secret); err != nil {
			return nil, err
		}
	}
	r := NewRoom(room.NewCode(), secretHash)
	if err := s.rooms.Create(ctx, r.ID, r); err != nil {
		return nil, err
	}
	s.log.WithField("room", r.ID).Info("gomoku room created")
	return r, nil
}

// Get returns the current room snapshot.
func (s *Service) Get(ctx context.Context, code string) (*Room, error) {
	r, err := s.rooms.Get(ctx, code)
	if err == store.ErrNotFound {
		return nil, room.ErrNotFound
	}
	return r, err
}

// Subscribe streams room snapshots to fn until cancel is called. fn first
// fires with the current state (nil if the room does not exist).
func (s *Service) Subscribe(code string, fn func(*Room)) (func(), error) {
	return s.rooms.Subscribe(code, fn)
}

// Join seats an identity. Rejoining with an already-seated uid only
// refreshes the display name and returns the held seat. Seats fill X
// before O. The round itself starts later, once both players toggle ready.
func (s *Service) Join(ctx context.Context, code, uid, name, secret string) (Seat, *Room, error) {
	var assigned Seat
	snap, err := s.rooms.Transact(ctx, code, func(r *Room) (*Room, error) {
		if r == nil {
			return nil, room.ErrNotFound
		}
		now := time.Now().UnixMilli()

		if seat, ok := r.SeatOf(uid); ok {
			assigned = seat
			r.Players[seat].Name = name
			r.UpdatedAt = now
			return r, nil
		}

		if r.SecretHash != "" {
			ok, err := auth.CompareSecret(secret, r.SecretHash)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, room.ErrBadSecret
			}
		}

		var seat Seat
		switch {
		case r.Players[SeatX] == nil:
			seat = SeatX
		case r.Players[SeatO] == nil:
			seat = SeatO
		default:
			return nil, room.ErrFull
		}

		r.Players[seat] = &Player{UID: uid, Name: name}
		assigned = seat
		r.UpdatedAt = now
		return r, nil
	})
	if err != nil {
		return "", snap, err
	}
	return assigned, snap, nil
}

// SetReady toggles a seat's ready flag. The round start is folded into the
// same transaction: the commit that turns the second flag true also begins
// play, so two clients reacting to the same snapshot cannot both start it.
func (s *Service) SetReady(ctx context.Context, code, uid string, ready bool) (*Room, error) {
	return s.rooms.Transact(ctx, code, func(r *Room) (*Room, error) {
		if r == nil {
			return nil, room.ErrNotFound
		}
		seat, ok := r.SeatOf(uid)
		if !ok || r.Status != StatusLobby {
			return nil, nil
		}
		now := time.Now().UnixMilli()
		r.Players[seat].Ready = ready
		r.UpdatedAt = now
		if r.bothReady() {
			r.startRound(now)
		}
		return r, nil
	})
}

// Place drops the caller's mark at (row, col). Spectators, stale turns and
// occupied or out-of-range cells are all silent no-ops.
func (s *Service) Place(ctx context.Context, code, uid string, row, col int) (*Room, error) {
	finished := false
	snap, err := s.rooms.Transact(ctx, code, func(r *Room) (*Room, error) {
		if r == nil {
			return nil, room.ErrNotFound
		}
		seat, ok := r.SeatOf(uid)
		if !ok {
			return nil, nil
		}
		if r.Status != StatusPlaying || r.Turn != seat {
			return nil, nil
		}
		if !inBounds(row, col) || r.Board[row][col] != MarkEmpty {
			return nil, nil
		}

		now := time.Now().UnixMilli()
		mark := Mark(seat)
		r.Board[row][col] = mark
		r.Moves = append(r.Moves, Move{
			Seq: len(r.Moves) + 1,
			Row: row,
			Col: col,
			By:  seat,
			At:  now,
		})
		r.LastMove = &LastMove{Row: row, Col: col, By: seat}
		r.Turn = seat.Other()
		r.FinishAck = map[Seat]bool{SeatX: false, SeatO: false}
		r.UpdatedAt = now

		switch {
		case r.Board.Wins(row, col, mark):
			r.Status = StatusRoundEnd
			r.Winner = seat
			r.Players[seat].Score++
			r.FinishedAt = now
			finished = true
		case r.Board.Full():
			r.Status = StatusRoundEnd
			r.Winner = ""
			r.FinishedAt = now
			finished = true
		}
		return r, nil
	})
	if err == nil && finished && s.OnFinish != nil {
		s.OnFinish(snap)
	}
	return snap, err
}

// AcknowledgeFinish records a seat's consent to the next round. It is the
// one blind write in the protocol: no precondition beyond the seat existing,
// so it skips the conditional-update cycle.
func (s *Service) AcknowledgeFinish(ctx context.Context, code string, seat Seat) error {
	err := s.rooms.Write(ctx, code, func(r *Room) {
		if r.Players[seat] == nil {
			return
		}
		r.FinishAck[seat] = true
		r.UpdatedAt = time.Now().UnixMilli()
	})
	if err == store.ErrNotFound {
		return room.ErrNotFound
	}
	return err
}

// StartRound begins the next round after ROUND_END. Any occupant may call
// it; acknowledgement state does not gate the line game.
func (s *Service) StartRound(ctx context.Context, code string) (*Room, error) {
	return s.rooms.Transact(ctx, code, func(r *Room) (*Room, error) {
		if r == nil {
			return nil, room.ErrNotFound
		}
		if r.Status != StatusRoundEnd {
			return nil, nil
		}
		r.startRound(time.Now().UnixMilli())
		return r, nil
	})
}

// Leave vacates the caller's seat and discards the round in progress.
// The room record itself survives for whoever stays or comes next.
func (s *Service) Leave(ctx context.Context, code, uid string) (*Room, error) {
	return s.rooms.Transact(ctx, code, func(r *Room) (*Room, error) {
		if r == nil {
			return nil, room.ErrNotFound
		}
		seat, ok := r.SeatOf(uid)
		if !ok {
			return nil, nil
		}
		delete(r.Players, seat)
		r.startRound(time.Now().UnixMilli())
		return r, nil
	})
}
