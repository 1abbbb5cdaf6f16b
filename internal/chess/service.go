package chess

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vinhpn/boardroom/internal/room"
	"github.com/vinhpn/boardroom/internal/store"
)

// DefaultResetCooldown is how long after a match ends before a rematch may
// begin. Enforced inside the reset transaction, not just in the UI.
const DefaultResetCooldown = 5 * time.Second

// Service owns all room mutation. Every mutator is one conditional
// read-modify-write cycle against the whole room record; rule violations
// (out of turn, spectator input, moves the oracle does not enumerate)
// leave the room untouched and are not reported, while structural problems
// (missing room, full room) come back as errors.
type Service struct {
	rooms  store.Store[Room]
	oracle Oracle
	log    *logrus.Logger

	// ResetCooldown gates Reset after a terminal status.
	ResetCooldown time.Duration

	// OnFinish, when set, is invoked with a snapshot of the room each time
	// the match reaches a terminal status. Implementations should not block.
	OnFinish func(*Room)
}

func NewService(rooms store.Store[Room], oracle Oracle, log *logrus.Logger) *Service {
	return &Service{
		rooms:         rooms,
		oracle:        oracle,
		log:           log,
		ResetCooldown: DefaultResetCooldown,
	}
}

// Create builds a fresh empty room.
func (s *Service) Create(ctx context.Context, name string) (*Room, error) {
	r := NewRoom(room.NewCode(), name)
	if err := s.rooms.Create(ctx, r.ID, r); err != nil {
		return nil, err
	}
	s.log.WithField("room", r.ID).Info("chess room created")
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
// refreshes the display name and returns the held seat. Seats fill white
// before black; filling the second seat starts the game.
func (s *Service) Join(ctx context.Context, code, uid, name string) (Seat, *Room, error) {
	var assigned Seat
	snap, err := s.rooms.Transact(ctx, code, func(r *Room) (*Room, error) {
		if r == nil {
			return nil, room.ErrNotFound
		}
		if name = trimName(name); name == "" {
			name = "Guest"
		}
		now := time.Now().UnixMilli()

		if seat, ok := r.SeatOf(uid); ok {
			assigned = seat
			r.Players[seat].Name = name
			r.UpdatedAt = now
			return r, nil
		}

		var seat Seat
		switch {
		case r.Players[SeatWhite] == nil:
			seat = SeatWhite
		case r.Players[SeatBlack] == nil:
			seat = SeatBlack
		default:
			return nil, room.ErrFull
		}

		r.Players[seat] = &Player{UID: uid, Name: name}
		assigned = seat
		if r.Status == StatusLobby && r.BothSeated() {
			r.reset(now)
		}
		r.UpdatedAt = now
		return r, nil
	})
	if err != nil {
		return "", snap, err
	}
	return assigned, snap, nil
}

// Move plays from->to for the calling identity, with an optional promotion
// letter ("q", "r", "b", "n"). The move must match one the oracle
// enumerates from the source square; when the request leaves promotion
// blank a promoting move defaults to the queen. Everything the rules
// forbid is a silent no-op.
func (s *Service) Move(ctx context.Context, code, uid, from, to, promotion string) (*Room, error) {
	finished := false
	snap, err := s.rooms.Transact(ctx, code, func(r *Room) (*Room, error) {
		if r == nil {
			return nil, room.ErrNotFound
		}
		seat, ok := r.SeatOf(uid)
		if !ok || r.Status.Terminal() {
			return nil, nil
		}
		if r.Status != StatusPlaying || r.Turn != seat {
			return nil, nil
		}

		candidates, err := s.oracle.MovesFrom(r.FEN, from)
		if err != nil {
			return nil, fmt.Errorf("enumerate moves: %w", err)
		}
		mv, ok := matchMove(candidates, to, promotion)
		if !ok {
			return nil, nil
		}

		nextFEN, err := s.oracle.Apply(r.FEN, mv)
		if err != nil {
			return nil, fmt.Errorf("apply move: %w", err)
		}
		nextTurn, err := s.oracle.SideToMove(nextFEN)
		if err != nil {
			return nil, fmt.Errorf("side to move: %w", err)
		}
		outcome, err := s.oracle.Evaluate(nextFEN)
		if err != nil {
			return nil, fmt.Errorf("evaluate position: %w", err)
		}

		now := time.Now().UnixMilli()
		r.Moves = append(r.Moves, MoveRecord{
			Seq:       len(r.Moves) + 1,
			San:       mv.From + "-" + mv.To,
			From:      mv.From,
			To:        mv.To,
			Promotion: mv.Promotion,
			Captured:  mv.Captured,
			By:        seat,
			At:        now,
		})
		r.FEN = nextFEN
		r.Turn = nextTurn
		r.FinishAck = map[Seat]bool{SeatWhite: false, SeatBlack: false}
		r.UpdatedAt = now

		switch outcome {
		case OutcomeCheckmate:
			r.Status = StatusCheckmate
			r.Winner = seat
			r.Result = &Result{Type: StatusCheckmate, By: seat}
			r.FinishedAt = now
			finished = true
		case OutcomeStalemate:
			r.Status = StatusStalemate
			r.Winner = ""
			r.Result = &Result{Type: StatusStalemate}
			r.FinishedAt = now
			finished = true
		case OutcomeDraw:
			r.Status = StatusDraw
			r.Winner = ""
			r.Result = &Result{Type: StatusDraw}
			r.FinishedAt = now
			finished = true
		default:
			r.Status = StatusPlaying
			r.Winner = ""
			r.Result = nil
			r.FinishedAt = 0
		}
		return r, nil
	})
	if err == nil && finished && s.OnFinish != nil {
		s.OnFinish(snap)
	}
	return snap, err
}

// matchMove picks the enumerated move matching the requested destination.
// A blank requested promotion matches a queen promotion first, then any.
func matchMove(candidates []OracleMove, to, promotion string) (OracleMove, bool) {
	var fallback *OracleMove
	for i, c := range candidates {
		if c.To != to {
			continue
		}
		if c.Promotion == promotion {
			return c, true
		}
		if promotion == "" {
			if c.Promotion == "q" {
				return c, true
			}
			if fallback == nil {
				fallback = &candidates[i]
			}
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return OracleMove{}, false
}

// Resign ends the game in the opponent's favor.
func (s *Service) Resign(ctx context.Context, code, uid string) (*Room, error) {
	finished := false
	snap, err := s.rooms.Transact(ctx, code, func(r *Room) (*Room, error) {
		if r == nil {
			return nil, room.ErrNotFound
		}
		seat, ok := r.SeatOf(uid)
		if !ok || r.Status != StatusPlaying {
			return nil, nil
		}
		now := time.Now().UnixMilli()
		winner := seat.Other()
		r.Status = StatusResign
		r.Winner = winner
		r.Result = &Result{Type: StatusResign, By: winner}
		r.FinishedAt = now
		r.FinishAck = map[Seat]bool{SeatWhite: false, SeatBlack: false}
		r.UpdatedAt = now
		finished = true
		return r, nil
	})
	if err == nil && finished && s.OnFinish != nil {
		s.OnFinish(snap)
	}
	return snap, err
}

// AcknowledgeFinish records a seat's consent to a rematch. It is the one
// blind write in the protocol: no precondition beyond the seat existing,
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

// Reset starts a rematch after a terminal status, once both seats have
// acknowledged and the cooldown since finishedAt has elapsed. Until then it
// is a silent no-op, so an early or duplicate call cannot wipe a game.
func (s *Service) Reset(ctx context.Context, code string) (*Room, error) {
	return s.rooms.Transact(ctx, code, func(r *Room) (*Room, error) {
		if r == nil {
			return nil, room.ErrNotFound
		}
		if !r.Status.Terminal() || !r.BothAcked() {
			return nil, nil
		}
		now := time.Now().UnixMilli()
		if now-r.FinishedAt < s.ResetCooldown.Milliseconds() {
			return nil, nil
		}
		r.reset(now)
		return r, nil
	})
}

// Leave vacates the caller's seat and discards the game in progress.
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
		r.reset(time.Now().UnixMilli())
		return r, nil
	})
}
