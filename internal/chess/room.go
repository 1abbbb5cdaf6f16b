package chess

import (
	"strings"
	"time"
)

// Seat names one of the two player slots. White always moves first.
type Seat string

const (
	SeatWhite Seat = "white"
	SeatBlack Seat = "black"
)

// Other returns the opposing seat.
func (s Seat) Other() Seat {
	if s == SeatWhite {
		return SeatBlack
	}
	return SeatWhite
}

// Status is the room lifecycle state.
type Status string

const (
	StatusLobby     Status = "LOBBY"
	StatusPlaying   Status = "PLAYING"
	StatusCheckmate Status = "CHECKMATE"
	StatusStalemate Status = "STALEMATE"
	StatusDraw      Status = "DRAW"
	StatusResign    Status = "RESIGN"
)

// Terminal reports whether the status means the match is over.
func (st Status) Terminal() bool {
	switch st {
	case StatusCheckmate, StatusStalemate, StatusDraw, StatusResign:
		return true
	}
	return false
}

// Player occupies a seat.
type Player struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// MoveRecord is one applied move, enough to replay the game from the
// starting position.
type MoveRecord struct {
	Seq       int    `json:"seq"`
	San       string `json:"san"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	Captured  string `json:"captured,omitempty"`
	By        Seat   `json:"by"`
	At        int64  `json:"at"`
}

// Result describes how a finished match ended.
type Result struct {
	Type Status `json:"type"`
	By   Seat   `json:"by,omitempty"`
}

// Room is the shared record for one chess match. It is only ever mutated
// inside a store transaction; everything handed to callers is a snapshot.
type Room struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Status     Status           `json:"status"`
	FEN        string           `json:"fen"`
	Turn       Seat             `json:"turn"`
	Winner     Seat             `json:"winner,omitempty"`
	Result     *Result          `json:"result,omitempty"`
	Players    map[Seat]*Player `json:"players"`
	Moves      []MoveRecord     `json:"moves"`
	FinishedAt int64            `json:"finishedAt,omitempty"`
	FinishAck  map[Seat]bool    `json:"finishAck"`
	CreatedAt  int64            `json:"createdAt"`
	UpdatedAt  int64            `json:"updatedAt"`
}

// NewRoom builds a complete empty room. Every field is present from the
// start; mutators never have to backfill a missing map.
func NewRoom(id, name string) *Room {
	if name = trimName(name); name == "" {
		name = "Chess room"
	}
	now := time.Now().UnixMilli()
	return &Room{
		ID:        id,
		Name:      name,
		Status:    StatusLobby,
		FEN:       InitialFEN,
		Turn:      SeatWhite,
		Players:   map[Seat]*Player{},
		Moves:     []MoveRecord{},
		FinishAck: map[Seat]bool{SeatWhite: false, SeatBlack: false},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SeatOf resolves an identity to its seat, if it holds one.
func (r *Room) SeatOf(uid string) (Seat, bool) {
	for _, seat := range []Seat{SeatWhite, SeatBlack} {
		if p := r.Players[seat]; p != nil && p.UID == uid {
			return seat, true
		}
	}
	return "", false
}

// BothSeated reports whether no seat is vacant.
func (r *Room) BothSeated() bool {
	return r.Players[SeatWhite] != nil && r.Players[SeatBlack] != nil
}

// BothAcked reports whether both seats have consented to a new game.
func (r *Room) BothAcked() bool {
	return r.FinishAck[SeatWhite] && r.FinishAck[SeatBlack]
}

// reset wipes the game state. Play resumes when both seats are occupied,
// otherwise the room returns to the lobby.
func (r *Room) reset(now int64) {
	r.FEN = InitialFEN
	r.Turn = SeatWhite
	r.Moves = []MoveRecord{}
	r.Winner = ""
	r.Result = nil
	r.FinishedAt = 0
	r.FinishAck = map[Seat]bool{SeatWhite: false, SeatBlack: false}
	if r.BothSeated() {
		r.Status = StatusPlaying
	} else {
		r.Status = StatusLobby
	}
	r.UpdatedAt = now
}

func trimName(name string) string {
	const maxNameLen = 64
	name = strings.TrimSpace(name)
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return name
}
