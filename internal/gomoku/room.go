package gomoku

import "time"

// Seat names one of the two player slots. X always moves first.
type Seat string

const (
	SeatX Seat = "X"
	SeatO Seat = "O"
)

// Other returns the opposing seat.
func (s Seat) Other() Seat {
	if s == SeatX {
		return SeatO
	}
	return SeatX
}

// Status is the room lifecycle state.
type Status string

const (
	// StatusLobby: fewer than two players, or both seated but not both ready.
	StatusLobby Status = "LOBBY"
	// StatusPlaying: a round is in progress.
	StatusPlaying Status = "PLAYING"
	// StatusRoundEnd: the round finished, decisively or drawn.
	StatusRoundEnd Status = "ROUND_END"
)

// Player occupies a seat. Score accumulates across rounds in the same room.
type Player struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Ready bool   `json:"ready"`
}

// Move is one applied placement, enough to replay the round from an empty
// board.
type Move struct {
	Seq int   `json:"seq"`
	Row int   `json:"row"`
	Col int   `json:"col"`
	By  Seat  `json:"by"`
	At  int64 `json:"at"`
}

// LastMove marks the most recent placement for the board highlight.
type LastMove struct {
	Row int  `json:"row"`
	Col int  `json:"col"`
	By  Seat `json:"by"`
}

// Room is the shared record for one gomoku match. It is only ever mutated
// inside a store transaction; everything handed to callers is a snapshot.
type Room struct {
	ID         string           `json:"id"`
	Status     Status           `json:"status"`
	Board      Board            `json:"board"`
	Turn       Seat             `json:"turn"`
	Winner     Seat             `json:"winner,omitempty"`
	Players    map[Seat]*Player `json:"players"`
	Moves      []Move           `json:"moves"`
	LastMove   *LastMove        `json:"lastMove,omitempty"`
	SecretHash string           `json:"secretHash,omitempty"`
	FinishedAt int64            `json:"finishedAt,omitempty"`
	FinishAck  map[Seat]bool    `json:"finishAck"`
	CreatedAt  int64            `json:"createdAt"`
	UpdatedAt  int64            `json:"updatedAt"`
}

// NewRoom builds a complete empty room. Every field is present from the
// start; mutators never have to backfill a missing map.
func NewRoom(id, secretHash string) *Room {
	now := time.Now().UnixMilli()
	return &Room{
		ID:         id,
		Status:     StatusLobby,
		Board:      NewBoard(),
		Turn:       SeatX,
		Players:    map[Seat]*Player{},
		Moves:      []Move{},
		SecretHash: secretHash,
		FinishAck:  map[Seat]bool{SeatX: false, SeatO: false},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Redacted returns a copy fit for the wire. The secret hash stays on the
// server; clients only ever learn whether their join attempt matched.
func (r *Room) Redacted() *Room {
	cp := *r
	cp.SecretHash = ""
	return &cp
}

// SeatOf resolves an identity to its seat, if it holds one.
func (r *Room) SeatOf(uid string) (Seat, bool) {
	for _, seat := range []Seat{SeatX, SeatO} {
		if p := r.Players[seat]; p != nil && p.UID == uid {
			return seat, true
		}
	}
	return "", false
}

// BothSeated reports whether no seat is vacant.
func (r *Room) BothSeated() bool {
	return r.Players[SeatX] != nil && r.Players[SeatO] != nil
}

func (r *Room) bothReady() bool {
	return r.BothSeated() && r.Players[SeatX].Ready && r.Players[SeatO].Ready
}

// startRound wipes the round state and begins play when both seats are
// occupied, otherwise parks the room back in the lobby. Scores survive,
// ready flags do not.
func (r *Room) startRound(now int64) {
	r.Board = NewBoard()
	r.Moves = []Move{}
	r.LastMove = nil
	r.Turn = SeatX
	r.Winner = ""
	r.FinishedAt = 0
	r.FinishAck = map[Seat]bool{SeatX: false, SeatO: false}
	for _, p := range r.Players {
		p.Ready = false
	}
	if r.BothSeated() {
		r.Status = StatusPlaying
	} else {
		r.Status = StatusLobby
	}
	r.UpdatedAt = now
}
