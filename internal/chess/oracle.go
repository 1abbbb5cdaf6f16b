// Package chess implements the chess room: the move-oracle contract, the
// room record, and the transactional mutators that drive it.
package chess

// InitialFEN is the standard starting position.
const InitialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// OracleMove is one candidate move as the oracle reports it. Squares are
// algebraic ("e2"); Promotion and Captured are lowercase piece letters or
// empty.
type OracleMove struct {
	From      string
	To        string
	Promotion string
	Captured  string
}

// Outcome is the oracle's verdict on a position.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeCheckmate Outcome = "checkmate"
	OutcomeStalemate Outcome = "stalemate"
	OutcomeDraw      Outcome = "draw"
)

// Oracle is the rules engine the room consults. The room never reasons
// about chess itself: the oracle enumerates candidate moves, applies the
// chosen one, and judges the resulting position.
//
// Positions travel as FEN strings so they can live inside the room record.
type Oracle interface {
	// MovesFrom enumerates the moves available in the position, restricted
	// to those originating at from when from is non-empty.
	MovesFrom(fen, from string) ([]OracleMove, error)
	// Apply plays mv and returns the resulting position. The move must be
	// one previously enumerated for this position.
	Apply(fen string, mv OracleMove) (string, error)
	// SideToMove names the seat to move in the position.
	SideToMove(fen string) (Seat, error)
	// Evaluate judges the position: checkmate, stalemate, a provable draw,
	// or none of those.
	Evaluate(fen string) (Outcome, error)
}
