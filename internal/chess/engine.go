package chess

import (
	"fmt"
	"strconv"
	"strings"

	notnil "github.com/notnil/chess"
)

// Engine adapts github.com/notnil/chess to the Oracle contract. It is
// stateless; every call rebuilds the game from the FEN it is given.
//
// Unlike the pseudo-legal enumeration some clients use, the engine only
// ever reports fully legal moves, and terminal positions are judged from
// the position itself rather than by watching for a captured king.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

func gameFromFEN(fen string) (*notnil.Game, error) {
	opt, err := notnil.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("bad position %q: %w", fen, err)
	}
	return notnil.NewGame(opt), nil
}

// pieceLetter maps a piece type to its lowercase FEN letter.
func pieceLetter(pt notnil.PieceType) string {
	switch pt {
	case notnil.King:
		return "k"
	case notnil.Queen:
		return "q"
	case notnil.Rook:
		return "r"
	case notnil.Bishop:
		return "b"
	case notnil.Knight:
		return "n"
	case notnil.Pawn:
		return "p"
	}
	return ""
}

func (e *Engine) MovesFrom(fen, from string) ([]OracleMove, error) {
	g, err := gameFromFEN(fen)
	if err != nil {
		return nil, err
	}
	board := g.Position().Board()

	var out []OracleMove
	for _, m := range g.ValidMoves() {
		if from != "" && m.S1().String() != from {
			continue
		}
		captured := ""
		if m.HasTag(notnil.Capture) {
			if m.HasTag(notnil.EnPassant) {
				captured = "p"
			} else {
				captured = pieceLetter(board.Piece(m.S2()).Type())
			}
		}
		out = append(out, OracleMove{
			From:      m.S1().String(),
			To:        m.S2().String(),
			Promotion: pieceLetter(m.Promo()),
			Captured:  captured,
		})
	}
	return out, nil
}

func (e *Engine) Apply(fen string, mv OracleMove) (string, error) {
	g, err := gameFromFEN(fen)
	if err != nil {
		return "", err
	}
	for _, m := range g.ValidMoves() {
		if m.S1().String() != mv.From || m.S2().String() != mv.To {
			continue
		}
		if pieceLetter(m.Promo()) != mv.Promotion {
			continue
		}
		if err := g.Move(m); err != nil {
			return "", err
		}
		return g.Position().String(), nil
	}
	return "", fmt.Errorf("move %s-%s is not available in %q", mv.From, mv.To, fen)
}

func (e *Engine) SideToMove(fen string) (Seat, error) {
	g, err := gameFromFEN(fen)
	if err != nil {
		return "", err
	}
	if g.Position().Turn() == notnil.White {
		return SeatWhite, nil
	}
	return SeatBlack, nil
}

func (e *Engine) Evaluate(fen string) (Outcome, error) {
	g, err := gameFromFEN(fen)
	if err != nil {
		return OutcomeNone, err
	}

	switch g.Position().Status() {
	case notnil.Checkmate:
		return OutcomeCheckmate, nil
	case notnil.Stalemate:
		return OutcomeStalemate, nil
	}

	if onlyKings(g.Position().Board()) {
		return OutcomeDraw, nil
	}
	if clk, ok := halfMoveClock(fen); ok && clk >= 100 {
		return OutcomeDraw, nil
	}
	return OutcomeNone, nil
}

func onlyKings(board *notnil.Board) bool {
	for _, p := range board.SquareMap() {
		if p.Type() != notnil.King {
			return false
		}
	}
	return true
}

// halfMoveClock reads the fifty-move counter straight from the FEN; the
// room record keeps no other move-clock state.
func halfMoveClock(fen string) (int, bool) {
	fields := strings.Fields(fen)
	if len(fields) < 5 {
		return 0, false
	}
	clk, err := strconv.Atoi(fields[4])
	if err != nil {
		return 0, false
	}
	return clk, true
}
