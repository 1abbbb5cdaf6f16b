package gomoku

// Size is the board edge length.
const Size = 16

// WinLength is the contiguous run required to win a round.
const WinLength = 5

// Mark is the content of one board cell.
type Mark string

const (
	MarkEmpty Mark = "."
	MarkX     Mark = "X"
	MarkO     Mark = "O"
)

// Board is the full grid, row major.
type Board [Size][Size]Mark

// NewBoard returns an all-empty board.
func NewBoard() Board {
	var b Board
	for r := range b {
		for c := range b[r] {
			b[r][c] = MarkEmpty
		}
	}
	return b
}

func inBounds(r, c int) bool {
	return r >= 0 && r < Size && c >= 0 && c < Size
}

// axes are the four scan directions: horizontal, vertical and the two
// diagonals. Each axis is walked both forward and backward from the
// placed cell.
var axes = [4][2]int{
	{0, 1},
	{1, 0},
	{1, 1},
	{1, -1},
}

// Wins reports whether the mark just placed at (row, col) completed a run
// of at least WinLength along any axis. The placed cell itself counts once.
func (b *Board) Wins(row, col int, mark Mark) bool {
	for _, axis := range axes {
		dr, dc := axis[0], axis[1]
		run := 1
		for r, c := row+dr, col+dc; inBounds(r, c) && b[r][c] == mark; r, c = r+dr, c+dc {
			run++
		}
		for r, c := row-dr, col-dc; inBounds(r, c) && b[r][c] == mark; r, c = r-dr, c-dc {
			run++
		}
		if run >= WinLength {
			return true
		}
	}
	return false
}

// Full reports whether no empty cell remains, i.e. the round is drawn if
// nobody has won.
func (b *Board) Full() bool {
	for r := range b {
		for c := range b[r] {
			if b[r][c] == MarkEmpty {
				return false
			}
		}
	}
	return true
}
