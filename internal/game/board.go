package game

// Seat is the role a player holds in a room, assigned by join order.
type Seat string

const (
	SeatX Seat = "X" // room creator
	SeatO Seat = "O" // second player
)

// Capacity is the number of seats in a room.
const Capacity = 2

// BoardCells is the number of cells on a 3x3 board. Positions are 0..8,
// row-major.
const BoardCells = 9

// SeatFor returns the seat assigned to the n-th admitted player (0-based).
// Anything past the second seat is invalid and returns "".
func SeatFor(n int) Seat {
	switch n {
	case 0:
		return SeatX
	case 1:
		return SeatO
	default:
		return ""
	}
}

// ValidPosition reports whether position addresses a cell on the board.
func ValidPosition(position int) bool {
	return position >= 0 && position < BoardCells
}

// Cell converts a board position into row and column.
func Cell(position int) (row, col int) {
	return position / 3, position % 3
}
