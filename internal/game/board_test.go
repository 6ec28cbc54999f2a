package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSeatFor(t *testing.T) {
	assert.Equal(t, SeatX, SeatFor(0))
	assert.Equal(t, SeatO, SeatFor(1))
	assert.Equal(t, Seat(""), SeatFor(2))
	assert.Equal(t, Seat(""), SeatFor(-1))
}

func TestValidPosition(t *testing.T) {
	t.Run("Bounds", func(t *testing.T) {
		assert.True(t, ValidPosition(0))
		assert.True(t, ValidPosition(8))
		assert.False(t, ValidPosition(9))
		assert.False(t, ValidPosition(10))
		assert.False(t, ValidPosition(-1))
	})

	t.Run("MatchesCell", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			p := rapid.IntRange(-20, 20).Draw(t, "position")
			row, col := Cell(p)
			onBoard := row >= 0 && row < 3 && col >= 0 && col < 3 && p >= 0
			if ValidPosition(p) != onBoard {
				t.Fatalf("position %d: valid=%v but cell (%d,%d)", p, ValidPosition(p), row, col)
			}
		})
	})
}

func TestCell(t *testing.T) {
	row, col := Cell(0)
	assert.Equal(t, [2]int{0, 0}, [2]int{row, col})
	row, col = Cell(5)
	assert.Equal(t, [2]int{1, 2}, [2]int{row, col})
	row, col = Cell(8)
	assert.Equal(t, [2]int{2, 2}, [2]int{row, col})
}
