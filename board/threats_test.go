package board

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/connectfour/game"
)

func TestWinningMoves(t *testing.T) {
	is := is.New(t)
	b, err := FromMoves("001122")
	is.NoErr(err)
	is.Equal(b.CellColumns(b.WinningMoves()), []int{3})
	// Player2's open cell on row 1 of column 3 is not playable yet.
	is.Equal(b.ThreatenedCells(), uint64(0))
	is.Equal(CountCells(b.WinningCells(b.Discs(game.Player2))), 1)
}

func TestThreatenedCells(t *testing.T) {
	is := is.New(t)
	b, err := FromMoves("010161")
	is.NoErr(err)
	is.Equal(b.WinningMoves(), uint64(0))
	is.Equal(b.CellColumns(b.ThreatenedCells()), []int{1})
}

func TestPairCells(t *testing.T) {
	is := is.New(t)
	b, err := FromMoves("3344")
	is.NoErr(err)
	// xx__, __xx and _xx_ along row 0 reach columns 1, 2, 5 and 6.
	p1 := b.PairCells(b.Discs(game.Player1))
	is.Equal(b.CellColumns(p1), []int{1, 2, 5, 6})
	is.Equal(CountCells(p1), 4)
	is.Equal(CountCells(b.PairCells(b.Discs(game.Player2))), 4)

	b, err = FromMoves("2012313")
	is.NoErr(err)
	is.Equal(CountCells(b.PairCells(b.Discs(game.Player1))), 6)
	is.Equal(CountCells(b.PairCells(b.Discs(game.Player2))), 2)
	is.Equal(CountCells(b.WinningCells(b.Discs(game.Player1))), 1)
	is.Equal(b.CellColumns(b.ThreatenedCells()), []int{4})
}

func TestPlayableCells(t *testing.T) {
	is := is.New(t)
	b := NewGame()
	is.Equal(b.PlayableCells(), b.bottomMask)
	is.NoErr(b.PlayMoves("000000"))
	is.Equal(b.CellColumns(b.PlayableCells()), []int{1, 2, 3, 4, 5, 6})
	is.Equal(CountCells(b.EmptyCells()), 36)
}
