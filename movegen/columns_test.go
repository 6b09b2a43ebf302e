package movegen

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/game"
)

func TestCenterOrder(t *testing.T) {
	is := is.New(t)
	is.Equal(CenterOrder(7), []int{3, 2, 4, 1, 5, 0, 6})
	is.Equal(CenterOrder(4), []int{1, 2, 0, 3})
	is.Equal(CenterOrder(1), []int{0})
}

func TestGenAllEmptyBoard(t *testing.T) {
	is := is.New(t)
	b := board.NewGame()
	g := NewColumnGenerator(b)
	is.Equal(g.GenAll(), []int{3, 2, 4, 1, 5, 0, 6})
	is.Equal(g.Tactical(), game.TacticalNone)

	g.SetSortingParameter(SortByNone)
	is.Equal(g.GenAll(), []int{0, 1, 2, 3, 4, 5, 6})
}

func TestGenAllSkipsFullColumns(t *testing.T) {
	is := is.New(t)
	b := board.NewGame()
	is.NoErr(b.PlayMoves("333333"))
	g := NewColumnGenerator(b)
	is.Equal(g.GenAll(), []int{2, 4, 1, 5, 0, 6})
}

func TestForcedWin(t *testing.T) {
	is := is.New(t)
	b, err := board.FromMoves("001122")
	is.NoErr(err)
	g := NewColumnGenerator(b)
	is.Equal(g.GenAll(), []int{3})
	is.Equal(g.Tactical(), game.ForcedWin)

	g.SetTacticalOptim(false)
	is.Equal(len(g.GenAll()), 7)
	is.Equal(g.Tactical(), game.TacticalNone)
}

func TestForcedBlock(t *testing.T) {
	is := is.New(t)
	// Player2 has three stacked in column 1.
	b, err := board.FromMoves("010161")
	is.NoErr(err)
	g := NewColumnGenerator(b)
	is.Equal(g.GenAll(), []int{1})
	is.Equal(g.Tactical(), game.ForcedBlock)
	wins, blocks := g.ForcedCounts()
	is.Equal(wins, uint64(0))
	is.Equal(blocks, uint64(1))
}

func TestGeneratorFollowsBoard(t *testing.T) {
	is := is.New(t)
	b := board.NewGame()
	g := NewColumnGenerator(b)
	u, err := b.ApplyMove(3)
	is.NoErr(err)
	is.NoErr(b.PlayMoves("33333"))
	is.Equal(g.GenAll(), []int{2, 4, 1, 5, 0, 6})
	// Rewind everything back to the first snapshot.
	b.UndoMove(u)
	is.Equal(g.GenAll(), []int{3, 2, 4, 1, 5, 0, 6})
}
