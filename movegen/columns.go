// Package movegen supplies the moves the searcher tries at each node,
// center columns first, optionally cut down to a forced win or block.
package movegen

import (
	"sort"

	"github.com/samber/lo"

	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/game"
)

type SortingParameter int

const (
	// SortByCenter tries the middle columns first; they take part in the
	// most lines, which gives earlier alpha-beta cutoffs.
	SortByCenter SortingParameter = iota
	SortByNone
)

// ColumnGenerator generates moves for a board. It keeps a pointer to the
// board, so it always sees the current position.
type ColumnGenerator struct {
	board         *board.Board
	centerOrder   []int
	sortParam     SortingParameter
	tacticalOptim bool
	lastTactical  game.TacticalResult

	forcedWins   uint64
	forcedBlocks uint64
}

// CenterOrder returns the columns of a board of the given width, closest to
// the center first; of two equally close columns the left one comes first.
// For width 7 this is 3, 2, 4, 1, 5, 0, 6.
func CenterOrder(width int) []int {
	order := lo.Range(width)
	center := float64(width-1) / 2
	sort.SliceStable(order, func(i, j int) bool {
		di := abs(float64(order[i]) - center)
		dj := abs(float64(order[j]) - center)
		return di < dj
	})
	return order
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func NewColumnGenerator(b *board.Board) *ColumnGenerator {
	return &ColumnGenerator{
		board:         b,
		centerOrder:   CenterOrder(b.Width()),
		tacticalOptim: true,
	}
}

func (g *ColumnGenerator) SetSortingParameter(s SortingParameter) {
	g.sortParam = s
}

// SetTacticalOptim turns the one-ply win/block lookahead on or off.
func (g *ColumnGenerator) SetTacticalOptim(t bool) {
	g.tacticalOptim = t
}

func (g *ColumnGenerator) Tactical() game.TacticalResult {
	return g.lastTactical
}

// ForcedCounts returns how many times GenAll returned a forced win and a
// forced block.
func (g *ColumnGenerator) ForcedCounts() (wins, blocks uint64) {
	return g.forcedWins, g.forcedBlocks
}

func (g *ColumnGenerator) ordered(keep func(col int) bool) []int {
	if g.sortParam == SortByNone {
		return lo.Filter(lo.Range(g.board.Width()), func(col int, _ int) bool {
			return keep(col)
		})
	}
	return lo.Filter(g.centerOrder, func(col int, _ int) bool {
		return keep(col)
	})
}

// GenAll returns the moves to search in the current position.
//
// With the tactical optimization on, a side that can win on the spot gets
// just that winning move, and a side facing an immediate threat gets only
// the blocking moves. If the opponent has two threats every block loses,
// but they are all still returned so the searcher sees the loss.
func (g *ColumnGenerator) GenAll() []int {
	g.lastTactical = game.TacticalNone
	if g.tacticalOptim {
		if win := g.board.WinningMoves(); win != 0 {
			g.lastTactical = game.ForcedWin
			g.forcedWins++
			cols := g.board.CellColumns(win)
			return g.ordered(func(col int) bool {
				return lo.Contains(cols, col)
			})[:1]
		}
		if threats := g.board.ThreatenedCells(); threats != 0 {
			g.lastTactical = game.ForcedBlock
			g.forcedBlocks++
			cols := g.board.CellColumns(threats)
			return g.ordered(func(col int) bool {
				return lo.Contains(cols, col)
			})
		}
	}
	return g.ordered(g.board.CanPlay)
}

// WinningMoves returns every column that wins on the spot, center first.
func (g *ColumnGenerator) WinningMoves() []int {
	cols := g.board.CellColumns(g.board.WinningMoves())
	return g.ordered(func(col int) bool {
		return lo.Contains(cols, col)
	})
}
