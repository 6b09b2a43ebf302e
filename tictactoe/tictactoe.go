// Package tictactoe is a 3x3 bitboard game. It shares the searcher with
// Connect Four and is small enough to solve completely.
package tictactoe

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/samber/lo"

	"github.com/domino14/connectfour/game"
)

// Cells are numbered 0-8, row by row:
//
//	0 1 2
//	3 4 5
//	6 7 8

const allCells = uint16(1<<9 - 1)

var lines = [8]uint16{
	0b000000111, 0b000111000, 0b111000000, // rows
	0b001001001, 0b010010010, 0b100100100, // columns
	0b100010001, 0b001010100, // diagonals
}

// center, corners, edges
var cellOrder = []int{4, 0, 2, 6, 8, 1, 3, 5, 7}

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrGameOver    = errors.New("game is already over")
)

// Undo is the cell of the move to take back.
type Undo struct {
	cell int
}

type Board struct {
	discs  [2]uint16
	toMove game.Side
	winner game.Side
	count  int
}

func NewGame() *Board {
	return &Board{toMove: game.Player1}
}

func idx(s game.Side) int {
	if s == game.Player2 {
		return 1
	}
	return 0
}

func (b *Board) occupied() uint16 {
	return b.discs[0] | b.discs[1]
}

func (b *Board) LegalMoves() []int {
	free := allCells &^ b.occupied()
	moves := make([]int, 0, bits.OnesCount16(free))
	for free != 0 {
		moves = append(moves, bits.TrailingZeros16(free))
		free &= free - 1
	}
	return moves
}

func (b *Board) ApplyMove(cell int) (Undo, error) {
	if b.winner != game.NoSide {
		return Undo{}, ErrGameOver
	}
	if cell < 0 || cell > 8 || b.occupied()&(1<<cell) != 0 {
		return Undo{}, fmt.Errorf("%w: cell %d", ErrIllegalMove, cell)
	}
	i := idx(b.toMove)
	b.discs[i] |= 1 << cell
	b.count++
	if hasLine(b.discs[i]) {
		b.winner = b.toMove
	}
	b.toMove = b.toMove.Other()
	return Undo{cell: cell}, nil
}

func (b *Board) UndoMove(u Undo) {
	b.toMove = b.toMove.Other()
	b.discs[idx(b.toMove)] &^= 1 << u.cell
	b.count--
	b.winner = game.NoSide
}

func hasLine(p uint16) bool {
	for _, l := range lines {
		if p&l == l {
			return true
		}
	}
	return false
}

func (b *Board) IsTerminal() bool {
	return b.winner != game.NoSide || b.count == 9
}

func (b *Board) Winner() game.Side { return b.winner }

func (b *Board) SideToMove() game.Side { return b.toMove }

// Key packs both players' cells and the side to move. It is never zero.
func (b *Board) Key() uint64 {
	return uint64(b.discs[0]) | uint64(b.discs[1])<<9 | uint64(b.toMove)<<18
}

// winningCells returns the free cells that complete a line for p.
func (b *Board) winningCells(p uint16) uint16 {
	free := allCells &^ b.occupied()
	var r uint16
	for _, l := range lines {
		if bits.OnesCount16(p&l) == 2 {
			r |= l & free
		}
	}
	return r
}

// Evaluate scores the position for side: ±MaxScore when decided, otherwise
// the difference in lines each side could still complete.
func (b *Board) Evaluate(side game.Side) int16 {
	switch b.winner {
	case side:
		return game.MaxScore
	case side.Other():
		return -game.MaxScore
	}
	own, opp := b.discs[idx(side)], b.discs[idx(side.Other())]
	var score int16
	for _, l := range lines {
		if opp&l == 0 {
			score++
		}
		if own&l == 0 {
			score--
		}
	}
	return score
}

func (b *Board) String() string {
	var sb strings.Builder
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			bit := uint16(1) << (row*3 + col)
			switch {
			case b.discs[0]&bit != 0:
				sb.WriteByte('X')
			case b.discs[1]&bit != 0:
				sb.WriteByte('O')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteString(fmt.Sprintf(" %d%d%d\n", row*3, row*3+1, row*3+2))
	}
	return sb.String()
}

// Generator orders moves center first and cuts them down to an immediate
// win or the required blocks, the same way the Connect Four generator does.
type Generator struct {
	board    *Board
	tactical game.TacticalResult
}

func NewGenerator(b *Board) *Generator {
	return &Generator{board: b}
}

func (g *Generator) Tactical() game.TacticalResult {
	return g.tactical
}

func (g *Generator) GenAll() []int {
	b := g.board
	g.tactical = game.TacticalNone
	free := allCells &^ b.occupied()
	keep := free
	if win := b.winningCells(b.discs[idx(b.toMove)]); win != 0 {
		g.tactical = game.ForcedWin
		keep = win
	} else if block := b.winningCells(b.discs[idx(b.toMove.Other())]); block != 0 {
		g.tactical = game.ForcedBlock
		keep = block
	}
	moves := lo.Filter(cellOrder, func(c int, _ int) bool {
		return keep&(1<<c) != 0
	})
	if g.tactical == game.ForcedWin {
		return moves[:1]
	}
	return moves
}
