package board

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/domino14/connectfour/game"
)

// A board is stored as two bitboards. Every column owns a lane of
// height+1 bits: height playable cells plus one guard bit on top, so that
// shifting by one cell in any direction can never carry a disc from one
// column into the next. For the standard 7x6 board:
//
//	  6 13 20 27 34 41 48   <- guard row
//	  5 12 19 26 33 40 47
//	  4 11 18 25 32 39 46
//	  3 10 17 24 31 38 45
//	  2  9 16 23 30 37 44
//	  1  8 15 22 29 36 43
//	  0  7 14 21 28 35 42
//
// position holds the discs of the side that made the last move, mask holds
// every disc on the board. The side to move owns position ^ mask.

const (
	DefaultWidth  = 7
	DefaultHeight = 6
	// InARow is the number of aligned discs needed to win.
	InARow = 4
)

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrGameOver    = errors.New("game is already over")
	ErrBadDims     = errors.New("bad board dimensions")
)

// Undo is a snapshot of the board taken before a move. Restoring it is the
// only supported way to take a move back.
type Undo struct {
	position  uint64
	mask      uint64
	moveCount int
}

// Board is a Connect Four position. It is meant to be created once per game
// and mutated in place by paired ApplyMove / UndoMove calls.
type Board struct {
	position     uint64
	mask         uint64
	moveCount    int
	toMove       game.Side
	winningState bool

	width  int
	height int
	// lane is height+1, the number of bits per column.
	lane       int
	bottomMask uint64
	boardMask  uint64
	topMask    uint64
}

// NewGame returns an empty standard 7x6 board with Player1 to move.
func NewGame() *Board {
	b, err := NewGameWithDims(DefaultWidth, DefaultHeight)
	if err != nil {
		// The default dimensions always fit.
		panic(err)
	}
	return b
}

// NewGameWithDims returns an empty board of the given size. The whole board,
// guard row included, must fit in a uint64.
func NewGameWithDims(width, height int) (*Board, error) {
	if width < 1 || height < 1 || width*(height+1) > 64 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadDims, width, height)
	}
	b := &Board{
		width:  width,
		height: height,
		lane:   height + 1,
		toMove: game.Player1,
	}
	for col := 0; col < width; col++ {
		b.bottomMask |= 1 << (col * b.lane)
	}
	b.boardMask = b.bottomMask * ((1 << height) - 1)
	b.topMask = b.bottomMask << (height - 1)
	return b, nil
}

func (b *Board) Width() int  { return b.width }
func (b *Board) Height() int { return b.height }

// Position is the bitboard of the side that made the last move.
func (b *Board) Position() uint64 { return b.position }

// Mask is the bitboard of all occupied cells.
func (b *Board) Mask() uint64 { return b.mask }

func (b *Board) MoveCount() int { return b.moveCount }

func (b *Board) SideToMove() game.Side { return b.toMove }

// IsWinningState is true when the last move completed a line.
func (b *Board) IsWinningState() bool { return b.winningState }

// IsFull is true when every cell is occupied.
func (b *Board) IsFull() bool { return b.moveCount == b.width*b.height }

func (b *Board) IsTerminal() bool {
	return b.winningState || b.IsFull()
}

// Winner returns the side that completed a line, or NoSide.
func (b *Board) Winner() game.Side {
	if !b.winningState {
		return game.NoSide
	}
	return b.toMove.Other()
}

// Discs returns the bitboard of the given side.
func (b *Board) Discs(side game.Side) uint64 {
	switch side {
	case b.toMove:
		return b.position ^ b.mask
	case b.toMove.Other():
		return b.position
	}
	return 0
}

// Key encodes the whole position. Adding bottomMask to position+mask
// leaves exactly one marker bit above the stack of each column, which makes
// the encoding bijective; it is also never zero.
func (b *Board) Key() uint64 {
	return b.position + b.mask + b.bottomMask
}

func (b *Board) columnMask(col int) uint64 {
	return ((1 << b.height) - 1) << (col * b.lane)
}

func (b *Board) bottomCell(col int) uint64 {
	return 1 << (col * b.lane)
}

func (b *Board) topCell(col int) uint64 {
	return 1 << (b.height - 1 + col*b.lane)
}

// CanPlay is true if col is on the board and not full. A column is full
// exactly when its next free cell would be the guard bit.
func (b *Board) CanPlay(col int) bool {
	return col >= 0 && col < b.width && b.mask&b.topCell(col) == 0
}

// LegalMoves returns the playable columns, left to right. It does not look
// at whether the game is already won; callers check IsTerminal first.
func (b *Board) LegalMoves() []int {
	moves := make([]int, 0, b.width)
	for col := 0; col < b.width; col++ {
		if b.mask&b.topCell(col) == 0 {
			moves = append(moves, col)
		}
	}
	return moves
}

// ApplyMove drops a disc for the side to move into col.
func (b *Board) ApplyMove(col int) (Undo, error) {
	if b.winningState {
		return Undo{}, ErrGameOver
	}
	if col < 0 || col >= b.width {
		return Undo{}, fmt.Errorf("%w: column %d is not on the board", ErrIllegalMove, col)
	}
	if b.mask&b.topCell(col) != 0 {
		return Undo{}, fmt.Errorf("%w: column %d is full", ErrIllegalMove, col)
	}
	u := Undo{position: b.position, mask: b.mask, moveCount: b.moveCount}
	b.mask |= b.mask + b.bottomCell(col)
	// The mover's discs are everything that is not the previous mover's.
	b.position ^= b.mask
	b.moveCount++
	b.toMove = b.toMove.Other()
	b.winningState = b.alignment(b.position)
	return u, nil
}

// UndoMove restores the snapshot taken by ApplyMove.
func (b *Board) UndoMove(u Undo) {
	b.position = u.position
	b.mask = u.mask
	b.moveCount = u.moveCount
	b.winningState = false
	if b.moveCount%2 == 0 {
		b.toMove = game.Player1
	} else {
		b.toMove = game.Player2
	}
}

// alignment reports whether p has InARow aligned discs. For each direction,
// m marks discs followed by another one d bits away; a second shift by 2d
// then finds four in a row with two ANDs.
func (b *Board) alignment(p uint64) bool {
	// horizontal
	m := p & (p >> b.lane)
	if m&(m>>(2*b.lane)) != 0 {
		return true
	}
	// diagonal, down-right
	d := b.height
	m = p & (p >> d)
	if m&(m>>(2*d)) != 0 {
		return true
	}
	// diagonal, up-right
	d = b.height + 2
	m = p & (p >> d)
	if m&(m>>(2*d)) != 0 {
		return true
	}
	// vertical
	m = p & (p >> 1)
	return m&(m>>2) != 0
}

// Reset empties the board.
func (b *Board) Reset() {
	b.position = 0
	b.mask = 0
	b.moveCount = 0
	b.toMove = game.Player1
	b.winningState = false
}

// Copy returns an independent copy of the board.
func (b *Board) Copy() *Board {
	c := *b
	return &c
}

// Equals compares the full state of two boards.
func (b *Board) Equals(o *Board) bool {
	return b.position == o.position && b.mask == o.mask &&
		b.moveCount == o.moveCount && b.toMove == o.toMove &&
		b.winningState == o.winningState && b.width == o.width &&
		b.height == o.height
}

// consistent checks the structural invariants: position is a subset of
// mask and every column is filled from the bottom up.
func (b *Board) consistent() bool {
	if b.position&^b.mask != 0 || b.mask&^b.boardMask != 0 {
		return false
	}
	if bits.OnesCount64(b.mask) != b.moveCount {
		return false
	}
	for col := 0; col < b.width; col++ {
		lane := (b.mask & b.columnMask(col)) >> (col * b.lane)
		if lane&(lane+1) != 0 {
			return false
		}
	}
	return true
}
