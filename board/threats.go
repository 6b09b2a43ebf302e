package board

import "math/bits"

// PlayableCells returns the cell each non-full column would receive next.
func (b *Board) PlayableCells() uint64 {
	return (b.mask + b.bottomMask) & b.boardMask
}

// EmptyCells returns every unoccupied cell on the board.
func (b *Board) EmptyCells() uint64 {
	return b.boardMask &^ b.mask
}

// WinningCells returns the empty cells that would complete a line for the
// owner of p. The cells need not be playable yet.
func (b *Board) WinningCells(p uint64) uint64 {
	// vertical: three discs directly below.
	r := (p << 1) & (p << 2) & (p << 3)

	for _, d := range [3]int{b.lane, b.height, b.height + 2} {
		// xxx_ and _xxx
		q := (p << d) & (p << (2 * d))
		r |= q & (p << (3 * d))
		r |= q & (p >> d)
		// x_xx and xx_x
		q = (p >> d) & (p >> (2 * d))
		r |= q & (p << d)
		r |= q & (p >> (3 * d))
	}
	return r & b.EmptyCells()
}

// PairCells returns the empty cells that extend two adjacent discs of p to
// a possible line of four (patterns xx__, __xx and _xx_).
func (b *Board) PairCells(p uint64) uint64 {
	empty := b.EmptyCells()
	var r uint64
	for _, d := range [4]int{1, b.lane, b.height, b.height + 2} {
		pair := p & (p >> d)
		// xx__
		c := pair & (empty >> (2 * d)) & (empty >> (3 * d))
		r |= (c << (2 * d)) | (c << (3 * d))
		// __xx
		c = pair & (empty << d) & (empty << (2 * d))
		r |= (c >> d) | (c >> (2 * d))
		// _xx_
		c = pair & (empty << d) & (empty >> (2 * d))
		r |= (c >> d) | (c << (2 * d))
	}
	return r & empty
}

// WinningMoves returns the playable cells that win on the spot for the side
// to move.
func (b *Board) WinningMoves() uint64 {
	return b.WinningCells(b.position^b.mask) & b.PlayableCells()
}

// ThreatenedCells returns the playable cells where the side that just moved
// would win if it could move again; the side to move must block them.
func (b *Board) ThreatenedCells() uint64 {
	return b.WinningCells(b.position) & b.PlayableCells()
}

// CellColumns converts a set of cells into the columns that hold them,
// left to right.
func (b *Board) CellColumns(cells uint64) []int {
	var cols []int
	for cells != 0 {
		idx := bits.TrailingZeros64(cells)
		col := idx / b.lane
		if len(cols) == 0 || cols[len(cols)-1] != col {
			cols = append(cols, col)
		}
		cells &= cells - 1
	}
	return cols
}

// CountCells is the number of cells in a set.
func CountCells(cells uint64) int {
	return bits.OnesCount64(cells)
}
