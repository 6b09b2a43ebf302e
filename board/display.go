package board

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/domino14/connectfour/game"
)

const (
	Player1Disc = 'X'
	Player2Disc = 'O'
	EmptyCell   = '.'
)

// CellAt returns the owner of the cell at (col, row), with row 0 at the
// bottom.
func (b *Board) CellAt(col, row int) game.Side {
	bit := uint64(1) << (row + col*b.lane)
	if b.mask&bit == 0 {
		return game.NoSide
	}
	if b.Discs(game.Player1)&bit != 0 {
		return game.Player1
	}
	return game.Player2
}

// ToDisplayText renders the board with the top row first.
func (b *Board) ToDisplayText() string {
	var sb strings.Builder
	sb.WriteString("\n")
	for row := b.height - 1; row >= 0; row-- {
		sb.WriteString("|")
		for col := 0; col < b.width; col++ {
			c := EmptyCell
			switch b.CellAt(col, row) {
			case game.Player1:
				c = Player1Disc
			case game.Player2:
				c = Player2Disc
			}
			sb.WriteRune(c)
			sb.WriteString(" ")
		}
		sb.WriteString("|\n")
	}
	sb.WriteString(" ")
	for col := 0; col < b.width; col++ {
		sb.WriteString(fmt.Sprintf("%d ", col))
	}
	sb.WriteString("\n")
	switch {
	case b.winningState:
		sb.WriteString(fmt.Sprintf("%s wins after %d moves\n", b.Winner(), b.moveCount))
	case b.IsFull():
		sb.WriteString("draw\n")
	default:
		sb.WriteString(fmt.Sprintf("%s (%c) to move\n", b.toMove, discFor(b.toMove)))
	}
	return sb.String()
}

func (b *Board) String() string {
	return b.ToDisplayText()
}

func discFor(s game.Side) rune {
	if s == game.Player1 {
		return Player1Disc
	}
	return Player2Disc
}

// ParseMoves turns a move string such as "3344" or "3 3 4 4" into columns.
// Columns are zero-based single digits.
func ParseMoves(seq string) ([]int, error) {
	moves := make([]int, 0, len(seq))
	for i, c := range seq {
		switch {
		case unicode.IsSpace(c) || c == ',':
			continue
		case c >= '0' && c <= '9':
			moves = append(moves, int(c-'0'))
		default:
			return nil, fmt.Errorf("%w: bad character %q at index %d", ErrIllegalMove, c, i)
		}
	}
	return moves, nil
}

// PlayMoves applies a move string to the board. On error the board keeps
// the moves that were applied before the bad one.
func (b *Board) PlayMoves(seq string) error {
	moves, err := ParseMoves(seq)
	if err != nil {
		return err
	}
	for i, m := range moves {
		if _, err := b.ApplyMove(m); err != nil {
			return fmt.Errorf("move %d: %w", i+1, err)
		}
	}
	return nil
}

// FromMoves creates a standard board and plays seq on it.
func FromMoves(seq string) (*Board, error) {
	b := NewGame()
	if err := b.PlayMoves(seq); err != nil {
		return nil, err
	}
	return b, nil
}
