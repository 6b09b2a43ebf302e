package game

import "fmt"

// Side identifies one of the two players. NoSide is used for draws and for
// games that have not been decided yet.
type Side int8

const (
	NoSide Side = iota
	Player1
	Player2
)

// Other returns the opponent of s. The opponent of NoSide is NoSide.
func (s Side) Other() Side {
	switch s {
	case Player1:
		return Player2
	case Player2:
		return Player1
	}
	return NoSide
}

// Sign is +1 for Player1, -1 for Player2 and 0 otherwise. It is the negamax
// "color" of a side.
func (s Side) Sign() int16 {
	switch s {
	case Player1:
		return 1
	case Player2:
		return -1
	}
	return 0
}

func (s Side) String() string {
	switch s {
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	case NoSide:
		return "none"
	}
	return fmt.Sprintf("side(%d)", int8(s))
}

// Game is a two-player, perfect-information, zero-sum game that can be
// searched in place. U is the undo token returned by ApplyMove; restoring it
// with UndoMove is the only way to take a move back.
type Game[U any] interface {
	LegalMoves() []int
	ApplyMove(m int) (U, error)
	UndoMove(u U)
	IsTerminal() bool
	// Winner returns NoSide for a draw or an undecided game.
	Winner() Side
	SideToMove() Side
	// Key is a bijective encoding of the full position, including the
	// side to move. It is used as the transposition table key.
	Key() uint64
}

// MaxScore is the score of a won position. Every heuristic value is
// strictly inside (-MaxScore, MaxScore), and all scores fit in an int16.
const MaxScore = int16(10000)

// Heuristic scores a position. Evaluate returns the score from the point of
// view of side. Terminal positions must score ±MaxScore for the searcher
// that uses it.
type Heuristic interface {
	Evaluate(side Side) int16
}

// MoveGenerator produces the moves to search at a node, best-first.
// GenAll may return a strict subset of the legal moves when the position
// has a forced reply (an immediate win or a required block).
type MoveGenerator interface {
	GenAll() []int
	// Tactical reports whether the last GenAll call was cut down to a
	// forced win (ForcedWin) or forced blocks (ForcedBlock).
	Tactical() TacticalResult
}

// TacticalResult describes what the move generator's one-ply lookahead found.
type TacticalResult uint8

const (
	TacticalNone TacticalResult = iota
	ForcedWin
	ForcedBlock
)

// OpeningCache is a precomputed table of good moves, looked up by position
// key before any search is run.
type OpeningCache interface {
	Lookup(key uint64) ([]int, bool)
}
