package equity

import (
	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/game"
)

const (
	ThreatWeight = 100
	PairWeight   = 1
)

// Components is the raw material of a heuristic score, from one side's
// point of view.
type Components struct {
	Threats    int `yaml:"threats"`
	OppThreats int `yaml:"opp_threats"`
	Pairs      int `yaml:"pairs"`
	OppPairs   int `yaml:"opp_pairs"`
}

// Score combines the components. Threats always dominate pairs: a board has
// fewer empty cells than ThreatWeight.
func (c Components) Score() int {
	return ThreatWeight*(c.Threats-c.OppThreats) + PairWeight*(c.Pairs-c.OppPairs)
}

// ThreatEvaluator scores Connect Four positions by counting open threats
// (empty cells that would complete a line) and pairs (two adjacent discs
// with room to grow into a line) for both sides.
type ThreatEvaluator struct {
	board *board.Board
}

func NewThreatEvaluator(b *board.Board) *ThreatEvaluator {
	return &ThreatEvaluator{board: b}
}

// Components counts threats and pairs for side and its opponent.
func (e *ThreatEvaluator) Components(side game.Side) Components {
	own := e.board.Discs(side)
	opp := e.board.Discs(side.Other())
	return Components{
		Threats:    board.CountCells(e.board.WinningCells(own)),
		OppThreats: board.CountCells(e.board.WinningCells(opp)),
		Pairs:      board.CountCells(e.board.PairCells(own)),
		OppPairs:   board.CountCells(e.board.PairCells(opp)),
	}
}

// Evaluate returns the score of the current position for side. Won
// positions score ±MaxScore and drawn ones 0; anything else is clamped to
// stay strictly inside that range.
func (e *ThreatEvaluator) Evaluate(side game.Side) int16 {
	if w := e.board.Winner(); w != game.NoSide {
		if w == side {
			return game.MaxScore
		}
		return -game.MaxScore
	}
	if e.board.IsFull() {
		return 0
	}
	return Clamp(e.Components(side).Score())
}

// Clamp squeezes a heuristic value into (-MaxScore, MaxScore).
func Clamp(v int) int16 {
	limit := int(game.MaxScore) - 1
	if v > limit {
		return int16(limit)
	}
	if v < -limit {
		return int16(-limit)
	}
	return int16(v)
}
