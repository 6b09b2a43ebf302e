// Package automatic plays computer-vs-computer games, for comparing search
// settings against each other.
package automatic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/equity"
	"github.com/domino14/connectfour/game"
	"github.com/domino14/connectfour/movegen"
	"github.com/domino14/connectfour/negamax"
)

// BotParams configures one computer player.
type BotParams struct {
	Name               string `yaml:"name"`
	Depth              int    `yaml:"depth"`
	Tactical           bool   `yaml:"tactical"`
	TranspositionTable bool   `yaml:"transposition-table"`
	IterativeDeepening bool   `yaml:"iterative-deepening"`
	NodeBudget         uint64 `yaml:"node-budget,omitempty"`
	UseBook            bool   `yaml:"use-book,omitempty"`
}

// DefaultBot is a bot with every search optimization turned on.
func DefaultBot(name string, depth int) BotParams {
	return BotParams{
		Name:               name,
		Depth:              depth,
		Tactical:           true,
		TranspositionTable: true,
		IterativeDeepening: true,
	}
}

// GameResult is the outcome of one game. Winner is empty for a draw.
type GameResult struct {
	GameID int
	First  string
	Winner string
	Plies  int
	Moves  string
	Nodes  [2]uint64
}

type aiplayer struct {
	params BotParams
	solver *negamax.Solver[board.Undo]
	ttable *negamax.TranspositionTable
}

// GameRunner owns one board and the two players that search it. A runner
// plays one game at a time; run several runners to play in parallel.
type GameRunner struct {
	board     *board.Board
	players   [2]*aiplayer
	alternate bool
	moveTime  time.Duration
	logchan   chan<- string
}

// NewGameRunner sets up a board and both players from p. Finished games
// are written to logchan as CSV lines if it is not nil.
func NewGameRunner(p Params, logchan chan<- string) (*GameRunner, error) {
	b, err := board.NewGameWithDims(p.Width, p.Height)
	if err != nil {
		return nil, err
	}
	r := &GameRunner{
		board:     b,
		alternate: p.AlternateFirst,
		moveTime:  p.MoveTime,
		logchan:   logchan,
	}
	for idx, bp := range p.Bots {
		mg := movegen.NewColumnGenerator(b)
		mg.SetTacticalOptim(bp.Tactical)
		var tt *negamax.TranspositionTable
		if bp.TranspositionTable {
			tt = negamax.NewTranspositionTable(p.TTCapacity)
		}
		s := negamax.NewSolver[board.Undo](b, mg, equity.NewThreatEvaluator(b), tt)
		s.SetIterativeDeepening(bp.IterativeDeepening)
		s.SetNodeBudget(bp.NodeBudget)
		if bp.UseBook && p.Book != nil {
			s.SetOpeningCache(p.Book)
		}
		r.players[idx] = &aiplayer{params: bp, solver: s, ttable: tt}
	}
	return r, nil
}

func (r *GameRunner) names() [2]string {
	return [2]string{r.players[0].params.Name, r.players[1].params.Name}
}

// firstPlayer is the index of the bot that moves first in game gameID.
func (r *GameRunner) firstPlayer(gameID int) int {
	if r.alternate && gameID%2 == 1 {
		return 1
	}
	return 0
}

// PlayGame plays a full game from the empty board. Ties between equally
// good moves are broken with an RNG seeded from seed, so the same seed and
// params always give the same game unless a move time limit is set.
func (r *GameRunner) PlayGame(ctx context.Context, gameID int, seed [32]byte) (GameResult, error) {
	r.board.Reset()
	for _, p := range r.players {
		if p.ttable != nil {
			p.ttable.Clear()
		}
	}
	rng := frand.NewCustom(seed[:], 1024, 12)
	first := r.firstPlayer(gameID)
	names := r.names()
	res := GameResult{GameID: gameID, First: names[first]}

	var moves strings.Builder
	for !r.board.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		onTurn := (first + r.board.MoveCount()) % 2
		p := r.players[onTurn]

		mctx, cancel := ctx, context.CancelFunc(func() {})
		if r.moveTime > 0 {
			mctx, cancel = context.WithTimeout(ctx, r.moveTime)
		}
		m, err := p.solver.ChooseMove(mctx, p.params.Depth, rng)
		cancel()
		if err != nil {
			return res, fmt.Errorf("game %d, ply %d: %w", gameID, r.board.MoveCount()+1, err)
		}
		if _, err := r.board.ApplyMove(m); err != nil {
			return res, fmt.Errorf("game %d: %w", gameID, err)
		}
		res.Nodes[onTurn] += p.solver.Nodes()
		moves.WriteByte(byte('0' + m))
	}

	res.Plies = r.board.MoveCount()
	res.Moves = moves.String()
	switch r.board.Winner() {
	case game.Player1:
		res.Winner = names[first]
	case game.Player2:
		res.Winner = names[1-first]
	}
	log.Debug().Int("game-id", gameID).Str("winner", res.Winner).Str("moves", res.Moves).
		Msg("game-over")

	if r.logchan != nil {
		r.logchan <- fmt.Sprintf("%d,%s,%s,%s,%s,%d,%s,%d,%d\n",
			res.GameID, names[0], names[1], res.First, res.Winner, res.Plies,
			res.Moves, res.Nodes[0], res.Nodes[1])
	}
	return res, nil
}
