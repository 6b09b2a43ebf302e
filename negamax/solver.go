// Package negamax chooses moves for two-player, zero-sum games by searching
// the game tree with negamax, alpha-beta pruning, a transposition table and
// iterative deepening.
package negamax

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/domino14/connectfour/game"
)

// thanks Wikipedia:
/*
function negamax(node, depth, α, β, color) is
    if depth = 0 or node is a terminal node then
        return color × the heuristic value of node

    childNodes := generateMoves(node)
    childNodes := orderMoves(childNodes)
    value := −∞
    foreach child in childNodes do
        value := max(value, −negamax(child, depth − 1, −β, −α, −color))
        α := max(α, value)
        if α ≥ β then
            break (* cut-off *)
    return value
(* Initial call for Player A's root node *)
negamax(rootNode, depth, −∞, +∞, 1)
**/

const HugeNumber = int16(32767)

// MaxDepth is the deepest search the table entries can describe.
const MaxDepth = depthMask

var (
	ErrTerminalPosition   = errors.New("position is terminal; there is no move to choose")
	ErrNodeBudgetExceeded = errors.New("node budget exceeded")
	ErrNoLegalMoves       = errors.New("no legal moves")
)

// Randomizer breaks ties between equally good moves. *frand.RNG satisfies
// it; seed one with frand.NewCustom for reproducible games.
type Randomizer interface {
	Intn(n int) int
}

type globalRandomizer struct{}

func (globalRandomizer) Intn(n int) int { return frand.Intn(n) }

// ScoredMove is a root move with the value it got in the last finished
// iteration. Exact is false when the value is only an upper bound, which
// happens for moves that were proven worse than the best one.
type ScoredMove struct {
	Move  int   `yaml:"move"`
	Value int16 `yaml:"value"`
	Exact bool  `yaml:"exact"`
}

// Solver searches a game.Game in place. The game, move generator and
// heuristic must all look at the same position object; the solver mutates
// it through paired ApplyMove / UndoMove calls and always leaves it the way
// it found it.
type Solver[U any] struct {
	game      game.Game[U]
	movegen   game.MoveGenerator
	heuristic game.Heuristic
	ttable    *TranspositionTable
	book      game.OpeningCache

	iterativeDeepeningOptim bool
	transpositionTableOptim bool
	// firstWinOptim stops searching siblings once a won line is found.
	firstWinOptim bool
	nodeBudget    uint64

	rootMoves      []ScoredMove
	bestValue      int16
	completedDepth int
	currentIDDepth int
	nodes          atomic.Uint64

	logStream io.Writer
}

// NewSolver creates a solver. tt may be nil, in which case the
// transposition table optimization is off until one is set.
func NewSolver[U any](g game.Game[U], mg game.MoveGenerator, h game.Heuristic,
	tt *TranspositionTable) *Solver[U] {

	return &Solver[U]{
		game:                    g,
		movegen:                 mg,
		heuristic:               h,
		ttable:                  tt,
		iterativeDeepeningOptim: true,
		transpositionTableOptim: tt != nil,
		firstWinOptim:           true,
	}
}

func (s *Solver[U]) SetIterativeDeepening(id bool) {
	s.iterativeDeepeningOptim = id
}

func (s *Solver[U]) SetTranspositionTableOptim(tt bool) {
	s.transpositionTableOptim = tt && s.ttable != nil
}

func (s *Solver[U]) SetTranspositionTable(tt *TranspositionTable) {
	s.ttable = tt
	s.transpositionTableOptim = tt != nil
}

func (s *Solver[U]) TranspositionTable() *TranspositionTable {
	return s.ttable
}

func (s *Solver[U]) SetFirstWinOptim(w bool) {
	s.firstWinOptim = w
}

// SetNodeBudget limits the number of nodes a single search may visit.
// Zero means no limit.
func (s *Solver[U]) SetNodeBudget(n uint64) {
	s.nodeBudget = n
}

func (s *Solver[U]) SetOpeningCache(c game.OpeningCache) {
	s.book = c
}

// SetLogStream makes the solver write every node it visits to w, as an
// indented tree. This is very slow; use it for tiny searches only.
func (s *Solver[U]) SetLogStream(w io.Writer) {
	s.logStream = w
}

// Nodes returns the number of nodes visited by the current or last search.
func (s *Solver[U]) Nodes() uint64 {
	return s.nodes.Load()
}

// RootMoves returns the root moves of the last finished iteration, best
// first.
func (s *Solver[U]) RootMoves() []ScoredMove {
	return s.rootMoves
}

// CompletedDepth is the depth of the last finished iteration.
func (s *Solver[U]) CompletedDepth() int {
	return s.completedDepth
}

func (s *Solver[U]) interrupted(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if s.nodeBudget > 0 && s.nodes.Load() > s.nodeBudget {
		return ErrNodeBudgetExceeded
	}
	return nil
}

// child applies m, searches the resulting position and takes m back, on
// every path out.
func (s *Solver[U]) child(ctx context.Context, m, depth int, α, β int16) (int16, error) {
	u, err := s.game.ApplyMove(m)
	if err != nil {
		return 0, err
	}
	defer s.game.UndoMove(u)
	s.nodes.Add(1)
	return s.negamax(ctx, depth, α, β)
}

func (s *Solver[U]) indent(depth int) string {
	return strings.Repeat(" ", 2*(s.currentIDDepth-depth))
}

func (s *Solver[U]) negamax(ctx context.Context, depth int, α, β int16) (int16, error) {
	if err := s.interrupted(ctx); err != nil {
		return 0, err
	}
	alphaOrig := α
	nodeKey := s.game.Key()
	ttMove := -1

	if s.transpositionTableOptim {
		ttEntry := s.ttable.lookup(nodeKey)
		if ttEntry.valid() && ttEntry.depth() >= uint8(depth) {
			score := ttEntry.score
			switch ttEntry.flag() {
			case TTExact:
				return score, nil
			case TTLower:
				α = max(α, score)
			case TTUpper:
				β = min(β, score)
			}
			if α >= β {
				return score, nil
			}
		}
		// search hash move first.
		ttMove = ttEntry.move()
	}

	if depth == 0 || s.game.IsTerminal() {
		return s.heuristic.Evaluate(s.game.SideToMove()), nil
	}

	children := s.movegen.GenAll()
	if ttMove >= 0 {
		if idx := lo.IndexOf(children, ttMove); idx > 0 {
			children[0], children[idx] = children[idx], children[0]
		}
	}

	bestValue := -HugeNumber
	bestMove := -1
	indent := s.indent(depth)
	if s.logStream != nil {
		fmt.Fprintf(s.logStream, "  %vplays:\n", indent)
	}
	for _, m := range children {
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "  %v- play: %v\n", indent, m)
		}
		value, err := s.child(ctx, m, depth-1, -β, -α)
		if err != nil {
			return 0, err
		}
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "  %v  value: %v\n", indent, -value)
		}
		if -value > bestValue {
			bestValue = -value
			bestMove = m
		}
		α = max(α, bestValue)
		if bestValue >= β {
			break // beta cut-off
		}
		if s.firstWinOptim && bestValue >= game.MaxScore {
			// nothing can beat a won line.
			break
		}
	}

	if s.transpositionTableOptim {
		var flag uint8
		if bestValue <= alphaOrig {
			flag = TTUpper
		} else if bestValue >= β {
			flag = TTLower
		} else {
			flag = TTExact
		}
		s.ttable.store(nodeKey, newEntry(bestValue, flag, depth, bestMove))
	}
	return bestValue, nil
}

// searchRoot scores every root move at the given depth. The window is kept
// just below the best value so far: a move that ties the best gets its exact
// value, and a worse move fails low, which is enough to rule it out.
func (s *Solver[U]) searchRoot(ctx context.Context, moves []int, depth int) ([]ScoredMove, int16, error) {
	scored := make([]ScoredMove, 0, len(moves))
	bestValue := -HugeNumber
	β := HugeNumber
	if s.logStream != nil {
		fmt.Fprintf(s.logStream, "  plays:\n")
	}
	for _, m := range moves {
		α := -HugeNumber
		if bestValue > -HugeNumber {
			α = bestValue - 1
		}
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "  - play: %v\n", m)
		}
		value, err := s.child(ctx, m, depth-1, -β, -α)
		if err != nil {
			return nil, 0, err
		}
		value = -value
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "    value: %v\n", value)
		}
		scored = append(scored, ScoredMove{Move: m, Value: value, Exact: value > α})
		bestValue = max(bestValue, value)
	}
	// Sort for the next iteration; the best moves are searched first.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Value > scored[j].Value
	})
	if s.transpositionTableOptim && len(scored) > 0 {
		s.ttable.store(s.game.Key(), newEntry(bestValue, TTExact, depth, scored[0].Move))
	}
	return scored, bestValue, nil
}

// iterativelyDeepen searches the root moves at depth 1, 2, ... plies. It
// stops early once a forced win is found. If every move loses at some
// depth, the result of the previous depth is kept, so the loss is put off
// as long as possible.
func (s *Solver[U]) iterativelyDeepen(ctx context.Context, moves []int, plies int) error {
	start := 1
	if !s.iterativeDeepeningOptim {
		start = plies
	}
	s.rootMoves = nil
	s.completedDepth = 0
	ordered := append([]int(nil), moves...)

	for p := start; p <= plies; p++ {
		log.Debug().Int("plies", p).Msg("deepening-iteratively")
		s.currentIDDepth = p
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "- ply: %d\n", p)
		}
		scored, val, err := s.searchRoot(ctx, ordered, p)
		if err != nil {
			return err
		}
		log.Debug().Int16("value", val).Int("ply", p).
			Uint64("nodes", s.nodes.Load()).Msg("best-val")

		if val <= -game.MaxScore && s.rootMoves != nil {
			log.Debug().Int("ply", p).Msg("all-moves-lose-keeping-previous-depth")
			return nil
		}
		s.rootMoves = scored
		s.bestValue = val
		s.completedDepth = p
		if val >= game.MaxScore || val <= -game.MaxScore {
			// The result can no longer change with more depth.
			return nil
		}
		ordered = lo.Map(scored, func(sm ScoredMove, _ int) int { return sm.Move })
	}
	return nil
}

// bestMoves returns the root moves tied for the best value, by column.
func (s *Solver[U]) bestMoves() []int {
	best := lo.FilterMap(s.rootMoves, func(sm ScoredMove, _ int) (int, bool) {
		return sm.Move, sm.Value == s.bestValue
	})
	sort.Ints(best)
	return best
}

func pick(moves []int, rng Randomizer) int {
	if rng == nil {
		rng = globalRandomizer{}
	}
	return moves[rng.Intn(len(moves))]
}

// ChooseMove picks a move for the side to move. The opening cache is
// consulted first; then a forced win or a single forced block is played
// without searching; otherwise the candidate moves are searched to
// maxDepth plies and one of the best ones is picked at random.
//
// If the search is cut short by ctx or the node budget after at least one
// iteration finished, the move from the deepest finished iteration is
// returned and the interruption is only logged.
func (s *Solver[U]) ChooseMove(ctx context.Context, maxDepth int, rng Randomizer) (int, error) {
	if s.game.IsTerminal() {
		return -1, ErrTerminalPosition
	}
	s.nodes.Store(0)
	legal := s.game.LegalMoves()
	if len(legal) == 0 {
		return -1, ErrNoLegalMoves
	}
	if s.book != nil {
		if moves, ok := s.book.Lookup(s.game.Key()); ok {
			moves = lo.Filter(moves, func(m int, _ int) bool { return lo.Contains(legal, m) })
			if len(moves) > 0 {
				log.Debug().Ints("book-moves", moves).Msg("opening-book-hit")
				return pick(moves, rng), nil
			}
		}
	}

	candidates := s.movegen.GenAll()
	tactical := s.movegen.Tactical()
	if len(candidates) == 0 {
		return -1, ErrNoLegalMoves
	}
	if tactical == game.ForcedWin || len(candidates) == 1 {
		log.Debug().Int("move", candidates[0]).Uint8("tactical", uint8(tactical)).
			Msg("forced-move")
		return candidates[0], nil
	}

	tstart := time.Now()
	err := s.iterativelyDeepen(ctx, candidates, min(max(maxDepth, 1), MaxDepth))
	if err != nil {
		if s.rootMoves == nil {
			return -1, err
		}
		log.Info().Err(err).Int("completed-depth", s.completedDepth).Msg("search-interrupted")
	}
	move := pick(s.bestMoves(), rng)
	log.Debug().
		Int("move", move).
		Int16("value", s.bestValue).
		Int("depth", s.completedDepth).
		Uint64("nodes", s.nodes.Load()).
		Float64("time-elapsed-sec", time.Since(tstart).Seconds()).
		Msg("choose-move-returning")
	return move, nil
}

// Solve runs an iteratively deepened search of every legal root move to
// the given number of plies, logging nodes per second while it runs. It
// returns the best value and the scored root moves of the deepest finished
// iteration, along with any error that stopped the search.
func (s *Solver[U]) Solve(ctx context.Context, plies int) (int16, []ScoredMove, error) {
	if s.game.IsTerminal() {
		return 0, nil, ErrTerminalPosition
	}
	moves := s.movegen.GenAll()
	if len(moves) == 0 {
		return 0, nil, ErrNoLegalMoves
	}
	log.Debug().Int("plies", plies).Msg("alphabeta-solve-config")
	tstart := time.Now()
	s.nodes.Store(0)

	g := &errgroup.Group{}
	done := make(chan bool)

	g.Go(func() error {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		var lastNodes uint64
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				nodes := s.nodes.Load()
				log.Debug().Uint64("nps", nodes-lastNodes).Msg("nodes-per-second")
				lastNodes = nodes
			}
		}
	})

	g.Go(func() error {
		err := s.iterativelyDeepen(ctx, moves, min(max(plies, 1), MaxDepth))
		done <- true
		return err
	})

	err := g.Wait()
	evt := log.Info().
		Uint64("nodes", s.nodes.Load()).
		Int("completed-depth", s.completedDepth).
		Float64("time-elapsed-sec", time.Since(tstart).Seconds())
	if s.transpositionTableOptim {
		st := s.ttable.Stats()
		evt = evt.Uint64("ttable-created", st.Created).
			Uint64("ttable-lookups", st.Lookups).
			Uint64("ttable-hits", st.Hits).
			Uint64("ttable-t2collisions", st.T2Collisions)
	}
	evt.Msg("solve-returning")

	return s.bestValue, s.rootMoves, err
}

// Value returns the negamax value of the current position searched to
// depth plies with a full window, from the side to move's point of view.
func (s *Solver[U]) Value(ctx context.Context, depth int) (int16, error) {
	s.currentIDDepth = depth
	return s.negamax(ctx, depth, -HugeNumber, HugeNumber)
}

// PrincipalVariation follows the best moves stored in the transposition
// table from the current position. It stops at the first position without
// a stored move, so it can be shorter than the search depth.
func (s *Solver[U]) PrincipalVariation(maxLen int) []int {
	if !s.transpositionTableOptim {
		return nil
	}
	var pv []int
	var undos []U
	for len(pv) < maxLen && !s.game.IsTerminal() {
		e := s.ttable.lookup(s.game.Key())
		if !e.valid() || e.move() < 0 {
			break
		}
		u, err := s.game.ApplyMove(e.move())
		if err != nil {
			break
		}
		pv = append(pv, e.move())
		undos = append(undos, u)
	}
	for i := len(undos) - 1; i >= 0; i-- {
		s.game.UndoMove(undos[i])
	}
	return pv
}
