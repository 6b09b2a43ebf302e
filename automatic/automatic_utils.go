package automatic

// Data collection for automatic games: many computer vs computer games in
// parallel, summarized at the end.

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/game"
)

// LogHeader is the first line of an autoplay CSV log.
const LogHeader = "gameID,player1,player2,first,winner,plies,moves,p1nodes,p2nodes\n"

// DefaultTTCapacity is the per-bot table size used when none is given.
// Every game in flight holds two tables, so it is much smaller than the
// interactive default.
const DefaultTTCapacity = 1000003

var (
	ErrAlreadyPlaying = errors.New("games are already being played, please wait till complete")
	ErrBadParams      = errors.New("bad autoplay parameters")
)

var (
	CVCCounter *expvar.Int
	IsPlaying  *expvar.Int

	playing atomic.Bool
)

func init() {
	CVCCounter = expvar.NewInt("cvcCounter")
	IsPlaying = expvar.NewInt("isPlaying")
}

// Params describes an autoplay run.
type Params struct {
	Bots     [2]BotParams
	NumGames int
	// Threads is the number of games played at once; 0 means one per CPU.
	Threads int
	// RunID seeds every game of the run. Seeds, if given, are used instead.
	RunID string
	Seeds [][32]byte

	Width, Height int
	// AlternateFirst lets the second bot move first in odd-numbered games.
	AlternateFirst bool
	Book           game.OpeningCache
	TTCapacity     int
	// MoveTime limits every search. Games stop being reproducible with it.
	MoveTime time.Duration
}

func (p *Params) setDefaults() error {
	if p.NumGames < 1 {
		return fmt.Errorf("%w: need at least one game", ErrBadParams)
	}
	if p.Width == 0 {
		p.Width = board.DefaultWidth
	}
	if p.Height == 0 {
		p.Height = board.DefaultHeight
	}
	// moves are logged one digit per column.
	if p.Width > 10 {
		return fmt.Errorf("%w: width %d is too wide to log", ErrBadParams, p.Width)
	}
	if p.Threads < 1 {
		p.Threads = runtime.NumCPU()
	}
	if p.TTCapacity < 1 {
		p.TTCapacity = DefaultTTCapacity
	}
	for i := range p.Bots {
		if p.Bots[i].Name == "" {
			p.Bots[i].Name = fmt.Sprintf("bot%d", i+1)
		}
		if p.Bots[i].Depth < 1 {
			return fmt.Errorf("%w: %s needs a positive depth", ErrBadParams, p.Bots[i].Name)
		}
	}
	if p.Bots[0].Name == p.Bots[1].Name {
		p.Bots[0].Name += "-1"
		p.Bots[1].Name += "-2"
	}
	if p.RunID == "" && len(p.Seeds) == 0 {
		p.RunID = fmt.Sprintf("%016x", frand.Uint64n(1<<63))
	}
	return nil
}

func (p *Params) seed(gameID int) [32]byte {
	if len(p.Seeds) > 0 {
		return p.Seeds[gameID%len(p.Seeds)]
	}
	return GameSeed(p.RunID, gameID)
}

// PlayGames plays p.NumGames games, p.Threads at a time, writing one CSV
// line per finished game to logfile (which may be nil). If ctx is canceled
// or a game fails, the games finished so far are still summarized and
// returned along with the error.
func PlayGames(ctx context.Context, p Params, logfile io.Writer) (*Summary, error) {
	if err := p.setDefaults(); err != nil {
		return nil, err
	}
	if !playing.CompareAndSwap(false, true) {
		return nil, ErrAlreadyPlaying
	}
	defer playing.Store(false)
	IsPlaying.Set(1)
	defer IsPlaying.Set(0)
	CVCCounter.Set(0)

	log.Info().Int("games", p.NumGames).Int("threads", p.Threads).Str("run-id", p.RunID).
		Msg("starting-autoplay")
	tstart := time.Now()

	logChan := make(chan string, 100)
	loggerDone := make(chan struct{})
	go func() {
		defer close(loggerDone)
		if logfile == nil {
			for range logChan {
			}
			return
		}
		if _, err := io.WriteString(logfile, LogHeader); err != nil {
			log.Err(err).Msg("autoplay-log-write")
		}
		for msg := range logChan {
			if _, err := io.WriteString(logfile, msg); err != nil {
				log.Err(err).Msg("autoplay-log-write")
			}
		}
	}()

	results := make([]GameResult, p.NumGames)
	finished := make([]bool, p.NumGames)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Threads)

queue:
	for i := 0; i < p.NumGames; i++ {
		i := i
		select {
		case <-gctx.Done():
			log.Info().Int("queued", i).Msg("got-stop-signal")
			break queue
		default:
		}
		g.Go(func() error {
			r, err := NewGameRunner(p, logChan)
			if err != nil {
				return err
			}
			res, err := r.PlayGame(gctx, i, p.seed(i))
			if err != nil {
				return err
			}
			results[i] = res
			finished[i] = true
			CVCCounter.Add(1)
			if n := CVCCounter.Value(); n%100 == 0 {
				log.Info().Int64("games", n).Msg("autoplay-progress")
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		// canceled between games: nothing failed, but not every game ran.
		err = ctx.Err()
	}
	close(logChan)
	<-loggerDone

	played := lo.Filter(results, func(_ GameResult, i int) bool { return finished[i] })
	summary := Summarize([2]string{p.Bots[0].Name, p.Bots[1].Name}, played)
	log.Info().Int("played", summary.Games).
		Float64("time-elapsed-sec", time.Since(tstart).Seconds()).
		Msg("autoplay-done")
	return summary, err
}
