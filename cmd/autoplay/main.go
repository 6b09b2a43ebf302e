// autoplay plays two engine configurations against each other and prints a
// summary of the match.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/domino14/connectfour/automatic"
	"github.com/domino14/connectfour/openingbook"
)

func main() {
	fs := pflag.NewFlagSet("autoplay", pflag.ExitOnError)
	games := fs.Int("games", 100, "number of games")
	threads := fs.Int("threads", 0, "games played in parallel; 0 for the number of CPUs")
	depth1 := fs.Int("depth1", 8, "search depth of the first bot")
	depth2 := fs.Int("depth2", 8, "search depth of the second bot")
	budget1 := fs.Uint64("nodes1", 0, "node budget per move of the first bot")
	budget2 := fs.Uint64("nodes2", 0, "node budget per move of the second bot")
	noTT2 := fs.Bool("no-tt2", false, "the second bot searches without a transposition table")
	width := fs.Int("width", 7, "board width")
	height := fs.Int("height", 6, "board height")
	alternate := fs.Bool("alternate", true, "alternate which bot moves first")
	moveTime := fs.Duration("move-time", 0, "time limit per move; 0 for none")
	runID := fs.String("run-id", "", "seeds are derived from this; random if empty")
	seedFile := fs.String("seed-file", "", "read per-game seeds from this file")
	saveSeeds := fs.String("save-seeds", "", "generate per-game seeds and write them to this file")
	bookPath := fs.String("book", "", "opening book both bots use")
	logFile := fs.String("logfile", "/tmp/autoplay.csv", "per-game CSV log")
	analyze := fs.String("analyze", "", "summarize an existing log instead of playing")
	debug := fs.Bool("debug", false, "debug logging")
	fs.Parse(os.Args[1:])

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if *analyze != "" {
		summary, err := automatic.AnalyzeLogFile(*analyze)
		if err != nil {
			log.Fatal().Err(err).Msg("analyze-failed")
		}
		fmt.Print(summary.String())
		return
	}

	p := automatic.Params{
		NumGames:       *games,
		Threads:        *threads,
		RunID:          *runID,
		Width:          *width,
		Height:         *height,
		AlternateFirst: *alternate,
		MoveTime:       *moveTime,
	}
	p.Bots[0] = automatic.DefaultBot(fmt.Sprintf("depth%d", *depth1), *depth1)
	p.Bots[0].NodeBudget = *budget1
	p.Bots[1] = automatic.DefaultBot(fmt.Sprintf("depth%d", *depth2), *depth2)
	p.Bots[1].NodeBudget = *budget2
	p.Bots[1].TranspositionTable = !*noTT2

	if *bookPath != "" {
		bk, err := openingbook.LoadFile(*bookPath, openingbook.Options{Width: *width, Height: *height})
		if err != nil {
			log.Fatal().Err(err).Msg("could-not-load-book")
		}
		p.Book = bk
		p.Bots[0].UseBook = true
		p.Bots[1].UseBook = true
	}

	var err error
	switch {
	case *seedFile != "":
		if p.Seeds, err = automatic.LoadSeeds(*seedFile); err != nil {
			log.Fatal().Err(err).Msg("could-not-load-seeds")
		}
	case *saveSeeds != "":
		p.Seeds = automatic.GenerateSeeds(*games)
		if err = automatic.SaveSeeds(p.Seeds, *saveSeeds); err != nil {
			log.Fatal().Err(err).Msg("could-not-save-seeds")
		}
	}

	f, err := os.Create(*logFile)
	if err != nil {
		log.Fatal().Err(err).Msg("could-not-create-log")
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tstart := time.Now()
	summary, err := automatic.PlayGames(ctx, p, f)
	if err != nil {
		log.Err(err).Msg("autoplay-stopped")
	}
	log.Info().Str("logfile", *logFile).Dur("elapsed", time.Since(tstart)).Msg("autoplay-done")
	if summary != nil {
		fmt.Print(summary.String())
	}
}
