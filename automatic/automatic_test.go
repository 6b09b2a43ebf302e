package automatic

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/game"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func smallParams(games int) Params {
	return Params{
		Bots:           [2]BotParams{DefaultBot("deep", 6), DefaultBot("shallow", 2)},
		NumGames:       games,
		Threads:        3,
		RunID:          "test-run",
		Width:          5,
		Height:         4,
		AlternateFirst: true,
		TTCapacity:     10007,
	}
}

func TestPlayGameIsReproducible(t *testing.T) {
	is := is.New(t)
	p := smallParams(1)
	is.NoErr(p.setDefaults())

	r1, err := NewGameRunner(p, nil)
	is.NoErr(err)
	r2, err := NewGameRunner(p, nil)
	is.NoErr(err)

	for gameID := 0; gameID < 4; gameID++ {
		seed := GameSeed(p.RunID, gameID)
		a, err := r1.PlayGame(context.Background(), gameID, seed)
		is.NoErr(err)
		b, err := r2.PlayGame(context.Background(), gameID, seed)
		is.NoErr(err)
		is.Equal(a, b)

		// the logged moves replay to the same result.
		bd, err := board.NewGameWithDims(5, 4)
		is.NoErr(err)
		is.NoErr(bd.PlayMoves(a.Moves))
		is.True(bd.IsTerminal())
		is.Equal(bd.MoveCount(), a.Plies)
		switch bd.Winner() {
		case game.NoSide:
			is.Equal(a.Winner, "")
		case game.Player1:
			is.Equal(a.Winner, a.First)
		case game.Player2:
			is.True(a.Winner != "" && a.Winner != a.First)
		}
	}
}

func TestAlternateFirst(t *testing.T) {
	is := is.New(t)
	p := smallParams(1)
	is.NoErr(p.setDefaults())
	r, err := NewGameRunner(p, nil)
	is.NoErr(err)
	is.Equal(r.firstPlayer(0), 0)
	is.Equal(r.firstPlayer(1), 1)
	r.alternate = false
	is.Equal(r.firstPlayer(1), 0)
}

func TestPlayGames(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	summary, err := PlayGames(context.Background(), smallParams(6), &buf)
	is.NoErr(err)
	is.Equal(summary.Games, 6)
	is.Equal(summary.Bots[0].Name, "deep")
	is.Equal(summary.Bots[0].WentFirst, 3)
	is.Equal(summary.Bots[1].WentFirst, 3)
	is.Equal(summary.Bots[0].Wins+summary.Bots[1].Wins+summary.Draws, 6)
	is.True(summary.ScoreLow <= summary.Score && summary.Score <= summary.ScoreHigh)
	is.True(summary.MeanPlies >= 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	is.Equal(len(lines), 7)
	is.Equal(lines[0]+"\n", LogHeader)

	analyzed, err := AnalyzeLog(strings.NewReader(buf.String()))
	is.NoErr(err)
	is.Equal(analyzed.Games, summary.Games)
	is.Equal(analyzed.Bots, summary.Bots)
	is.Equal(analyzed.Draws, summary.Draws)
	is.Equal(analyzed.FirstMoverWins, summary.FirstMoverWins)
}

func TestPlayGamesSameRunSameGames(t *testing.T) {
	is := is.New(t)
	var a, b bytes.Buffer
	_, err := PlayGames(context.Background(), smallParams(4), &a)
	is.NoErr(err)
	p := smallParams(4)
	p.Threads = 1
	_, err = PlayGames(context.Background(), p, &b)
	is.NoErr(err)

	// games finish in any order; compare them sorted.
	sorted := func(s string) []string {
		lines := strings.Split(strings.TrimSpace(s), "\n")
		slices.Sort(lines)
		return lines
	}
	is.Equal(sorted(a.String()), sorted(b.String()))
}

func TestPlayGamesCanceled(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := PlayGames(ctx, smallParams(5), nil)
	is.True(errors.Is(err, context.Canceled))
	is.Equal(summary.Games, 0)
}

func TestBadParams(t *testing.T) {
	is := is.New(t)
	_, err := PlayGames(context.Background(), Params{}, nil)
	is.True(errors.Is(err, ErrBadParams))

	p := smallParams(1)
	p.Bots[1].Depth = 0
	_, err = PlayGames(context.Background(), p, nil)
	is.True(errors.Is(err, ErrBadParams))

	p = smallParams(1)
	p.Bots[1].Name = p.Bots[0].Name
	is.NoErr(p.setDefaults())
	is.Equal(p.Bots[0].Name, "deep-1")
	is.Equal(p.Bots[1].Name, "deep-2")
}

func TestSeeds(t *testing.T) {
	is := is.New(t)
	is.Equal(GameSeed("run", 3), GameSeed("run", 3))
	is.True(GameSeed("run", 3) != GameSeed("run", 4))
	is.True(GameSeed("run", 3) != GameSeed("other", 3))

	seeds := GenerateSeeds(5)
	path := filepath.Join(t.TempDir(), "seeds.txt")
	is.NoErr(SaveSeeds(seeds, path))
	loaded, err := LoadSeeds(path)
	is.NoErr(err)
	is.Equal(loaded, seeds)

	p := smallParams(1)
	p.Seeds = loaded
	is.Equal(p.seed(6), seeds[1])
}

func TestSummarize(t *testing.T) {
	is := is.New(t)
	results := []GameResult{
		{GameID: 0, First: "a", Winner: "a", Plies: 7, Nodes: [2]uint64{100, 50}},
		{GameID: 1, First: "b", Winner: "a", Plies: 9, Nodes: [2]uint64{100, 50}},
		{GameID: 2, First: "a", Winner: "", Plies: 42},
		{GameID: 3, First: "b", Winner: "b", Plies: 10},
	}
	s := Summarize([2]string{"a", "b"}, results)
	is.Equal(s.Games, 4)
	is.Equal(s.Bots[0].Wins, 2)
	is.Equal(s.Bots[1].Wins, 1)
	is.Equal(s.Bots[0].WentFirst, 2)
	is.Equal(s.Draws, 1)
	is.Equal(s.FirstMoverWins, 2)
	is.Equal(s.Score, 0.625)
	is.Equal(s.MeanPlies, 17.0)
	is.Equal(s.Bots[0].MeanNodes, 50.0)

	out := s.String()
	is.True(strings.Contains(out, "games: 4"))
	is.True(strings.Contains(out, "game length (plies):"))

	empty := Summarize([2]string{"a", "b"}, nil)
	is.Equal(empty.Games, 0)
	is.True(!strings.Contains(empty.String(), "game length"))
}

func TestAnalyzeBadLog(t *testing.T) {
	is := is.New(t)
	_, err := AnalyzeLog(strings.NewReader(LogHeader + "x,a,b,a,a,7,0000000,1,1\n"))
	is.True(errors.Is(err, ErrBadLogFile))
	_, err = AnalyzeLog(strings.NewReader("1,2,3\n"))
	is.True(errors.Is(err, ErrBadLogFile))
}
