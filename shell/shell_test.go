package shell

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/config"
	"github.com/domino14/connectfour/game"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func newTestShell() (*ShellController, *bytes.Buffer) {
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigTTCapacity, 100003)
	cfg.Set(config.ConfigSeed, 42)
	sc := NewShellController(cfg, ".", "test")
	buf := &bytes.Buffer{}
	sc.out = buf
	return sc, buf
}

func run(t *testing.T, sc *ShellController, line string) string {
	t.Helper()
	r, err := sc.standardModeSwitch(line, nil)
	if err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	if r == nil {
		return ""
	}
	return r.message
}

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"autoplay -logfile /path/to/log.txt",
			&shellcmd{"autoplay", nil, CmdOptions{"logfile": {"/path/to/log.txt"}}},
			nil},
		{"solve stop",
			&shellcmd{"solve", []string{"stop"}, CmdOptions{}},
			nil},
		{"autoplay analyze log.csv -games 10 ",
			&shellcmd{"autoplay",
				[]string{"analyze", "log.csv"},
				CmdOptions{"games": {"10"}}},
			nil,
		},
		{`book load "my book.txt"`,
			&shellcmd{"book", []string{"load", "my book.txt"}, CmdOptions{}},
			nil},
		{"solve -plies 8 -plies 9",
			&shellcmd{"solve", nil, CmdOptions{"plies": {"8", "9"}}},
			nil},
		{"solve -plies",
			nil, errWrongOptionSyntax},
	}
	for _, t := range cases {
		cmd, err := extractFields(t.line)
		is.Equal(cmd, t.expCmd)
		is.Equal(err, t.expErr)
	}
}

func TestCmdOptions(t *testing.T) {
	is := is.New(t)
	opts := CmdOptions{"plies": {"8"}, "log": {"TRUE"}, "maxtime": {"90"}, "t2": {"1m"}}
	n, err := opts.IntDefault("plies", 3)
	is.NoErr(err)
	is.Equal(n, 8)
	n, err = opts.IntDefault("depth", 3)
	is.NoErr(err)
	is.Equal(n, 3)
	_, err = opts.Int("depth")
	is.True(err != nil)
	is.True(opts.Bool("log"))
	is.True(!opts.Bool("disable-tt"))
	d, err := opts.Duration("maxtime", 0)
	is.NoErr(err)
	is.Equal(d.Seconds(), 90.0)
	d, err = opts.Duration("t2", 0)
	is.NoErr(err)
	is.Equal(d.Seconds(), 60.0)
}

func TestPlayUndoShow(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell()
	run(t, sc, "play 3 3 4")
	is.True(strings.Contains(run(t, sc, "show"), "moves: 334"))
	run(t, sc, "undo 2")
	is.True(strings.Contains(run(t, sc, "show"), "moves: 3\n"))
	is.Equal(sc.board.MoveCount(), 1)

	_, err := sc.standardModeSwitch("undo 5", nil)
	is.True(err != nil)

	_, err = sc.standardModeSwitch("play 9", nil)
	is.True(errors.Is(err, board.ErrIllegalMove))

	_, err = sc.standardModeSwitch("frobnicate", nil)
	is.True(err != nil)
}

func TestNewGameSizes(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell()
	run(t, sc, "new 5 4")
	is.Equal(sc.board.Width(), 5)
	is.Equal(sc.board.Height(), 4)
	run(t, sc, "new -width 6")
	is.Equal(sc.board.Width(), 6)
	is.Equal(sc.board.Height(), 4)
	_, err := sc.standardModeSwitch("new 40 40", nil)
	is.True(errors.Is(err, board.ErrBadDims))
}

func TestGenAndEval(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell()
	run(t, sc, "play 001122")
	out := run(t, sc, "gen")
	is.True(strings.Contains(out, "candidates: [3]"))
	is.True(strings.Contains(out, "forced win"))

	out = run(t, sc, "eval")
	is.True(strings.Contains(out, "player1 to move"))
	is.True(strings.Contains(out, "threats: 1"))
}

func TestBotTakesWin(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell()
	run(t, sc, "play 001122")
	out := run(t, sc, "bot -depth 4")
	is.True(strings.HasPrefix(out, "bot plays 3"))
	is.Equal(sc.board.Winner(), game.Player1)
	is.True(!sc.busy.Load())

	_, err := sc.standardModeSwitch("bot", nil)
	is.True(err != nil)

	out = run(t, sc, "stats")
	is.True(strings.Contains(out, "nodes-per-search"))
	is.True(strings.Contains(out, "transposition-table"))
}

func TestSolveSync(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell()
	run(t, sc, "new 4 4")
	cmd, err := extractFields("solve -plies 16")
	is.NoErr(err)
	r, err := sc.solveSync(cmd)
	is.NoErr(err)
	is.True(strings.Contains(r.message, "value +0"))
	is.Equal(len(sc.solver.RootMoves()), 4)
	is.True(!sc.busy.Load())
	// the search leaves the position alone.
	is.Equal(sc.board.MoveCount(), 0)
}

func TestBusy(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell()
	_, err := sc.standardModeSwitch("solve stop", nil)
	is.True(err != nil)

	sc.busy.Store(true)
	for _, line := range []string{"play 3", "undo", "new", "gen", "eval", "bot", "solve"} {
		_, err := sc.standardModeSwitch(line, nil)
		is.True(errors.Is(err, errBusy))
	}
}

func TestHelp(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell()
	is.True(strings.Contains(run(t, sc, "help"), "Commands:"))
	is.True(strings.Contains(run(t, sc, "help solve"), "-disable-tt"))
	is.True(strings.Contains(run(t, sc, "help nothing"), "no help text"))
}

func TestOpeningBookCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell()
	path := filepath.Join(t.TempDir(), "book.txt")
	is.NoErr(os.WriteFile(path, []byte(`{"pos":"","score":[-1,-1,-1,0,-1,-1,-1]}`+"\n"), 0o644))

	is.Equal(run(t, sc, "book"), "no opening book loaded")
	is.True(strings.Contains(run(t, sc, "book load "+path), "loaded 1 positions"))
	is.Equal(run(t, sc, "book lookup"), "book moves: [3]")
	out := run(t, sc, "bot")
	is.True(strings.HasPrefix(out, "bot plays 3"))
	is.Equal(run(t, sc, "book off"), "opening book off")
}

func TestAutoplayAnalyze(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell()
	path := filepath.Join(t.TempDir(), "log.csv")
	log := "gameID,player1,player2,first,winner,plies,moves,p1nodes,p2nodes\n" +
		"0,a,b,a,a,7,0101010,10,10\n" +
		"1,a,b,b,,8,01234567,10,10\n"
	is.NoErr(os.WriteFile(path, []byte(log), 0o644))
	out := run(t, sc, "autoplay analyze "+path)
	is.True(strings.Contains(out, "games: 2"))
	is.True(strings.Contains(out, "draws: 1"))

	_, err := sc.standardModeSwitch("autoplay stop", nil)
	is.True(err != nil)
}

func TestScript(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell()
	script := `
local json = require("json")
c4_play("001122")
local col = c4_bot("-depth 2")
if col ~= 3 then error("expected 3, got " .. col) end
c4_new("4 4")
local out, moves = c4_solve("-plies 6")
local back = json.decode(json.encode(moves))
if #back ~= 4 then error("expected 4 root moves, got " .. #back) end
if string.find(c4_play("9"), "ERROR") == nil then error("expected an error") end
`
	path := filepath.Join(t.TempDir(), "test.lua")
	is.NoErr(os.WriteFile(path, []byte(script), 0o644))
	run(t, sc, "script "+path)
	is.Equal(sc.board.Width(), 4)
}

func TestCompleter(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell()
	c := NewShellCompleter(sc)

	m, n := c.Do([]rune("so"), 2)
	is.Equal(n, 2)
	is.Equal(m, [][]rune{[]rune("lve")})

	line := []rune("solve -disable-t")
	m, _ = c.Do(line, len(line))
	is.Equal(len(m), 2)

	line = []rune("solve -log ")
	m, _ = c.Do(line, len(line))
	is.Equal(m, [][]rune{[]rune("true"), []rune("false")})
}
