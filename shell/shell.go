// Package shell is the interactive console: set up positions, ask the
// engine for moves and run autoplay matches.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"lukechampine.com/frand"

	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/config"
	"github.com/domino14/connectfour/equity"
	"github.com/domino14/connectfour/movegen"
	"github.com/domino14/connectfour/negamax"
	"github.com/domino14/connectfour/openingbook"
	"github.com/domino14/connectfour/stats"
)

const (
	SolveLog = "/tmp/solve-log.yaml"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errBusy              = errors.New("the engine is busy; use `solve stop` first")
)

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

type playedMove struct {
	col  int
	undo board.Undo
}

type ShellController struct {
	l          *readline.Instance
	config     *config.Config
	execPath   string
	gitVersion string
	out        io.Writer
	printer    *message.Printer

	board     *board.Board
	movegen   *movegen.ColumnGenerator
	evaluator *equity.ThreatEvaluator
	ttable    *negamax.TranspositionTable
	solver    *negamax.Solver[board.Undo]
	book      *openingbook.Book
	rng       negamax.Randomizer
	history   []playedMove

	busy        atomic.Bool
	solveCancel context.CancelFunc
	solveLog    *os.File

	autoplaying    atomic.Bool
	autoplayCancel context.CancelFunc

	nodeStats stats.Statistic
	timeStats stats.Statistic
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// NewShellController creates a controller with a fresh board sized from
// cfg. The readline instance is only created by Loop.
func NewShellController(cfg *config.Config, execPath, gitVersion string) *ShellController {
	sc := &ShellController{
		config:     cfg,
		execPath:   execPath,
		gitVersion: gitVersion,
		out:        os.Stdout,
		printer:    message.NewPrinter(language.English),
	}
	if seed := cfg.GetUint64(config.ConfigSeed); seed != 0 {
		var s [32]byte
		for i := 0; i < 8; i++ {
			s[i] = byte(seed >> (8 * i))
		}
		sc.rng = frand.NewCustom(s[:], 1024, 12)
	}
	if err := sc.initGame(cfg.GetInt(config.ConfigBoardWidth), cfg.GetInt(config.ConfigBoardHeight)); err != nil {
		log.Err(err).Msg("bad-board-config")
		if err := sc.initGame(board.DefaultWidth, board.DefaultHeight); err != nil {
			panic(err)
		}
	}
	if path := cfg.GetString(config.ConfigOpeningBookPath); path != "" {
		if _, err := sc.loadBook(path); err != nil {
			log.Err(err).Str("path", path).Msg("could-not-load-opening-book")
		}
	}
	return sc
}

// initGame replaces the board and everything bound to it. The
// transposition table survives if it is already allocated.
func (sc *ShellController) initGame(width, height int) error {
	b, err := board.NewGameWithDims(width, height)
	if err != nil {
		return err
	}
	sc.board = b
	sc.history = nil
	sc.movegen = movegen.NewColumnGenerator(b)
	sc.evaluator = equity.NewThreatEvaluator(b)
	if sc.ttable == nil {
		sc.ttable = sc.newTable()
	}
	sc.solver = negamax.NewSolver[board.Undo](b, sc.movegen, sc.evaluator, sc.ttable)
	if sc.book != nil {
		sc.solver.SetOpeningCache(sc.book)
	}
	sc.applyConfig()
	return nil
}

func (sc *ShellController) newTable() *negamax.TranspositionTable {
	if frac := sc.config.GetFloat64(config.ConfigTTFractionOfMem); frac > 0 {
		tt := negamax.NewTranspositionTable(1)
		tt.Reset(frac)
		return tt
	}
	return negamax.NewTranspositionTable(sc.config.GetInt(config.ConfigTTCapacity))
}

// applyConfig resets the search options to the configured ones.
func (sc *ShellController) applyConfig() {
	sc.solver.SetIterativeDeepening(sc.config.GetBool(config.ConfigIterativeDeepening))
	sc.solver.SetTranspositionTableOptim(sc.config.GetBool(config.ConfigTranspositionTable))
	sc.solver.SetFirstWinOptim(sc.config.GetBool(config.ConfigFirstWinOptim))
	sc.solver.SetNodeBudget(sc.config.GetUint64(config.ConfigNodeBudget))
	sc.solver.SetLogStream(nil)
	sc.movegen.SetTacticalOptim(sc.config.GetBool(config.ConfigTacticalMoves))
}

func (sc *ShellController) showMessage(msg string) {
	io.WriteString(sc.out, msg)
	io.WriteString(sc.out, "\n")
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	for idx := 1; idx < len(fields); idx++ {
		if strings.HasPrefix(fields[idx], "-") {
			// option
			if idx == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			key := fields[idx][1:]
			options[key] = append(options[key], fields[idx+1])
			idx++
			continue
		}
		args = append(args, fields[idx])
	}
	return &shellcmd{
		cmd:     cmd,
		args:    args,
		options: options,
	}, nil
}

func (sc *ShellController) standardModeSwitch(line string, sig chan os.Signal) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "exit", "bye":
		if sig != nil {
			sig <- syscall.SIGINT
		}
		return nil, errors.New("sending quit signal")
	case "help":
		return sc.help(cmd)
	case "new":
		return sc.newGame(cmd)
	case "play":
		return sc.play(cmd)
	case "undo":
		return sc.undo(cmd)
	case "show":
		return sc.show(cmd)
	case "gen":
		return sc.generate(cmd)
	case "eval":
		return sc.eval(cmd)
	case "solve":
		return sc.solve(cmd)
	case "bot":
		return sc.bot(cmd)
	case "book":
		return sc.openingBook(cmd)
	case "stats":
		return sc.stats(cmd)
	case "autoplay":
		return sc.autoplay(cmd)
	case "setconfig":
		return sc.setConfig(cmd)
	case "script":
		return sc.script(cmd)
	default:
		log.Debug().Msgf("command %v not found", cmd.cmd)
		return nil, fmt.Errorf("command %v not found", cmd.cmd)
	}
}

// Execute runs a single command line, as when the program is started with
// a command after its flags. A solve runs in the foreground here.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	var resp *Response
	cmd, err := extractFields(line)
	if err == nil && cmd.cmd == "solve" && len(cmd.args) == 0 {
		resp, err = sc.solveSync(cmd)
	} else {
		resp, err = sc.standardModeSwitch(line, sig)
	}
	if err != nil {
		sc.showError(err)
		return
	}
	if resp != nil && resp.message != "" {
		sc.showMessage(resp.message)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mconnectfour>\033[0m ",
		HistoryFile:     "/tmp/connectfour-readline.tmp",
		AutoComplete:    NewShellCompleter(sc),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		log.Err(err).Msg("could-not-start-readline")
		sig <- syscall.SIGINT
		return
	}
	sc.l = l
	sc.out = l.Stdout()
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			}
			continue
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		resp, err := sc.standardModeSwitch(line, sig)
		if err != nil {
			if line == "exit" || line == "bye" {
				break
			}
			sc.showError(err)
			continue
		}
		if resp != nil && resp.message != "" {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msg("exiting-readline-loop")
}

// Cleanup stops whatever is still running.
func (sc *ShellController) Cleanup() {
	if sc.solveCancel != nil {
		sc.solveCancel()
	}
	if sc.autoplayCancel != nil {
		sc.autoplayCancel()
	}
	if sc.solveLog != nil {
		sc.solveLog.Close()
	}
	log.Info().Msg("shell-cleanup-done")
}
