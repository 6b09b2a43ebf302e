package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/domino14/connectfour/automatic"
	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/config"
	"github.com/domino14/connectfour/game"
	"github.com/domino14/connectfour/negamax"
	"github.com/domino14/connectfour/openingbook"
	"github.com/domino14/connectfour/stats"
)

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

// Duration accepts either a Go duration ("1m30s") or a number of seconds.
func (c CmdOptions) Duration(key string, defaultD time.Duration) (time.Duration, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultD, nil
	}
	if secs, err := strconv.Atoi(v[0]); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v[0])
}

func (c CmdOptions) StringArray(key string) []string {
	return c[key]
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (sc *ShellController) setConfig(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) < 2 {
		return nil, errors.New("usage: setconfig <key> <value>")
	}
	key := cmd.args[0]
	value := cmd.args[1]
	sc.config.Set(key, value)

	err := sc.config.Write()
	if err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}
	if !sc.busy.Load() {
		sc.applyConfig()
	}
	return msg(fmt.Sprintf("set config %s to %s and saved to file", key, value)), nil
}

func (sc *ShellController) newGame(cmd *shellcmd) (*Response, error) {
	if sc.busy.Load() {
		return nil, errBusy
	}
	width, height := sc.board.Width(), sc.board.Height()
	var err error
	if len(cmd.args) == 2 {
		if width, err = strconv.Atoi(cmd.args[0]); err != nil {
			return nil, err
		}
		if height, err = strconv.Atoi(cmd.args[1]); err != nil {
			return nil, err
		}
	} else if len(cmd.args) != 0 {
		return nil, errors.New("usage: new [width height]")
	}
	if width, err = cmd.options.IntDefault("width", width); err != nil {
		return nil, err
	}
	if height, err = cmd.options.IntDefault("height", height); err != nil {
		return nil, err
	}
	if width != sc.board.Width() || height != sc.board.Height() {
		if sc.book != nil {
			sc.showMessage("opening book detached; it was made for another board size")
			sc.book = nil
		}
	}
	if err := sc.initGame(width, height); err != nil {
		return nil, err
	}
	sc.ttable.Clear()
	return msg(sc.board.ToDisplayText()), nil
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	if sc.busy.Load() {
		return nil, errBusy
	}
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: play <columns>, e.g. play 3 or play 3342")
	}
	moves, err := board.ParseMoves(strings.Join(cmd.args, " "))
	if err != nil {
		return nil, err
	}
	for _, m := range moves {
		if err := sc.commitMove(m); err != nil {
			return nil, err
		}
	}
	return msg(sc.board.ToDisplayText()), nil
}

func (sc *ShellController) commitMove(col int) error {
	u, err := sc.board.ApplyMove(col)
	if err != nil {
		return err
	}
	sc.history = append(sc.history, playedMove{col: col, undo: u})
	return nil
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	if sc.busy.Load() {
		return nil, errBusy
	}
	n := 1
	if len(cmd.args) > 0 {
		var err error
		if n, err = strconv.Atoi(cmd.args[0]); err != nil {
			return nil, err
		}
	}
	if n > len(sc.history) {
		return nil, fmt.Errorf("only %d moves to take back", len(sc.history))
	}
	for j := 0; j < n; j++ {
		last := sc.history[len(sc.history)-1]
		sc.board.UndoMove(last.undo)
		sc.history = sc.history[:len(sc.history)-1]
	}
	return msg(sc.board.ToDisplayText()), nil
}

func (sc *ShellController) moveString() string {
	var sb strings.Builder
	for _, m := range sc.history {
		sb.WriteString(strconv.Itoa(m.col))
	}
	return sb.String()
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	out := sc.board.ToDisplayText()
	if len(sc.history) > 0 {
		out += "moves: " + sc.moveString() + "\n"
	}
	return msg(out), nil
}

func tacticalName(t game.TacticalResult) string {
	switch t {
	case game.ForcedWin:
		return "forced win"
	case game.ForcedBlock:
		return "forced block"
	}
	return "none"
}

func (sc *ShellController) generate(cmd *shellcmd) (*Response, error) {
	if sc.busy.Load() {
		return nil, errBusy
	}
	if sc.board.IsTerminal() {
		return nil, negamax.ErrTerminalPosition
	}
	moves := sc.movegen.GenAll()
	return msg(fmt.Sprintf("legal: %v\ncandidates: %v\ntactical: %s",
		sc.board.LegalMoves(), moves, tacticalName(sc.movegen.Tactical()))), nil
}

func (sc *ShellController) eval(cmd *shellcmd) (*Response, error) {
	if sc.busy.Load() {
		return nil, errBusy
	}
	side := sc.board.SideToMove()
	comps := sc.evaluator.Components(side)
	out, err := yaml.Marshal(comps)
	if err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("%s to move\n%sscore: %d", side, out, sc.evaluator.Evaluate(side))), nil
}

type solveParams struct {
	plies   int
	maxtime time.Duration
	ctx     context.Context
}

// solvePrepare parses options and sets up the solver for one search.
func (sc *ShellController) solvePrepare(cmd *shellcmd) (*solveParams, error) {
	if sc.board.IsTerminal() {
		return nil, negamax.ErrTerminalPosition
	}
	if !sc.busy.CompareAndSwap(false, true) {
		return nil, errBusy
	}
	params, err := sc.solveOptions(cmd)
	if err != nil {
		sc.busy.Store(false)
		return nil, err
	}
	return params, nil
}

func (sc *ShellController) solveOptions(cmd *shellcmd) (*solveParams, error) {
	var err error
	params := &solveParams{}
	if params.plies, err = cmd.options.IntDefault("plies", sc.config.GetInt(config.ConfigSearchDepth)); err != nil {
		return nil, err
	}
	if params.maxtime, err = cmd.options.Duration("maxtime", sc.config.GetDuration(config.ConfigMaxTime)); err != nil {
		return nil, err
	}
	sc.applyConfig()
	if cmd.options.Bool("disable-id") {
		sc.solver.SetIterativeDeepening(false)
	}
	if cmd.options.Bool("disable-tt") {
		sc.solver.SetTranspositionTableOptim(false)
	}
	if cmd.options.Bool("disable-tactical") {
		sc.movegen.SetTacticalOptim(false)
	}
	if cmd.options.Bool("log") {
		sc.solveLog, err = os.Create(SolveLog)
		if err != nil {
			return nil, err
		}
		sc.solver.SetLogStream(sc.solveLog)
		sc.showMessage("solve will log to " + SolveLog)
	}

	if params.maxtime > 0 {
		params.ctx, sc.solveCancel = context.WithTimeout(context.Background(), params.maxtime)
	} else {
		params.ctx, sc.solveCancel = context.WithCancel(context.Background())
	}
	sc.showMessage(fmt.Sprintf("plies %v, maxtime %v", params.plies, params.maxtime))
	return params, nil
}

func verdict(v int16) string {
	switch {
	case v >= game.MaxScore:
		return "win"
	case v <= -game.MaxScore:
		return "loss"
	}
	return "heuristic"
}

// finishSearch releases the engine after a search.
func (sc *ShellController) finishSearch() {
	sc.solveCancel()
	if sc.solveLog != nil {
		sc.solveLog.Close()
		sc.solveLog = nil
	}
	sc.solver.SetLogStream(nil)
	sc.busy.Store(false)
}

// solveRunSync runs the solver and formats its result.
func (sc *ShellController) solveRunSync(params *solveParams) (string, error) {
	defer sc.finishSearch()

	tstart := time.Now()
	val, moves, err := sc.solver.Solve(params.ctx, params.plies)
	elapsed := time.Since(tstart)
	if err != nil && moves == nil {
		return "", err
	}
	sc.nodeStats.Push(float64(sc.solver.Nodes()))
	sc.timeStats.Push(elapsed.Seconds())

	var result strings.Builder
	if err != nil {
		fmt.Fprintf(&result, "search stopped (%v); showing depth %d\n", err, sc.solver.CompletedDepth())
	}
	fmt.Fprintf(&result, "%s to move, value %+d (%s) at depth %d\n",
		sc.board.SideToMove(), val, verdict(val), sc.solver.CompletedDepth())
	result.WriteString("move  value  exact\n")
	for _, m := range moves {
		fmt.Fprintf(&result, "%4d  %+5d  %v\n", m.Move, m.Value, m.Exact)
	}
	if pv := sc.solver.PrincipalVariation(sc.solver.CompletedDepth()); len(pv) > 0 {
		fmt.Fprintf(&result, "principal variation: %v\n", pv)
	}
	result.WriteString(sc.printer.Sprintf("nodes: %d in %.2fs (%.0f nodes/s)\n",
		sc.solver.Nodes(), elapsed.Seconds(), float64(sc.solver.Nodes())/max(elapsed.Seconds(), 1e-9)))
	return result.String(), nil
}

// solveSync runs a search synchronously and returns the result. This is
// the method scripts use.
func (sc *ShellController) solveSync(cmd *shellcmd) (*Response, error) {
	params, err := sc.solvePrepare(cmd)
	if err != nil {
		return nil, err
	}
	result, err := sc.solveRunSync(params)
	if err != nil {
		return nil, err
	}
	return msg(result), nil
}

// solve runs a search in the background (for interactive shell use).
func (sc *ShellController) solve(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) > 0 && cmd.args[0] == "stop" {
		if !sc.busy.Load() || sc.solveCancel == nil {
			return nil, errors.New("no search to stop")
		}
		sc.solveCancel()
		return msg(""), nil
	}
	params, err := sc.solvePrepare(cmd)
	if err != nil {
		return nil, err
	}
	sc.showMessage(sc.board.ToDisplayText())
	go func() {
		result, err := sc.solveRunSync(params)
		if err != nil {
			sc.showError(err)
			return
		}
		sc.showMessage(result)
	}()
	return msg(""), nil
}

// bot asks the engine for a move and plays it.
func (sc *ShellController) bot(cmd *shellcmd) (*Response, error) {
	if sc.board.IsTerminal() {
		return nil, negamax.ErrTerminalPosition
	}
	params, err := sc.solvePrepare(cmd)
	if err != nil {
		return nil, err
	}
	defer sc.finishSearch()
	if params.plies, err = cmd.options.IntDefault("depth", params.plies); err != nil {
		return nil, err
	}
	tstart := time.Now()
	m, err := sc.solver.ChooseMove(params.ctx, params.plies, sc.rng)
	if err != nil {
		return nil, err
	}
	sc.nodeStats.Push(float64(sc.solver.Nodes()))
	sc.timeStats.Push(time.Since(tstart).Seconds())
	if err := sc.commitMove(m); err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("bot plays %d\n%s", m, sc.board.ToDisplayText())), nil
}

func (sc *ShellController) loadBook(path string) (*openingbook.Book, error) {
	bk, err := openingbook.Get(sc.config, path)
	if err != nil {
		return nil, err
	}
	sc.book = bk
	sc.solver.SetOpeningCache(bk)
	return bk, nil
}

func (sc *ShellController) openingBook(cmd *shellcmd) (*Response, error) {
	if sc.busy.Load() {
		return nil, errBusy
	}
	if len(cmd.args) == 0 {
		if sc.book == nil {
			return msg("no opening book loaded"), nil
		}
		return msg(sc.printer.Sprintf("opening book with %d positions (%d skipped)",
			sc.book.Len(), sc.book.Skipped())), nil
	}
	switch cmd.args[0] {
	case "load":
		if len(cmd.args) < 2 {
			return nil, errors.New("usage: book load <path>")
		}
		bk, err := sc.loadBook(cmd.args[1])
		if err != nil {
			return nil, err
		}
		return msg(sc.printer.Sprintf("loaded %d positions", bk.Len())), nil
	case "off":
		sc.book = nil
		sc.solver.SetOpeningCache(nil)
		return msg("opening book off"), nil
	case "lookup":
		if sc.book == nil {
			return nil, errors.New("no opening book loaded")
		}
		moves, ok := sc.book.Lookup(sc.board.Key())
		if !ok {
			return msg("position not in book"), nil
		}
		return msg(fmt.Sprintf("book moves: %v", moves)), nil
	}
	return nil, fmt.Errorf("unknown book subcommand %s", cmd.args[0])
}

type statsReport struct {
	Searches    stats.Summary        `yaml:"nodes-per-search"`
	SearchTime  stats.Summary        `yaml:"seconds-per-search"`
	NodesStdErr float64              `yaml:"nodes-standard-error"`
	TTable      negamax.TableStats   `yaml:"transposition-table"`
	LastRoot    []negamax.ScoredMove `yaml:"last-root-moves,omitempty"`
}

func (sc *ShellController) stats(cmd *shellcmd) (*Response, error) {
	rep := statsReport{
		Searches:    sc.nodeStats.Summary(),
		SearchTime:  sc.timeStats.Summary(),
		NodesStdErr: sc.nodeStats.StandardError(),
		TTable:      sc.ttable.Stats(),
	}
	if !sc.busy.Load() {
		rep.LastRoot = sc.solver.RootMoves()
	}
	out, err := yaml.Marshal(rep)
	if err != nil {
		return nil, err
	}
	if len(cmd.args) > 0 && cmd.args[0] == "reset" {
		sc.nodeStats = stats.Statistic{}
		sc.timeStats = stats.Statistic{}
	}
	return msg(string(out)), nil
}

func (sc *ShellController) autoplayParams(cmd *shellcmd) (automatic.Params, string, error) {
	var err error
	p := automatic.Params{
		Width:          sc.board.Width(),
		Height:         sc.board.Height(),
		AlternateFirst: true,
		Threads:        sc.config.GetInt(config.ConfigAutoplayThreads),
		RunID:          cmd.options.String("runid"),
	}
	depth := sc.config.GetInt(config.ConfigSearchDepth)
	if p.NumGames, err = cmd.options.IntDefault("games", 100); err != nil {
		return p, "", err
	}
	if p.Threads, err = cmd.options.IntDefault("threads", p.Threads); err != nil {
		return p, "", err
	}
	for i := range p.Bots {
		key := "depth" + strconv.Itoa(i+1)
		d, err := cmd.options.IntDefault(key, depth)
		if err != nil {
			return p, "", err
		}
		p.Bots[i] = automatic.DefaultBot(fmt.Sprintf("depth%d", d), d)
		p.Bots[i].UseBook = sc.book != nil
	}
	if p.MoveTime, err = cmd.options.Duration("maxtime", 0); err != nil {
		return p, "", err
	}
	if s := cmd.options.String("alternate"); s != "" {
		p.AlternateFirst = cmd.options.Bool("alternate")
	}
	if sc.book != nil {
		p.Book = sc.book
	}
	if seedfile := cmd.options.String("seedfile"); seedfile != "" {
		if p.Seeds, err = automatic.LoadSeeds(seedfile); err != nil {
			return p, "", err
		}
	}
	logfile := cmd.options.String("logfile")
	if logfile == "" {
		logfile = "/tmp/autoplay.csv"
	}
	return p, logfile, nil
}

func (sc *ShellController) autoplay(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) > 0 {
		switch cmd.args[0] {
		case "stop":
			if !sc.autoplaying.Load() || sc.autoplayCancel == nil {
				return nil, errors.New("no autoplay to stop")
			}
			sc.autoplayCancel()
			return msg("stopping autoplay"), nil
		case "analyze":
			if len(cmd.args) < 2 {
				return nil, errors.New("usage: autoplay analyze <logfile>")
			}
			summary, err := automatic.AnalyzeLogFile(cmd.args[1])
			if err != nil {
				return nil, err
			}
			return msg(summary.String()), nil
		}
		return nil, fmt.Errorf("unknown autoplay subcommand %s", cmd.args[0])
	}

	p, logfile, err := sc.autoplayParams(cmd)
	if err != nil {
		return nil, err
	}
	if !sc.autoplaying.CompareAndSwap(false, true) {
		return nil, automatic.ErrAlreadyPlaying
	}
	f, err := os.Create(logfile)
	if err != nil {
		sc.autoplaying.Store(false)
		return nil, err
	}
	var ctx context.Context
	ctx, sc.autoplayCancel = context.WithCancel(context.Background())

	go func() {
		defer sc.autoplaying.Store(false)
		defer f.Close()
		summary, err := automatic.PlayGames(ctx, p, f)
		if err != nil {
			log.Err(err).Msg("autoplay-stopped")
		}
		if summary != nil {
			sc.showMessage(summary.String())
		}
	}()
	return msg(sc.printer.Sprintf("playing %d games, logging to %s", p.NumGames, logfile)), nil
}
