package shell

import (
	"errors"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

func getShell(L *lua.LState) *ShellController {
	shell := L.GetGlobal("c4_shell")
	ud, ok := shell.(*lua.LUserData)
	if !ok {
		panic("luserdata not right type")
	}
	sc, ok := ud.Value.(*ShellController)
	if !ok {
		panic("shellcontroller not right type")
	}
	return sc
}

// runLine runs a shell command for a script and pushes its output, or an
// ERROR string if it failed.
func runLine(L *lua.LState, name string, run func(*ShellController, *shellcmd) (*Response, error)) int {
	line := name + " " + L.OptString(1, "")
	sc := getShell(L)
	cmd, err := extractFields(line)
	if err == nil {
		var r *Response
		r, err = run(sc, cmd)
		if err == nil {
			if r == nil {
				r = msg("")
			}
			L.Push(lua.LString(r.message))
			return 1
		}
	}
	log.Err(err).Msg("error-executing-" + name)
	L.Push(lua.LString("ERROR: " + err.Error()))
	return 1
}

func New(L *lua.LState) int {
	return runLine(L, "new", (*ShellController).newGame)
}

func Play(L *lua.LState) int {
	return runLine(L, "play", (*ShellController).play)
}

func Undo(L *lua.LState) int {
	return runLine(L, "undo", (*ShellController).undo)
}

func Show(L *lua.LState) int {
	return runLine(L, "show", (*ShellController).show)
}

func Eval(L *lua.LState) int {
	return runLine(L, "eval", (*ShellController).eval)
}

// Bot plays the engine's move and returns its column, or -1 on error.
func Bot(L *lua.LState) int {
	sc := getShell(L)
	cmd, err := extractFields("bot " + L.OptString(1, ""))
	if err == nil {
		_, err = sc.bot(cmd)
	}
	if err != nil {
		log.Err(err).Msg("error-executing-bot")
		L.Push(lua.LNumber(-1))
		return 1
	}
	L.Push(lua.LNumber(sc.history[len(sc.history)-1].col))
	return 1
}

// Solve runs a search to completion. It returns the text output and a table
// of the scored root moves.
func Solve(L *lua.LState) int {
	sc := getShell(L)
	cmd, err := extractFields("solve " + L.OptString(1, ""))
	if err != nil {
		L.Push(lua.LString("ERROR: " + err.Error()))
		return 1
	}
	r, err := sc.solveSync(cmd)
	if err != nil {
		log.Err(err).Msg("error-executing-solve")
		L.Push(lua.LString("ERROR: " + err.Error()))
		return 1
	}
	moves := L.NewTable()
	for _, m := range sc.solver.RootMoves() {
		t := L.NewTable()
		L.SetField(t, "move", lua.LNumber(m.Move))
		L.SetField(t, "value", lua.LNumber(m.Value))
		L.SetField(t, "exact", lua.LBool(m.Exact))
		moves.Append(t)
	}
	L.Push(lua.LString(r.message))
	L.Push(moves)
	return 2
}

// Set changes a setting for this session only.
func Set(L *lua.LState) int {
	sc := getShell(L)
	sc.config.Set(L.CheckString(1), L.CheckString(2))
	if !sc.busy.Load() {
		sc.applyConfig()
	}
	return 0
}

func (sc *ShellController) newLuaState() *lua.LState {
	L := lua.NewState()
	luajson.Preload(L)

	lsc := L.NewUserData()
	lsc.Value = sc

	L.SetGlobal("c4_shell", lsc)
	L.SetGlobal("c4_new", L.NewFunction(New))
	L.SetGlobal("c4_play", L.NewFunction(Play))
	L.SetGlobal("c4_undo", L.NewFunction(Undo))
	L.SetGlobal("c4_show", L.NewFunction(Show))
	L.SetGlobal("c4_eval", L.NewFunction(Eval))
	L.SetGlobal("c4_bot", L.NewFunction(Bot))
	L.SetGlobal("c4_solve", L.NewFunction(Solve))
	L.SetGlobal("c4_set", L.NewFunction(Set))
	return L
}

func (sc *ShellController) script(cmd *shellcmd) (*Response, error) {
	if cmd.args == nil {
		return nil, errors.New("need arguments for script")
	}
	filepath := cmd.args[0]

	L := sc.newLuaState()
	defer L.Close()

	if err := L.DoFile(filepath); err != nil {
		log.Err(err).Msg("there was a error")
		return nil, err
	}
	return nil, nil
}
