package shell

import (
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"solve": {
		Options: []string{"-plies", "-maxtime", "-disable-id", "-disable-tt",
			"-disable-tactical", "-log"},
		Args: []string{"stop"},
	},
	"bot": {
		Options: []string{"-depth", "-maxtime", "-disable-id", "-disable-tt",
			"-disable-tactical"},
	},
	"autoplay": {
		Options: []string{"-games", "-depth1", "-depth2", "-threads", "-maxtime",
			"-logfile", "-seedfile", "-runid", "-alternate"},
		Args: []string{"stop", "analyze"},
	},
	"new": {
		Options: []string{"-width", "-height"},
	},
	"book": {
		Args: []string{"load", "off", "lookup"},
	},
	"stats": {
		Args: []string{"reset"},
	},
	"help": {
		Args: []string{"solve", "bot", "autoplay", "script"},
	},
}

var commandNames = []string{
	"help", "new", "play", "undo", "show", "gen", "eval", "solve", "bot",
	"book", "stats", "autoplay", "setconfig", "script", "exit",
}

var boolValues = []string{"true", "false"}

// Do implements the readline.AutoCompleter interface
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	// Parse the line using shellquote to handle quoted strings properly
	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}

		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		if strings.HasPrefix(lastCompleteField, "-") {
			switch strings.TrimPrefix(lastCompleteField, "-") {
			case "disable-id", "disable-tt", "disable-tactical", "log", "alternate":
				completions = boolValues
			default:
				// a value we cannot guess.
				return nil, 0
			}
		}

		if completions == nil {
			if metadata, exists := commandMetadata[cmdName]; exists {
				if strings.HasPrefix(prefix, "-") || len(metadata.Args) == 0 {
					completions = metadata.Options
				} else {
					completions = metadata.Args
				}
			}
		}
	}

	matches := lo.FilterMap(completions, func(completion string, _ int) ([]rune, bool) {
		// Return only the part that needs to be added
		return []rune(completion[min(len(prefix), len(completion)):]),
			strings.HasPrefix(completion, prefix)
	})
	return matches, len(prefix)
}
