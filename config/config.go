package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug               = "debug"
	ConfigBoardWidth          = "board-width"
	ConfigBoardHeight         = "board-height"
	ConfigSearchDepth         = "search-depth"
	ConfigTTCapacity          = "tt-capacity"
	ConfigTTFractionOfMem     = "tt-fraction-of-mem"
	ConfigOpeningBookPath     = "opening-book-path"
	ConfigOpeningBookPlies    = "opening-book-plies"
	ConfigOpeningBookOneBased = "opening-book-one-based"
	ConfigSeed                = "seed"
	ConfigIterativeDeepening  = "iterative-deepening"
	ConfigTranspositionTable  = "transposition-table"
	ConfigTacticalMoves       = "tactical-moves"
	ConfigFirstWinOptim       = "first-win-optim"
	ConfigNodeBudget          = "node-budget"
	ConfigMaxTime             = "max-time"
	ConfigAutoplayThreads     = "autoplay-threads"
	ConfigCPUProfile          = "cpu-profile"
	ConfigConfigFile          = "config-file"
	defaultConfigFileName     = "config.yaml"
	defaultConfigDirName      = ".connectfour"
	envPrefix                 = "CONNECTFOUR"
)

// Config holds every setting. Values come, from lowest to highest
// precedence, from the defaults below, a YAML config file, CONNECTFOUR_*
// environment variables and command-line flags.
type Config struct {
	*viper.Viper
	args []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(ConfigDebug, false)
	v.SetDefault(ConfigBoardWidth, 7)
	v.SetDefault(ConfigBoardHeight, 6)
	v.SetDefault(ConfigSearchDepth, 8)
	v.SetDefault(ConfigTTCapacity, 8388593)
	v.SetDefault(ConfigTTFractionOfMem, 0.0)
	v.SetDefault(ConfigOpeningBookPath, "")
	v.SetDefault(ConfigOpeningBookPlies, 5)
	v.SetDefault(ConfigOpeningBookOneBased, false)
	v.SetDefault(ConfigSeed, 0)
	v.SetDefault(ConfigIterativeDeepening, true)
	v.SetDefault(ConfigTranspositionTable, true)
	v.SetDefault(ConfigTacticalMoves, true)
	v.SetDefault(ConfigFirstWinOptim, true)
	v.SetDefault(ConfigNodeBudget, 0)
	v.SetDefault(ConfigMaxTime, "0s")
	v.SetDefault(ConfigAutoplayThreads, 0)
}

// DefaultConfig returns a config with only the defaults set. Tests use it.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{Viper: v}
}

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("connectfour", pflag.ContinueOnError)
	// Shell commands may follow the flags on the command line.
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.Int(ConfigBoardWidth, 7, "number of columns")
	fs.Int(ConfigBoardHeight, 6, "number of rows")
	fs.Int(ConfigSearchDepth, 8, "maximum search depth in plies")
	fs.Int(ConfigTTCapacity, 8388593, "transposition table entries")
	fs.Float64(ConfigTTFractionOfMem, 0, "size the transposition table to this fraction of memory instead")
	fs.String(ConfigOpeningBookPath, "", "opening book file; empty for none")
	fs.Int(ConfigOpeningBookPlies, 5, "longest opening book line to load")
	fs.Bool(ConfigOpeningBookOneBased, false, "opening book columns are numbered from 1")
	fs.Uint64(ConfigSeed, 0, "seed for tie-breaking; 0 picks a random one")
	fs.Bool(ConfigIterativeDeepening, true, "use iterative deepening")
	fs.Bool(ConfigTranspositionTable, true, "use the transposition table")
	fs.Bool(ConfigTacticalMoves, true, "play immediate wins and blocks without searching alternatives")
	fs.Bool(ConfigFirstWinOptim, true, "stop searching siblings after a won line")
	fs.Uint64(ConfigNodeBudget, 0, "maximum nodes per search; 0 for no limit")
	fs.Duration(ConfigMaxTime, 0, "maximum time per search; 0 for no limit")
	fs.Int(ConfigAutoplayThreads, 0, "parallel autoplay games; 0 for the number of CPUs")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	fs.String(ConfigConfigFile, "", "config file; defaults to ~/.connectfour/config.yaml")
	return fs
}

// Load reads the config file, the environment and args.
func (c *Config) Load(args []string) error {
	c.Viper = viper.New()
	setDefaults(c.Viper)

	fs := flagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	c.args = fs.Args()
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	c.SetEnvPrefix(envPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if cf := c.GetString(ConfigConfigFile); cf != "" {
		c.SetConfigFile(cf)
	} else {
		c.SetConfigName(strings.TrimSuffix(defaultConfigFileName, filepath.Ext(defaultConfigFileName)))
		c.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			c.AddConfigPath(filepath.Join(home, defaultConfigDirName))
		}
	}
	err := c.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Write saves the current settings to the config file, creating it in the
// default location if none was read.
func (c *Config) Write() error {
	if c.ConfigFileUsed() != "" {
		return c.WriteConfig()
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	dir := filepath.Join(home, defaultConfigDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, defaultConfigFileName)
	log.Info().Str("path", path).Msg("writing-config")
	return c.WriteConfigAs(path)
}

// Args returns the command-line arguments left over after the flags, such
// as a shell command to run instead of the interactive loop.
func (c *Config) Args() []string {
	return c.args
}

// SanitizedSettings returns the settings for logging.
func (c *Config) SanitizedSettings() map[string]any {
	return c.AllSettings()
}

// AdjustRelativePaths makes a relative opening book path relative to
// basepath, usually the directory of the executable.
func (c *Config) AdjustRelativePaths(basepath string) {
	p := c.GetString(ConfigOpeningBookPath)
	if p == "" || filepath.IsAbs(p) {
		return
	}
	if _, err := os.Stat(p); err == nil {
		// exists relative to the working directory.
		return
	}
	c.Set(ConfigOpeningBookPath, filepath.Join(basepath, p))
}
