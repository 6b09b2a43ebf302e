package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 7, cfg.GetInt(ConfigBoardWidth))
	assert.Equal(t, 6, cfg.GetInt(ConfigBoardHeight))
	assert.Equal(t, 8388593, cfg.GetInt(ConfigTTCapacity))
	assert.True(t, cfg.GetBool(ConfigTranspositionTable))
	assert.Equal(t, time.Duration(0), cfg.GetDuration(ConfigMaxTime))
}

func TestLoadFlags(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := &Config{}
	err := cfg.Load([]string{"--search-depth=12", "--debug", "--max-time", "3s"})
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.GetInt(ConfigSearchDepth))
	assert.True(t, cfg.GetBool(ConfigDebug))
	assert.Equal(t, 3*time.Second, cfg.GetDuration(ConfigMaxTime))
	// untouched flags keep their defaults.
	assert.Equal(t, 7, cfg.GetInt(ConfigBoardWidth))
	assert.Empty(t, cfg.Args())
}

func TestLoadLeavesCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := &Config{}
	require.NoError(t, cfg.Load([]string{"--debug", "play", "3342"}))
	assert.True(t, cfg.GetBool(ConfigDebug))
	assert.Equal(t, []string{"play", "3342"}, cfg.Args())
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CONNECTFOUR_BOARD_WIDTH", "5")
	cfg := &Config{}
	require.NoError(t, cfg.Load(nil))
	assert.Equal(t, 5, cfg.GetInt(ConfigBoardWidth))
}

func TestLoadFileAndWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search-depth: 10\nseed: 99\n"), 0o644))

	cfg := &Config{}
	require.NoError(t, cfg.Load([]string{"--config-file", path}))
	assert.Equal(t, 10, cfg.GetInt(ConfigSearchDepth))
	assert.Equal(t, uint64(99), cfg.GetUint64(ConfigSeed))

	cfg.Set(ConfigSearchDepth, 11)
	require.NoError(t, cfg.Write())

	again := &Config{}
	require.NoError(t, again.Load([]string{"--config-file", path}))
	assert.Equal(t, 11, again.GetInt(ConfigSearchDepth))
}

func TestAdjustRelativePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Set(ConfigOpeningBookPath, "no/such/book.txt")
	cfg.AdjustRelativePaths("/opt/c4")
	assert.Equal(t, "/opt/c4/no/such/book.txt", cfg.GetString(ConfigOpeningBookPath))
}
