package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/boxer-emu/boxer/internal/engine"
	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "# empty\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "normal", cfg.Emulation.Core)
	assert.Equal(t, engine.DefaultFixedSpeed, cfg.Emulation.Cycles)
	assert.False(t, cfg.Emulation.AutoSpeed)
	assert.Equal(t, 3, cfg.Emulation.Ticks)
	assert.Empty(t, cfg.ConfFiles)
	assert.Empty(t, cfg.Drives)
	assert.True(t, cfg.ShouldTrackChanges())

	assert.Contains(t, cfg.BlockedPaths, expandPath("~/.ssh"))
	assert.Contains(t, cfg.BlockedPaths, expandPath("~/.aws"))
	assert.Contains(t, cfg.BlockedPaths, expandPath("~/.docker/config.json"))

	switch runtime.GOOS {
	case "darwin":
		assert.Contains(t, cfg.BlockedPaths, expandPath("~/Library/Keychains"))
	case "linux":
		assert.Contains(t, cfg.BlockedPaths, expandPath("~/.local/share/keyrings"))
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
emulation:
  core: dynamic
  cycles: 20000
  auto_speed: true
conf_files:
  - ~/dos/boxer.lua
drives:
  - C=~/dos/c
startup:
  - DIR
track_changes: false
blocked_paths:
  - ~/private
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	s, err := cfg.Emulation.Settings()
	require.NoError(t, err)
	assert.Equal(t, engine.Settings{Core: engine.CoreDynamic, FixedSpeed: 20000, AutoSpeed: true}, s)

	assert.Equal(t, []string{expandPath("~/dos/boxer.lua")}, cfg.ConfFiles)
	assert.Equal(t, []string{"C=~/dos/c"}, cfg.Drives)
	assert.Equal(t, []string{"DIR"}, cfg.Startup)
	assert.False(t, cfg.ShouldTrackChanges())

	// User paths are added to, never replace, the hardcoded ones
	assert.Contains(t, cfg.BlockedPaths, expandPath("~/private"))
	assert.Contains(t, cfg.BlockedPaths, expandPath("~/.ssh"))
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BOXER_EMULATION_CYCLES", "12000")

	cfg, err := Load(writeConfig(t, "# empty\n"))
	require.NoError(t, err)
	assert.Equal(t, 12000, cfg.Emulation.Cycles)
}

func TestLoadInvalidCore(t *testing.T) {
	_, err := Load(writeConfig(t, "emulation:\n  core: warp\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid emulation settings")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "emulation: [unclosed\n"))
	assert.Error(t, err)
}

func TestConfigDir(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	configDir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".boxer"), configDir)
}

func TestMergeBlockedPaths(t *testing.T) {
	got := mergeBlockedPaths([]string{"/a", "/b", "/a"}, []string{"/b", "/c"})
	assert.Equal(t, []string{"/b", "/c", "/a"}, got)
}

func TestShouldTrackChanges(t *testing.T) {
	c := &Config{}
	assert.True(t, c.ShouldTrackChanges())

	falseVal := false
	c = &Config{TrackChanges: &falseVal}
	assert.False(t, c.ShouldTrackChanges())
}

// Helper function to expand a single path for test assertions
func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}
