package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/boxer-emu/boxer/internal/engine"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// HardcodedBlockedPaths can never be mounted as a drive, whatever the user config says.
var HardcodedBlockedPaths = []string{
	"~/.ssh",
	"~/.aws",
	"~/.config/gcloud",
	"~/.gnupg",
	"~/.password-store",
	"~/.docker/config.json",
}

// Config represents the boxer CLI configuration
type Config struct {
	Emulation    Emulation `mapstructure:"emulation"`
	ConfFiles    []string  `mapstructure:"conf_files"`
	Drives       []string  `mapstructure:"drives"`
	Startup      []string  `mapstructure:"startup"`
	BlockedPaths []string  `mapstructure:"blocked_paths"`
	TrackChanges *bool     `mapstructure:"track_changes"`
}

// Emulation holds the default CPU settings for new sessions
type Emulation struct {
	Core      string `mapstructure:"core"`
	Cycles    int    `mapstructure:"cycles"`
	AutoSpeed bool   `mapstructure:"auto_speed"`
	Ticks     int    `mapstructure:"ticks"`
}

// Settings converts the emulation section to engine settings.
func (e Emulation) Settings() (engine.Settings, error) {
	core, err := engine.ParseCoreMode(e.Core)
	if err != nil {
		return engine.Settings{}, err
	}
	return engine.Settings{
		Core:       core,
		FixedSpeed: engine.ClampSpeed(e.Cycles),
		AutoSpeed:  e.AutoSpeed,
	}, nil
}

// ShouldTrackChanges returns whether writable directory drives are snapshotted
// around a session. Defaults to true when not explicitly set.
func (c *Config) ShouldTrackChanges() bool {
	if c.TrackChanges == nil {
		return true
	}
	return *c.TrackChanges
}

// Load loads the configuration from cfgFile, or from ~/.boxer/config.yaml
// when cfgFile is empty, falling back to defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		configDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
	}

	v.SetEnvPrefix("BOXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// A missing config file is fine; a broken one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if _, err := cfg.Emulation.Settings(); err != nil {
		return nil, fmt.Errorf("invalid emulation settings: %w", err)
	}

	cfg.ConfFiles = expandPaths(cfg.ConfFiles)
	cfg.BlockedPaths = mergeBlockedPaths(expandPaths(cfg.BlockedPaths), expandPaths(HardcodedBlockedPaths))

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("emulation.core", "normal")
	v.SetDefault("emulation.cycles", engine.DefaultFixedSpeed)
	v.SetDefault("emulation.auto_speed", false)
	v.SetDefault("emulation.ticks", 3)
	v.SetDefault("conf_files", []string{})
	v.SetDefault("drives", []string{})
	v.SetDefault("startup", []string{})
	v.SetDefault("track_changes", true)

	blockedPaths := []string{
		"~/.ssh",
		"~/.aws",
		"~/.config/gcloud",
		"~/.gnupg",
		"~/.password-store",
		"~/.docker",
		"~/.netrc",
		"~/.kube",
		"~/.config/gh",
	}

	switch runtime.GOOS {
	case "darwin":
		blockedPaths = append(blockedPaths, "~/Library/Keychains")
	case "linux":
		blockedPaths = append(blockedPaths, "~/.local/share/keyrings")
	}

	v.SetDefault("blocked_paths", blockedPaths)
}

// expandPaths expands ~ in paths to the home directory
func expandPaths(paths []string) []string {
	expanded := make([]string, len(paths))
	for i, path := range paths {
		expandedPath, err := homedir.Expand(path)
		if err != nil {
			expanded[i] = path
			continue
		}
		expanded[i] = expandedPath
	}
	return expanded
}

// ConfigDir returns the boxer configuration directory path
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".boxer"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	configDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(configDir, 0755)
}

// mergeBlockedPaths merges two lists of blocked paths, removing duplicates.
// The hardcoded paths are always included regardless of user config.
func mergeBlockedPaths(userPaths, hardcodedPaths []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(userPaths)+len(hardcodedPaths))

	for _, path := range hardcodedPaths {
		if !seen[path] {
			seen[path] = true
			result = append(result, path)
		}
	}

	for _, path := range userPaths {
		if !seen[path] {
			seen[path] = true
			result = append(result, path)
		}
	}

	return result
}
