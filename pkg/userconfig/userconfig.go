// Package userconfig provides user-level configuration for relay.
// This configuration is stored in ~/.config/relay/config.yaml and contains
// user preferences like the theme and history window sizing.
package userconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/natefinch/atomic"

	"github.com/coderelay/relay/pkg/paths"
	"github.com/coderelay/relay/pkg/turns"
)

// CurrentVersion is the current version of the user config format
const CurrentVersion = "v1"

// HistoryWindow tunes how much of a long transcript is materialized at once.
type HistoryWindow struct {
	// InitialCount is how many of the newest turns render on session open
	InitialCount int `yaml:"initial_count,omitempty"`
	// BatchSize is how many older turns each idle backfill step reveals
	BatchSize int `yaml:"batch_size,omitempty"`
}

// Settings represents global user settings
type Settings struct {
	// Theme is the markdown rendering theme ("dark", "light" or "auto")
	Theme string `yaml:"theme,omitempty"`
	// HideToolOutput hides tool call results in the transcript by default
	HideToolOutput bool `yaml:"hide_tool_output,omitempty"`
}

// Config represents the user-level relay configuration
type Config struct {
	// Version is the config format version
	Version string `yaml:"version,omitempty"`
	// Database overrides the session database path
	Database string `yaml:"database,omitempty"`
	// Window tunes transcript virtualization
	Window *HistoryWindow `yaml:"window,omitempty"`
	// Settings contains global user settings
	Settings *Settings `yaml:"settings,omitempty"`
}

// Path returns the path to the config file
func Path() string {
	return filepath.Join(paths.GetConfigDir(), "config.yaml")
}

// Load loads the user configuration from the config file.
// A missing file yields an empty config, not an error.
func Load() (*Config, error) {
	return loadFrom(Path())
}

func loadFrom(configPath string) (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Save saves the configuration to the config file
func (c *Config) Save() error {
	return c.saveTo(Path())
}

func (c *Config) saveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Ensure version is always set to current version when saving
	c.Version = CurrentVersion

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return atomic.WriteFile(path, bytes.NewReader(data))
}

// GetSettings returns the global settings, or an empty Settings if not set
func (c *Config) GetSettings() *Settings {
	if c.Settings == nil {
		return &Settings{}
	}
	return c.Settings
}

// InitialCount returns the configured initial window size, falling back to
// the built-in default for missing or non-positive values.
func (c *Config) InitialCount() int {
	if c.Window != nil && c.Window.InitialCount > 0 {
		return c.Window.InitialCount
	}
	return turns.DefaultInitialCount
}

// BatchSize returns the configured backfill batch size, falling back to the
// built-in default for missing or non-positive values.
func (c *Config) BatchSize() int {
	if c.Window != nil && c.Window.BatchSize > 0 {
		return c.Window.BatchSize
	}
	return turns.DefaultBatchSize
}
