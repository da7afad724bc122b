// Package config loads sqltune settings from an optional YAML file with
// environment fallbacks. Command-line flags take precedence over everything
// here.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds backend and loop defaults
type Config struct {
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	MaxTokens int    `yaml:"max_tokens"`

	Runs          int     `yaml:"runs"`
	Warmup        int     `yaml:"warmup"`
	TimeoutS      int     `yaml:"timeout_s"`
	MaxRounds     int     `yaml:"max_rounds"`
	MinImprovePct float64 `yaml:"min_improve_pct"`
	MaxToolSteps  int     `yaml:"max_tool_steps"`

	RunLog string `yaml:"run_log"`
}

// Default returns the built-in defaults
func Default() Config {
	return Config{
		Model:         "gpt-4o-mini",
		MaxTokens:     1400,
		Runs:          3,
		Warmup:        1,
		TimeoutS:      60,
		MaxRounds:     2,
		MinImprovePct: 10.0,
		MaxToolSteps:  35,
	}
}

// Load reads a YAML config file and merges it over the defaults.
// An empty path falls back to $SQLTUNE_CONFIG, then to
// ~/.config/sqltune/config.yaml; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("SQLTUNE_CONFIG")
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".config", "sqltune", "config.yaml")
		}
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}
