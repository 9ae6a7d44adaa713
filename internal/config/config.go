// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/modelmux/internal/router"
)

// =============================================================================
// CONFIGURATION TYPES
// =============================================================================

// Config is the top-level modelmux configuration.
type Config struct {
	// Version is the config schema version.
	Version string `toml:"version" json:"version"`

	// Routing controls budget defaults and scoring weights.
	Routing RoutingConfig `toml:"routing" json:"routing"`

	// Providers holds cloud provider endpoints and the call timeout.
	Providers ProvidersConfig `toml:"providers" json:"providers"`

	// Local configures the Ollama daemon.
	Local LocalConfig `toml:"local" json:"local"`

	// Ledger configures interaction history persistence.
	Ledger LedgerConfig `toml:"ledger" json:"ledger"`
}

// RoutingConfig contains routing configuration.
type RoutingConfig struct {
	// DefaultBudget is the per-request cost ceiling in dollars per 1K
	// units. Backends above it are penalized in scoring; zero penalizes
	// every paid backend, leaving only free ones unpenalized.
	DefaultBudget float64 `toml:"default_budget" json:"default_budget"`

	// Weights are the scoring constants.
	Weights router.Weights `toml:"weights" json:"weights"`
}

// ProvidersConfig contains cloud provider configuration. API keys are
// never stored here; they come from the environment only.
type ProvidersConfig struct {
	// OpenAIURL overrides the OpenAI-compatible base URL.
	OpenAIURL string `toml:"openai_url" json:"openai_url"`
	// AnthropicURL overrides the Anthropic base URL.
	AnthropicURL string `toml:"anthropic_url" json:"anthropic_url"`
	// GeminiURL overrides the Google generative language base URL.
	GeminiURL string `toml:"gemini_url" json:"gemini_url"`
	// TimeoutSecs bounds a single backend invocation.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// Timeout returns the call timeout as a duration.
func (p ProvidersConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// LocalConfig contains local inference configuration.
type LocalConfig struct {
	// OllamaURL is the address of the Ollama daemon.
	OllamaURL string `toml:"ollama_url" json:"ollama_url"`
	// OllamaModel is the local model to register.
	OllamaModel string `toml:"ollama_model" json:"ollama_model"`
}

// LedgerConfig contains history persistence configuration.
type LedgerConfig struct {
	// Enabled controls whether history is persisted at all.
	Enabled bool `toml:"enabled" json:"enabled"`
	// MirrorPath is the JSONL history file.
	MirrorPath string `toml:"mirror_path" json:"mirror_path"`
	// DatabasePath is the SQLite history database.
	DatabasePath string `toml:"database_path" json:"database_path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Routing: RoutingConfig{
			// High enough that no catalog backend is penalized out of
			// the box; operators tighten it per session or per config.
			DefaultBudget: 1.0,
			Weights:       router.DefaultWeights(),
		},

		Providers: ProvidersConfig{
			TimeoutSecs: 30,
		},

		Local: LocalConfig{
			OllamaURL:   "http://127.0.0.1:11434",
			OllamaModel: "qwen2.5:7b",
		},

		Ledger: LedgerConfig{
			Enabled: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the modelmux configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".modelmux"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD
// =============================================================================

// Load loads configuration from the default path, falling back to
// defaults when the file does not exist. Environment overrides apply
// last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadPath(path)
}

// LoadPath loads configuration from an explicit path.
func LoadPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MODELMUX_BUDGET"); v != "" {
		if b, err := strconv.ParseFloat(v, 64); err == nil && b >= 0 {
			c.Routing.DefaultBudget = b
		}
	}
	if v := os.Getenv("MODELMUX_OLLAMA_URL"); v != "" {
		c.Local.OllamaURL = v
	}
	if v := os.Getenv("MODELMUX_OLLAMA_MODEL"); v != "" {
		c.Local.OllamaModel = v
	}
	if v := os.Getenv("MODELMUX_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Providers.TimeoutSecs = n
		}
	}
}

// SetDefaults fills zero-valued fields that must not stay zero. Lets a
// partial config file omit whole sections.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0.0"
	}
	if c.Providers.TimeoutSecs == 0 {
		c.Providers.TimeoutSecs = 30
	}
	if c.Local.OllamaURL == "" {
		c.Local.OllamaURL = "http://127.0.0.1:11434"
	}
	if c.Local.OllamaModel == "" {
		c.Local.OllamaModel = "qwen2.5:7b"
	}
	if c.Routing.Weights == (router.Weights{}) {
		c.Routing.Weights = router.DefaultWeights()
	}
	if c.Ledger.MirrorPath == "" || c.Ledger.DatabasePath == "" {
		if dir, err := ConfigDir(); err == nil {
			if c.Ledger.MirrorPath == "" {
				c.Ledger.MirrorPath = filepath.Join(dir, "history.jsonl")
			}
			if c.Ledger.DatabasePath == "" {
				c.Ledger.DatabasePath = filepath.Join(dir, "history.db")
			}
		}
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Routing.DefaultBudget < 0 {
		return fmt.Errorf("routing.default_budget must be >= 0, got %f", c.Routing.DefaultBudget)
	}
	if c.Providers.TimeoutSecs <= 0 {
		return fmt.Errorf("providers.timeout_secs must be > 0, got %d", c.Providers.TimeoutSecs)
	}
	w := c.Routing.Weights
	if w.ReasoningThreshold < 0 || w.ReasoningThreshold > 1 {
		return fmt.Errorf("weights.reasoning_threshold must be in [0, 1], got %f", w.ReasoningThreshold)
	}
	if w.SimpleThreshold < 0 || w.SimpleThreshold > 1 {
		return fmt.Errorf("weights.simple_threshold must be in [0, 1], got %f", w.SimpleThreshold)
	}
	if w.SimpleThreshold > w.ReasoningThreshold {
		return fmt.Errorf("weights.simple_threshold (%f) must not exceed reasoning_threshold (%f)",
			w.SimpleThreshold, w.ReasoningThreshold)
	}
	return nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration to the default path with owner-only
// permissions.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SavePath(path)
}

// SavePath writes the configuration to an explicit path.
func (c *Config) SavePath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
