// Package config loads Sophia configuration from .sophia/config.yaml with
// environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all Sophia configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configures the completion service client.
	LLM LLMConfig `yaml:"llm"`

	// Recall configures the semantic recall service.
	Recall RecallConfig `yaml:"recall"`

	// Storage configures the SQLite store.
	Storage StorageConfig `yaml:"storage"`

	// Coach configures the checkup and candidate flows.
	Coach CoachConfig `yaml:"coach"`

	// Logging controls the category file logger.
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the completion service.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`

	// Retry policy for rate-limit and transient failures.
	MaxRetries       int    `yaml:"max_retries"`
	RetryBackoffBase string `yaml:"retry_backoff_base"`
	RetryBackoffMax  string `yaml:"retry_backoff_max"`
}

// RecallConfig configures embedding-based semantic recall.
type RecallConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	TopK    int    `yaml:"top_k"`
}

// StorageConfig configures the relational store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// CoachConfig tunes the deterministic coaching flows.
type CoachConfig struct {
	// StalenessHours is the window after which an item is due for re-check.
	StalenessHours int `yaml:"staleness_hours"`
	// MissedStreakThreshold triggers the breakdown sub-flow.
	MissedStreakThreshold int `yaml:"missed_streak_threshold"`
	// CompletedStreakThreshold triggers an acknowledgment.
	CompletedStreakThreshold int `yaml:"completed_streak_threshold"`
	// DeterministicTimeout bounds override paths that skip the LLM.
	DeterministicTimeout string `yaml:"deterministic_timeout"`
}

// LoggingConfig controls the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Name:    "sophia",
		Version: "0.4.0",
		LLM: LLMConfig{
			Provider:         "gemini",
			Model:            "gemini-2.5-flash",
			BaseURL:          "https://generativelanguage.googleapis.com/v1beta",
			Timeout:          "90s",
			MaxRetries:       3,
			RetryBackoffBase: "500ms",
			RetryBackoffMax:  "8s",
		},
		Recall: RecallConfig{
			Enabled: false,
			Model:   "gemini-embedding-001",
			TopK:    5,
		},
		Storage: StorageConfig{
			DatabasePath: ".sophia/sophia.db",
		},
		Coach: CoachConfig{
			StalenessHours:           18,
			MissedStreakThreshold:    5,
			CompletedStreakThreshold: 3,
			DeterministicTimeout:     "5s",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads config.yaml from the workspace, falling back to defaults when
// the file is absent. Env overrides are applied last.
func Load(workspace string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(workspace, ".sophia", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets env vars win for secrets and the DB path. A key in
// the environment never loses to one in the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.APIKey = v
		if c.Recall.APIKey == "" {
			c.Recall.APIKey = v
		}
	}
	if v := os.Getenv("SOPHIA_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("SOPHIA_DB_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("SOPHIA_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
		if c.Logging.Level == "" {
			c.Logging.Level = "debug"
		}
	}
}

// LLMTimeout parses the configured request timeout with a safe default.
func (c *Config) LLMTimeout() time.Duration {
	return parseDurationOr(c.LLM.Timeout, 90*time.Second)
}

// RetryBackoffBase parses the base backoff delay.
func (c *Config) RetryBackoffBase() time.Duration {
	return parseDurationOr(c.LLM.RetryBackoffBase, 500*time.Millisecond)
}

// RetryBackoffMax parses the backoff delay cap.
func (c *Config) RetryBackoffMax() time.Duration {
	return parseDurationOr(c.LLM.RetryBackoffMax, 8*time.Second)
}

// DeterministicTimeout parses the hard timeout for override paths.
func (c *Config) DeterministicTimeout() time.Duration {
	return parseDurationOr(c.Coach.DeterministicTimeout, 5*time.Second)
}

// Staleness returns the staleness threshold as a duration.
func (c *Config) Staleness() time.Duration {
	hours := c.Coach.StalenessHours
	if hours <= 0 {
		hours = 18
	}
	return time.Duration(hours) * time.Hour
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Save writes the config back to the workspace (used by `sophia init`).
func (c *Config) Save(workspace string) error {
	dir := filepath.Join(workspace, ".sophia")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644)
}
