package perception

import (
	"fmt"
	"time"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/config"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// LLMClient is an alias to types.LLMClient for package compatibility.
type LLMClient = types.LLMClient

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	Timeout          time.Duration
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:           apiKey,
		BaseURL:          "https://generativelanguage.googleapis.com/v1beta",
		Model:            "gemini-2.5-flash",
		Timeout:          90 * time.Second,
		MaxRetries:       3,
		RetryBackoffBase: 500 * time.Millisecond,
		RetryBackoffMax:  8 * time.Second,
	}
}

// NewClientFromConfig builds the completion client for the configured
// provider. Only Gemini is wired today; the switch keeps the door open.
func NewClientFromConfig(cfg *config.Config) (LLMClient, error) {
	switch cfg.LLM.Provider {
	case "", "gemini":
		gc := DefaultGeminiConfig(cfg.LLM.APIKey)
		if cfg.LLM.Model != "" {
			gc.Model = cfg.LLM.Model
		}
		if cfg.LLM.BaseURL != "" {
			gc.BaseURL = cfg.LLM.BaseURL
		}
		gc.Timeout = cfg.LLMTimeout()
		if cfg.LLM.MaxRetries > 0 {
			gc.MaxRetries = cfg.LLM.MaxRetries
		}
		gc.RetryBackoffBase = cfg.RetryBackoffBase()
		gc.RetryBackoffMax = cfg.RetryBackoffMax()
		return NewGeminiClientWithConfig(gc), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}
