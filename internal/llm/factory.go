package llm

import (
	"time"

	"github.com/hyperjump/mcpws/internal/config"
	"go.uber.org/zap"
)

// New returns the configured generator, or nil when generation is not
// configured (empty backend, or openai without key and base URL).
func New(cfg config.GenerationConfig, logger *zap.Logger) Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	switch cfg.Backend {
	case "openai":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			logger.Warn("openai generation selected without credentials, answers are degraded")
			return nil
		}
		return NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model, timeout)
	case "ollama":
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model, timeout)
	default:
		return nil
	}
}

// OptionsFrom converts config into call options, filling defaults for zero values.
func OptionsFrom(cfg config.GenerationConfig) Options {
	opts := Options{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return opts
}
