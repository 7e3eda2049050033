package embedding

import (
	"time"

	"github.com/hyperjump/mcpws/internal/config"
	"go.uber.org/zap"
)

// Default models per backend when none is configured.
const (
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOllamaModel = "nomic-embed-text"
)

// New builds the configured primary and local embedders. The local side is an
// ONNX model when ModelPath loads, else the hash embedder. A primary that
// cannot be configured (openai without key or base URL) is left out and
// everything runs locally.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) *FallbackEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.Timeout) * time.Second

	var local Embedder = NewHashEmbedder(cfg.Dimensions)
	if cfg.ModelPath != "" {
		onnx, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			logger.Warn("onnx embedder unavailable, using hash embedder",
				zap.String("model_path", cfg.ModelPath), zap.Error(err))
		} else {
			local = onnx
		}
	}

	var primary Embedder
	switch cfg.Backend {
	case "openai":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			logger.Warn("openai embeddings not configured, using local embedder only")
			break
		}
		primary = NewOpenAIEmbedder(cfg.APIKey, cfg.BaseURL, modelOr(cfg.Model, DefaultOpenAIModel), cfg.Dimensions, timeout)
	case "ollama":
		primary = NewOllamaEmbedder(cfg.BaseURL, modelOr(cfg.Model, DefaultOllamaModel), cfg.Dimensions, timeout)
	}

	if primary != nil {
		primary = WithCache(primary, cfg.CacheSize)
	}
	local = WithCache(local, cfg.CacheSize)

	return NewFallbackEmbedder(primary, local,
		WithLogger(logger.Named("embedding")),
		LocalOnly(cfg.UseLocal))
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}
