// Package config provides configuration loading and structs for the tool servers.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	LogLevel   string           `yaml:"log_level"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Gateway    GatewayConfig    `yaml:"gateway"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port" validate:"min=1,max=65535"`
	Toolset string `yaml:"toolset" validate:"oneof=docling calc httpbin langflow"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects the vector index backend. An empty IndexPath with the
// default backend keeps the collection in memory for the process lifetime.
type StorageConfig struct {
	Backend     string `yaml:"backend" validate:"omitempty,oneof=memory sqlite pgvector"`
	IndexPath   string `yaml:"index_path"`
	Collection  string `yaml:"collection" validate:"required"`
	PostgresDSN string `yaml:"postgres_dsn" validate:"required_if=Backend pgvector"`
}

// IngestConfig holds chunking and upload limits.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" validate:"min=0"`
	MaxFileMB    int `yaml:"max_file_mb" validate:"gt=0"`
}

// EmbeddingConfig selects the primary embedder and the local fallback.
type EmbeddingConfig struct {
	Backend    string `yaml:"backend" validate:"oneof=openai ollama local"`
	UseLocal   bool   `yaml:"use_local"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions" validate:"gt=0"`
	ModelPath  string `yaml:"model_path"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size" validate:"min=0"`
	Timeout    int    `yaml:"timeout_seconds"`
}

// GenerationConfig selects the answer generator. An empty Backend runs in degraded mode.
type GenerationConfig struct {
	Backend          string  `yaml:"backend" validate:"omitempty,oneof=openai ollama"`
	Model            string  `yaml:"model"`
	BaseURL          string  `yaml:"base_url"`
	APIKey           string  `yaml:"api_key"`
	MaxTokens        int     `yaml:"max_tokens" validate:"gt=0"`
	Temperature      float32 `yaml:"temperature" validate:"min=0"`
	MaxContextTokens int     `yaml:"max_context_tokens" validate:"min=0"`
	Timeout          int     `yaml:"timeout_seconds"`
}

// UpstreamConfig holds the httpbin and Langflow adapter targets.
type UpstreamConfig struct {
	HTTPBinURL      string `yaml:"httpbin_url"`
	HTTPBinTimeout  int    `yaml:"httpbin_timeout_seconds"`
	LangflowURL     string `yaml:"langflow_url"`
	LangflowTimeout int    `yaml:"langflow_timeout_seconds"`
}

// GatewayConfig holds client settings for talking to a tool gateway.
type GatewayConfig struct {
	URL       string  `yaml:"url"`
	Token     string  `yaml:"token"`
	Timeout   int     `yaml:"timeout_seconds"`
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// Load reads and parses the config file at path on top of Default(), expands
// paths, applies environment overrides and validates the result.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir := filepath.Dir(path)
		cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}

	ApplyDefaults(cfg)
	ApplyEnv(cfg, os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks ranges and backend names.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" is the home directory. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
