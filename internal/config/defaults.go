package config

// Default returns a config populated with the stock settings.
func Default() *Config {
	cfg := &Config{
		Ingest: IngestConfig{ChunkOverlap: 200},
		Generation: GenerationConfig{
			Temperature: 0.2,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for zero values in cfg. Fields where zero
// is meaningful (chunk_overlap, temperature, cache_size) are left alone.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9200
	}
	if cfg.Server.Toolset == "" {
		cfg.Server.Toolset = "docling"
	}
	if cfg.Storage.Collection == "" {
		cfg.Storage.Collection = "docling_rag"
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.MaxFileMB == 0 {
		cfg.Ingest.MaxFileMB = 50
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = "openai"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 60
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 512
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 120
	}
	if cfg.Upstream.HTTPBinURL == "" {
		cfg.Upstream.HTTPBinURL = "https://httpbin.org/get"
	}
	if cfg.Upstream.HTTPBinTimeout == 0 {
		cfg.Upstream.HTTPBinTimeout = 20
	}
	if cfg.Upstream.LangflowURL == "" {
		cfg.Upstream.LangflowURL = "http://localhost:7860/api/v1/run/REPLACE_FLOW_ID"
	}
	if cfg.Upstream.LangflowTimeout == 0 {
		cfg.Upstream.LangflowTimeout = 60
	}
	if cfg.Gateway.URL == "" {
		cfg.Gateway.URL = "http://localhost:4444"
	}
	if cfg.Gateway.Timeout == 0 {
		cfg.Gateway.Timeout = 60
	}
}
