package config

import (
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg from environment variables. Unparseable numbers are ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	if v, ok := lookup("CHROMA_DIR"); ok {
		cfg.Storage.IndexPath = v
	}
	str("INDEX_BACKEND", &cfg.Storage.Backend)
	str("DOC_COLLECTION", &cfg.Storage.Collection)
	str("POSTGRES_DSN", &cfg.Storage.PostgresDSN)

	num("CHUNK_SIZE", &cfg.Ingest.ChunkSize)
	num("CHUNK_OVERLAP", &cfg.Ingest.ChunkOverlap)
	num("MAX_FILE_MB", &cfg.Ingest.MaxFileMB)

	num("PORT", &cfg.Server.Port)
	str("HOST", &cfg.Server.Host)
	str("TOOLSET", &cfg.Server.Toolset)
	str("LOG_LEVEL", &cfg.LogLevel)

	if v, ok := lookup("USE_LOCAL_EMBEDDINGS"); ok {
		cfg.Embedding.UseLocal = truthy(v)
	}
	str("EMBEDDING_BACKEND", &cfg.Embedding.Backend)
	str("EMBEDDING_MODEL", &cfg.Embedding.Model)
	str("EMBEDDING_URL", &cfg.Embedding.BaseURL)
	str("EMBEDDING_MODEL_PATH", &cfg.Embedding.ModelPath)

	str("GENERATION_BACKEND", &cfg.Generation.Backend)
	str("GENERATION_MODEL", &cfg.Generation.Model)
	str("GENERATION_URL", &cfg.Generation.BaseURL)

	if v, ok := lookup("OPENAI_API_KEY"); ok && v != "" {
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
		if cfg.Generation.APIKey == "" {
			cfg.Generation.APIKey = v
		}
	}
	if v, ok := lookup("OLLAMA_HOST"); ok && v != "" {
		if cfg.Embedding.Backend == "ollama" && cfg.Embedding.BaseURL == "" {
			cfg.Embedding.BaseURL = v
		}
		if cfg.Generation.Backend == "ollama" && cfg.Generation.BaseURL == "" {
			cfg.Generation.BaseURL = v
		}
	}

	str("UPSTREAM_URL", &cfg.Upstream.HTTPBinURL)
	str("LANGFLOW_URL", &cfg.Upstream.LangflowURL)
	if v, ok := lookup("TIMEOUT"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Upstream.HTTPBinTimeout = n
			cfg.Upstream.LangflowTimeout = n
			cfg.Gateway.Timeout = n
		}
	}

	str("GATEWAY_URL", &cfg.Gateway.URL)
	str("GATEWAY_TOKEN", &cfg.Gateway.Token)
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
