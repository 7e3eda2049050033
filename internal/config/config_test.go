package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  collection: "handbook"
ingest:
  chunk_overlap: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, "handbook", cfg.Storage.Collection)
	assert.Equal(t, 0, cfg.Ingest.ChunkOverlap, "explicit zero overlap is kept")
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.False(t, cfg.Debug)
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  index_path: "./data/index.db"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data", "index.db"), cfg.Storage.IndexPath)
}

func TestLoad_invalid(t *testing.T) {
	path := writeConfig(t, `
ingest:
  max_file_mb: -1
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_pgvectorRequiresDSN(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: pgvector
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "docling", cfg.Server.Toolset)
	assert.Equal(t, "docling_rag", cfg.Storage.Collection)
	assert.Equal(t, "", cfg.Storage.IndexPath)
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, 200, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 50, cfg.Ingest.MaxFileMB)
	assert.Equal(t, 512, cfg.Generation.MaxTokens)
	assert.InDelta(t, 0.2, cfg.Generation.Temperature, 1e-6)
	assert.Equal(t, 0, cfg.Embedding.CacheSize)
	assert.Equal(t, "https://httpbin.org/get", cfg.Upstream.HTTPBinURL)
	assert.Equal(t, 20, cfg.Upstream.HTTPBinTimeout)
	assert.Equal(t, "http://localhost:4444", cfg.Gateway.URL)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CHROMA_DIR":           "/var/lib/rag",
		"DOC_COLLECTION":       "docs",
		"CHUNK_SIZE":           "500",
		"CHUNK_OVERLAP":        "0",
		"MAX_FILE_MB":          "10",
		"PORT":                 "9300",
		"USE_LOCAL_EMBEDDINGS": "1",
		"LOG_LEVEL":            "DEBUG",
		"OPENAI_API_KEY":       "sk-test",
		"TIMEOUT":              "5",
		"GATEWAY_TOKEN":        "secret",
		"MAX_FILE_MB_TYPO":     "x",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := Default()
	ApplyEnv(cfg, lookup)

	assert.Equal(t, "/var/lib/rag", cfg.Storage.IndexPath)
	assert.Equal(t, "docs", cfg.Storage.Collection)
	assert.Equal(t, 500, cfg.Ingest.ChunkSize)
	assert.Equal(t, 0, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 10, cfg.Ingest.MaxFileMB)
	assert.Equal(t, 9300, cfg.Server.Port)
	assert.True(t, cfg.Embedding.UseLocal)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "sk-test", cfg.Generation.APIKey)
	assert.Equal(t, 5, cfg.Upstream.HTTPBinTimeout)
	assert.Equal(t, 5, cfg.Upstream.LangflowTimeout)
	assert.Equal(t, "secret", cfg.Gateway.Token)
}

func TestApplyEnv_badNumberIgnored(t *testing.T) {
	cfg := Default()
	ApplyEnv(cfg, func(k string) (string, bool) {
		if k == "CHUNK_SIZE" {
			return "lots", true
		}
		return "", false
	})
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "on"} {
		assert.True(t, truthy(v), v)
	}
	for _, v := range []string{"0", "", "no", "false"} {
		assert.False(t, truthy(v), v)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := Default()
	cfg.Server.Port = 9090
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, loaded.Server.Port)
}
