package vector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/mcpws/internal/config"
)

// BackendType names a vector index implementation.
type BackendType string

const (
	// BackendMemory keeps vectors in process memory; contents are lost on exit.
	BackendMemory BackendType = "memory"
	// BackendSQLite persists vectors in a local SQLite file.
	BackendSQLite BackendType = "sqlite"
	// BackendPGVector stores vectors in PostgreSQL with the pgvector extension.
	BackendPGVector BackendType = "pgvector"
)

// DefaultDBName is the database file created inside a directory index path.
const DefaultDBName = "index.db"

// New creates the index selected by cfg. With no backend set, a non-empty
// IndexPath selects SQLite and an empty one selects memory.
func New(ctx context.Context, cfg config.StorageConfig) (Index, error) {
	backend := BackendType(cfg.Backend)
	if backend == "" {
		backend = BackendMemory
		if cfg.IndexPath != "" {
			backend = BackendSQLite
		}
	}
	switch backend {
	case BackendMemory:
		return NewMemoryIndex(cfg.Collection), nil
	case BackendSQLite:
		if cfg.IndexPath == "" {
			return nil, fmt.Errorf("sqlite index requires storage.index_path")
		}
		return NewSQLiteIndex(DBPath(cfg.IndexPath), cfg.Collection)
	case BackendPGVector:
		return NewPGVectorIndex(ctx, cfg.PostgresDSN, cfg.Collection)
	default:
		return nil, fmt.Errorf("unknown index backend: %s (supported: memory, sqlite, pgvector)", cfg.Backend)
	}
}

// DBPath resolves an index path to a database file. Existing directories and
// paths without an extension are treated as directories holding DefaultDBName.
func DBPath(indexPath string) string {
	if info, err := os.Stat(indexPath); err == nil && info.IsDir() {
		return filepath.Join(indexPath, DefaultDBName)
	}
	if filepath.Ext(indexPath) == "" {
		return filepath.Join(indexPath, DefaultDBName)
	}
	return indexPath
}
