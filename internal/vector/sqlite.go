package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/mcpws/internal/models"
)

// SQLiteIndex persists collections in a SQLite database. Vectors are stored
// as little-endian float32 blobs and searched by brute force.
type SQLiteIndex struct {
	db         *sql.DB
	path       string
	collection string
}

// NewSQLiteIndex opens or creates the database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteIndex(dbPath, collection string) (*SQLiteIndex, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteIndex{db: db, path: dbPath, collection: collection}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimensions INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		text TEXT NOT NULL,
		metadata TEXT,
		vector BLOB NOT NULL,
		PRIMARY KEY (collection, id),
		FOREIGN KEY (collection) REFERENCES collections(name) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_collection_seq ON embeddings(collection, seq);
	`
	_, err := db.Exec(schema)
	return err
}

// Upsert writes the batch in one transaction; on any error nothing is committed.
func (s *SQLiteIndex) Upsert(ctx context.Context, ids, texts []string, vectors [][]float32, metadatas []map[string]interface{}) error {
	dim, err := validateUpsert(ids, texts, vectors, metadatas)
	if err != nil || dim == 0 {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	err = tx.QueryRowContext(ctx, `SELECT dimensions FROM collections WHERE name = ?`, s.collection).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `INSERT INTO collections (name, dimensions) VALUES (?, ?)`, s.collection, dim); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read collection: %w", err)
	case existing != dim:
		return dimensionMismatch(dim, existing)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM embeddings WHERE collection = ?`, s.collection).Scan(&seq); err != nil {
		return fmt.Errorf("read sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (collection, id, seq, text, metadata, vector)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			text = excluded.text,
			metadata = excluded.metadata,
			vector = excluded.vector`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		metadataJSON, err := json.Marshal(models.CoerceMetadata(metadatas[i]))
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		seq++
		if _, err := stmt.ExecContext(ctx, s.collection, id, seq, texts[i], string(metadataJSON), float32SliceToBytes(vectors[i])); err != nil {
			return fmt.Errorf("upsert %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Query scans the collection in insertion order.
func (s *SQLiteIndex) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}
	var dim int
	err := s.db.QueryRowContext(ctx, `SELECT dimensions FROM collections WHERE name = ?`, s.collection).Scan(&dim)
	if err == sql.ErrNoRows {
		return []Hit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}
	if len(vector) != dim {
		return nil, dimensionMismatch(len(vector), dim)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, metadata, vector FROM embeddings WHERE collection = ? ORDER BY seq`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0)
	for rows.Next() {
		var h Hit
		var metadataJSON sql.NullString
		var blob []byte
		if err := rows.Scan(&h.ID, &h.Text, &metadataJSON, &blob); err != nil {
			return nil, err
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &h.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		h.Distance = SquaredL2(vector, bytesToFloat32Slice(blob))
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return topK(hits, k), nil
}

// Count returns the number of records in the collection.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings WHERE collection = ?`, s.collection).Scan(&n)
	return n, err
}

// Path returns the database file path.
func (s *SQLiteIndex) Path() string {
	return s.path
}

// Files returns the database file and its WAL and shared-memory companions.
// The companions only exist while the database is open in WAL mode.
func (s *SQLiteIndex) Files() []string {
	return []string{s.path, s.path + "-wal", s.path + "-shm"}
}

// Backend returns "sqlite".
func (s *SQLiteIndex) Backend() string {
	return string(BackendSQLite)
}

// Close closes the database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
