package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/hyperjump/mcpws/internal/models"
)

// PGVectorIndex stores collections in PostgreSQL with the pgvector extension.
type PGVectorIndex struct {
	pool       *pgxpool.Pool
	collection string
}

// NewPGVectorIndex connects to dsn, pings the server and creates the schema.
func NewPGVectorIndex(ctx context.Context, dsn, collection string) (*PGVectorIndex, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	p := &PGVectorIndex{pool: pool, collection: collection}
	if err := p.createTables(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return p, nil
}

func (p *PGVectorIndex) createTables(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS rag_collections (
		name TEXT PRIMARY KEY,
		dimensions INT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS rag_embeddings (
		collection TEXT NOT NULL REFERENCES rag_collections(name) ON DELETE CASCADE,
		id TEXT NOT NULL,
		seq BIGSERIAL,
		text TEXT NOT NULL,
		metadata JSONB,
		embedding vector NOT NULL,
		PRIMARY KEY (collection, id)
	);
	`)
	return err
}

// Upsert writes the batch in one transaction.
func (p *PGVectorIndex) Upsert(ctx context.Context, ids, texts []string, vectors [][]float32, metadatas []map[string]interface{}) error {
	dim, err := validateUpsert(ids, texts, vectors, metadatas)
	if err != nil || dim == 0 {
		return err
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existing int
	err = tx.QueryRow(ctx, `SELECT dimensions FROM rag_collections WHERE name = $1`, p.collection).Scan(&existing)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, `INSERT INTO rag_collections (name, dimensions) VALUES ($1, $2) ON CONFLICT DO NOTHING`, p.collection, dim); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read collection: %w", err)
	case existing != dim:
		return dimensionMismatch(dim, existing)
	}

	batch := &pgx.Batch{}
	for i, id := range ids {
		metadataJSON, err := json.Marshal(models.CoerceMetadata(metadatas[i]))
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		batch.Queue(`
			INSERT INTO rag_embeddings (collection, id, text, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (collection, id) DO UPDATE SET
				text = EXCLUDED.text,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding`,
			p.collection, id, texts[i], metadataJSON, pgvector.NewVector(vectors[i]))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert embeddings: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Query orders by the pgvector L2 operator and squares the distance.
func (p *PGVectorIndex) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}
	var dim int
	err := p.pool.QueryRow(ctx, `SELECT dimensions FROM rag_collections WHERE name = $1`, p.collection).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return []Hit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}
	if len(vector) != dim {
		return nil, dimensionMismatch(len(vector), dim)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, text, metadata, embedding <-> $2::vector AS distance
		FROM rag_embeddings
		WHERE collection = $1
		ORDER BY embedding <-> $2::vector, seq
		LIMIT $3`, p.collection, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0, k)
	for rows.Next() {
		var h Hit
		var metadataJSON []byte
		var distance float64
		if err := rows.Scan(&h.ID, &h.Text, &metadataJSON, &distance); err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &h.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		h.Distance = distance * distance
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Count returns the number of records in the collection.
func (p *PGVectorIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rag_embeddings WHERE collection = $1`, p.collection).Scan(&n)
	return n, err
}

// Backend returns "pgvector".
func (p *PGVectorIndex) Backend() string {
	return string(BackendPGVector)
}

// Close closes the pool.
func (p *PGVectorIndex) Close() error {
	p.pool.Close()
	return nil
}
