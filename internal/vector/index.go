// Package vector stores chunk embeddings in named collections and answers
// nearest-neighbour queries by squared Euclidean distance.
package vector

import (
	"context"

	"github.com/hyperjump/mcpws/internal/models"
)

// Index is a named collection of (id, text, vector, metadata) records.
type Index interface {
	// Upsert inserts or replaces records; all slices must have equal length.
	Upsert(ctx context.Context, ids, texts []string, vectors [][]float32, metadatas []map[string]interface{}) error
	// Query returns up to k hits ordered by ascending distance.
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
	Backend() string
	Close() error
}

// Hit is a single query result. Distance is squared L2; lower is closer.
type Hit struct {
	ID       string          `json:"id"`
	Text     string          `json:"text"`
	Metadata models.Metadata `json:"metadata"`
	Distance float64         `json:"distance"`
}

// validateUpsert checks slice lengths and that every vector has the same non-zero dimension.
// It returns that dimension (0 for an empty batch).
func validateUpsert(ids, texts []string, vectors [][]float32, metadatas []map[string]interface{}) (int, error) {
	n := len(ids)
	if len(texts) != n || len(vectors) != n || len(metadatas) != n {
		return 0, models.NewValidationError("upsert length mismatch: %d ids, %d texts, %d vectors, %d metadatas",
			n, len(texts), len(vectors), len(metadatas))
	}
	dim := 0
	for i, v := range vectors {
		if len(v) == 0 {
			return 0, models.NewValidationError("empty vector for id %q", ids[i])
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return 0, models.NewValidationError("vector dimension mismatch for id %q: got %d, expected %d", ids[i], len(v), dim)
		}
	}
	return dim, nil
}

func dimensionMismatch(got, want int) error {
	return models.NewValidationError("vector dimension mismatch: got %d, collection has %d", got, want)
}
