// Package embedding turns text into fixed-length float32 vectors. Remote
// backends (OpenAI-compatible, Ollama) are paired with a local fallback
// (ONNX Runtime or a deterministic hash embedder).
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/mcpws/internal/models"
)

// Embedder produces vector embeddings for a batch of texts, one per input, in order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
	Close() error
}

// checkBatch verifies a backend answer: one non-empty vector per text and a
// single dimension across the batch (and equal to want when want > 0).
func checkBatch(backend string, vectors [][]float32, n, want int) error {
	if len(vectors) != n {
		return models.NewBackendError(backend, fmt.Errorf("expected %d embeddings, got %d", n, len(vectors)))
	}
	dim := want
	for i, v := range vectors {
		if len(v) == 0 {
			return models.NewBackendError(backend, fmt.Errorf("empty embedding at index %d", i))
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return models.NewBackendError(backend, fmt.Errorf("embedding dimension mismatch at index %d: expected %d, got %d", i, dim, len(v)))
		}
	}
	return nil
}
