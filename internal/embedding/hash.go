package embedding

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/hyperjump/mcpws/pkg/utils"
)

// HashEmbedder is a deterministic local embedder. Each lower-cased word is
// hashed into a bucket with a signed weight, so texts sharing vocabulary land
// close together. It needs no model files and is the last-resort fallback.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns an embedder producing unit vectors of the given dimension.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the vector for a single text.
func (e *HashEmbedder) Embed(text string) []float32 {
	vec := make([]float32, e.dimensions)
	words := strings.Fields(strings.ToLower(text))
	for _, w := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimensions))
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vec[idx] += sign
	}
	if isZero(vec) {
		// Constant direction for empty text so the vector stays unit length.
		vec[0] = 1
	}
	utils.NormalizeL2(vec)
	return vec
}

// EmbedBatch embeds each text; it only fails when ctx is done.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.Embed(text)
	}
	return vectors, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns "hash".
func (e *HashEmbedder) Name() string {
	return "hash"
}

// Close is a no-op.
func (e *HashEmbedder) Close() error {
	return nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
