package vector

import (
	"context"
	"sync"

	"github.com/hyperjump/mcpws/internal/models"
)

// MemoryIndex keeps a collection in process memory and searches by brute force.
// Contents live as long as the process.
type MemoryIndex struct {
	collection string
	dimensions int
	records    []memoryRecord
	byID       map[string]int
	mu         sync.RWMutex
}

type memoryRecord struct {
	id       string
	text     string
	vector   []float32
	metadata models.Metadata
}

// NewMemoryIndex creates an empty in-memory collection.
func NewMemoryIndex(collection string) *MemoryIndex {
	return &MemoryIndex{collection: collection, byID: make(map[string]int)}
}

// Upsert replaces records with an existing id in place and appends the rest.
// Nothing is written when validation fails.
func (m *MemoryIndex) Upsert(ctx context.Context, ids, texts []string, vectors [][]float32, metadatas []map[string]interface{}) error {
	dim, err := validateUpsert(ids, texts, vectors, metadatas)
	if err != nil || dim == 0 {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimensions != 0 && dim != m.dimensions {
		return dimensionMismatch(dim, m.dimensions)
	}
	m.dimensions = dim
	for i, id := range ids {
		vec := make([]float32, dim)
		copy(vec, vectors[i])
		rec := memoryRecord{id: id, text: texts[i], vector: vec, metadata: models.CoerceMetadata(metadatas[i])}
		if pos, ok := m.byID[id]; ok {
			m.records[pos] = rec
			continue
		}
		m.byID[id] = len(m.records)
		m.records = append(m.records, rec)
	}
	return nil
}

// Query scans every record.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.records) == 0 {
		return []Hit{}, nil
	}
	if len(vector) != m.dimensions {
		return nil, dimensionMismatch(len(vector), m.dimensions)
	}
	hits := make([]Hit, len(m.records))
	for i, rec := range m.records {
		hits[i] = Hit{ID: rec.id, Text: rec.text, Metadata: rec.metadata, Distance: SquaredL2(vector, rec.vector)}
	}
	return topK(hits, k), nil
}

// Count returns the number of records.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Backend returns "memory".
func (m *MemoryIndex) Backend() string {
	return string(BackendMemory)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
