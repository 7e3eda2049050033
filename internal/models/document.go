// Package models defines core data structures for chunks, queries, answers and tools.
package models

import (
	"encoding/json"
	"fmt"
)

// MetadataKeySource is the metadata key holding the originating filename of a chunk.
const MetadataKeySource = "source"

// Metadata maps string keys to scalar values (string, float64, bool or nil).
type Metadata map[string]interface{}

// Chunk is a contiguous substring of a document, the unit of embedding and retrieval.
type Chunk struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Metadata Metadata  `json:"metadata"`
	Vector   []float32 `json:"-"`
}

// ChunkID composes the identifier of the idx-th chunk of filename.
func ChunkID(filename string, idx int) string {
	return fmt.Sprintf("%s:%d", filename, idx)
}

// CoerceMetadata returns a copy of m where every value is a scalar.
// Integers are widened to float64; maps, slices and other non-scalars are
// stringified as JSON (or with %v when they cannot be marshaled).
func CoerceMetadata(m map[string]interface{}) Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = coerceValue(v)
	}
	return out
}

func coerceValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil, string, bool, float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(data)
	}
}

// MergeMetadata returns {"source": source} overlaid with common; keys in common win.
func MergeMetadata(source string, common map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(common)+1)
	out[MetadataKeySource] = source
	for k, v := range common {
		out[k] = v
	}
	return out
}
