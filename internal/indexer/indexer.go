package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/mcpws/internal/embedding"
	"github.com/hyperjump/mcpws/internal/extract"
	"github.com/hyperjump/mcpws/internal/models"
	"github.com/hyperjump/mcpws/internal/vector"
	"go.uber.org/zap"
)

const bytesPerMB = 1024 * 1024

// File is one uploaded document.
type File struct {
	Name    string
	Content []byte
}

// Embedder embeds a batch with fallback and reports which backend served it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) (*embedding.Result, error)
}

// Indexer parses, chunks, embeds and upserts uploaded documents.
type Indexer struct {
	index        vector.Index
	embedder     Embedder
	extractor    *extract.Extractor
	chunkSize    int
	chunkOverlap int
	maxFileBytes int64
	maxFileMB    int
	logger       *zap.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// WithChunking overrides the default 1000/200 chunk size and overlap (in runes).
func WithChunking(size, overlap int) Option {
	return func(idx *Indexer) { idx.chunkSize, idx.chunkOverlap = size, overlap }
}

// WithMaxFileMB overrides the default 50 MB per-file limit.
func WithMaxFileMB(mb int) Option {
	return func(idx *Indexer) {
		idx.maxFileMB = mb
		idx.maxFileBytes = int64(mb) * bytesPerMB
	}
}

// New creates an indexer. extractor may be nil; when nil every file is treated as plain text.
func New(index vector.Index, embedder Embedder, extractor *extract.Extractor, opts ...Option) *Indexer {
	idx := &Indexer{
		index:        index,
		embedder:     embedder,
		extractor:    extractor,
		chunkSize:    1000,
		chunkOverlap: 200,
		logger:       zap.NewNop(),
	}
	WithMaxFileMB(50)(idx)
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = zap.NewNop()
	}
	return idx
}

// CheckSize returns a ValidationError naming the file when content exceeds the limit.
func (idx *Indexer) CheckSize(name string, content []byte) error {
	return idx.CheckLength(name, int64(len(content)))
}

// CheckLength is CheckSize for a known byte count, so uploads can be
// rejected before they are read.
func (idx *Indexer) CheckLength(name string, n int64) error {
	if n > idx.maxFileBytes {
		return models.NewValidationError("%s exceeds %d MB limit", name, idx.maxFileMB)
	}
	return nil
}

// Ingest parses every file, chunks the text and writes all chunks with one
// embedding call and one upsert. Chunk ids are "<name>:<idx>" and metadata is
// {"source": name} overlaid with common. Any failure aborts before the
// upsert, so a batch is stored entirely or not at all.
func (idx *Indexer) Ingest(ctx context.Context, files []File, common map[string]interface{}) (*models.IngestResult, error) {
	started := time.Now()

	var (
		ids       []string
		texts     []string
		metadatas []map[string]interface{}
	)
	for _, f := range files {
		if err := idx.CheckSize(f.Name, f.Content); err != nil {
			return nil, err
		}
		text, err := idx.extractText(f)
		if err != nil {
			return nil, err
		}
		chunks := Chunk(text, idx.chunkSize, idx.chunkOverlap)
		for i, c := range chunks {
			ids = append(ids, models.ChunkID(f.Name, i))
			texts = append(texts, c)
			metadatas = append(metadatas, models.CoerceMetadata(models.MergeMetadata(f.Name, common)))
		}
		idx.logger.Debug("indexer file chunked", zap.String("file", f.Name), zap.Int("chunks", len(chunks)))
	}
	if len(texts) == 0 {
		return nil, models.NewValidationError("No text extracted from provided files")
	}

	res, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if err := idx.index.Upsert(ctx, ids, texts, res.Vectors, metadatas); err != nil {
		if models.IsValidation(err) {
			return nil, err
		}
		return nil, models.NewBackendError(idx.index.Backend(), err)
	}
	idx.logger.Debug("indexer batch upserted",
		zap.Int("chunks", len(texts)),
		zap.String("embedder", res.Backend),
		zap.Bool("fell_back", res.FellBack))

	return &models.IngestResult{
		IngestedDocs:  distinctSources(metadatas),
		Chunks:        len(texts),
		LatencyMS:     time.Since(started).Milliseconds(),
		CorrelationID: models.CorrelationID(ctx),
	}, nil
}

func (idx *Indexer) extractText(f File) (string, error) {
	if idx.extractor == nil {
		return string(f.Content), nil
	}
	doc, err := idx.extractor.Parse(f.Name, f.Content, false)
	if err != nil {
		return "", models.NewValidationError("%v", err)
	}
	return doc.Text, nil
}

// distinctSources counts distinct "source" values, stringified.
func distinctSources(metadatas []map[string]interface{}) int {
	seen := make(map[string]struct{})
	for _, m := range metadatas {
		seen[fmt.Sprint(m[models.MetadataKeySource])] = struct{}{}
	}
	return len(seen)
}
