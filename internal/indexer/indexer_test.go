package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/mcpws/internal/embedding"
	"github.com/hyperjump/mcpws/internal/extract"
	"github.com/hyperjump/mcpws/internal/models"
	"github.com/hyperjump/mcpws/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) (*embedding.Result, error) {
	return nil, models.NewBackendError("local", errors.New("model missing"))
}

func newTestIndexer(t *testing.T, opts ...Option) (*Indexer, *vector.MemoryIndex) {
	t.Helper()
	index := vector.NewMemoryIndex("test")
	emb := embedding.NewFallbackEmbedder(nil, embedding.NewHashEmbedder(16))
	return New(index, emb, extract.NewExtractor(), opts...), index
}

func TestIngest(t *testing.T) {
	idx, index := newTestIndexer(t, WithChunking(10, 2))
	ctx := models.WithCorrelationID(context.Background(), "corr-1")

	res, err := idx.Ingest(ctx, []File{
		{Name: "a.txt", Content: []byte("abcdefghijklmnop")},
		{Name: "b.md", Content: []byte("short")},
	}, map[string]interface{}{"team": "docs"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.IngestedDocs)
	assert.Equal(t, 5, res.Chunks, "a.txt: 0-10, 8-16, 14-16; b.md: 0-5, 3-5")
	assert.Equal(t, "corr-1", res.CorrelationID)
	assert.GreaterOrEqual(t, res.LatencyMS, int64(0))

	n, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	hits, err := index.Query(ctx, embedding.NewHashEmbedder(16).Embed("short"), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b.md:0", hits[0].ID)
	assert.Equal(t, "b.md", hits[0].Metadata["source"])
	assert.Equal(t, "docs", hits[0].Metadata["team"])
}

func TestIngest_reingestReplaces(t *testing.T) {
	idx, index := newTestIndexer(t, WithChunking(5, 0))
	ctx := context.Background()
	files := []File{{Name: "a.txt", Content: []byte("0123456789")}}

	_, err := idx.Ingest(ctx, files, nil)
	require.NoError(t, err)
	_, err = idx.Ingest(ctx, files, nil)
	require.NoError(t, err)

	n, _ := index.Count(ctx)
	assert.Equal(t, 2, n)
}

func TestIngest_sourceOverrideCountsOnce(t *testing.T) {
	idx, _ := newTestIndexer(t)
	res, err := idx.Ingest(context.Background(), []File{
		{Name: "a.txt", Content: []byte("one")},
		{Name: "b.txt", Content: []byte("two")},
	}, map[string]interface{}{"source": "bundle"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.IngestedDocs)
}

func TestIngest_tooLarge(t *testing.T) {
	idx, index := newTestIndexer(t, WithMaxFileMB(1))
	big := []byte(strings.Repeat("x", 1024*1024+1))

	_, err := idx.Ingest(context.Background(), []File{
		{Name: "ok.txt", Content: []byte("fine")},
		{Name: "big.txt", Content: big},
	}, nil)
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	assert.EqualError(t, err, "big.txt exceeds 1 MB limit")

	n, _ := index.Count(context.Background())
	assert.Equal(t, 0, n, "no partial commit")
}

func TestIngest_noText(t *testing.T) {
	idx, _ := newTestIndexer(t)
	_, err := idx.Ingest(context.Background(), []File{{Name: "empty.txt", Content: nil}}, nil)
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	assert.EqualError(t, err, "No text extracted from provided files")

	_, err = idx.Ingest(context.Background(), nil, nil)
	assert.EqualError(t, err, "No text extracted from provided files")
}

func TestIngest_parseFailureIsValidation(t *testing.T) {
	idx, _ := newTestIndexer(t)
	_, err := idx.Ingest(context.Background(), []File{{Name: "x.docx", Content: []byte("not a zip")}}, nil)
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestIngest_embedFailureAbortsBatch(t *testing.T) {
	index := vector.NewMemoryIndex("test")
	idx := New(index, failingEmbedder{}, nil)

	_, err := idx.Ingest(context.Background(), []File{{Name: "a.txt", Content: []byte("text")}}, nil)
	require.Error(t, err)
	assert.True(t, models.IsBackend(err))
	n, _ := index.Count(context.Background())
	assert.Equal(t, 0, n)
}

func TestIngest_nonScalarMetadata(t *testing.T) {
	idx, index := newTestIndexer(t)
	_, err := idx.Ingest(context.Background(), []File{{Name: "a.txt", Content: []byte("alpha")}},
		map[string]interface{}{"tags": []interface{}{"x", 1}})
	require.NoError(t, err)

	hits, err := index.Query(context.Background(), embedding.NewHashEmbedder(16).Embed("alpha"), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, `["x",1]`, hits[0].Metadata["tags"])
}
