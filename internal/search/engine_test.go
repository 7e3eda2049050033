package search

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/mcpws/internal/embedding"
	"github.com/hyperjump/mcpws/internal/llm"
	"github.com/hyperjump/mcpws/internal/models"
	"github.com/hyperjump/mcpws/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingGenerator struct {
	prompts []string
	opts    llm.Options
	err     error
}

func (g *recordingGenerator) Generate(_ context.Context, prompt string, opts llm.Options) (string, error) {
	g.prompts = append(g.prompts, prompt)
	g.opts = opts
	if g.err != nil {
		return "", g.err
	}
	return "generated", nil
}

func (g *recordingGenerator) Name() string { return "fake" }

func intPtr(v int) *int { return &v }

func seededEngine(t *testing.T, gen llm.Generator, opts ...Option) *Engine {
	t.Helper()
	hash := embedding.NewHashEmbedder(32)
	index := vector.NewMemoryIndex("test")
	texts := []string{"alpha beta", "gamma delta", "epsilon zeta"}
	vectors := make([][]float32, len(texts))
	metas := make([]map[string]interface{}, len(texts))
	ids := make([]string, len(texts))
	for i, text := range texts {
		vectors[i] = hash.Embed(text)
		ids[i] = models.ChunkID("doc.txt", i)
		metas[i] = map[string]interface{}{"source": "doc.txt", "n": i}
	}
	require.NoError(t, index.Upsert(context.Background(), ids, texts, vectors, metas))
	return NewEngine(index, embedding.NewFallbackEmbedder(nil, hash), gen, opts...)
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("What?", []string{"one", "two"})
	want := "You are a helpful assistant. Use the context to answer the question.\n" +
		"Cite relevant sources by filename when possible. If unsure, say you don't know.\n\n" +
		"Context:\none\n\ntwo\n\nQuestion: What?\nAnswer:"
	assert.Equal(t, want, got)
}

func TestEngine_Query(t *testing.T) {
	gen := &recordingGenerator{}
	engine := seededEngine(t, gen)
	ctx := models.WithCorrelationID(context.Background(), "c-9")

	ans, err := engine.Query(ctx, &models.QueryRequest{Query: "gamma delta", K: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, "generated", ans.Answer)
	assert.Equal(t, "ok", ans.Generation)
	assert.Equal(t, "c-9", ans.CorrelationID)
	require.Len(t, ans.Sources, 2)
	assert.Equal(t, float64(1), ans.Sources[0]["n"], "best match first")

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Context:\ngamma delta\n\n")
	assert.Contains(t, gen.prompts[0], "Question: gamma delta\nAnswer:")
	assert.Equal(t, llm.DefaultOptions(), gen.opts)
}

func TestEngine_QueryDefaultK(t *testing.T) {
	engine := seededEngine(t, &recordingGenerator{})
	ans, err := engine.Query(context.Background(), &models.QueryRequest{Query: "alpha"})
	require.NoError(t, err)
	assert.Len(t, ans.Sources, 3, "k defaults to 4, index holds 3")
}

func TestEngine_QueryZeroK(t *testing.T) {
	gen := &recordingGenerator{}
	engine := seededEngine(t, gen)
	ans, err := engine.Query(context.Background(), &models.QueryRequest{Query: "alpha", K: intPtr(0)})
	require.NoError(t, err)
	assert.Empty(t, ans.Sources)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Context:\n\n\nQuestion: alpha")
}

func TestEngine_QueryEmptyIsValidation(t *testing.T) {
	engine := seededEngine(t, nil)
	_, err := engine.Query(context.Background(), &models.QueryRequest{})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestEngine_QueryDegraded(t *testing.T) {
	engine := seededEngine(t, nil)
	ans, err := engine.Query(context.Background(), &models.QueryRequest{Query: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, llm.NotConfiguredMessage, ans.Answer)
	assert.Equal(t, "degraded", ans.Generation)
	assert.NotEmpty(t, ans.Sources)
}

func TestEngine_QueryGenerationError(t *testing.T) {
	engine := seededEngine(t, &recordingGenerator{err: errors.New("boom")})
	ans, err := engine.Query(context.Background(), &models.QueryRequest{Query: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, "[LLM error] boom", ans.Answer)
	assert.Equal(t, "error", ans.Generation)
}

func TestEngine_QueryContextBudget(t *testing.T) {
	counter, err := llm.NewTokenCounter("gpt-4o-mini")
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	gen := &recordingGenerator{}
	engine := seededEngine(t, gen, WithContextBudget(counter, 3))
	ans, err := engine.Query(context.Background(), &models.QueryRequest{Query: "alpha beta", K: intPtr(3)})
	require.NoError(t, err)
	assert.Len(t, ans.Sources, 1)
}
