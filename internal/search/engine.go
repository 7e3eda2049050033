// Package search answers questions over the vector index.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/mcpws/internal/embedding"
	"github.com/hyperjump/mcpws/internal/llm"
	"github.com/hyperjump/mcpws/internal/models"
	"github.com/hyperjump/mcpws/internal/vector"
	"go.uber.org/zap"
)

// Embedder embeds a batch with fallback.
type Embedder interface {
	Embed(ctx context.Context, texts []string) (*embedding.Result, error)
}

// Engine runs retrieval followed by a single generation call.
type Engine struct {
	index     vector.Index
	embedder  Embedder
	generator llm.Generator
	opts      llm.Options
	counter   *llm.TokenCounter
	budget    int
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithOptions overrides the generation options.
func WithOptions(o llm.Options) Option {
	return func(e *Engine) { e.opts = o }
}

// WithContextBudget drops trailing passages once their token count exceeds budget.
func WithContextBudget(c *llm.TokenCounter, budget int) Option {
	return func(e *Engine) { e.counter, e.budget = c, budget }
}

// NewEngine creates a query engine. generator may be nil, in which case
// answers are the degraded not-configured message.
func NewEngine(index vector.Index, embedder Embedder, generator llm.Generator, opts ...Option) *Engine {
	e := &Engine{
		index:     index,
		embedder:  embedder,
		generator: generator,
		opts:      llm.DefaultOptions(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Query embeds the question, retrieves the top k chunks and generates an
// answer. Generation problems never fail the call; they surface in
// Answer.Generation and the answer text.
func (e *Engine) Query(ctx context.Context, req *models.QueryRequest) (*models.Answer, error) {
	started := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hits, err := e.retrieve(ctx, req.Query, req.TopK())
	if err != nil {
		return nil, err
	}

	passages := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = h.Text
	}
	kept := llm.FitContext(e.counter, passages, e.budget)
	if kept < len(hits) {
		e.logger.Debug("context budget trimmed passages",
			zap.Int("retrieved", len(hits)), zap.Int("kept", kept))
	}
	hits, passages = hits[:kept], passages[:kept]

	gen := llm.Answer(ctx, e.generator, BuildPrompt(req.Query, passages), e.opts)
	if gen.Status == llm.StatusError {
		e.logger.Warn("generation failed", zap.String("backend", gen.Backend), zap.String("answer", gen.Text))
	}

	sources := make([]models.Metadata, len(hits))
	for i, h := range hits {
		sources[i] = h.Metadata
	}
	return &models.Answer{
		Answer:        gen.Text,
		Sources:       sources,
		LatencyMS:     time.Since(started).Milliseconds(),
		CorrelationID: models.CorrelationID(ctx),
		Generation:    string(gen.Status),
	}, nil
}

func (e *Engine) retrieve(ctx context.Context, query string, k int) ([]vector.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	res, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(res.Vectors) != 1 {
		return nil, models.NewBackendError(res.Backend, fmt.Errorf("expected 1 query vector, got %d", len(res.Vectors)))
	}
	hits, err := e.index.Query(ctx, res.Vectors[0], k)
	if err != nil {
		if models.IsValidation(err) || models.IsBackend(err) {
			return nil, err
		}
		return nil, models.NewBackendError(e.index.Backend(), err)
	}
	return hits, nil
}
