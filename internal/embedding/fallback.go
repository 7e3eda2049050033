package embedding

import (
	"context"
	"errors"

	"github.com/hyperjump/mcpws/internal/models"
	"go.uber.org/zap"
)

// Result is the outcome of FallbackEmbedder.Embed: the vectors plus which
// backend produced them and whether the primary was bypassed after a failure.
type Result struct {
	Vectors  [][]float32
	Backend  string
	FellBack bool
}

// FallbackEmbedder prefers a remote primary and retries a failed batch once on
// the local embedder.
type FallbackEmbedder struct {
	primary   Embedder
	local     Embedder
	localOnly bool
	logger    *zap.Logger
}

// FallbackOption configures a FallbackEmbedder.
type FallbackOption func(*FallbackEmbedder)

// WithLogger logs fallbacks at warn level.
func WithLogger(l *zap.Logger) FallbackOption {
	return func(f *FallbackEmbedder) { f.logger = l }
}

// LocalOnly skips the primary entirely.
func LocalOnly(v bool) FallbackOption {
	return func(f *FallbackEmbedder) { f.localOnly = v }
}

// NewFallbackEmbedder pairs primary (may be nil) with local (required).
func NewFallbackEmbedder(primary, local Embedder, opts ...FallbackOption) *FallbackEmbedder {
	f := &FallbackEmbedder{primary: primary, local: local, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

// Embed returns one vector per text. A BackendError from the primary triggers
// one retry of the whole batch on the local embedder; any other error (for
// example a cancelled context) is returned as is. Local failures surface as
// BackendError.
func (f *FallbackEmbedder) Embed(ctx context.Context, texts []string) (*Result, error) {
	if len(texts) == 0 {
		return &Result{Vectors: [][]float32{}, Backend: f.Backend()}, nil
	}
	if f.primary == nil || f.localOnly {
		return f.embedLocal(ctx, texts, false)
	}

	vectors, err := f.primary.EmbedBatch(ctx, texts)
	if err == nil {
		return &Result{Vectors: vectors, Backend: f.primary.Name()}, nil
	}
	if !models.IsBackend(err) || ctx.Err() != nil {
		return nil, err
	}
	f.logger.Warn("embedding primary failed, using local",
		zap.String("primary", f.primary.Name()),
		zap.String("local", f.local.Name()),
		zap.Int("texts", len(texts)),
		zap.Error(err))
	return f.embedLocal(ctx, texts, true)
}

func (f *FallbackEmbedder) embedLocal(ctx context.Context, texts []string, fellBack bool) (*Result, error) {
	vectors, err := f.local.EmbedBatch(ctx, texts)
	if err == nil {
		err = checkBatch(f.local.Name(), vectors, len(texts), 0)
	}
	if err != nil {
		var be *models.BackendError
		if !errors.As(err, &be) && ctx.Err() == nil {
			err = models.NewBackendError(f.local.Name(), err)
		}
		return nil, err
	}
	return &Result{Vectors: vectors, Backend: f.local.Name(), FellBack: fellBack}, nil
}

// Backend names the embedder tried first.
func (f *FallbackEmbedder) Backend() string {
	if f.primary == nil || f.localOnly {
		return f.local.Name()
	}
	return f.primary.Name()
}

// Close releases both embedders.
func (f *FallbackEmbedder) Close() error {
	var errs []error
	if f.primary != nil {
		errs = append(errs, f.primary.Close())
	}
	errs = append(errs, f.local.Close())
	return errors.Join(errs...)
}
