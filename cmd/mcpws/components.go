package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/mcpws/internal/config"
	"github.com/hyperjump/mcpws/internal/embedding"
	"github.com/hyperjump/mcpws/internal/extract"
	"github.com/hyperjump/mcpws/internal/indexer"
	"github.com/hyperjump/mcpws/internal/llm"
	"github.com/hyperjump/mcpws/internal/mcpserver"
	"github.com/hyperjump/mcpws/internal/search"
	"github.com/hyperjump/mcpws/internal/server"
	"github.com/hyperjump/mcpws/internal/upstream"
	"github.com/hyperjump/mcpws/internal/vector"
	"go.uber.org/zap"
)

// Components holds the long-lived backends behind a toolset.
type Components struct {
	Index     vector.Index
	Embedder  *embedding.FallbackEmbedder
	Extractor *extract.Extractor
	Indexer   *indexer.Indexer
	Engine    *search.Engine
	HTTPBin   *upstream.HTTPBinClient
	Langflow  *upstream.LangflowClient
}

// Close releases the index and embedder.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

// initializeComponents builds only what cfg.Server.Toolset needs, so the calc
// toolset never opens an index.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	switch cfg.Server.Toolset {
	case server.ToolsetDocling:
		if err := c.initDocling(ctx, cfg, logger); err != nil {
			c.Close()
			return nil, err
		}
	case server.ToolsetHTTPBin:
		c.HTTPBin = upstream.NewHTTPBinClient(cfg.Upstream.HTTPBinURL, seconds(cfg.Upstream.HTTPBinTimeout))
	case server.ToolsetLangflow:
		c.Langflow = upstream.NewLangflowClient(cfg.Upstream.LangflowURL, seconds(cfg.Upstream.LangflowTimeout))
	}
	return c, nil
}

func (c *Components) initDocling(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	index, err := vector.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open vector index: %w", err)
	}
	c.Index = index
	c.Embedder = embedding.New(cfg.Embedding, logger)
	c.Extractor = extract.NewExtractor()
	c.Indexer = indexer.New(index, c.Embedder, c.Extractor,
		indexer.WithLogger(logger.Named("indexer")),
		indexer.WithChunking(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		indexer.WithMaxFileMB(cfg.Ingest.MaxFileMB),
	)

	engineOpts := []search.Option{
		search.WithLogger(logger.Named("search")),
		search.WithOptions(llm.OptionsFrom(cfg.Generation)),
	}
	if cfg.Generation.MaxContextTokens > 0 {
		counter, err := llm.NewTokenCounter(cfg.Generation.Model)
		if err != nil {
			logger.Warn("token counter unavailable, context budget disabled", zap.Error(err))
		} else {
			engineOpts = append(engineOpts, search.WithContextBudget(counter, cfg.Generation.MaxContextTokens))
		}
	}
	generator := llm.New(cfg.Generation, logger.Named("llm"))
	if generator == nil {
		logger.Warn("no generation backend configured, answers are degraded")
	}
	c.Engine = search.NewEngine(index, c.Embedder, generator, engineOpts...)

	logger.Info("docling components ready",
		zap.String("index_backend", index.Backend()),
		zap.String("collection", cfg.Storage.Collection),
		zap.String("embedding_backend", c.Embedder.Backend()),
	)
	return nil
}

// serverDeps wires components into the HTTP server, mounting MCP at /mcp when
// the docling toolset is active.
func (c *Components) serverDeps(cfg *config.Config, logger *zap.Logger) (server.Deps, error) {
	deps := server.Deps{HTTPBin: c.HTTPBin, Langflow: c.Langflow}
	if c.Engine == nil {
		return deps, nil
	}
	deps.Docling = &server.Docling{
		Indexer:    c.Indexer,
		Engine:     c.Engine,
		Extractor:  c.Extractor,
		Index:      c.Index,
		Collection: cfg.Storage.Collection,
		MaxFileMB:  cfg.Ingest.MaxFileMB,
		DiskPaths:  diskPaths(c.Index),
	}
	mcpSrv, err := c.mcpServer(cfg, logger)
	if err != nil {
		return deps, err
	}
	deps.MCP = mcpSrv.Handler()
	return deps, nil
}

func (c *Components) mcpServer(cfg *config.Config, logger *zap.Logger) (*mcpserver.Server, error) {
	return mcpserver.NewServer(mcpserver.Ports{
		Query:     c.Engine,
		Ingest:    c.Indexer,
		Parse:     c.Extractor,
		MaxFileMB: cfg.Ingest.MaxFileMB,
	}, logger.Named("mcp"))
}

// diskPaths lists the files backing a file-based index.
func diskPaths(index vector.Index) []string {
	if f, ok := index.(interface{ Files() []string }); ok {
		return f.Files()
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
