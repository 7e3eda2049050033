// Package server exposes a toolset over HTTP: /health, /tools and /call/{tool}.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/mcpws/internal/config"
	"github.com/hyperjump/mcpws/internal/extract"
	"github.com/hyperjump/mcpws/internal/indexer"
	"github.com/hyperjump/mcpws/internal/search"
	"github.com/hyperjump/mcpws/internal/upstream"
	"github.com/hyperjump/mcpws/internal/vector"
	"go.uber.org/zap"
)

// Toolset names.
const (
	ToolsetDocling  = "docling"
	ToolsetCalc     = "calc"
	ToolsetHTTPBin  = "httpbin"
	ToolsetLangflow = "langflow"
)

const requestTimeout = 5 * time.Minute

// Docling holds the process-wide RAG state shared by every docling request.
type Docling struct {
	Indexer    *indexer.Indexer
	Engine     *search.Engine
	Extractor  *extract.Extractor
	Index      vector.Index
	Collection string
	MaxFileMB  int
	// DiskPaths are measured for /status; empty for non-file backends.
	DiskPaths []string
}

// Deps are the backends a toolset may need. Only the selected toolset's
// dependencies must be set.
type Deps struct {
	Docling  *Docling
	HTTPBin  *upstream.HTTPBinClient
	Langflow *upstream.LangflowClient
	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

// Server is the HTTP tool server.
type Server struct {
	config   *config.ServerConfig
	deps     Deps
	registry *Registry
	handler  http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// NewServer builds the router for cfg.Toolset.
func NewServer(cfg *config.ServerConfig, deps Deps, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config:   cfg,
		deps:     deps,
		registry: NewRegistry(),
		logger:   logger,
	}
	if err := s.registerToolset(cfg.Toolset); err != nil {
		return nil, err
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) registerToolset(name string) error {
	switch name {
	case ToolsetDocling, "":
		if s.deps.Docling == nil {
			return fmt.Errorf("toolset %s: docling dependencies not configured", ToolsetDocling)
		}
		return s.registerDocling()
	case ToolsetCalc:
		return s.registerCalc()
	case ToolsetHTTPBin:
		if s.deps.HTTPBin == nil {
			return fmt.Errorf("toolset %s: upstream client not configured", name)
		}
		return s.registerHTTPBin()
	case ToolsetLangflow:
		if s.deps.Langflow == nil {
			return fmt.Errorf("toolset %s: langflow client not configured", name)
		}
		return s.registerLangflow()
	default:
		return fmt.Errorf("unknown toolset: %s (supported: docling, calc, httpbin, langflow)", name)
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(correlation)
	r.Use(requestLogger(s.logger))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(middleware.Compress(5))
		r.Get("/health", s.handleHealth)
		r.Get("/tools", s.handleTools)
		r.Post("/call/{tool}", s.handleCall)
		if s.deps.Docling != nil {
			r.Get("/status", s.handleStatus)
		}
	})
	if s.deps.MCP != nil {
		r.Handle("/mcp", s.deps.MCP)
	}
	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Registry returns the tools registered for the active toolset.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server",
		zap.String("addr", addr),
		zap.String("toolset", s.config.Toolset),
		zap.Strings("tools", s.registry.Names()))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
