// Package mcpserver exposes the docling tools as native MCP tools over stdio
// or streamable HTTP.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hyperjump/mcpws/internal/extract"
	"github.com/hyperjump/mcpws/internal/indexer"
	"github.com/hyperjump/mcpws/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Version is reported in the MCP implementation info.
const Version = "0.1.0"

// ErrMissingQuerier is returned when Ports has no query engine.
var ErrMissingQuerier = errors.New("mcpserver: query engine is required")

// Querier answers docling.query.
type Querier interface {
	Query(ctx context.Context, req *models.QueryRequest) (*models.Answer, error)
}

// Ingester stores documents for docling.ingest.
type Ingester interface {
	Ingest(ctx context.Context, files []indexer.File, common map[string]interface{}) (*models.IngestResult, error)
}

// Parser extracts text for docling.parse.
type Parser interface {
	Parse(filename string, content []byte, withImages bool) (*extract.Document, error)
}

// Ports are the services behind the tools. Ingest and Parse are optional;
// their tools are only registered when set.
type Ports struct {
	Query     Querier
	Ingest    Ingester
	Parse     Parser
	MaxFileMB int
}

// Server is the MCP server.
type Server struct {
	ports  Ports
	server *mcp.Server
	logger *zap.Logger
}

// NewServer creates the MCP server and registers the available tools.
func NewServer(ports Ports, logger *zap.Logger) (*Server, error) {
	if ports.Query == nil {
		return nil, ErrMissingQuerier
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ports:  ports,
		server: mcp.NewServer(&mcp.Implementation{Name: "mcpws-docling", Version: Version}, nil),
		logger: logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP over stdio until ctx is cancelled or the peer disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns a streamable HTTP handler serving this server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// Connect attaches the server to an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	session, err := s.server.Connect(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("connect mcp session: %w", err)
	}
	return session, nil
}
