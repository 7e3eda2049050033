package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/mcpws/internal/indexer"
	"github.com/hyperjump/mcpws/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// QueryInput is the docling.query input.
type QueryInput struct {
	Query string `json:"query" jsonschema:"the question to answer from ingested documents"`
	K     *int   `json:"k,omitempty" jsonschema:"number of passages to retrieve (default 4)"`
}

// FileInput is one document. Content is base64; Text is accepted for plain text files.
type FileInput struct {
	Name          string `json:"name" jsonschema:"file name; its extension selects the parser"`
	ContentBase64 string `json:"content_base64,omitempty" jsonschema:"file bytes, base64 encoded"`
	Text          string `json:"text,omitempty" jsonschema:"raw text, used when content_base64 is empty"`
}

// IngestInput is the docling.ingest input.
type IngestInput struct {
	Files []FileInput            `json:"files" jsonschema:"documents to ingest"`
	Metas map[string]interface{} `json:"metas,omitempty" jsonschema:"metadata added to every chunk"`
}

// ParseInput is the docling.parse input.
type ParseInput struct {
	File         FileInput `json:"file" jsonschema:"document to parse"`
	ReturnImages bool      `json:"return_images,omitempty" jsonschema:"also return embedded images as base64"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "docling.query",
		Description: "RAG query over ingested documents.",
	}, s.handleQuery)
	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "docling.ingest",
			Description: "Parse & ingest PDFs/images into the vector index.",
		}, s.handleIngest)
	}
	if s.ports.Parse != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "docling.parse",
			Description: "Parse a single PDF/image and return extracted text (and base64 images).",
		}, s.handleParse)
	}
}

func (s *Server) withCorrelation(ctx context.Context) (context.Context, string) {
	corr := models.CorrelationID(ctx)
	if corr == "" {
		corr = uuid.NewString()
		ctx = models.WithCorrelationID(ctx, corr)
	}
	return ctx, corr
}

func (s *Server) fail(tool, corr string, err error) error {
	s.logger.Error("error", zap.String("tool", tool), zap.String("corr", corr), zap.String("error", err.Error()))
	return fmt.Errorf("%s: %w", corr, err)
}

func (s *Server) handleQuery(ctx context.Context, _ *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, models.Answer, error) {
	ctx, corr := s.withCorrelation(ctx)
	ans, err := s.ports.Query.Query(ctx, &models.QueryRequest{Query: in.Query, K: in.K})
	if err != nil {
		return nil, models.Answer{}, s.fail("docling.query", corr, err)
	}
	s.logger.Info("docling.query", zap.String("corr", corr), zap.String("transport", "mcp"), zap.Int64("latency_ms", ans.LatencyMS))
	return nil, *ans, nil
}

func (s *Server) handleIngest(ctx context.Context, _ *mcp.CallToolRequest, in IngestInput) (*mcp.CallToolResult, models.IngestResult, error) {
	ctx, corr := s.withCorrelation(ctx)
	files := make([]indexer.File, 0, len(in.Files))
	for _, f := range in.Files {
		content, err := f.bytes()
		if err != nil {
			return nil, models.IngestResult{}, s.fail("docling.ingest", corr, err)
		}
		files = append(files, indexer.File{Name: f.Name, Content: content})
	}
	res, err := s.ports.Ingest.Ingest(ctx, files, in.Metas)
	if err != nil {
		return nil, models.IngestResult{}, s.fail("docling.ingest", corr, err)
	}
	s.logger.Info("docling.ingest", zap.String("corr", corr), zap.String("transport", "mcp"),
		zap.Int("docs", res.IngestedDocs), zap.Int("chunks", res.Chunks))
	return nil, *res, nil
}

func (s *Server) handleParse(ctx context.Context, _ *mcp.CallToolRequest, in ParseInput) (*mcp.CallToolResult, models.ParseResult, error) {
	started := time.Now()
	_, corr := s.withCorrelation(ctx)
	content, err := in.File.bytes()
	if err != nil {
		return nil, models.ParseResult{}, s.fail("docling.parse", corr, err)
	}
	if s.ports.MaxFileMB > 0 && int64(len(content)) > int64(s.ports.MaxFileMB)*1024*1024 {
		return nil, models.ParseResult{}, s.fail("docling.parse", corr,
			models.NewValidationError("File exceeds %d MB limit", s.ports.MaxFileMB))
	}
	doc, err := s.ports.Parse.Parse(in.File.Name, content, in.ReturnImages)
	if err != nil {
		return nil, models.ParseResult{}, s.fail("docling.parse", corr, err)
	}
	res := models.ParseResult{
		Filename:      in.File.Name,
		Text:          doc.Text,
		Images:        doc.ImagesBase64(),
		LatencyMS:     time.Since(started).Milliseconds(),
		CorrelationID: corr,
	}
	s.logger.Info("docling.parse", zap.String("corr", corr), zap.String("transport", "mcp"), zap.String("file", res.Filename))
	return nil, res, nil
}

func (f FileInput) bytes() ([]byte, error) {
	if f.Name == "" {
		return nil, models.NewValidationError("file name is required")
	}
	if f.ContentBase64 == "" {
		return []byte(f.Text), nil
	}
	data, err := base64.StdEncoding.DecodeString(f.ContentBase64)
	if err != nil {
		return nil, models.NewValidationError("%s: invalid base64 content: %v", f.Name, err)
	}
	return data, nil
}
