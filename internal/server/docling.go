package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/hyperjump/mcpws/internal/indexer"
	"github.com/hyperjump/mcpws/internal/models"
	"go.uber.org/zap"
)

// Docling tool names.
const (
	ToolDoclingParse  = "docling.parse"
	ToolDoclingIngest = "docling.ingest"
	ToolDoclingQuery  = "docling.query"
)

const (
	maxMultipartMemory = 32 << 20
	bytesPerMB         = 1024 * 1024

	// multipartSlack covers boundaries, part headers and form fields.
	multipartSlack = 1 << 20
)

// DoclingTools returns the advertised docling tools.
func DoclingTools() []models.Tool {
	return []models.Tool{
		{
			Name:        ToolDoclingParse,
			Description: "Parse a single PDF/image and return extracted text (and base64 images).",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"return_images": map[string]interface{}{"type": "boolean", "default": false},
				},
				"required": []interface{}{},
			},
		},
		{
			Name:        ToolDoclingIngest,
			Description: "Parse & ingest PDFs/images into the vector index.",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"metas": map[string]interface{}{"type": "object"},
				},
				"required": []interface{}{},
			},
		},
		{
			Name:        ToolDoclingQuery,
			Description: "RAG query over ingested documents.",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{"type": "string"},
					"k":     map[string]interface{}{"type": "integer", "default": models.DefaultK},
				},
				"required": []interface{}{"query"},
			},
		},
	}
}

func (s *Server) registerDocling() error {
	tools := DoclingTools()
	handlers := map[string]struct {
		h        http.HandlerFunc
		jsonBody bool
	}{
		ToolDoclingParse:  {s.handleParse, false},
		ToolDoclingIngest: {s.handleIngest, false},
		ToolDoclingQuery:  {s.handleQuery, true},
	}
	for _, t := range tools {
		h := handlers[t.Name]
		if err := s.registry.register(&toolEntry{tool: t, jsonBody: h.jsonBody, handle: h.h}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	files, common, err := s.readIngestForm(r)
	if err != nil {
		s.fail(w, r, ToolDoclingIngest, http.StatusBadRequest, err)
		return
	}
	res, err := s.deps.Docling.Indexer.Ingest(ctx, files, common)
	if err != nil {
		s.fail(w, r, ToolDoclingIngest, http.StatusBadRequest, err)
		return
	}
	s.logger.Info(ToolDoclingIngest,
		zap.String("corr", res.CorrelationID),
		zap.Int("docs", res.IngestedDocs),
		zap.Int("chunks", res.Chunks),
		zap.Int64("latency_ms", res.LatencyMS))
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, ToolDoclingQuery, http.StatusBadRequest, models.NewValidationError("invalid request body: %v", err))
		return
	}
	ans, err := s.deps.Docling.Engine.Query(r.Context(), &req)
	if err != nil {
		s.fail(w, r, ToolDoclingQuery, http.StatusBadRequest, err)
		return
	}
	s.logger.Info(ToolDoclingQuery,
		zap.String("corr", ans.CorrelationID),
		zap.Int("k", req.TopK()),
		zap.String("generation", ans.Generation),
		zap.Int64("latency_ms", ans.LatencyMS))
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx := r.Context()
	d := s.deps.Docling
	tooLarge := models.NewValidationError("File exceeds %d MB limit", d.MaxFileMB)
	maxBody := int64(d.MaxFileMB)*bytesPerMB + multipartSlack
	if r.ContentLength > maxBody {
		s.fail(w, r, ToolDoclingParse, http.StatusBadRequest, tooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.fail(w, r, ToolDoclingParse, http.StatusBadRequest, tooLarge)
			return
		}
		s.fail(w, r, ToolDoclingParse, http.StatusBadRequest, models.NewValidationError("expected multipart form: %v", err))
		return
	}
	defer removeMultipart(r)
	withImages := false
	if v := r.FormValue("return_images"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.fail(w, r, ToolDoclingParse, http.StatusBadRequest, models.NewValidationError("return_images must be a boolean"))
			return
		}
		withImages = b
	}
	fhs := r.MultipartForm.File["file"]
	if len(fhs) == 0 {
		s.fail(w, r, ToolDoclingParse, http.StatusBadRequest, models.NewValidationError("file: field required"))
		return
	}
	if fhs[0].Size > int64(d.MaxFileMB)*bytesPerMB {
		s.fail(w, r, ToolDoclingParse, http.StatusBadRequest, tooLarge)
		return
	}
	f, err := readUpload(fhs[0])
	if err != nil {
		s.fail(w, r, ToolDoclingParse, http.StatusBadRequest, err)
		return
	}
	doc, err := d.Extractor.Parse(f.Name, f.Content, withImages)
	if err != nil {
		s.fail(w, r, ToolDoclingParse, http.StatusBadRequest, models.NewValidationError("%v", err))
		return
	}
	res := &models.ParseResult{
		Filename:      f.Name,
		Text:          doc.Text,
		Images:        doc.ImagesBase64(),
		LatencyMS:     time.Since(started).Milliseconds(),
		CorrelationID: models.CorrelationID(ctx),
	}
	s.logger.Info(ToolDoclingParse,
		zap.String("corr", res.CorrelationID),
		zap.String("file", res.Filename),
		zap.Int("images", len(res.Images)),
		zap.Int64("latency_ms", res.LatencyMS))
	s.respondJSON(w, http.StatusOK, res)
}

// readIngestForm reads the "files" parts (also accepted as "files[]") and
// the optional "metas" JSON object. Oversize parts are rejected from their
// header size before any content is read.
func (s *Server) readIngestForm(r *http.Request) ([]indexer.File, map[string]interface{}, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, nil, models.NewValidationError("expected multipart form: %v", err)
	}
	defer removeMultipart(r)
	var common map[string]interface{}
	if metas := r.FormValue("metas"); metas != "" {
		if err := json.Unmarshal([]byte(metas), &common); err != nil {
			return nil, nil, models.NewValidationError("metas must be a JSON object: %v", err)
		}
	}
	fhs := append(r.MultipartForm.File["files"], r.MultipartForm.File["files[]"]...)
	if len(fhs) == 0 {
		return nil, nil, models.NewValidationError("files: field required")
	}
	files := make([]indexer.File, 0, len(fhs))
	for _, fh := range fhs {
		if err := s.deps.Docling.Indexer.CheckLength(fh.Filename, fh.Size); err != nil {
			return nil, nil, err
		}
		f, err := readUpload(fh)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, f)
	}
	return files, common, nil
}

// removeMultipart deletes parts spilled to disk. Handlers run on a request
// derived by the correlation middleware, which the server's own cleanup
// never sees.
func removeMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func readUpload(fh *multipart.FileHeader) (indexer.File, error) {
	src, err := fh.Open()
	if err != nil {
		return indexer.File{}, models.NewValidationError("open %s: %v", fh.Filename, err)
	}
	defer src.Close()
	content, err := io.ReadAll(src)
	if err != nil {
		return indexer.File{}, models.NewValidationError("read %s: %v", fh.Filename, err)
	}
	return indexer.File{Name: fh.Filename, Content: content}, nil
}
