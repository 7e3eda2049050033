package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/mcpws/internal/models"
	"github.com/hyperjump/mcpws/internal/vector"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Detail        string `json:"detail"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, models.ToolList{Tools: s.registry.Tools()})
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "tool")
	entry, ok := s.registry.lookup(name)
	if !ok {
		s.respondJSON(w, http.StatusNotFound, errorResponse{
			Detail:        fmt.Sprintf("Unknown tool: %s", name),
			CorrelationID: models.CorrelationID(r.Context()),
		})
		return
	}
	if entry.jsonBody {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
		if err != nil {
			s.toolError(w, r, entry, http.StatusBadRequest, models.NewValidationError("read body: %v", err))
			return
		}
		if len(bytes.TrimSpace(body)) == 0 {
			body = []byte("{}")
		}
		if err := entry.validate(body); err != nil {
			s.toolError(w, r, entry, http.StatusBadRequest, err)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	entry.handle(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	d := s.deps.Docling
	chunks, err := d.Index.Count(r.Context())
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Detail: err.Error()})
		return
	}
	resp := map[string]interface{}{
		"collection": d.Collection,
		"chunks":     chunks,
		"backend":    d.Index.Backend(),
	}
	if len(d.DiskPaths) > 0 {
		if n, err := vector.DiskUsageBytes(d.DiskPaths...); err == nil {
			resp["disk_usage_bytes"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// toolError logs the failure and writes {"detail": ...}. Unless the tool uses
// bare details, the detail is prefixed with the correlation id.
func (s *Server) toolError(w http.ResponseWriter, r *http.Request, entry *toolEntry, status int, err error) {
	corr := models.CorrelationID(r.Context())
	s.logger.Error("error",
		zap.String("tool", entry.tool.Name),
		zap.String("corr", corr),
		zap.String("error", err.Error()))
	detail := err.Error()
	if !entry.bareDetail {
		detail = fmt.Sprintf("%s: %s", corr, detail)
	}
	s.respondJSON(w, status, errorResponse{Detail: detail, CorrelationID: corr})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, tool string, status int, err error) {
	entry, ok := s.registry.lookup(tool)
	if !ok {
		entry = &toolEntry{tool: models.Tool{Name: tool}}
	}
	s.toolError(w, r, entry, status, err)
}
