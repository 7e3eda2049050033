package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/mcpws/internal/models"
	"go.uber.org/zap"
)

// Tool names of the auxiliary toolsets.
const (
	ToolCalcAdd     = "calc.add"
	ToolHTTPBinGet  = "httpbin.get"
	ToolLfSummarize = "lf.summarize"
)

func (s *Server) registerCalc() error {
	return s.registry.register(&toolEntry{
		tool: models.Tool{
			Name:        ToolCalcAdd,
			Description: "Add two numbers.",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"a": map[string]interface{}{"type": "number"},
					"b": map[string]interface{}{"type": "number"},
				},
				"required": []interface{}{"a", "b"},
			},
		},
		jsonBody:   true,
		invalid:    "payload requires numeric 'a' and 'b'",
		bareDetail: true,
		handle:     s.handleCalcAdd,
	})
}

func (s *Server) registerHTTPBin() error {
	return s.registry.register(&toolEntry{
		tool: models.Tool{
			Name:        ToolHTTPBinGet,
			Description: fmt.Sprintf("GET %s", s.deps.HTTPBin.URL()),
			Schema: map[string]interface{}{
				"type":                 "object",
				"properties":           map[string]interface{}{},
				"additionalProperties": false,
			},
		},
		jsonBody: true,
		handle:   s.handleHTTPBin,
	})
}

func (s *Server) registerLangflow() error {
	return s.registry.register(&toolEntry{
		tool: models.Tool{
			Name:        ToolLfSummarize,
			Description: "Summarize input text using a Langflow flow",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{"type": "string"},
				},
				"required": []interface{}{"text"},
			},
		},
		jsonBody:   true,
		invalid:    "payload requires a 'text' string",
		bareDetail: true,
		handle:     s.handleSummarize,
	})
}

func (s *Server) handleCalcAdd(w http.ResponseWriter, r *http.Request) {
	var in struct {
		A float64 `json:"a"`
		B float64 `json:"b"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.fail(w, r, ToolCalcAdd, http.StatusBadRequest, models.NewValidationError("payload requires numeric 'a' and 'b'"))
		return
	}
	s.logger.Debug(ToolCalcAdd, zap.String("corr", models.CorrelationID(r.Context())))
	s.respondJSON(w, http.StatusOK, map[string]float64{"result": in.A + in.B})
}

func (s *Server) handleHTTPBin(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.HTTPBin.Get(r.Context())
	if err != nil {
		s.logger.Warn("httpbin.err", zap.String("corr", models.CorrelationID(r.Context())), zap.Error(err))
		s.fail(w, r, ToolHTTPBinGet, http.StatusBadGateway, err)
		return
	}
	s.logger.Info("httpbin.ok",
		zap.String("corr", res.CorrelationID),
		zap.Int64("latency_ms", res.LatencyMS),
		zap.Int("status", res.Status))
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var in struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.fail(w, r, ToolLfSummarize, http.StatusBadRequest, models.NewValidationError("payload requires a 'text' string"))
		return
	}
	out, err := s.deps.Langflow.Summarize(r.Context(), in.Text)
	if err != nil {
		s.fail(w, r, ToolLfSummarize, http.StatusBadGateway, fmt.Errorf("Langflow call failed: %w", err))
		return
	}
	s.logger.Info("lf.summarize.ok",
		zap.String("corr", models.CorrelationID(r.Context())),
		zap.Int64("latency_ms", time.Since(started).Milliseconds()))
	s.respondJSON(w, http.StatusOK, out)
}
