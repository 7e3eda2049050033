package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/mcpws/internal/models"
	"github.com/hyperjump/mcpws/pkg/utils"
)

// DefaultOllamaHost is used when no base URL is configured.
const DefaultOllamaHost = "http://localhost:11434"

// OllamaEmbedder calls Ollama's /api/embeddings once per text.
type OllamaEmbedder struct {
	host       string
	model      string
	dimensions int
	client     *http.Client
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewOllamaEmbedder returns an embedder for model on host.
func NewOllamaEmbedder(host, model string, dimensions int, timeout time.Duration) *OllamaEmbedder {
	host = strings.TrimRight(host, "/")
	if host == "" {
		host = DefaultOllamaHost
	}
	return &OllamaEmbedder{
		host:       host,
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: timeout},
	}
}

// EmbedBatch embeds texts sequentially; the first failure aborts the batch.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.embed(ctx, text)
		if err != nil {
			return nil, models.NewBackendError(e.Name(), err)
		}
		vectors = append(vectors, vec)
	}
	if err := checkBatch(e.Name(), vectors, len(texts), e.dimensions); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (e *OllamaEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embeddings API: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings API returned status %d", resp.StatusCode)
	}

	var payload ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return utils.ToFloat32(payload.Embedding), nil
}

// Dimensions returns the expected dimension, 0 when unchecked.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns "ollama".
func (e *OllamaEmbedder) Name() string {
	return "ollama"
}

// Close is a no-op.
func (e *OllamaEmbedder) Close() error {
	return nil
}
