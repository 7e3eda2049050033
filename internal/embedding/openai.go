package embedding

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/hyperjump/mcpws/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder builds a client for apiKey; baseURL overrides the default endpoint.
// When dimensions > 0 it is requested from the model and enforced on responses.
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimensions int, timeout time.Duration) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
	}
}

// EmbedBatch sends all texts in a single request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(e.model),
		Input:      texts,
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, models.NewBackendError(e.Name(), err)
	}
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	if err := checkBatch(e.Name(), vectors, len(texts), e.dimensions); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Dimensions returns the requested dimension, 0 when the model decides.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns "openai".
func (e *OpenAIEmbedder) Name() string {
	return "openai"
}

// Close is a no-op.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
