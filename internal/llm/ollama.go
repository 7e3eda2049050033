package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/mcpws/internal/models"
)

// Ollama defaults.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "llama3.1"
)

// OllamaGenerator calls Ollama's non-streaming /api/generate.
type OllamaGenerator struct {
	host   string
	model  string
	client *http.Client
}

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// NewOllamaGenerator returns a generator for model on host.
func NewOllamaGenerator(host, model string, timeout time.Duration) *OllamaGenerator {
	host = strings.TrimRight(host, "/")
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaGenerator{host: host, model: model, client: &http.Client{Timeout: timeout}}
}

// Generate maps MaxTokens to num_predict.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	text, err := g.generate(ctx, prompt, opts)
	if err != nil {
		return "", models.NewBackendError(g.Name(), err)
	}
	return text, nil
}

func (g *OllamaGenerator) generate(ctx context.Context, prompt string, opts Options) (string, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  g.model,
		Prompt: prompt,
		Options: map[string]interface{}{
			"num_predict": opts.MaxTokens,
			"temperature": opts.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call generate API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(data) > 0 {
			return "", fmt.Errorf("generate API error: %s", strings.TrimSpace(string(data)))
		}
		return "", fmt.Errorf("generate API returned status %s", resp.Status)
	}

	var parsed ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("generate error: %s", parsed.Error)
	}
	return parsed.Response, nil
}

// Name returns "ollama".
func (g *OllamaGenerator) Name() string {
	return "ollama"
}
