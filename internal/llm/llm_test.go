package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/mcpws/internal/config"
	"github.com/hyperjump/mcpws/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	text   string
	err    error
	panics bool
	prompt string
	opts   Options
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, opts Options) (string, error) {
	if f.panics {
		panic("boom")
	}
	f.prompt, f.opts = prompt, opts
	return f.text, f.err
}

func (f *fakeGenerator) Name() string { return "fake" }

func TestAnswer(t *testing.T) {
	ctx := context.Background()

	g := Answer(ctx, nil, "p", DefaultOptions())
	assert.Equal(t, StatusDegraded, g.Status)
	assert.Equal(t, NotConfiguredMessage, g.Text)

	fake := &fakeGenerator{text: "42"}
	g = Answer(ctx, fake, "what?", DefaultOptions())
	assert.Equal(t, StatusOK, g.Status)
	assert.Equal(t, "42", g.Text)
	assert.Equal(t, "fake", g.Backend)
	assert.Equal(t, "what?", fake.prompt)
	assert.Equal(t, Options{MaxTokens: 512, Temperature: 0.2}, fake.opts)

	g = Answer(ctx, &fakeGenerator{err: errors.New("quota exceeded")}, "p", DefaultOptions())
	assert.Equal(t, StatusError, g.Status)
	assert.Equal(t, "[LLM error] quota exceeded", g.Text)

	g = Answer(ctx, &fakeGenerator{panics: true}, "p", DefaultOptions())
	assert.Equal(t, StatusError, g.Status)
	assert.True(t, strings.HasPrefix(g.Text, "[LLM error]"))
}

func TestOpenAIGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(64), req["max_tokens"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("k", srv.URL+"/v1", "", 5*time.Second)
	text, err := g.Generate(context.Background(), "hi", Options{MaxTokens: 64, Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestOpenAIGenerator_noChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIGenerator("k", srv.URL+"/v1", "m", 5*time.Second).Generate(context.Background(), "hi", DefaultOptions())
	require.Error(t, err)
	assert.True(t, models.IsBackend(err))
}

func TestOllamaGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaGenerateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, float64(512), req.Options["num_predict"])
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "an answer", Done: true})
	}))
	defer srv.Close()

	text, err := NewOllamaGenerator(srv.URL, "", 5*time.Second).Generate(context.Background(), "q", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "an answer", text)
}

func TestOllamaGenerator_errorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaGenerator(srv.URL, "nope", 5*time.Second).Generate(context.Background(), "q", DefaultOptions())
	require.Error(t, err)
	assert.True(t, models.IsBackend(err))
	assert.Contains(t, err.Error(), "model not found")
}

func TestNew(t *testing.T) {
	cfg := config.Default().Generation
	assert.Nil(t, New(cfg, nil))

	cfg.Backend = "openai"
	assert.Nil(t, New(cfg, nil), "openai without credentials is degraded")

	cfg.APIKey = "sk"
	assert.Equal(t, "openai", New(cfg, nil).Name())

	cfg.Backend = "ollama"
	assert.Equal(t, "ollama", New(cfg, nil).Name())
}

func TestOptionsFrom(t *testing.T) {
	assert.Equal(t, Options{MaxTokens: 512, Temperature: 0.2}, OptionsFrom(config.Default().Generation))
	assert.Equal(t, 512, OptionsFrom(config.GenerationConfig{}).MaxTokens)
}

func TestFitContext(t *testing.T) {
	passages := []string{"alpha beta", "gamma delta", "epsilon"}
	assert.Equal(t, 3, FitContext(nil, passages, 1))

	counter, err := NewTokenCounter("gpt-4o-mini")
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	assert.Equal(t, 3, FitContext(counter, passages, 0))
	first := counter.Count(passages[0])
	assert.Equal(t, 1, FitContext(counter, passages, first))
	assert.Equal(t, 0, FitContext(counter, passages, first-1))
	assert.Equal(t, 3, FitContext(counter, passages, 1000))
}
