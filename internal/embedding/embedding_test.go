package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/mcpws/internal/config"
	"github.com/hyperjump/mcpws/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns fixed vectors or a fixed error and counts calls.
type stubEmbedder struct {
	name  string
	dim   int
	err   error
	calls atomic.Int32
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, s.dim)
		v[0] = float32(i + 1)
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dim }
func (s *stubEmbedder) Name() string    { return s.name }
func (s *stubEmbedder) Close() error    { return nil }

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(64)
	vecs, err := e.EmbedBatch(context.Background(), []string{"alpha beta", "alpha beta", "", "gamma"})
	require.NoError(t, err)
	require.Len(t, vecs, 4)
	for _, v := range vecs {
		assert.Len(t, v, 64)
		assert.InDelta(t, 1.0, norm(v), 1e-5)
	}
	assert.Equal(t, vecs[0], vecs[1], "deterministic")
	assert.NotEqual(t, vecs[0], vecs[3])
	assert.Equal(t, 384, NewHashEmbedder(0).Dimensions())
}

func TestHashEmbedder_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEmbedder(8).EmbedBatch(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHashTokenizer_Tokenize(t *testing.T) {
	tok := &HashTokenizer{}
	ids, attn, types := tok.Tokenize("hello world", 10)
	require.Len(t, ids, 10)
	assert.Equal(t, int64(tokenCLS), ids[0])
	assert.Equal(t, int64(tokenSEP), ids[3])
	assert.Equal(t, []int64{1, 1, 1, 1, 0, 0, 0, 0, 0, 0}, attn)
	assert.Len(t, types, 10)

	ids, _, _ = tok.Tokenize("a b c d e f g h", 4)
	assert.Equal(t, int64(tokenSEP), ids[3], "truncated input still ends with SEP")
}

func TestCache_GetSet(t *testing.T) {
	c := NewCache(2)
	_, ok := c.Get("a")
	assert.False(t, ok)
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestWithCache_onlyMissesForwarded(t *testing.T) {
	stub := &stubEmbedder{name: "stub", dim: 2}
	assert.Same(t, Embedder(stub), WithCache(stub, 0))

	cached := WithCache(stub, 10)
	first, err := cached.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	second, err := cached.EmbedBatch(context.Background(), []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), stub.calls.Load())
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[1])
}

func TestFallbackEmbedder_primaryOK(t *testing.T) {
	primary := &stubEmbedder{name: "remote", dim: 3}
	local := &stubEmbedder{name: "local", dim: 3}
	f := NewFallbackEmbedder(primary, local)

	res, err := f.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "remote", res.Backend)
	assert.False(t, res.FellBack)
	assert.Len(t, res.Vectors, 2)
	assert.Equal(t, int32(0), local.calls.Load())
}

func TestFallbackEmbedder_fallsBackOnBackendError(t *testing.T) {
	primary := &stubEmbedder{name: "remote", dim: 3, err: models.NewBackendError("remote", errors.New("timeout"))}
	local := &stubEmbedder{name: "local", dim: 3}
	f := NewFallbackEmbedder(primary, local)

	res, err := f.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "local", res.Backend)
	assert.True(t, res.FellBack)
	assert.Len(t, res.Vectors, 3)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(1), local.calls.Load())
}

func TestFallbackEmbedder_localFailureIsBackendError(t *testing.T) {
	primary := &stubEmbedder{name: "remote", dim: 3, err: models.NewBackendError("remote", errors.New("down"))}
	local := &stubEmbedder{name: "local", dim: 3, err: errors.New("model missing")}
	f := NewFallbackEmbedder(primary, local)

	_, err := f.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, models.IsBackend(err))
}

func TestFallbackEmbedder_localOnly(t *testing.T) {
	primary := &stubEmbedder{name: "remote", dim: 3}
	local := &stubEmbedder{name: "local", dim: 3}
	f := NewFallbackEmbedder(primary, local, LocalOnly(true))

	res, err := f.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "local", res.Backend)
	assert.False(t, res.FellBack)
	assert.Equal(t, int32(0), primary.calls.Load())
	assert.Equal(t, "local", f.Backend())
}

func TestFallbackEmbedder_empty(t *testing.T) {
	primary := &stubEmbedder{name: "remote", dim: 3}
	f := NewFallbackEmbedder(primary, &stubEmbedder{name: "local", dim: 3})
	res, err := f.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Vectors)
	assert.Equal(t, int32(0), primary.calls.Load())
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req struct {
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		data := make([]map[string]interface{}, len(req.Input))
		for i := range req.Input {
			// Reverse order; the client must sort by index.
			j := len(req.Input) - 1 - i
			data[i] = map[string]interface{}{"object": "embedding", "index": j, "embedding": []float32{float32(j), 1, 0}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"object": "list", "data": data, "model": "m"})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("sk-test", srv.URL+"/v1", "m", 3, 5*time.Second)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1, 0}, {1, 1, 0}}, vecs)
}

func TestOpenAIEmbedder_dimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,2]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("k", srv.URL+"/v1", "m", 3, 5*time.Second)
	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, models.IsBackend(err))
}

func TestOpenAIEmbedder_serverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("k", srv.URL+"/v1", "m", 0, 5*time.Second)
	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, models.IsBackend(err))
}

func TestOllamaEmbedder(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaEmbedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic", req.Model)
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float64{0.5, 0.25}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL+"/", "nomic", 2, 5*time.Second)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 0.25}, {0.5, 0.25}}, vecs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOllamaEmbedder_unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	e := NewOllamaEmbedder(url, "nomic", 0, time.Second)
	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, models.IsBackend(err))
}

func TestNew_fromConfig(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Dimensions = 16

	f := New(cfg, nil)
	assert.Equal(t, "hash", f.Backend(), "openai without credentials runs locally")

	cfg.Backend = "ollama"
	f = New(cfg, nil)
	assert.Equal(t, "ollama", f.Backend())

	cfg.UseLocal = true
	f = New(cfg, nil)
	assert.Equal(t, "hash", f.Backend())
	require.NoError(t, f.Close())
}
