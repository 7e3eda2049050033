package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/mcpws/internal/config"
	"github.com/hyperjump/mcpws/internal/models"
	"github.com/hyperjump/mcpws/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListTools(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"bare list", `[{"name":"a"},{"toolName":"b"},{}]`, []string{"a", "b", "unknown"}},
		{"wrapped", `{"tools":[{"name":"calc.add"}]}`, []string{"calc.add"}},
		{"empty object", `{}`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/tools", r.URL.Path)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				assert.NotEmpty(t, r.Header.Get("x-correlation-id"))
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			tools, err := New(srv.URL+"/", WithToken("secret")).ListTools(context.Background())
			require.NoError(t, err)
			names := make([]string, 0, len(tools))
			for _, tool := range tools {
				names = append(names, tool.Name())
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestClient_Invoke(t *testing.T) {
	var gotCorr string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/call/lf.summarize", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		gotCorr = r.Header.Get("x-correlation-id")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `{"summary":"short","tokens":3}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := models.WithCorrelationID(context.Background(), "trace-1")
	res, err := c.Invoke(ctx, "lf.summarize", map[string]string{"text": "long"})
	require.NoError(t, err)
	assert.Equal(t, "trace-1", gotCorr)
	assert.Equal(t, "trace-1", res.CorrelationID)
	assert.Equal(t, "long", gotBody["text"])
	assert.Equal(t, "short", res.Response["summary"])

	summary, err := c.Summarize(context.Background(), "long")
	require.NoError(t, err)
	assert.Equal(t, "short", summary)
}

func TestClient_InvokeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"c1: bad input"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Invoke(context.Background(), "docling.query", map[string]string{})
	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "c1: bad input", httpErr.Detail)
}

func TestClient_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := New(srv.URL, WithRateLimit(1, 1))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.Invoke(ctx, "calc.add", map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	_, err = c.Invoke(ctx, "calc.add", map[string]int{"a": 1, "b": 2})
	require.Error(t, err, "second call exceeds the burst before the deadline")
}

func TestNewFromConfig(t *testing.T) {
	c := NewFromConfig(config.GatewayConfig{URL: "http://gw:4444/", Token: "t", Timeout: 5}, nil)
	assert.Equal(t, "http://gw:4444", c.BaseURL())
	assert.Equal(t, "t", c.token)
	assert.Equal(t, 5*time.Second, c.http.Timeout)
	assert.Nil(t, c.limiter)

	assert.Equal(t, DefaultURL, New("").BaseURL())
}

func TestClient_AgainstCalcServer(t *testing.T) {
	s, err := server.NewServer(&config.ServerConfig{Toolset: server.ToolsetCalc}, server.Deps{}, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	c := New(srv.URL)
	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "calc.add", tools[0].Name())

	res, err := c.Invoke(context.Background(), "calc.add", map[string]float64{"a": 2, "b": 3.5})
	require.NoError(t, err)
	assert.Equal(t, 5.5, res.Response["result"])
}

func TestClient_Upload(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		switch r.URL.Path {
		case "/call/docling.ingest":
			fhs := r.MultipartForm.File["files"]
			assert.Len(t, fhs, 1)
			assert.Equal(t, "a.txt", fhs[0].Filename)
			assert.JSONEq(t, `{"team":"docs"}`, r.FormValue("metas"))
			_, _ = io.WriteString(w, `{"ingested_docs":1,"chunks":1,"latency_ms":2,"correlation_id":"x"}`)
		case "/call/docling.parse":
			assert.Len(t, r.MultipartForm.File["file"], 1)
			assert.Equal(t, "true", r.FormValue("return_images"))
			_, _ = io.WriteString(w, `{"filename":"a.txt","text":"alpha","images":[],"latency_ms":1,"correlation_id":"y"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ing, err := c.Ingest(context.Background(), []string{a}, map[string]interface{}{"team": "docs"})
	require.NoError(t, err)
	assert.Equal(t, 1, ing.IngestedDocs)

	parsed, err := c.Parse(context.Background(), a, true)
	require.NoError(t, err)
	assert.Equal(t, "alpha", parsed.Text)

	_, err = c.Ingest(context.Background(), []string{filepath.Join(dir, "missing.txt")}, nil)
	assert.Error(t, err)
}
