// Package gateway is a client for tool gateways and the tool servers themselves:
// both expose GET /tools and POST /call/{tool}.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/mcpws/internal/config"
	"github.com/hyperjump/mcpws/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultURL is used when no gateway URL is configured.
const DefaultURL = "http://localhost:4444"

// DefaultTimeout bounds each request.
const DefaultTimeout = 60 * time.Second

const headerCorrelationID = "x-correlation-id"

// HTTPError is returned for non-2xx responses. Detail is the server's
// "detail" field when the body is JSON, otherwise the raw body.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Detail)
}

// Client talks to a gateway.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for baseURL (DefaultURL when empty).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// NewFromConfig creates a client from the gateway section of the config.
func NewFromConfig(cfg config.GatewayConfig, logger *zap.Logger) *Client {
	opts := []Option{WithToken(cfg.Token), WithRateLimit(cfg.RateLimit, cfg.Burst), WithLogger(logger)}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(time.Duration(cfg.Timeout)*time.Second))
	}
	return New(cfg.URL, opts...)
}

// BaseURL returns the gateway URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Result is the outcome of Invoke.
type Result struct {
	CorrelationID string                 `json:"correlation_id"`
	Response      map[string]interface{} `json:"response"`
	LatencyMS     int64                  `json:"latency_ms"`
}

// ToolInfo is one entry of a gateway's tool list.
type ToolInfo map[string]interface{}

// Name returns "name", falling back to "toolName" and then "unknown".
func (t ToolInfo) Name() string {
	for _, key := range []string{"name", "toolName"} {
		if s, ok := t[key].(string); ok && s != "" {
			return s
		}
	}
	return "unknown"
}

// Description returns the tool description, if any.
func (t ToolInfo) Description() string {
	s, _ := t["description"].(string)
	return s
}

// ListTools fetches GET /tools. Both a bare JSON array and a {"tools": [...]}
// object are accepted.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/tools", nil, "")
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return nil, err
	}
	var list []ToolInfo
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode tool list: %w", err)
	}
	if wrapped.Tools == nil {
		return []ToolInfo{}, nil
	}
	return wrapped.Tools, nil
}

// Invoke posts payload as JSON to /call/{tool}.
func (c *Client) Invoke(ctx context.Context, tool string, payload interface{}) (*Result, error) {
	started := time.Now()
	ctx, corr := ensureCorrelation(ctx)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/call/"+tool, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{})
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	latency := time.Since(started).Milliseconds()
	c.logger.Info("tool.invoke.ok",
		zap.String("tool", tool),
		zap.String("corr", corr),
		zap.Int64("latency_ms", latency))
	return &Result{CorrelationID: corr, Response: out, LatencyMS: latency}, nil
}

// Ask calls docling.query.
func (c *Client) Ask(ctx context.Context, query string, k int) (*models.Answer, error) {
	res, err := c.Invoke(ctx, "docling.query", map[string]interface{}{"query": query, "k": k})
	if err != nil {
		return nil, err
	}
	var ans models.Answer
	if err := remarshal(res.Response, &ans); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	return &ans, nil
}

// Summarize calls lf.summarize and returns the summary text.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	res, err := c.Invoke(ctx, "lf.summarize", map[string]string{"text": text})
	if err != nil {
		return "", err
	}
	s, _ := res.Response["summary"].(string)
	return s, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	if corr := models.CorrelationID(ctx); corr != "" {
		req.Header.Set(headerCorrelationID, corr)
	} else {
		req.Header.Set(headerCorrelationID, uuid.NewString())
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Status: resp.StatusCode, Detail: errorDetail(data)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorDetail(body []byte) string {
	var parsed struct {
		Detail interface{} `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != nil {
		if s, ok := parsed.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(parsed.Detail)
		return string(b)
	}
	return strings.TrimSpace(string(body))
}

func ensureCorrelation(ctx context.Context) (context.Context, string) {
	if corr := models.CorrelationID(ctx); corr != "" {
		return ctx, corr
	}
	corr := uuid.NewString()
	return models.WithCorrelationID(ctx, corr), corr
}

func remarshal(in interface{}, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
