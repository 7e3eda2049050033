package upstream

import (
	"context"
	"net/http"
	"time"

	"github.com/hyperjump/mcpws/internal/models"
)

// HTTPBinResult is the httpbin.get tool response.
type HTTPBinResult struct {
	Status        int         `json:"status"`
	JSON          interface{} `json:"json"`
	CorrelationID string      `json:"correlation_id"`
	LatencyMS     int64       `json:"latency_ms"`
}

// HTTPBinClient issues GET requests against a fixed upstream URL.
type HTTPBinClient struct {
	url    string
	client *http.Client
}

// NewHTTPBinClient creates a client; timeout applies to the whole request.
func NewHTTPBinClient(url string, timeout time.Duration) *HTTPBinClient {
	return &HTTPBinClient{url: url, client: &http.Client{Timeout: timeout}}
}

// URL returns the upstream URL.
func (c *HTTPBinClient) URL() string { return c.url }

// Get fetches the upstream JSON, forwarding the correlation id from ctx.
func (c *HTTPBinClient) Get(ctx context.Context) (*HTTPBinResult, error) {
	started := time.Now()
	corr := models.CorrelationID(ctx)
	req, err := newJSONRequest(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	if corr != "" {
		req.Header.Set("x-correlation-id", corr)
	}
	var data interface{}
	status, err := doJSON(c.client, req, &data)
	if err != nil {
		return nil, models.NewBackendError("httpbin", err)
	}
	return &HTTPBinResult{
		Status:        status,
		JSON:          data,
		CorrelationID: corr,
		LatencyMS:     time.Since(started).Milliseconds(),
	}, nil
}
