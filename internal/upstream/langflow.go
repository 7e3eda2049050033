package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/mcpws/internal/models"
)

// DefaultLangflowBase is used by FlowURL when no base is given.
const DefaultLangflowBase = "http://127.0.0.1:7860"

// Summary is the lf.summarize tool response.
type Summary struct {
	Summary string `json:"summary"`
	Tokens  int    `json:"tokens"`
}

// LangflowClient calls a Langflow flow run endpoint.
type LangflowClient struct {
	url    string
	client *http.Client
}

// NewLangflowClient creates a client for the flow run URL.
func NewLangflowClient(url string, timeout time.Duration) *LangflowClient {
	return &LangflowClient{url: url, client: &http.Client{Timeout: timeout}}
}

// FlowURL builds <base>/api/v1/run/<flowID>.
func FlowURL(base, flowID string) string {
	if base == "" {
		base = DefaultLangflowBase
	}
	return fmt.Sprintf("%s/api/v1/run/%s", strings.TrimRight(base, "/"), flowID)
}

// URL returns the flow run URL.
func (c *LangflowClient) URL() string { return c.url }

// Summarize posts {"text": text} and normalizes the reply. The summary is
// the first non-empty string among summary, output, result and the chat
// message text; tokens come from usage.total_tokens.
func (c *LangflowClient) Summarize(ctx context.Context, text string) (*Summary, error) {
	req, err := newJSONRequest(ctx, http.MethodPost, c.url, map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if _, err := doJSON(c.client, req, &raw); err != nil {
		return nil, models.NewBackendError("langflow", err)
	}
	out := &Summary{}
	for _, key := range []string{"summary", "output", "result"} {
		if s, ok := raw[key].(string); ok && s != "" {
			out.Summary = s
			break
		}
	}
	if out.Summary == "" {
		out.Summary = chatTextFromMap(raw)
	}
	if usage, ok := raw["usage"].(map[string]interface{}); ok {
		if n, ok := usage["total_tokens"].(float64); ok {
			out.Tokens = int(n)
		}
	}
	return out, nil
}

// Probe sends a chat-shaped payload and returns the assistant message text,
// or "" with the raw response when the reply has another shape.
func (c *LangflowClient) Probe(ctx context.Context, text string) (string, map[string]interface{}, error) {
	payload := map[string]string{"input_value": text, "input_type": "chat", "output_type": "chat"}
	req, err := newJSONRequest(ctx, http.MethodPost, c.url, payload)
	if err != nil {
		return "", nil, err
	}
	var raw map[string]interface{}
	if _, err := doJSON(c.client, req, &raw); err != nil {
		return "", nil, models.NewBackendError("langflow", err)
	}
	return chatTextFromMap(raw), raw, nil
}

func chatTextFromMap(m map[string]interface{}) string {
	cur := interface{}(m)
	for _, step := range []string{"outputs", "0", "outputs", "0", "results", "message", "text"} {
		switch node := cur.(type) {
		case map[string]interface{}:
			cur = node[step]
		case []interface{}:
			if len(node) == 0 {
				return ""
			}
			cur = node[0]
		default:
			return ""
		}
	}
	s, _ := cur.(string)
	return s
}
