package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/hyperjump/mcpws/internal/models"
	"github.com/xeipuuv/gojsonschema"
)

// toolEntry is a registered tool. JSON tools have their body checked against
// the advertised schema before the handler runs; multipart tools do not.
type toolEntry struct {
	tool     models.Tool
	schema   *gojsonschema.Schema
	jsonBody bool
	// invalid replaces the schema error text in the 400 detail when set.
	invalid string
	// bareDetail omits the "<corr>: " prefix from error details.
	bareDetail bool
	handle     http.HandlerFunc
}

// Registry keeps tools in registration order.
type Registry struct {
	order   []string
	entries map[string]*toolEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*toolEntry)}
}

func (r *Registry) register(e *toolEntry) error {
	if _, ok := r.entries[e.tool.Name]; ok {
		return fmt.Errorf("tool %s already registered", e.tool.Name)
	}
	if e.jsonBody {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(e.tool.Schema))
		if err != nil {
			return fmt.Errorf("compile schema for %s: %w", e.tool.Name, err)
		}
		e.schema = schema
	}
	r.order = append(r.order, e.tool.Name)
	r.entries[e.tool.Name] = e
	return nil
}

func (r *Registry) lookup(name string) (*toolEntry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Tools returns the advertised tools.
func (r *Registry) Tools() []models.Tool {
	out := make([]models.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].tool)
	}
	return out
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// validate checks body against the tool's schema. Tools without a JSON
// body accept anything.
func (e *toolEntry) validate(body []byte) error {
	if e.schema == nil {
		return nil
	}
	result, err := e.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return models.NewValidationError("invalid JSON body: %v", err)
	}
	if result.Valid() {
		return nil
	}
	if e.invalid != "" {
		return models.NewValidationError("%s", e.invalid)
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		msgs = append(msgs, re.String())
	}
	return models.NewValidationError("%s", strings.Join(msgs, "; "))
}
