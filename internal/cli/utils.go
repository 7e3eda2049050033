// Package cli formats tool results for the mcpws command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/hyperjump/mcpws/internal/gateway"
	"github.com/hyperjump/mcpws/internal/models"
	"github.com/hyperjump/mcpws/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
	failed  = color.New(color.FgRed).SprintFunc()
)

// ParseFormat maps a --output flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteAnswer writes a docling.query answer followed by its sources.
func WriteAnswer(w io.Writer, ans *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, ans)
	}
	fmt.Fprintf(w, "\n%s\n", heading("Answer:"))
	answer := ans.Answer
	switch ans.Generation {
	case "degraded":
		answer = warn(answer)
	case "error":
		answer = failed(answer)
	}
	fmt.Fprintf(w, "%s\n", answer)
	fmt.Fprintf(w, "\n%s\n", heading("Sources:"))
	if len(ans.Sources) == 0 {
		fmt.Fprintln(w, faint("(none)"))
	}
	for i, src := range ans.Sources {
		fmt.Fprintf(w, "%d. %s\n", i+1, formatMetadata(src))
	}
	fmt.Fprintf(w, "\n%s\n", faint(fmt.Sprintf("%dms  correlation_id=%s", ans.LatencyMS, ans.CorrelationID)))
	return nil
}

// WriteTools writes one "- name" line per tool, with descriptions when present.
func WriteTools(w io.Writer, tools []gateway.ToolInfo, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, tools)
	}
	for _, t := range tools {
		if d := t.Description(); d != "" {
			fmt.Fprintf(w, "- %s  %s\n", heading(t.Name()), faint(utils.Truncate(d, 80)))
			continue
		}
		fmt.Fprintf(w, "- %s\n", heading(t.Name()))
	}
	return nil
}

// WriteIngest writes a docling.ingest result.
func WriteIngest(w io.Writer, res *models.IngestResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, res)
	}
	fmt.Fprintf(w, "Ingested %d document(s) as %d chunk(s) in %dms\n", res.IngestedDocs, res.Chunks, res.LatencyMS)
	fmt.Fprintln(w, faint("correlation_id="+res.CorrelationID))
	return nil
}

// WriteParse writes a docling.parse result: the text, then a line per image.
func WriteParse(w io.Writer, res *models.ParseResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, res)
	}
	fmt.Fprintf(w, "%s\n\n%s\n", heading(res.Filename), res.Text)
	for i, img := range res.Images {
		fmt.Fprintf(w, "%s\n", faint(fmt.Sprintf("[image %d: %d base64 chars]", i+1, len(img))))
	}
	return nil
}

func formatMetadata(m models.Metadata) string {
	src, _ := m[models.MetadataKeySource].(string)
	keys := make([]string, 0, len(m))
	for k := range m {
		if k != models.MetadataKeySource {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	if len(parts) == 0 {
		return src
	}
	return fmt.Sprintf("%s %s", src, faint("("+strings.Join(parts, ", ")+")"))
}
