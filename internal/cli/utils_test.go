package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/hyperjump/mcpws/internal/gateway"
	"github.com/hyperjump/mcpws/internal/models"
)

func init() {
	color.NoColor = true
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

func TestWriteAnswer_text(t *testing.T) {
	ans := &models.Answer{
		Answer: "Refunds take 30 days.",
		Sources: []models.Metadata{
			{"source": "policy.pdf", "team": "legal", "year": float64(2024)},
			{"source": "faq.md"},
		},
		LatencyMS:     12,
		CorrelationID: "c-1",
		Generation:    "ok",
	}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, ans, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Answer:", "Refunds take 30 days.", "Sources:", "1. policy.pdf (team=legal, year=2024)", "2. faq.md\n", "12ms", "correlation_id=c-1"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteAnswer_noSources(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, &models.Answer{Answer: "x", Generation: "degraded"}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "(none)") {
		t.Errorf("expected (none) marker:\n%s", buf.String())
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	ans := &models.Answer{Answer: "a & b", Sources: []models.Metadata{{"source": "s"}}, CorrelationID: "c"}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, ans, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"a & b"`) {
		t.Errorf("HTML escaping should be off:\n%s", buf.String())
	}
	var decoded models.Answer
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.CorrelationID != "c" || len(decoded.Sources) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteTools(t *testing.T) {
	tools := []gateway.ToolInfo{
		{"name": "docling.query", "description": "RAG query over ingested documents."},
		{"toolName": "lf.summarize"},
	}
	var buf bytes.Buffer
	if err := WriteTools(&buf, tools, OutputText); err != nil {
		t.Fatal(err)
	}
	want := "- docling.query  RAG query over ingested documents.\n- lf.summarize\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteIngestAndParse(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteIngest(&buf, &models.IngestResult{IngestedDocs: 2, Chunks: 7, LatencyMS: 3, CorrelationID: "z"}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Ingested 2 document(s) as 7 chunk(s) in 3ms") {
		t.Errorf("unexpected ingest output: %q", buf.String())
	}

	buf.Reset()
	res := &models.ParseResult{Filename: "a.pdf", Text: "## Page 1\n\nhello", Images: []string{"QUJD"}}
	if err := WriteParse(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"a.pdf", "## Page 1", "[image 1: 4 base64 chars]"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("parse output missing %q:\n%s", sub, buf.String())
		}
	}
}
