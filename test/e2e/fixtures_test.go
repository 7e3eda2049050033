package e2e

import (
	"strings"
	"testing"

	"github.com/hyperjump/mcpws/internal/extract"
)

func TestMinimalFile_AllExtensionsExtractable(t *testing.T) {
	e := extract.NewExtractor()
	sample := "E2E searchable content"
	for _, ext := range SupportedFileExtensions {
		t.Run(ext, func(t *testing.T) {
			content, err := MinimalFile(ext, sample)
			if err != nil {
				t.Fatalf("MinimalFile: %v", err)
			}
			if len(content) == 0 {
				t.Fatal("empty content")
			}
			doc, err := e.Parse("sample"+ext, content, false)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !strings.Contains(doc.Text, sample) {
				t.Errorf("extracted text %q does not contain %q", doc.Text, sample)
			}
		})
	}
}
