// Package extract converts uploaded documents into markdown-ish text: headings
// per page, slide or sheet, paragraphs separated by blank lines and tables as
// pipe tables. PDFs and image files can also yield their embedded images.
package extract

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is the result of parsing one file.
type Document struct {
	Text   string
	Images []Image
}

// Image is an embedded image in its native encoding.
type Image struct {
	Name   string
	Format string
	Data   []byte
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// ImagesBase64 returns every image of d as base64 strings, never nil.
func (d *Document) ImagesBase64() []string {
	out := make([]string, 0, len(d.Images))
	for _, img := range d.Images {
		out = append(out, img.Base64())
	}
	return out
}

// Extractor dispatches on file extension.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ParseFile reads path and parses it.
func (e *Extractor) ParseFile(path string, withImages bool) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.Parse(filepath.Base(path), content, withImages)
}

// Parse converts content according to the extension of filename. Unknown
// extensions are treated as UTF-8 text. Images are only collected when
// withImages is set.
func (e *Extractor) Parse(filename string, content []byte, withImages bool) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var (
		doc *Document
		err error
	)
	switch ext {
	case ".pdf":
		doc, err = parsePDF(content, withImages)
	case ".docx":
		doc, err = textDocument(parseDOCX(content))
	case ".pptx":
		doc, err = textDocument(parsePPTX(content))
	case ".xlsx":
		doc, err = textDocument(parseXLSX(content))
	case ".odt", ".odp":
		doc, err = textDocument(parseODFText(content))
	case ".ods":
		doc, err = textDocument(parseODS(content))
	case ".csv":
		doc, err = textDocument(parseCSV(content))
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		doc = parseImage(filename, ext, content, withImages)
	default:
		doc, err = textDocument(parsePlain(content))
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return doc, nil
}

func textDocument(text string, err error) (*Document, error) {
	if err != nil {
		return nil, err
	}
	return &Document{Text: text}, nil
}

// joinBlocks joins non-empty blocks with a blank line.
func joinBlocks(blocks []string) string {
	kept := blocks[:0:0]
	for _, b := range blocks {
		if b = strings.TrimSpace(b); b != "" {
			kept = append(kept, b)
		}
	}
	return strings.Join(kept, "\n\n")
}
