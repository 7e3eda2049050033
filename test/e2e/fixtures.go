// Package e2e runs the docling toolset end to end over HTTP. This file builds
// minimal documents for each format the extractor understands.
package e2e

import (
	"archive/zip"
	"bytes"

	"github.com/xuri/excelize/v2"
)

// SupportedFileExtensions are the formats exercised by the ingest tests. PDF
// is left out: there is no tiny PDF with extractable text to generate here.
var SupportedFileExtensions = []string{
	".txt", ".md", ".csv",
	".docx", ".xlsx", ".pptx", ".odt", ".odp", ".ods",
}

// MinimalFile returns the bytes of a minimal ext document containing text.
// Plain formats are the text itself.
func MinimalFile(ext, text string) ([]byte, error) {
	switch ext {
	case ".docx":
		return zipWith("word/document.xml",
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>`+text+`</w:t></w:r></w:p></w:body></w:document>`)
	case ".pptx":
		return zipWith("ppt/slides/slide1.xml",
			`<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>`+text+`</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
	case ".odt", ".odp":
		return zipWith("content.xml",
			`<office:document><office:body><draw:page><text:p>`+text+`</text:p></draw:page></office:body></office:document>`)
	case ".ods":
		return zipWith("content.xml",
			`<office:document><office:body><table:table table:name="Sheet1"><table:table-row><table:table-cell><text:p>`+text+`</text:p></table:table-cell></table:table-row></table:table></office:body></office:document>`)
	case ".xlsx":
		return minimalXlsx(text)
	case ".csv":
		return []byte("note\n" + text + "\n"), nil
	default:
		return []byte(text), nil
	}
}

func zipWith(name, body string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write([]byte(body)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func minimalXlsx(text string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetCellValue("Sheet1", "A1", text); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
