package extract

import (
	"archive/zip"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	docxDefaultPart  = "word/document.xml"
	contentTypesPath = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	docxOverrideRe = regexp.MustCompile(`<Override\b[^>]*>`)
	docxPartNameRe = regexp.MustCompile(`PartName="([^"]+)"`)
	docxParaRe     = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	docxRunTextRe  = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`)
	docxStyleRe    = regexp.MustCompile(`<w:pStyle w:val="([^"]+)"`)
	docxHeadingRe  = regexp.MustCompile(`(?i)^(?:heading|berschrift|titre)\s*([1-6])$`)
)

// docxMainPart finds the main document part from [Content_Types].xml,
// falling back to word/document.xml.
func docxMainPart(zr *zip.Reader) string {
	data, err := readZipFile(zr, contentTypesPath)
	if err != nil || data == nil {
		return docxDefaultPart
	}
	for _, o := range docxOverrideRe.FindAllString(string(data), -1) {
		if !strings.Contains(o, `ContentType="`+docxMainType+`"`) {
			continue
		}
		if m := docxPartNameRe.FindStringSubmatch(o); m != nil {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return docxDefaultPart
}

// parseDOCX emits one block per paragraph; Heading/Title styles become
// markdown headings.
func parseDOCX(content []byte) (string, error) {
	zr, err := openZip(content, "DOCX")
	if err != nil {
		return "", err
	}
	part := docxMainPart(zr)
	data, err := readZipFile(zr, part)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if data == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", part)
	}

	var blocks []string
	for _, para := range docxParaRe.FindAllString(string(data), -1) {
		var b strings.Builder
		for _, run := range docxRunTextRe.FindAllStringSubmatch(para, -1) {
			b.WriteString(runText(run[1]))
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		if m := docxStyleRe.FindStringSubmatch(para); m != nil {
			text = headingPrefix(m[1]) + text
		}
		blocks = append(blocks, text)
	}
	return joinBlocks(blocks), nil
}

func headingPrefix(style string) string {
	if strings.EqualFold(style, "Title") {
		return "# "
	}
	if m := docxHeadingRe.FindStringSubmatch(style); m != nil {
		level, _ := strconv.Atoi(m[1])
		return strings.Repeat("#", level) + " "
	}
	return ""
}
