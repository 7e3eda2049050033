package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const odfContentPath = "content.xml"

var (
	odfBlockRe     = regexp.MustCompile(`(?s)<text:(h|p)(\s[^>]*)?>(.*?)</text:(?:h|p)>`)
	odfLevelRe     = regexp.MustCompile(`text:outline-level="(\d)"`)
	odfTableRe     = regexp.MustCompile(`(?s)<table:table(\s[^>]*)?>(.*?)</table:table>`)
	odfNameRe      = regexp.MustCompile(`table:name="([^"]*)"`)
	odfRowRe       = regexp.MustCompile(`(?s)<table:table-row(?:\s[^>]*)?>(.*?)</table:table-row>`)
	odfCellRe      = regexp.MustCompile(`(?s)<table:table-cell(\s[^>]*)?/>|<table:table-cell(\s[^>]*)?>(.*?)</table:table-cell>`)
	odfRepeatRe    = regexp.MustCompile(`table:number-columns-repeated="(\d+)"`)
	odfEmptyParaRe = regexp.MustCompile(`<text:p(\s[^>]*)?/>`)
)

func odfContent(content []byte, kind string) (string, error) {
	zr, err := openZip(content, kind)
	if err != nil {
		return "", err
	}
	data, err := readZipFile(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", kind, err)
	}
	if data == nil {
		return "", fmt.Errorf("extract %s: %s not found", kind, odfContentPath)
	}
	return string(data), nil
}

// parseODFText handles text documents and presentations: headings keep their
// outline level, paragraphs become blocks, in document order.
func parseODFText(content []byte) (string, error) {
	xml, err := odfContent(content, "ODF")
	if err != nil {
		return "", err
	}
	xml = odfEmptyParaRe.ReplaceAllString(xml, "")
	var blocks []string
	for _, m := range odfBlockRe.FindAllStringSubmatch(xml, -1) {
		text := innerText(m[3])
		if text == "" {
			continue
		}
		if m[1] == "h" {
			level := 1
			if lm := odfLevelRe.FindStringSubmatch(m[2]); lm != nil {
				level, _ = strconv.Atoi(lm[1])
			}
			text = strings.Repeat("#", level) + " " + text
		}
		blocks = append(blocks, text)
	}
	return joinBlocks(blocks), nil
}

// parseODS renders each sheet as "## <name>" followed by a pipe table.
// Repeated trailing empty columns are dropped.
func parseODS(content []byte) (string, error) {
	xml, err := odfContent(content, "ODS")
	if err != nil {
		return "", err
	}
	var blocks []string
	for _, t := range odfTableRe.FindAllStringSubmatch(xml, -1) {
		name := ""
		if nm := odfNameRe.FindStringSubmatch(t[1]); nm != nil {
			name = nm[1]
		}
		var rows [][]string
		for _, r := range odfRowRe.FindAllStringSubmatch(t[2], -1) {
			rows = append(rows, odsRow(r[1]))
		}
		table := markdownTable(trimEmptyRows(rows))
		if table == "" {
			continue
		}
		blocks = append(blocks, "## "+name+"\n\n"+table)
	}
	return joinBlocks(blocks), nil
}

func odsRow(rowXML string) []string {
	var cells []string
	for _, c := range odfCellRe.FindAllStringSubmatch(rowXML, -1) {
		attrs, body := c[1]+c[2], c[3]
		repeat := 1
		if rm := odfRepeatRe.FindStringSubmatch(attrs); rm != nil {
			repeat, _ = strconv.Atoi(rm[1])
		}
		body = odfEmptyParaRe.ReplaceAllString(body, "")
		paras := odfBlockRe.FindAllStringSubmatch(body, -1)
		parts := make([]string, 0, len(paras))
		for _, p := range paras {
			parts = append(parts, innerText(p[3]))
		}
		text := strings.Join(parts, " ")
		if text == "" && repeat > 1 {
			repeat = 1
		}
		for i := 0; i < repeat; i++ {
			cells = append(cells, text)
		}
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}
