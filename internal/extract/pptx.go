package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	pptxSlideRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	pptxParaRe  = regexp.MustCompile(`(?s)<a:p>.*?</a:p>|<a:p\s[^>]*>.*?</a:p>`)
	pptxTextRe  = regexp.MustCompile(`(?s)<a:t(?:\s[^>]*)?>(.*?)</a:t>`)
)

// parsePPTX emits a "## Slide N" section per slide in slide order, with one
// line per text paragraph.
func parsePPTX(content []byte) (string, error) {
	zr, err := openZip(content, "PPTX")
	if err != nil {
		return "", err
	}
	type slide struct {
		n    int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		if m := pptxSlideRe.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{n: n, name: f.Name})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	var blocks []string
	for _, s := range slides {
		data, err := readZipFile(zr, s.name)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %w", err)
		}
		var lines []string
		for _, para := range pptxParaRe.FindAllString(string(data), -1) {
			var b strings.Builder
			for _, run := range pptxTextRe.FindAllStringSubmatch(para, -1) {
				b.WriteString(runText(run[1]))
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("## Slide %d\n\n%s", s.n, strings.Join(lines, "\n")))
	}
	return joinBlocks(blocks), nil
}
