package extract

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// parsePDF extracts text per page as "## Page N" sections. Pages without
// text are skipped. Images are pulled with pdfcpu when requested.
func parsePDF(content []byte, withImages bool) (*Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	var blocks []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		if text = strings.TrimSpace(text); text == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("## Page %d\n\n%s", i, text))
	}

	doc := &Document{Text: joinBlocks(blocks)}
	if withImages {
		images, err := pdfImages(content)
		if err != nil {
			return nil, err
		}
		doc.Images = images
	}
	return doc, nil
}

// pdfImages returns embedded images ordered by page and object number.
func pdfImages(content []byte) ([]Image, error) {
	conf := model.NewDefaultConfiguration()
	pages, err := api.ExtractImagesRaw(bytes.NewReader(content), nil, conf)
	if err != nil {
		return nil, fmt.Errorf("extract PDF images: %w", err)
	}
	var images []Image
	for _, byObj := range pages {
		objNrs := make([]int, 0, len(byObj))
		for nr := range byObj {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)
		for _, nr := range objNrs {
			img := byObj[nr]
			data, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("read PDF image %s: %w", img.Name, err)
			}
			images = append(images, Image{Name: img.Name, Format: img.FileType, Data: data})
		}
	}
	return images, nil
}
