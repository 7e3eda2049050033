package extract

import "strings"

// parseImage returns no text; the file itself is the only image.
func parseImage(filename, ext string, content []byte, withImages bool) *Document {
	doc := &Document{}
	if withImages {
		doc.Images = []Image{{Name: filename, Format: strings.TrimPrefix(ext, "."), Data: content}}
	}
	return doc
}
