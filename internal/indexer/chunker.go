// Package indexer splits documents into overlapping chunks and writes them,
// with their embeddings, to the vector index.
package indexer

// Chunk splits text into windows of size runes. Each window after the first
// starts overlap runes before the previous one ended, unless that would not
// advance, in which case it starts where the previous one ended. A
// non-positive size returns the whole text as a single chunk; empty text with
// a positive size returns no chunks.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		return []string{text}
	}
	if overlap < 0 {
		overlap = 0
	}
	runes := []rune(text)
	n := len(runes)
	chunks := make([]string, 0, n/size+1)
	for start := 0; start < n; {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, string(runes[start:end]))
		if next := end - overlap; next > start {
			start = next
		} else {
			start = end
		}
	}
	return chunks
}
