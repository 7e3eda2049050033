package search

import "strings"

const promptTemplate = `You are a helpful assistant. Use the context to answer the question.
Cite relevant sources by filename when possible. If unsure, say you don't know.

Context:
{context}

Question: {query}
Answer:`

// BuildPrompt fills the answer template with passages joined by blank lines.
func BuildPrompt(query string, passages []string) string {
	r := strings.NewReplacer("{context}", strings.Join(passages, "\n\n"), "{query}", query)
	return r.Replace(promptTemplate)
}
