package llm

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens with a tiktoken encoding.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter picks the encoding for model, falling back to cl100k_base.
func NewTokenCounter(model string) (*TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load tiktoken encoding: %w", err)
		}
	}
	return &TokenCounter{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// FitContext keeps passages in order while their combined token count stays
// within budget and returns how many were kept. A nil counter or a
// non-positive budget keeps everything.
func FitContext(c *TokenCounter, passages []string, budget int) int {
	if c == nil || budget <= 0 {
		return len(passages)
	}
	used := 0
	for i, p := range passages {
		used += c.Count(p)
		if used > budget {
			return i
		}
	}
	return len(passages)
}
