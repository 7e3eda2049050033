// Package llm generates answers from a prompt. A missing generator is not an
// error: callers get a degraded result carrying NotConfiguredMessage.
package llm

import (
	"context"
	"fmt"
)

// Generation defaults.
const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.2
)

// NotConfiguredMessage is returned as the answer when no generator is configured.
const NotConfiguredMessage = "[LLM not configured] Set GENERATION_BACKEND (openai or ollama) to enable answers."

// Options are per-call sampling parameters.
type Options struct {
	MaxTokens   int
	Temperature float32
}

// DefaultOptions returns 512 new tokens at temperature 0.2.
func DefaultOptions() Options {
	return Options{MaxTokens: DefaultMaxTokens, Temperature: DefaultTemperature}
}

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	Name() string
}

// Status classifies a Generation.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
)

// Generation is the tagged outcome of Answer.
type Generation struct {
	Text    string
	Status  Status
	Backend string
}

// Answer runs gen once. It never returns an error: a nil gen yields a
// degraded result and a failed call yields "[LLM error] <detail>".
func Answer(ctx context.Context, gen Generator, prompt string, opts Options) (g Generation) {
	if gen == nil {
		return Generation{Text: NotConfiguredMessage, Status: StatusDegraded}
	}
	defer func() {
		if r := recover(); r != nil {
			g = Generation{Text: fmt.Sprintf("[LLM error] %v", r), Status: StatusError, Backend: gen.Name()}
		}
	}()
	text, err := gen.Generate(ctx, prompt, opts)
	if err != nil {
		return Generation{Text: fmt.Sprintf("[LLM error] %v", err), Status: StatusError, Backend: gen.Name()}
	}
	return Generation{Text: text, Status: StatusOK, Backend: gen.Name()}
}
