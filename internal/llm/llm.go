// Package llm generates grounded answers from retrieval prompts.
package llm

import (
	"context"
	"errors"
)

// ErrGenerationFailed wraps chat completion failures.
var ErrGenerationFailed = errors.New("answer generation failed")

// ErrInvalidConfig indicates missing or invalid generator settings.
var ErrInvalidConfig = errors.New("invalid llm configuration")

// Generator produces an answer for a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)

	// Close releases any resources held by the generator.
	Close() error
}
