// Package llm provides interfaces and implementations for text generation
// against chat-completion APIs.
package llm

import (
	"context"
	"errors"
)

// ErrGeneration is returned when the model fails to produce a completion.
// Wrapped errors carry the upstream status/detail.
var ErrGeneration = errors.New("text generation failed")

// Generator produces a completion for a system instruction and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Close() error
}
