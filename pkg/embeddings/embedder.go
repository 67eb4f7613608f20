// Package embeddings provides text embedding capabilities behind a uniform
// client interface.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding. Implementations reject
	// empty or whitespace-only input with ErrEmptyInput before contacting
	// the provider.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

var (
	// ErrEmptyInput is returned when the text to embed is empty or
	// whitespace-only. Detected locally; the provider is never contacted.
	ErrEmptyInput = errors.New("embedding input is empty or whitespace")

	// ErrProvider is returned when the embedding provider call fails.
	// Wrapped errors carry the upstream status and detail so callers can
	// tell transient failures from permanent ones. Retrying is the
	// caller's responsibility.
	ErrProvider = errors.New("embedding provider request failed")
)

// ProviderError carries the upstream status of a failed provider call.
type ProviderError struct {
	StatusCode int
	Detail     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider returned status %d: %s", e.StatusCode, e.Detail)
}

// Unwrap makes errors.Is(err, ErrProvider) hold for all provider errors.
func (e *ProviderError) Unwrap() error {
	return ErrProvider
}
