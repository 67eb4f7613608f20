// Package hf implements pkg/embeddings' Embedder client for a local
// sentence-transformers embedding server (HuggingFace-style /embed API).
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/shelf/pkg/embeddings"
)

const (
	// DefaultBaseURL is the default embedding server URL.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultDimensions matches the all-MiniLM-L6-v2 model the embedding
	// server runs by default.
	DefaultDimensions = 384
)

// Embedder wraps the embedding server's /embed API.
type Embedder struct {
	baseURL    string
	apiKey     string
	dimensions int
	httpClient *http.Client
}

// Config holds configuration for the embedder.
type Config struct {
	// BaseURL is the embedding server URL. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Dimensions is the expected vector length. When non-zero, responses
	// with a different dimensionality are rejected. Defaults to
	// DefaultDimensions.
	Dimensions int
}

// embedRequest is the request body for the /embed endpoint.
type embedRequest struct {
	Inputs string `json:"inputs"`
}

// embedResponse is the response from the /embed endpoint.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbedder creates a new embedder for a sentence-transformers server.
func NewEmbedder(cfg Config) (*Embedder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}

	return &Embedder{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		dimensions: dimensions,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, embeddings.ErrEmptyInput
	}

	jsonBody, err := json.Marshal(embedRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", embeddings.ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", embeddings.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &embeddings.ProviderError{
			StatusCode: resp.StatusCode,
			Detail:     string(body),
		}
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", embeddings.ErrProvider, err)
	}

	if len(embedResp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", embeddings.ErrProvider)
	}

	embedding := embedResp.Embeddings[0]
	if len(embedding) != e.dimensions {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d",
			embeddings.ErrProvider, e.dimensions, len(embedding))
	}

	return embedding, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
