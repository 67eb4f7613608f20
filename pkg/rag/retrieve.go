package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/shelf/pkg/chunker"
	"github.com/papercomputeco/shelf/pkg/embeddings"
	"github.com/papercomputeco/shelf/pkg/vector"
)

const (
	// DefaultMaxContextChars caps the assembled context passed to the model.
	DefaultMaxContextChars = 22000

	// DefaultMatchLimit is the number of related texts returned when a
	// caller does not ask for a specific count.
	DefaultMatchLimit = 5

	// contextSeparator joins retrieved chunk texts.
	contextSeparator = "\n\n"
)

// RetrieverConfig sizes context assembly.
type RetrieverConfig struct {
	// MaxContextChars caps the assembled context length in bytes.
	// Defaults to DefaultMaxContextChars if zero.
	MaxContextChars int

	// ChunkSizeHint is the chunk size the corpus was ingested with; it
	// drives how many neighbors fit the context budget. Defaults to
	// chunker.DefaultChunkSize if zero.
	ChunkSizeHint int
}

// Retriever embeds queries and assembles context from the nearest stored
// chunks.
type Retriever struct {
	embedder embeddings.Embedder
	cache    *vector.Cache
	logger   *slog.Logger

	maxContextChars int
	chunkSizeHint   int
}

// NewRetriever creates a retriever over the given index cache.
func NewRetriever(
	embedder embeddings.Embedder,
	cache *vector.Cache,
	c RetrieverConfig,
	logger *slog.Logger,
) *Retriever {
	maxContextChars := c.MaxContextChars
	if maxContextChars == 0 {
		maxContextChars = DefaultMaxContextChars
	}

	chunkSizeHint := c.ChunkSizeHint
	if chunkSizeHint == 0 {
		chunkSizeHint = chunker.DefaultChunkSize
	}

	return &Retriever{
		embedder:        embedder,
		cache:           cache,
		logger:          logger,
		maxContextChars: maxContextChars,
		chunkSizeHint:   chunkSizeHint,
	}
}

// TopK is how many neighbors fit the context budget: the budget divided by
// the chunk size, never less than 1.
func (r *Retriever) TopK() int {
	k := r.maxContextChars / r.chunkSizeHint
	if k < 1 {
		k = 1
	}
	return k
}

// MaxContextChars returns the configured context budget.
func (r *Retriever) MaxContextChars() int {
	return r.maxContextChars
}

// Retrieve embeds the query, searches the named index, and joins the
// resulting texts into a single context string hard-capped at the context
// budget.
func (r *Retriever) Retrieve(ctx context.Context, indexName, query string) (string, error) {
	matches, err := r.search(ctx, indexName, query, uint64(r.TopK()))
	if err != nil {
		return "", err
	}

	texts := make([]string, 0, len(matches))
	for _, match := range matches {
		if match.Text == "" {
			continue
		}
		texts = append(texts, match.Text)
	}

	joined := strings.Join(texts, contextSeparator)
	if len(joined) > r.maxContextChars {
		joined = joined[:r.maxContextChars]
	}

	r.logger.Debug("assembled retrieval context",
		"index", indexName,
		"matches", len(matches),
		"context_chars", len(joined),
	)

	return joined, nil
}

// Matches returns the texts of the topK nearest chunks, most similar first.
// Matches without a stored text payload are dropped. A topK of zero or less
// falls back to DefaultMatchLimit.
func (r *Retriever) Matches(ctx context.Context, indexName, query string, topK int) ([]string, error) {
	if topK <= 0 {
		topK = DefaultMatchLimit
	}

	matches, err := r.search(ctx, indexName, query, uint64(topK))
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(matches))
	for _, match := range matches {
		if match.Text == "" {
			continue
		}
		texts = append(texts, match.Text)
	}

	return texts, nil
}

func (r *Retriever) search(ctx context.Context, indexName, query string, topK uint64) ([]vector.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	index, err := r.cache.GetOrCreate(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("provisioning index %s: %w", indexName, err)
	}

	matches, err := index.Search(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", indexName, err)
	}

	return matches, nil
}
