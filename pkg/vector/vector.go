// Package vector provides interfaces and implementations for vector index
// storage and similarity search.
package vector

import "context"

// Point is a stored record: an embedding with its source text attached as
// payload metadata.
type Point struct {
	// ID is the record identifier (e.g. "manual-chunk-3").
	ID string

	// Vector is the embedding of Text.
	Vector []float32

	// Text is the chunk text the vector was produced from.
	Text string
}

// Match is a nearest-neighbor search result. Text is empty when the stored
// point carried no text payload; callers treat that as an absent field, not
// an error.
type Match struct {
	Score float32
	Text  string
}

// Index is a live handle on a provisioned vector index.
type Index interface {
	// Upsert stores points, replacing any existing points with the same ID.
	Upsert(ctx context.Context, points []Point) error

	// Search returns the topK most similar points to the given embedding,
	// ranked by descending cosine similarity, with payloads included.
	Search(ctx context.Context, embedding []float32, topK uint64) ([]Match, error)

	// Count returns the total number of stored vectors.
	Count(ctx context.Context) (uint64, error)
}

// Provider provisions named indexes. Dimensionality and similarity metric
// are fixed per provider instance; they are part of an index's identity, so
// changing them for an existing name requires a new name.
type Provider interface {
	// Ensure returns a handle on the named index, creating it if it does
	// not exist. A creation conflict with a concurrent creator counts as
	// success.
	Ensure(ctx context.Context, name string) (Index, error)

	// Close releases any resources held by the provider.
	Close() error
}
