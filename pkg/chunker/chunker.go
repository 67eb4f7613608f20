// Package chunker splits document text into overlapping windows suitable
// for embedding and retrieval indexing.
package chunker

import (
	"errors"
	"fmt"
)

const (
	// DefaultChunkSize is the default window size in bytes.
	DefaultChunkSize = 1000

	// DefaultOverlap is the default number of bytes shared between
	// consecutive windows.
	DefaultOverlap = 200
)

// ErrWindowSize indicates a chunk size / overlap combination under which
// the window would never advance.
var ErrWindowSize = errors.New("chunk size must be greater than overlap")

// Chunk is a bounded substring of the source document. Index is the
// position of the chunk in the split sequence and doubles as the basis for
// stored record ids.
type Chunk struct {
	Index int
	Text  string
}

// Split cuts text into windows of chunkSize bytes, advancing the window
// start by chunkSize-overlap each step so consecutive chunks share overlap
// bytes. The final chunk may be shorter. Splitting is deterministic: the
// same input and parameters always produce the same sequence, which is what
// makes ingestion idempotent. Empty input yields no chunks.
func Split(text string, chunkSize, overlap int) ([]Chunk, error) {
	if chunkSize <= 0 || overlap < 0 || chunkSize <= overlap {
		return nil, fmt.Errorf("%w: chunk_size=%d overlap=%d", ErrWindowSize, chunkSize, overlap)
	}

	if len(text) == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	chunks := make([]Chunk, 0, (len(text)+step-1)/step)
	for start := 0; start < len(text); start += step {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  text[start:end],
		})
	}

	return chunks, nil
}
