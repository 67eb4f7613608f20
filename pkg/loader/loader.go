// Package loader provides document sources for ingestion.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrNotFound is returned when the document cannot be read.
var ErrNotFound = errors.New("document not found")

// Loader reads a document's full text.
type Loader interface {
	Load(ctx context.Context) (string, error)
}

// FileLoader reads a document from the local filesystem.
type FileLoader struct {
	path string
}

// NewFileLoader creates a loader for the given path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Load reads the whole file as UTF-8 text.
func (l *FileLoader) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, l.path)
		}
		return "", fmt.Errorf("reading document %s: %w", l.path, err)
	}

	return string(data), nil
}

// Path returns the file path the loader reads from.
func (l *FileLoader) Path() string {
	return l.path
}

var _ Loader = (*FileLoader)(nil)
