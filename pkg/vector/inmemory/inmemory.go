// Package inmemory provides a process-local vector provider. It brute-force
// scans with cosine similarity, which is plenty for tests and small corpora.
package inmemory

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/shelf/pkg/vector"
)

// Provider keeps every index in process memory.
type Provider struct {
	logger *slog.Logger

	mu      sync.Mutex
	indexes map[string]*index
}

// NewProvider creates an empty in-memory provider.
func NewProvider(logger *slog.Logger) *Provider {
	return &Provider{
		logger:  logger,
		indexes: make(map[string]*index),
	}
}

// Ensure returns the named index, creating it on first use.
func (p *Provider) Ensure(_ context.Context, name string) (vector.Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.indexes[name]; ok {
		return idx, nil
	}

	idx := &index{points: make(map[string]vector.Point)}
	p.indexes[name] = idx

	p.logger.Debug("created in-memory index", "index", name)

	return idx, nil
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}

type index struct {
	mu     sync.RWMutex
	points map[string]vector.Point
}

func (x *index) Upsert(_ context.Context, points []vector.Point) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, pt := range points {
		x.points[pt.ID] = pt
	}

	return nil
}

func (x *index) Search(_ context.Context, embedding []float32, topK uint64) ([]vector.Match, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	matches := make([]vector.Match, 0, len(x.points))
	for _, pt := range x.points {
		matches = append(matches, vector.Match{
			Score: cosineSimilarity(embedding, pt.Vector),
			Text:  pt.Text,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if uint64(len(matches)) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

func (x *index) Count(_ context.Context) (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return uint64(len(x.points)), nil
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is zero-length or the dimensions disagree.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ vector.Provider = (*Provider)(nil)
var _ vector.Index = (*index)(nil)
