package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/shelf/pkg/vector"
)

// MockIndex is a test vector index backed by a slice
type MockIndex struct {
	mu     sync.Mutex
	points []vector.Point

	// Matches is returned from Search (truncated to topK)
	Matches []vector.Match

	// SearchTopKs records the topK of every Search call
	SearchTopKs []uint64

	// CountValue overrides the stored-point count when non-zero
	CountValue uint64

	FailUpsert bool
	FailSearch bool
	FailCount  bool
}

func NewMockIndex() *MockIndex {
	return &MockIndex{}
}

func (m *MockIndex) Upsert(_ context.Context, points []vector.Point) error {
	if m.FailUpsert {
		return fmt.Errorf("mock upsert failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, points...)
	return nil
}

func (m *MockIndex) Search(_ context.Context, _ []float32, topK uint64) ([]vector.Match, error) {
	if m.FailSearch {
		return nil, fmt.Errorf("mock search failure")
	}

	m.mu.Lock()
	m.SearchTopKs = append(m.SearchTopKs, topK)
	m.mu.Unlock()

	if uint64(len(m.Matches)) < topK {
		return m.Matches, nil
	}
	return m.Matches[:topK], nil
}

func (m *MockIndex) Count(_ context.Context) (uint64, error) {
	if m.FailCount {
		return 0, fmt.Errorf("mock count failure")
	}

	if m.CountValue > 0 {
		return m.CountValue, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.points)), nil
}

// Points returns a copy of everything upserted so far
func (m *MockIndex) Points() []vector.Point {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]vector.Point, len(m.points))
	copy(out, m.points)
	return out
}

// MockProvider is a test index provider that tracks provisioning calls
type MockProvider struct {
	mu          sync.Mutex
	indexes     map[string]*MockIndex
	ensureCalls map[string]int

	FailEnsure bool
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		indexes:     make(map[string]*MockIndex),
		ensureCalls: make(map[string]int),
	}
}

func (m *MockProvider) Ensure(_ context.Context, name string) (vector.Index, error) {
	if m.FailEnsure {
		return nil, fmt.Errorf("mock ensure failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureCalls[name]++

	if index, ok := m.indexes[name]; ok {
		return index, nil
	}

	index := NewMockIndex()
	m.indexes[name] = index
	return index, nil
}

func (m *MockProvider) Close() error {
	return nil
}

// EnsureCalls returns how many times Ensure was called for name
func (m *MockProvider) EnsureCalls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureCalls[name]
}

// Index returns the provisioned index for name, or nil
func (m *MockProvider) Index(name string) *MockIndex {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexes[name]
}
