package vector

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// CacheStats is a snapshot of the cache contents.
type CacheStats struct {
	Names []string `json:"cached_indexes"`
	Count int      `json:"count"`
}

// Cache memoizes index handles by name so repeated lookups skip the
// provider's ensure round-trip. Safe for concurrent use.
type Cache struct {
	provider Provider
	logger   *slog.Logger

	mu      sync.RWMutex
	indexes map[string]Index
}

// NewCache creates an empty cache backed by the given provider.
func NewCache(provider Provider, logger *slog.Logger) *Cache {
	return &Cache{
		provider: provider,
		logger:   logger,
		indexes:  make(map[string]Index),
	}
}

// GetOrCreate returns the cached handle for name, provisioning it via the
// provider on a miss. Provisioning happens outside the lock; when two
// callers race on the same name, the first stored handle wins and both
// callers converge on it.
func (c *Cache) GetOrCreate(ctx context.Context, name string) (Index, error) {
	c.mu.RLock()
	index, ok := c.indexes[name]
	c.mu.RUnlock()

	if ok {
		c.logger.Debug("index cache hit", "index", name)
		return index, nil
	}

	c.logger.Debug("index cache miss, provisioning", "index", name)

	index, err := c.provider.Ensure(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.indexes[name]; ok {
		return existing, nil
	}

	c.indexes[name] = index
	return index, nil
}

// Invalidate drops the cached handle for name. Returns true if a handle was
// cached. The next GetOrCreate for the name provisions again.
func (c *Cache) Invalidate(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.indexes[name]
	delete(c.indexes, name)

	if ok {
		c.logger.Debug("index cache entry invalidated", "index", name)
	}

	return ok
}

// InvalidateAll empties the cache and returns the number of dropped entries.
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := len(c.indexes)
	c.indexes = make(map[string]Index)

	c.logger.Debug("index cache cleared", "count", count)

	return count
}

// Stats returns the cached index names (sorted) and their count.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.indexes))
	for name := range c.indexes {
		names = append(names, name)
	}
	sort.Strings(names)

	return CacheStats{
		Names: names,
		Count: len(names),
	}
}
