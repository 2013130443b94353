package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/opencontainers/go-digest"
)

// MemoryBuildCache is the in-process reference BuildCache: an unbounded
// map guarded by a mutex, keyed by the digest of each CacheKey's String
// form. It exists for tests and single-host builds;
// a production deployment would back BuildCache with content-addressed
// storage instead.
type MemoryBuildCache struct {
	mu      sync.RWMutex
	entries map[digest.Digest]CachedResult

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryBuildCache returns an empty MemoryBuildCache.
func NewMemoryBuildCache() *MemoryBuildCache {
	return &MemoryBuildCache{entries: make(map[digest.Digest]CachedResult)}
}

func (c *MemoryBuildCache) Get(ctx context.Context, key CacheKey) (CachedResult, bool, error) {
	c.mu.RLock()
	result, ok := c.entries[digest.FromString(key.String())]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return result, ok, nil
}

func (c *MemoryBuildCache) Put(ctx context.Context, key CacheKey, result CachedResult) error {
	c.mu.Lock()
	c.entries[digest.FromString(key.String())] = result
	c.mu.Unlock()
	return nil
}

func (c *MemoryBuildCache) Stats() Stats {
	c.mu.RLock()
	entries := int64(len(c.entries))
	c.mu.RUnlock()
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: entries,
	}
}
