package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory Cache for tests and single-process
// deployments.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*Entry)}
}

// Get returns a live entry and increments its hit counter.
func (c *MemoryCache) Get(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.ExpiresAt) {
		delete(c.entries, fingerprint)
		return nil, false, nil
	}

	entry.HitCount++
	entryCopy := *entry
	return &entryCopy, true, nil
}

// Set writes an entry, replacing any previous one.
func (c *MemoryCache) Set(ctx context.Context, fingerprint, response string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fingerprint] = &Entry{
		Response:  response,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Sweep removes expired entries.
func (c *MemoryCache) Sweep(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for fingerprint, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, fingerprint)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op for the in-memory cache.
func (c *MemoryCache) Close() error {
	return nil
}
