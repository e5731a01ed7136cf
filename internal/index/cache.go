package index

import (
	"context"
	"sync"
)

// ExistenceChecker answers whether a collection exists in the backing
// store.
type ExistenceChecker interface {
	HasCollection(ctx context.Context, name string) (bool, error)
}

// CollectionCache memoizes collection existence so EnsureReady does not
// hit the store on every call. It is owned and injected by the service
// instance, and invalidation is an explicit administrative call.
// Only positive answers are cached; a missing collection is re-checked
// every time so creation by another process is observed.
type CollectionCache struct {
	mu      sync.RWMutex
	known   map[string]bool
	checker ExistenceChecker
}

// NewCollectionCache creates a cache backed by the given checker.
func NewCollectionCache(checker ExistenceChecker) *CollectionCache {
	return &CollectionCache{
		known:   make(map[string]bool),
		checker: checker,
	}
}

// Get reports whether the collection exists, consulting the store on a
// cache miss.
func (c *CollectionCache) Get(ctx context.Context, name string) (bool, error) {
	c.mu.RLock()
	exists := c.known[name]
	c.mu.RUnlock()
	if exists {
		return true, nil
	}

	exists, err := c.checker.HasCollection(ctx, name)
	if err != nil {
		return false, err
	}
	if exists {
		c.put(name)
	}
	return exists, nil
}

// Invalidate drops the cached entry for a collection.
func (c *CollectionCache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.known, name)
	c.mu.Unlock()
}

func (c *CollectionCache) put(name string) {
	c.mu.Lock()
	c.known[name] = true
	c.mu.Unlock()
}
