package cache

import (
	"sync"
)

// MemoryCache is a thread-safe in-process cache. It is the default backend:
// one instance is constructed at startup and injected into the translation
// service.
type MemoryCache struct {
	mu         sync.RWMutex
	partitions map[string]map[string]string
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		partitions: make(map[string]map[string]string),
	}
}

// Get retrieves a value. Returns empty string and false on miss.
func (c *MemoryCache) Get(partition, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries, ok := c.partitions[partition]
	if !ok {
		return "", false
	}
	value, ok := entries[key]
	return value, ok
}

// Set stores a value under the partition and key.
func (c *MemoryCache) Set(partition, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, ok := c.partitions[partition]
	if !ok {
		entries = make(map[string]string)
		c.partitions[partition] = entries
	}
	entries[key] = value
	return nil
}

// Delete removes a single entry.
func (c *MemoryCache) Delete(partition, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entries, ok := c.partitions[partition]; ok {
		delete(entries, key)
	}
	return nil
}

// Clear removes every entry in the partition.
func (c *MemoryCache) Clear(partition string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.partitions, partition)
	return nil
}

// Len returns the number of entries in the partition.
func (c *MemoryCache) Len(partition string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.partitions[partition])
}

var _ Cache = (*MemoryCache)(nil)
