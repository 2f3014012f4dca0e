package metadata

import (
	"sync"

	"poolwatch/internal/models"
)

// Cache keeps fully resolved metadata per mint for the life of the process
type Cache struct {
	mu      sync.RWMutex
	entries map[string]models.Metadata
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]models.Metadata)}
}

// Get returns the cached metadata for mint
func (c *Cache) Get(mint string) (models.Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.entries[mint]
	return m, ok
}

// Put stores m unless it is unresolved. It reports whether m was stored.
func (c *Cache) Put(mint string, m models.Metadata) bool {
	if !m.Resolved() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[mint] = m
	return true
}

// Len returns the number of cached mints
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
