package species

import (
	"context"
	"slices"
	"sync"
	"time"

	"vetdesk/internal/registration/models"
	id "vetdesk/pkg/domain"
)

type memoryEntry struct {
	list      []models.Species
	expiresAt time.Time
}

// MemoryCache keeps species lists in process for ttl.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[id.AnimalKindID]memoryEntry
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[id.AnimalKindID]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, kindID id.AnimalKindID) ([]models.Species, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[kindID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, kindID)
		c.mu.Unlock()
		return nil, false, nil
	}
	return slices.Clone(entry.list), true, nil
}

func (c *MemoryCache) Set(_ context.Context, kindID id.AnimalKindID, list []models.Species) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[kindID] = memoryEntry{
		list:      slices.Clone(list),
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}
