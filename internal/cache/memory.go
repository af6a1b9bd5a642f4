package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// SweepInterval is how often expired in-process entries are dropped.
const SweepInterval = 30 * time.Second

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used when the distributed cache
// is unreachable. Entries expire by TTL; a background sweeper reclaims
// them so the map does not grow without bound.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	stopSweep chan struct{}
	wg        sync.WaitGroup
}

func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{
		entries:   make(map[string]memoryEntry),
		stopSweep: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.sweepLoop()

	return c
}

func (c *MemoryCache) sweepLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep(time.Now())
		case <-c.stopSweep:
			return
		}
	}
}

func (c *MemoryCache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *MemoryCache) Available(context.Context) bool {
	return true
}

// Close stops the background sweeper and waits for it to finish.
func (c *MemoryCache) Close() error {
	close(c.stopSweep)
	c.wg.Wait()
	return nil
}
