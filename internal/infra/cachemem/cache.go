// Package cachemem holds a small in-process TTL cache for tenant lookups.
// Host-to-broker resolution runs on every request, so the hot path avoids a
// database round trip for repeat hosts.
package cachemem

import (
	"sync"
	"time"

	"backoffice/internal/domain"
)

type BrokerCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	value     domain.Broker
	expiresAt time.Time
}

func NewBrokerCache(ttl time.Duration) *BrokerCache {
	return &BrokerCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *BrokerCache) Get(candidate string) (*domain.Broker, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[candidate]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, candidate)
		return nil, false
	}
	value := entry.value
	return &value, true
}

func (c *BrokerCache) Put(candidate string, broker domain.Broker) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[candidate] = cacheEntry{value: broker, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops every cached entry. Called after broker mutations so a
// status or domain change is not masked by a stale hit.
func (c *BrokerCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
