// internal/service/cache.go
package service

import (
	"sync"
	"time"
)

// snapshotCache holds the last full multi-provider health snapshot for a
// TTL. The whole snapshot is cached as one unit: a hit returns the prior
// report, never a per-provider mix of fresh and stale records. The clock is
// injected so tests can advance time without sleeping.
type snapshotCache struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	snapshot *HealthReport
	storedAt time.Time
}

func newSnapshotCache(ttl time.Duration, now func() time.Time) *snapshotCache {
	if now == nil {
		now = time.Now
	}
	return &snapshotCache{ttl: ttl, now: now}
}

// Get returns an age-annotated copy of the cached snapshot, or false when
// the cache is empty or past its TTL. The per-provider records are shared
// with the stored snapshot; they are immutable once published.
func (c *snapshotCache) Get() (*HealthReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil {
		return nil, false
	}
	age := c.now().Sub(c.storedAt)
	if age >= c.ttl {
		return nil, false
	}

	hit := *c.snapshot
	hit.Providers = make(map[string]*ProviderHealth, len(c.snapshot.Providers))
	for name, health := range c.snapshot.Providers {
		hit.Providers[name] = health
	}
	hit.FromCache = true
	hit.CacheAge = int(age.Seconds())
	return &hit, true
}

// Put stores a fresh snapshot, resetting its age.
func (c *snapshotCache) Put(report *HealthReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = report
	c.storedAt = c.now()
}
