package lookup

import (
	"context"
	"sync"
	"time"
)

// YearCache memoizes the latest FMR fiscal year with a TTL. It is an
// explicit injected object rather than a package-level variable so tests
// and callers control its lifetime and clock.
type YearCache struct {
	mu        sync.Mutex
	value     int
	fetchedAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewYearCache creates a cache with the given TTL. A zero TTL disables
// caching entirely.
func NewYearCache(ttl time.Duration) *YearCache {
	return &YearCache{ttl: ttl, now: time.Now}
}

// Get returns the cached year, invoking fetch when the entry is missing or
// older than the TTL.
func (c *YearCache) Get(ctx context.Context, fetch func(context.Context) (int, error)) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.value != 0 && c.ttl > 0 && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.value, nil
	}

	year, err := fetch(ctx)
	if err != nil {
		return 0, err
	}
	c.value = year
	c.fetchedAt = c.now()
	return year, nil
}

// Invalidate clears the cached value, forcing the next Get to fetch.
func (c *YearCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = 0
}
