package telemetry

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache memoizes remote boolean device attributes (climate-react enabled,
// device power) with a per-key TTL to bound request volume against the vendor
// API. An entry older than its TTL is simply absent and triggers a fresh
// fetch. Fetch failures are never cached.
type Cache struct {
	c *gocache.Cache
}

// NewCache returns a cache whose janitor sweeps expired entries periodically.
func NewCache(defaultTTL time.Duration) *Cache {
	return &Cache{c: gocache.New(defaultTTL, 2*defaultTTL)}
}

// GetOrFetch returns the cached value for key, or calls fetch and caches the
// result for ttl. A fetch error is returned uncached so the next call retries.
func (c *Cache) GetOrFetch(key string, ttl time.Duration, fetch func() (bool, error)) (bool, error) {
	if v, ok := c.c.Get(key); ok {
		return v.(bool), nil
	}
	v, err := fetch()
	if err != nil {
		return false, err
	}
	c.c.Set(key, v, ttl)
	return v, nil
}

// Invalidate drops a key so the next read reflects a just-issued command
// instead of a TTL-stale value.
func (c *Cache) Invalidate(key string) {
	c.c.Delete(key)
}
