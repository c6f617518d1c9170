// Package httpcache provides the in-memory response cache for the API
// server. The resolver core stays cache-free; deduplicating repeated lookups
// for the same address is strictly a concern of the HTTP layer.
package httpcache

import (
	"log/slog"
	"time"

	"github.com/maypok86/otter/v2"
)

// ResponseCache holds rendered JSON response bodies keyed by the looked-up
// address, bounded in size and expiring a fixed TTL after write.
type ResponseCache struct {
	cache  *otter.Cache[string, []byte]
	logger *slog.Logger
	ttl    time.Duration
}

func New(capacity int, ttl time.Duration, logger *slog.Logger) *ResponseCache {
	cache := otter.Must(&otter.Options[string, []byte]{
		MaximumSize:      capacity,
		ExpiryCalculator: otter.ExpiryWriting[string, []byte](ttl),
	})
	return &ResponseCache{
		cache:  cache,
		logger: logger,
		ttl:    ttl,
	}
}

func (c *ResponseCache) Get(key string) ([]byte, bool) {
	data, found := c.cache.GetIfPresent(key)
	if !found {
		c.logger.Debug("response cache miss", "key", key)
		return nil, false
	}
	return data, true
}

func (c *ResponseCache) Set(key string, data []byte) {
	c.cache.Set(key, data)
	c.logger.Debug("response cache set", "key", key, "size", len(data), "ttl", c.ttl)
}

// Invalidate drops one entry; used by the cleanup endpoint.
func (c *ResponseCache) Invalidate(key string) {
	c.cache.Invalidate(key)
}

func (c *ResponseCache) Len() int {
	return c.cache.EstimatedSize()
}
