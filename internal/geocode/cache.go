package geocode

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Cache memoizes reverse geocoding lookups. Keys are coordinates rounded
// to 4 decimal places (~11m). Entries never expire: coordinates are
// immutable facts, and failed lookups are cached as a formatted
// coordinate string so a known-bad lookup is never retried.
//
// Upstream lookups are serialized process-wide, at most one per second,
// to respect the geocoding service's usage policy.
type Cache struct {
	mu        sync.RWMutex
	addresses map[string]string

	resolver Resolver
	limiter  *rate.Limiter
	upstream sync.Mutex // one outstanding upstream lookup at a time
	logger   *zap.Logger
}

// NewCache creates a cache in front of the given resolver
func NewCache(resolver Resolver, logger *zap.Logger) *Cache {
	return &Cache{
		addresses: make(map[string]string),
		resolver:  resolver,
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		logger:    logger,
	}
}

// Resolve returns the address for a coordinate. It never fails: if the
// upstream lookup errors, a formatted "lat, lon" string is returned and
// cached in its place.
func (c *Cache) Resolve(ctx context.Context, lat, lon float64) string {
	key := cacheKey(lat, lon)

	if addr, ok := c.get(key); ok {
		return addr
	}

	c.upstream.Lock()
	defer c.upstream.Unlock()

	// Another caller may have filled the entry while we waited
	if addr, ok := c.get(key); ok {
		return addr
	}

	if err := c.limiter.Wait(ctx); err != nil {
		// Context cancelled while queued: fall back without caching so
		// a later caller can still resolve this coordinate.
		return FormatCoordinate(lat, lon)
	}

	addr, err := c.resolver.Resolve(ctx, lat, lon)
	if err != nil {
		if ctx.Err() != nil {
			return FormatCoordinate(lat, lon)
		}
		c.logger.Warn("Reverse geocoding failed, caching coordinate fallback",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		addr = FormatCoordinate(lat, lon)
	}

	c.put(key, addr)
	return addr
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.addresses)
}

// Clear removes all entries (useful for testing)
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addresses = make(map[string]string)
}

func (c *Cache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	addr, ok := c.addresses[key]
	return addr, ok
}

func (c *Cache) put(key, addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addresses[key] = addr

	c.logger.Debug("Cached address",
		zap.String("key", key),
		zap.String("address", addr),
	)
}

// cacheKey rounds both coordinates to 4 decimal places
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// FormatCoordinate formats a coordinate pair as a display fallback
func FormatCoordinate(lat, lon float64) string {
	return fmt.Sprintf("%.5f, %.5f", lat, lon)
}
