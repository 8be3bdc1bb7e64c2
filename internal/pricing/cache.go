package pricing

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/ride-booking/internal/models"
)

// QuoteCache is a tiny in-memory TTL cache for quotes keyed by the
// origin/destination/class triple. Quotes are deterministic, so caching
// only saves recomputation on the hot quote endpoint.
type QuoteCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	q  models.RideQuote
	ts time.Time
}

func NewQuoteCache(ttl time.Duration) *QuoteCache {
	return &QuoteCache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(origin, dest models.Coord, class models.VehicleClass) string {
	return fmtCoord(origin) + "->" + fmtCoord(dest) + "@" + string(class)
}

func fmtCoord(c models.Coord) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Get returns the cached quote and true if present and not expired.
func (c *QuoteCache) Get(origin, dest models.Coord, class models.VehicleClass) (models.RideQuote, bool) {
	k := keyFor(origin, dest, class)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return models.RideQuote{}, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return models.RideQuote{}, false
	}
	return e.q, true
}

// Set stores a quote in the cache.
func (c *QuoteCache) Set(origin, dest models.Coord, class models.VehicleClass, q models.RideQuote) {
	k := keyFor(origin, dest, class)
	c.mu.Lock()
	c.store[k] = cacheEntry{q: q, ts: time.Now()}
	c.mu.Unlock()
}
