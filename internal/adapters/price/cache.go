package price

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/snipechecks/snipebot/internal/core/domain"
)

const (
	// DefaultTTL bounds quote staleness.
	DefaultTTL = 60 * time.Second
	// DefaultCapacity bounds the number of distinct symbol-set keys held.
	DefaultCapacity = 128
)

type cacheEntry struct {
	quotes    map[string]float64
	fetchedAt time.Time
}

// Cache wraps a PriceOracle with a time-bounded cache keyed by the exact
// queried symbol set, plus single-flight deduplication: concurrent callers
// asking for the same key share one upstream fetch. Entries expire lazily
// on access and the oldest-by-freshness entry is evicted once capacity is
// reached, so distinct keys can't grow the map without bound.
type Cache struct {
	oracle   domain.PriceOracle
	ttl      time.Duration
	capacity int
	log      *zap.Logger

	// now is injectable for tests.
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
	flight  singleflight.Group
}

func NewCache(oracle domain.PriceOracle, ttl time.Duration, capacity int, log *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		oracle:   oracle,
		ttl:      ttl,
		capacity: capacity,
		log:      log.Named("pricecache"),
		now:      time.Now,
		entries:  make(map[string]cacheEntry),
	}
}

// GetPrices returns current prices for the symbol set. It never fails: on
// upstream trouble the unresolvable symbols are simply missing from the map
// and the condition is logged as recoverable.
func (c *Cache) GetPrices(ctx context.Context, symbols []string) map[string]float64 {
	if len(symbols) == 0 {
		return map[string]float64{}
	}
	key := cacheKey(symbols)

	if quotes, ok := c.lookup(key); ok {
		return quotes
	}

	// One upstream fetch per distinct in-flight key; everyone else waits on
	// the same result.
	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		quotes, err := c.oracle.FetchQuotes(ctx, symbols)
		if err != nil {
			return nil, err
		}
		c.store(key, quotes)
		return quotes, nil
	})
	if err != nil {
		c.log.Warn("quote fetch failed, returning empty prices",
			zap.String("symbols", key), zap.Error(err))
		return map[string]float64{}
	}
	return copyQuotes(v.(map[string]float64))
}

func (c *Cache) lookup(key string) (map[string]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.fetchedAt) >= c.ttl {
		// Lazy eviction: expired entries die when touched.
		delete(c.entries, key)
		return nil, false
	}
	return copyQuotes(entry.quotes), true
}

func (c *Cache) store(key string, quotes map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{quotes: copyQuotes(quotes), fetchedAt: c.now()}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.fetchedAt.Before(oldest) {
			oldestKey = k
			oldest = e.fetchedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// cacheKey canonicalizes a symbol set: uppercased, sorted, comma-joined.
func cacheKey(symbols []string) string {
	normalized := make([]string, len(symbols))
	for i, s := range symbols {
		normalized[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	sort.Strings(normalized)
	return strings.Join(normalized, ",")
}

func copyQuotes(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
