package cache

import (
	"context"
	"strings"
	"time"

	"github.com/timmy/recipeclip/internal/logger"
	"github.com/timmy/recipeclip/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Entry is a cached autocomplete result.
type Entry struct {
	Suggestions []string  `json:"suggestions"`
	ComputedAt  time.Time `json:"computed_at"`
}

// Backend is a shared cache tier consulted after the in-memory LRU.
type Backend interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
}

// ComputeFunc produces the suggestions for a normalized query. It must not fail.
type ComputeFunc func(ctx context.Context, key string) []string

// SuggestionCache memoizes autocomplete results per normalized query.
// Concurrent misses on the same key share one computation.
type SuggestionCache struct {
	ttl    time.Duration
	now    func() time.Time
	mem    *LRU[Entry]
	shared Backend
	group  singleflight.Group
}

// Option configures a SuggestionCache.
type Option func(*SuggestionCache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *SuggestionCache) { c.now = now }
}

// WithBackend adds a shared tier such as Redis.
func WithBackend(b Backend) Option {
	return func(c *SuggestionCache) { c.shared = b }
}

// NewSuggestionCache creates a cache holding at most capacity queries, each
// fresh for ttl after it was computed.
func NewSuggestionCache(capacity int, ttl time.Duration, opts ...Option) *SuggestionCache {
	c := &SuggestionCache{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.mem = NewLRU[Entry](capacity, ttl, c.now)
	c.mem.OnEvict(func(string) { metrics.SuggestionCacheEvictions.Inc() })
	return c
}

// Normalize maps a raw query to its cache key.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// GetOrCompute returns the cached suggestions for query, computing and
// storing them on a miss or when the entry is stale. A computed entry is
// stamped with the time its lookup started, not when compute returned.
// Parameters:
//   - ctx: request context; the computation itself outlives cancellation.
//   - query: raw user input.
//   - compute: produces suggestions for the normalized key.
// Returns:
//   - []string: suggestions; empty for a blank query. The slice is the caller's to keep.
func (c *SuggestionCache) GetOrCompute(ctx context.Context, query string, compute ComputeFunc) []string {
	key := Normalize(query)
	if key == "" {
		return []string{}
	}

	requestedAt := c.now()
	if entry, ok := c.lookup(ctx, key); ok {
		metrics.SuggestionCacheHits.Inc()
		return clone(entry.Suggestions)
	}
	metrics.SuggestionCacheMisses.Inc()

	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent caller may have stored the key while we waited.
		if entry, ok := c.mem.Get(key); ok {
			return entry.Suggestions, nil
		}

		suggestions := compute(context.WithoutCancel(ctx), key)
		entry := Entry{Suggestions: clone(suggestions), ComputedAt: requestedAt}
		c.mem.PutAt(key, entry, entry.ComputedAt)

		if c.shared != nil {
			if err := c.shared.Set(ctx, key, entry, c.ttl); err != nil {
				logger.With(logger.Fields{logger.FieldQuery: key}).Warn(ctx, "Suggestion cache write failed: %v", err)
			}
		}
		return entry.Suggestions, nil
	})
	return clone(v.([]string))
}

// lookup checks memory, then the shared tier. A fresh shared hit is promoted
// into memory with its original computation time.
func (c *SuggestionCache) lookup(ctx context.Context, key string) (Entry, bool) {
	if entry, ok := c.mem.Get(key); ok {
		return entry, true
	}
	if c.shared == nil {
		return Entry{}, false
	}

	entry, ok, err := c.shared.Get(ctx, key)
	if err != nil {
		logger.With(logger.Fields{logger.FieldQuery: key}).Warn(ctx, "Suggestion cache read failed: %v", err)
		return Entry{}, false
	}
	if !ok || c.now().Sub(entry.ComputedAt) >= c.ttl {
		return Entry{}, false
	}
	c.mem.PutAt(key, entry, entry.ComputedAt)
	return entry, true
}

// Len returns the number of in-memory entries.
func (c *SuggestionCache) Len() int {
	return c.mem.Len()
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
