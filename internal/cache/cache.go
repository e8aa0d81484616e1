package cache

import (
	"sync"
	"time"

	"github.com/roach88/firmkeeper/internal/model"
)

// DefaultTTL is how long a validation result stays fresh.
const DefaultTTL = 5 * time.Minute

type entry struct {
	issues   []model.ValidationIssue
	storedAt time.Time
}

// Cache holds recent validation results.
//
// Thread-safety: all methods are safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL. A non-positive ttl disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock sets the time source used to stamp and expire entries.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		ttl:     DefaultTTL,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached issues for key if they are younger than the TTL.
// An expired entry is removed.
func (c *Cache) Get(key string) ([]model.ValidationIssue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return cloneIssues(e.issues), true
}

// Put stores issues under key, stamped with the current time.
func (c *Cache) Put(key string, issues []model.ValidationIssue) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{issues: cloneIssues(issues), storedAt: c.now()}
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of stored entries, including ones that have
// expired but not yet been read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// cloneIssues copies the slice so callers cannot mutate cached state.
// A nil input yields an empty, non-nil slice.
func cloneIssues(issues []model.ValidationIssue) []model.ValidationIssue {
	out := make([]model.ValidationIssue, len(issues))
	copy(out, issues)
	return out
}
