// Package cache keeps screen results in memory keyed by query fingerprint.
// Entries expire after a per-entry TTL and the cache is bounded by an LRU
// eviction policy. Nothing outlives the process.
package cache

import (
	"container/list"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/yfscreener/quote"
)

const (
	DefaultTTL        = time.Hour
	DefaultMaxEntries = 256
)

// Keyed is anything with a stable fingerprint; *filter.Query satisfies it
type Keyed interface {
	Fingerprint() string
}

// Options configures a Cache
type Options struct {
	Enabled    bool
	TTL        time.Duration
	MaxEntries int
}

// entry is stored in the cache
type entry struct {
	key       string
	rows      []quote.Row
	fetchedAt time.Time
	ttl       time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.fetchedAt) > e.ttl
}

// Cache is a thread-safe LRU of result sets with lazy TTL eviction
type Cache struct {
	enabled    bool
	ttl        time.Duration
	maxEntries int

	mu        sync.Mutex
	evictList *list.List
	items     map[string]*list.Element

	now    func() time.Time
	logger zerolog.Logger
}

// New creates a cache. A zero TTL or MaxEntries falls back to the defaults.
func New(opts Options, logger zerolog.Logger) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}

	return &Cache{
		enabled:    opts.Enabled,
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		evictList:  list.New(),
		items:      make(map[string]*list.Element),
		now:        time.Now,
		logger:     logger.With().Str("component", "cache").Logger(),
	}
}

// Enabled reports whether the cache stores anything
func (c *Cache) Enabled() bool {
	return c.enabled
}

// TTL returns the default time-to-live applied by Store
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Lookup returns a copy of the rows stored for q if they have not expired.
// Expired entries are removed on the way out.
func (c *Cache) Lookup(q Keyed) ([]quote.Row, bool) {
	if !c.enabled {
		return nil, false
	}
	key := q.Fingerprint()

	c.mu.Lock()
	defer c.mu.Unlock()

	node, exists := c.items[key]
	if !exists {
		c.logger.Debug().Str("key", short(key)).Msg("Cache miss")
		return nil, false
	}

	ent := node.Value.(*entry)
	if ent.expired(c.now()) {
		c.removeElement(node)
		c.logger.Debug().Str("key", short(key)).Msg("Cache entry expired")
		return nil, false
	}

	c.evictList.MoveToFront(node)
	c.logger.Debug().Str("key", short(key)).Int("rows", len(ent.rows)).Msg("Cache hit")
	return cloneRows(ent.rows), true
}

// Store records rows for q. A non-positive ttl uses the cache default.
func (c *Cache) Store(q Keyed, rows []quote.Row, ttl time.Duration) {
	if !c.enabled {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	key := q.Fingerprint()

	c.mu.Lock()
	defer c.mu.Unlock()

	ent := &entry{
		key:       key,
		rows:      cloneRows(rows),
		fetchedAt: c.now(),
		ttl:       ttl,
	}

	if node, exists := c.items[key]; exists {
		c.evictList.MoveToFront(node)
		node.Value = ent
		return
	}

	c.items[key] = c.evictList.PushFront(ent)

	for c.evictList.Len() > c.maxEntries {
		c.removeOldest()
	}
}

// Len returns the number of entries, expired or not
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.evictList.Len()
}

// Clear removes all entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.evictList.Init()
}

// Purge removes expired entries and returns how many were dropped
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for node := c.evictList.Back(); node != nil; {
		prev := node.Prev()
		if node.Value.(*entry).expired(now) {
			c.removeElement(node)
			removed++
		}
		node = prev
	}
	return removed
}

// removeOldest removes the least recently used entry
func (c *Cache) removeOldest() {
	if node := c.evictList.Back(); node != nil {
		c.removeElement(node)
	}
}

func (c *Cache) removeElement(node *list.Element) {
	c.evictList.Remove(node)
	delete(c.items, node.Value.(*entry).key)
}

func short(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

// cloneRows copies the slice and every row map so entries never share state
// with producers or readers
func cloneRows(rows []quote.Row) []quote.Row {
	if rows == nil {
		return nil
	}
	out := make([]quote.Row, len(rows))
	for i, row := range rows {
		out[i] = maps.Clone(row)
	}
	return out
}
