package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/yfscreener/quote"
)

type key string

func (k key) Fingerprint() string { return string(k) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, opts Options) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	c := New(opts, zerolog.Nop())
	c.now = clock.Now
	return c, clock
}

func rows(symbols ...string) []quote.Row {
	out := make([]quote.Row, len(symbols))
	for i, s := range symbols {
		out[i] = quote.Row{"symbol": s}
	}
	return out
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, Options{Enabled: true})

	_, ok := c.Lookup(key("a"))
	assert.False(t, ok)

	c.Store(key("a"), rows("AAPL", "MSFT"), 0)

	got, ok := c.Lookup(key("a"))
	require.True(t, ok)
	assert.Equal(t, rows("AAPL", "MSFT"), got)
	assert.Equal(t, 1, c.Len())
}

func TestCacheReturnsCopies(t *testing.T) {
	c, _ := newTestCache(t, Options{Enabled: true})

	stored := rows("AAPL", "MSFT")
	c.Store(key("a"), stored, 0)
	stored[0] = quote.Row{"symbol": "XXX"}
	stored[1]["symbol"] = "CHANGED"

	got, ok := c.Lookup(key("a"))
	require.True(t, ok)
	got[1] = quote.Row{"symbol": "YYY"}
	got[0]["price"] = 1.0
	got[0]["symbol"] = "ZZZ"

	again, ok := c.Lookup(key("a"))
	require.True(t, ok)
	assert.Equal(t, []string{"AAPL", "MSFT"}, quote.Symbols(again))
	assert.Equal(t, quote.Row{"symbol": "AAPL"}, again[0])
}

func TestCacheExpiry(t *testing.T) {
	c, clock := newTestCache(t, Options{Enabled: true, TTL: time.Minute})

	c.Store(key("a"), rows("AAPL"), 0)
	c.Store(key("b"), rows("MSFT"), 10*time.Minute)

	clock.Advance(time.Minute)
	_, ok := c.Lookup(key("a"))
	assert.True(t, ok, "entry should be live at exactly its ttl")

	clock.Advance(time.Millisecond)
	_, ok = c.Lookup(key("a"))
	assert.False(t, ok, "entry should expire once its ttl has passed")
	assert.Equal(t, 1, c.Len(), "expired entry should be evicted on lookup")

	_, ok = c.Lookup(key("b"))
	assert.True(t, ok, "per-entry ttl should override the default")
}

func TestCacheDisabled(t *testing.T) {
	c, _ := newTestCache(t, Options{Enabled: false})

	c.Store(key("a"), rows("AAPL"), 0)
	_, ok := c.Lookup(key("a"))

	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Enabled())
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, Options{Enabled: true, MaxEntries: 2})

	c.Store(key("a"), rows("A"), 0)
	c.Store(key("b"), rows("B"), 0)

	// touch a so b becomes the oldest
	_, ok := c.Lookup(key("a"))
	require.True(t, ok)

	c.Store(key("c"), rows("C"), 0)

	assert.Equal(t, 2, c.Len())
	_, ok = c.Lookup(key("b"))
	assert.False(t, ok)
	_, ok = c.Lookup(key("a"))
	assert.True(t, ok)
	_, ok = c.Lookup(key("c"))
	assert.True(t, ok)
}

func TestCacheStoreReplaces(t *testing.T) {
	c, _ := newTestCache(t, Options{Enabled: true})

	c.Store(key("a"), rows("A"), 0)
	c.Store(key("a"), rows("B"), 0)

	got, ok := c.Lookup(key("a"))
	require.True(t, ok)
	assert.Equal(t, []string{"B"}, quote.Symbols(got))
	assert.Equal(t, 1, c.Len())
}

func TestCacheClearAndPurge(t *testing.T) {
	c, clock := newTestCache(t, Options{Enabled: true, TTL: time.Minute})

	c.Store(key("a"), rows("A"), 0)
	c.Store(key("b"), rows("B"), time.Hour)
	c.Store(key("c"), rows("C"), 0)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, c.Purge())
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Lookup(key("b"))
	assert.False(t, ok)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(t, Options{Enabled: true, MaxEntries: 8})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := key(string(rune('a' + i%10)))
			c.Store(k, rows("X"), 0)
			c.Lookup(k)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 8)
}
