package census

import (
	"context"
	"sync"

	"github.com/hearthline/chartpress/internal/domain"
)

// Fetcher is the surface chart pipelines use to pull API tables, so the
// cached and uncached clients are interchangeable.
type Fetcher interface {
	Get(ctx context.Context, dataset string, year int, variables []string, geoFor, geoIn string) (domain.Table, error)
}

// CachedClient wraps a Fetcher with an in-memory LRU cache. Several charts
// in one publication cycle often query the same ACS slice; caching keeps a
// multi-chart run to one API call per slice.
type CachedClient struct {
	inner Fetcher
	cache *lruCache
}

// NewCachedClient creates a cache decorator around a client.
func NewCachedClient(inner Fetcher, maxEntries int) *CachedClient {
	return &CachedClient{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

func (c *CachedClient) Get(ctx context.Context, dataset string, year int, variables []string, geoFor, geoIn string) (domain.Table, error) {
	key := requestKey(dataset, year, variables, geoFor, geoIn)
	if table, ok := c.cache.get(key); ok {
		return table, nil
	}
	table, err := c.inner.Get(ctx, dataset, year, variables, geoFor, geoIn)
	if err != nil {
		return table, err
	}
	// Only cache non-empty tables so transient empty responses can be retried.
	if len(table.Rows) > 0 {
		c.cache.put(key, table)
	}
	return table, nil
}

var _ Fetcher = (*Client)(nil)
var _ Fetcher = (*CachedClient)(nil)

// lruCache is a simple thread-safe LRU cache for decoded tables.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.Table
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Table{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
