package dfs0

import (
	"context"
	"sync"

	"github.com/tidecast/hydro-forecast-etl/internal/domain"
	"github.com/tidecast/hydro-forecast-etl/internal/forecast"
	"github.com/tidecast/hydro-forecast-etl/internal/observability"
)

// CachedIngestor wraps an Ingestor with an in-memory LRU cache keyed by file
// path. Snapshot exports are write-once, and the rolling window re-ingests
// the same files on every refresh, so hits dominate after the first build.
type CachedIngestor struct {
	inner   forecast.Ingestor
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedIngestor creates a cache decorator around an ingestor.
func NewCachedIngestor(inner forecast.Ingestor, maxEntries int, metrics *observability.Metrics) *CachedIngestor {
	return &CachedIngestor{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedIngestor) Ingest(ctx context.Context, path string) (domain.TimeSeriesRecord, error) {
	if record, ok := c.cache.get(path); ok {
		c.metrics.IngestCache.WithLabelValues("hit").Inc()
		return record, nil
	}
	c.metrics.IngestCache.WithLabelValues("miss").Inc()

	record, err := c.inner.Ingest(ctx, path)
	if err != nil {
		return record, err
	}
	c.cache.put(path, record)
	return record, nil
}

// lruCache is a simple thread-safe LRU cache for ingested snapshot records.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.TimeSeriesRecord
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.TimeSeriesRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.TimeSeriesRecord{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.TimeSeriesRecord) {
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
