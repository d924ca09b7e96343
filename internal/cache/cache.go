package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/marqueehq/marquee/internal/model"
)

// Entry is one cached dataset snapshot for a single board context. Entries
// are replaced wholesale on refetch, never merged.
type Entry struct {
	Data      []model.DatasetRecord
	FetchedAt time.Time
}

// Fresh reports whether the snapshot is still inside its staleness window.
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// SnapshotCache maps board-context keys to dataset snapshots. It holds at
// most one entry per context and, when maxEntries > 0, evicts the least
// recently used context beyond that bound.
type SnapshotCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
	nowFn      func() time.Time
}

type cacheItem struct {
	key   string
	entry Entry
}

// New creates a snapshot cache. maxEntries <= 0 disables the LRU bound;
// the cache is then bounded only by the number of distinct contexts visited
// in a session.
func New(maxEntries int) *SnapshotCache {
	return &SnapshotCache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		nowFn:      time.Now,
	}
}

// Get returns the snapshot for key, if present.
func (c *SnapshotCache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheItem).entry, true
}

// Put stores a snapshot for key, stamping it with the current time. An
// existing entry for the same key is always overwritten.
func (c *SnapshotCache) Put(key string, data []model.DatasetRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry{Data: data, FetchedAt: c.nowFn()}

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheItem).entry = entry
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheItem{key: key, entry: entry})

	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheItem).key)
		}
	}
}

// Invalidate drops the entry for key, if any. Called whenever a record is
// mutated server-side (chart-kind change, reorder) so the next read refetches.
func (c *SnapshotCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

// Len returns the number of cached contexts.
func (c *SnapshotCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
