package datalist

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// cacheHardLimit bounds the underlying LRU. Log flushes pending writes
// before it is reached, so automatic eviction only drops clean entries.
const cacheHardLimit = 1024

type cacheEntry[V any] struct {
	val     V
	dirty   bool
	touched time.Time
}

// cache keeps recently used entries. Entries beyond capacity are dropped
// only after the retention period since the last access.
type cache[V any] struct {
	lru       *simplelru.LRU[uint64, *cacheEntry[V]]
	capacity  int
	retention time.Duration
	now       func() time.Time
}

func newCache[V any](capacity int, retention time.Duration) *cache[V] {
	lru, err := simplelru.NewLRU[uint64, *cacheEntry[V]](cacheHardLimit, nil)
	if err != nil {
		// Size is a positive constant.
		panic(err)
	}

	return &cache[V]{
		lru:       lru,
		capacity:  capacity,
		retention: retention,
		now:       time.Now,
	}
}

func (c *cache[V]) get(id uint64) (*cacheEntry[V], bool) {
	e, ok := c.lru.Get(id)
	if ok {
		e.touched = c.now()
	}
	return e, ok
}

func (c *cache[V]) add(id uint64, v V, dirty bool) *cacheEntry[V] {
	e := &cacheEntry[V]{val: v, dirty: dirty, touched: c.now()}
	c.lru.Add(id, e)
	return e
}

func (c *cache[V]) full() bool {
	return c.lru.Len() >= cacheHardLimit
}

// evictable returns the oldest entry if it may be dropped.
func (c *cache[V]) evictable() (uint64, *cacheEntry[V], bool) {
	if c.lru.Len() <= c.capacity {
		return 0, nil, false
	}

	id, e, ok := c.lru.GetOldest()
	if !ok || c.now().Sub(e.touched) < c.retention {
		return 0, nil, false
	}
	return id, e, true
}

func (c *cache[V]) remove(id uint64) {
	c.lru.Remove(id)
}

// forEachDirty iterates over entries with pending writes from the oldest.
func (c *cache[V]) forEachDirty(f func(uint64, *cacheEntry[V]) error) error {
	for _, id := range c.lru.Keys() {
		e, ok := c.lru.Peek(id)
		if !ok || !e.dirty {
			continue
		}
		if err := f(id, e); err != nil {
			return err
		}
	}
	return nil
}

func (c *cache[V]) purge() {
	c.lru.Purge()
}
