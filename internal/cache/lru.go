package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/probingpt/resource"
)

// LRUBlockCache is a size-bounded LRU BlockCache.
type LRUBlockCache struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[Key]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   Key
	value []byte
}

// NewLRUBlockCache creates an LRU holding at most capacity bytes.
// If rc is non-nil, cached bytes are also charged against it.
func NewLRUBlockCache(capacity int64, rc *resource.Controller) *LRUBlockCache {
	return &LRUBlockCache{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns a cached block.
func (c *LRUBlockCache) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(el)
		return el.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a block. Blocks are immutable, so an existing key is only
// refreshed, never replaced.
func (c *LRUBlockCache) Set(key Key, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.evictList.MoveToFront(el)
		return
	}

	n := int64(len(b))
	if n > c.capacity {
		return
	}

	for c.size+n > c.capacity {
		el := c.evictList.Back()
		if el == nil {
			break
		}
		c.removeElement(el)
	}

	// Global memory pressure wins over local capacity: skip caching.
	if !c.rc.TryAcquireMemory(n) {
		return
	}

	c.items[key] = c.evictList.PushFront(&entry{key: key, value: b})
	c.size += n
}

// Stats returns hit and miss counters.
func (c *LRUBlockCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the cached bytes.
func (c *LRUBlockCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Purge drops every block.
func (c *LRUBlockCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.evictList.Back(); el != nil; el = c.evictList.Back() {
		c.removeElement(el)
	}
}

func (c *LRUBlockCache) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	e := el.Value.(*entry)
	delete(c.items, e.key)
	n := int64(len(e.value))
	c.size -= n
	c.rc.ReleaseMemory(n)
}
