package cache

import (
	"sync"
	"testing"

	"github.com/hupe1980/probingpt/resource"
	"github.com/stretchr/testify/assert"
)

func TestLRU_Eviction(t *testing.T) {
	c := NewLRUBlockCache(30, nil)

	c.Set(Key{Offset: 1}, make([]byte, 10))
	c.Set(Key{Offset: 2}, make([]byte, 10))
	c.Set(Key{Offset: 3}, make([]byte, 10))

	// Touch 1 so 2 becomes the eviction victim.
	_, ok := c.Get(Key{Offset: 1})
	assert.True(t, ok)

	c.Set(Key{Offset: 4}, make([]byte, 10))

	_, ok = c.Get(Key{Offset: 2})
	assert.False(t, ok)
	for _, off := range []uint64{1, 3, 4} {
		_, ok := c.Get(Key{Offset: off})
		assert.True(t, ok, "offset %d", off)
	}
	assert.Equal(t, int64(30), c.Size())

	hits, misses := c.Stats()
	assert.Equal(t, int64(4), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_EdgeCases(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 25})
	c := NewLRUBlockCache(50, rc)

	// Larger than capacity.
	c.Set(Key{Offset: 1}, make([]byte, 60))
	_, ok := c.Get(Key{Offset: 1})
	assert.False(t, ok)

	c.Set(Key{Offset: 1}, make([]byte, 20))
	assert.Equal(t, int64(20), c.Size())
	assert.Equal(t, int64(20), rc.MemoryUsage())

	// Within local capacity but over the global budget.
	c.Set(Key{Offset: 2}, make([]byte, 10))
	_, ok = c.Get(Key{Offset: 2})
	assert.False(t, ok)

	// Same key again is a refresh, not a replacement.
	c.Set(Key{Offset: 1}, make([]byte, 5))
	b, ok := c.Get(Key{Offset: 1})
	assert.True(t, ok)
	assert.Len(t, b, 20)

	// Keys are scoped per table.
	_, ok = c.Get(Key{Table: 7, Offset: 1})
	assert.False(t, ok)
}

func TestShardedLRU_Concurrent(t *testing.T) {
	c := NewShardedLRUBlockCache(1<<20, nil)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := Key{Table: uint64(g), Offset: uint64(i)}
				c.Set(k, []byte{byte(g), byte(i)})
				b, ok := c.Get(k)
				if assert.True(t, ok) {
					assert.Equal(t, []byte{byte(g), byte(i)}, b)
				}
			}
		}(g)
	}
	wg.Wait()

	hits, _ := c.Stats()
	assert.Equal(t, int64(1600), hits)
	assert.Equal(t, int64(3200), c.Size())
}

func TestShardedLRU_PurgeReleasesMemory(t *testing.T) {
	rc := resource.NewController(resource.Config{})
	c := NewShardedLRUBlockCache(1<<20, rc)

	for i := 0; i < 64; i++ {
		c.Set(Key{Offset: uint64(i)}, make([]byte, 100))
	}
	assert.Equal(t, int64(6400), rc.MemoryUsage())

	c.Purge()
	assert.Equal(t, int64(0), c.Size())
	assert.Equal(t, int64(0), rc.MemoryUsage())

	_, ok := c.Get(Key{Offset: 1})
	assert.False(t, ok)
}
