package cache

import (
	"hash/maphash"

	"github.com/hupe1980/probingpt/resource"
)

const numShards = 16

// ShardedLRUBlockCache spreads keys over independent LRUs so concurrent
// lookups from many decoder goroutines do not serialise on one mutex.
type ShardedLRUBlockCache struct {
	shards [numShards]*LRUBlockCache
	seed   maphash.Seed
}

var _ BlockCache = (*ShardedLRUBlockCache)(nil)

// NewShardedLRUBlockCache divides capacity evenly across shards.
func NewShardedLRUBlockCache(capacity int64, rc *resource.Controller) *ShardedLRUBlockCache {
	per := max(capacity/numShards, 1)

	s := &ShardedLRUBlockCache{seed: maphash.MakeSeed()}
	for i := range numShards {
		s.shards[i] = NewLRUBlockCache(per, rc)
	}
	return s
}

func (s *ShardedLRUBlockCache) shard(key Key) *LRUBlockCache {
	return s.shards[maphash.Comparable(s.seed, key)%numShards]
}

// Get returns a cached block.
func (s *ShardedLRUBlockCache) Get(key Key) ([]byte, bool) {
	return s.shard(key).Get(key)
}

// Set caches a block.
func (s *ShardedLRUBlockCache) Set(key Key, b []byte) {
	s.shard(key).Set(key, b)
}

// Stats sums hit and miss counters over all shards.
func (s *ShardedLRUBlockCache) Stats() (hits, misses int64) {
	for _, sh := range s.shards {
		h, m := sh.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// Size sums cached bytes over all shards.
func (s *ShardedLRUBlockCache) Size() int64 {
	var n int64
	for _, sh := range s.shards {
		n += sh.Size()
	}
	return n
}

// Purge drops every block in every shard.
func (s *ShardedLRUBlockCache) Purge() {
	for _, sh := range s.shards {
		sh.Purge()
	}
}
