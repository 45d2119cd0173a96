package cache

// Key identifies a block within one opened index.
type Key struct {
	// Table distinguishes indexes sharing one cache.
	Table uint64
	// Offset is the block's byte offset in the index data section.
	Offset uint64
}

// BlockCache is a byte-oriented cache for immutable blocks.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(key Key) (b []byte, ok bool)
	// Set caches a block; the caller must not modify b afterwards.
	Set(key Key, b []byte)
	// Stats returns hit and miss counters.
	Stats() (hits, misses int64)
	// Size returns the cached bytes.
	Size() int64
	// Purge drops every block and releases its charged memory.
	Purge()
}
