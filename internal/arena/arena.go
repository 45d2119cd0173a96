package arena

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hupe1980/probingpt/internal/mmap"
)

// MemoryAcquirer budgets chunk memory.
type MemoryAcquirer interface {
	AcquireMemory(ctx context.Context, amount int64) error
	ReleaseMemory(amount int64)
}

var (
	// ErrClosed is returned when allocating from a freed arena.
	ErrClosed = errors.New("arena: closed")
	// ErrMaxChunksExceeded is returned when the arena would exceed MaxChunks.
	ErrMaxChunksExceeded = errors.New("arena: max chunks exceeded")
)

const (
	// DefaultChunkSize is the default chunk size (64 KiB). Request arenas
	// are short-lived, so chunks are smaller than a long-lived index arena.
	DefaultChunkSize = 64 * 1024
	// DefaultAlignment is the default allocation alignment.
	DefaultAlignment = 8
	// MaxChunks bounds the number of live chunks.
	MaxChunks = 1 << 14

	acquireTimeout = 100 * time.Millisecond
)

// Stats tracks arena memory usage.
//
//   - BytesReserved: memory currently mapped
//   - BytesUsed: bytes requested since the last Reset
//   - BytesWasted: alignment padding since the last Reset
type Stats struct {
	ChunksAllocated uint64 // historical
	ActiveChunks    uint64
	BytesReserved   uint64
	BytesUsed       uint64
	BytesWasted     uint64
	TotalAllocs     uint64 // historical
}

type atomicStats struct {
	ChunksAllocated atomic.Uint64
	BytesUsed       atomic.Uint64
	BytesWasted     atomic.Uint64
	TotalAllocs     atomic.Uint64
}

type chunk struct {
	mapping *mmap.Mapping
	data    []byte
	offset  atomic.Int64 // accessed concurrently without locks
}

// Arena is a chunked bump allocator.
//
// Allocation is safe from multiple goroutines. Reset and Free are not safe
// concurrently with allocation.
type Arena struct {
	chunkSize  int
	alignment  int
	acquirer   MemoryAcquirer
	generation atomic.Uint32

	mu       sync.Mutex
	chunks   []*chunk // guarded by mu
	reserved int64    // guarded by mu
	current  atomic.Pointer[chunk]
	stats    atomicStats
}

// Option configures an Arena.
type Option func(*Arena)

// WithMemoryAcquirer budgets chunk memory through acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// New creates an arena. chunkSize is rounded up to a power of two; values
// <= 0 select DefaultChunkSize. The first chunk is mapped eagerly.
func New(chunkSize int, opts ...Option) (*Arena, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	chunkSize = 1 << bits.Len(uint(chunkSize-1)) //nolint:gosec // chunkSize > 0

	a := &Arena{
		chunkSize: chunkSize,
		alignment: DefaultAlignment,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.generation.Store(1)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.addChunkLocked(context.Background(), chunkSize); err != nil {
		return nil, err
	}
	return a, nil
}

// Generation returns the current generation. It changes on Reset and Free.
func (a *Arena) Generation() uint32 {
	return a.generation.Load()
}

func (a *Arena) addChunkLocked(ctx context.Context, size int) error {
	if len(a.chunks) >= MaxChunks {
		return ErrMaxChunksExceeded
	}

	if a.acquirer != nil {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, acquireTimeout)
			defer cancel()
		}
		if err := a.acquirer.AcquireMemory(ctx, int64(size)); err != nil {
			return fmt.Errorf("arena: acquire chunk memory: %w", err)
		}
	}

	mapping, err := mmap.MapAnon(size)
	if err != nil {
		if a.acquirer != nil {
			a.acquirer.ReleaseMemory(int64(size))
		}
		return fmt.Errorf("arena: map chunk: %w", err)
	}

	c := &chunk{mapping: mapping, data: mapping.Bytes()}
	a.chunks = append(a.chunks, c)
	a.reserved += int64(size)
	a.stats.ChunksAllocated.Add(1)
	a.current.Store(c)
	return nil
}

// Alloc returns size bytes aligned to align. Fresh chunks are zeroed, but
// memory handed out again after Reset still holds old bytes.
func (a *Arena) Alloc(ctx context.Context, size, align int) ([]byte, error) {
	if size <= 0 {
		return nil, nil
	}
	if align <= 0 {
		align = a.alignment
	}
	mask := align - 1
	alignedSize := (size + mask) &^ mask

	for {
		curr := a.current.Load()
		if curr == nil {
			return nil, ErrClosed
		}

		if b, ok := a.tryAlloc(curr, size, alignedSize, align); ok {
			return b, nil
		}

		a.mu.Lock()
		if a.current.Load() != curr {
			// Someone else already moved on to a fresh chunk.
			a.mu.Unlock()
			continue
		}
		err := a.addChunkLocked(ctx, max(a.chunkSize, roundPage(alignedSize)))
		a.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
}

func (a *Arena) tryAlloc(c *chunk, size, alignedSize, align int) ([]byte, bool) {
	for {
		old := c.offset.Load()
		start := alignUp(old, int64(align))
		end := start + int64(alignedSize)
		if end > int64(len(c.data)) {
			return nil, false
		}
		if !c.offset.CompareAndSwap(old, end) {
			continue
		}

		a.stats.BytesUsed.Add(uint64(size))                      //nolint:gosec // size > 0
		a.stats.BytesWasted.Add(uint64(end - old - int64(size))) //nolint:gosec // end-old >= size
		a.stats.TotalAllocs.Add(1)
		return c.data[start:end:end], true
	}
}

// AllocBytes allocates a byte slice of length size.
func (a *Arena) AllocBytes(size int) ([]byte, error) {
	return a.Alloc(context.Background(), size, a.alignment)
}

// AllocSlice allocates a slice of n elements of T. T must not contain Go
// pointers: the garbage collector does not scan arena memory.
func AllocSlice[T any](a *Arena, n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero)) * n
	b, err := a.Alloc(context.Background(), size, int(unsafe.Alignof(zero)))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n), nil //nolint:gosec // arena memory is pointer-free
}

// Stats returns the current arena statistics.
func (a *Arena) Stats() Stats {
	a.mu.Lock()
	active, reserved := len(a.chunks), a.reserved
	a.mu.Unlock()

	return Stats{
		ChunksAllocated: a.stats.ChunksAllocated.Load(),
		ActiveChunks:    uint64(active),   //nolint:gosec // non-negative
		BytesReserved:   uint64(reserved), //nolint:gosec // non-negative
		BytesUsed:       a.stats.BytesUsed.Load(),
		BytesWasted:     a.stats.BytesWasted.Load(),
		TotalAllocs:     a.stats.TotalAllocs.Load(),
	}
}

// Reset drops all allocations and unmaps every chunk but the first.
// Slices handed out before Reset must no longer be used.
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.generation.Add(1)
	if len(a.chunks) == 0 {
		return
	}

	for _, c := range a.chunks[1:] {
		a.releaseChunkLocked(c)
	}
	first := a.chunks[0]
	first.offset.Store(0)
	clear(a.chunks[1:])
	a.chunks = a.chunks[:1]
	a.current.Store(first)

	a.stats.BytesUsed.Store(0)
	a.stats.BytesWasted.Store(0)
}

// Free unmaps all chunks. The arena cannot be used afterwards.
func (a *Arena) Free() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.generation.Add(1)
	a.current.Store(nil)
	for _, c := range a.chunks {
		a.releaseChunkLocked(c)
	}
	a.chunks = nil

	a.stats.BytesUsed.Store(0)
	a.stats.BytesWasted.Store(0)
}

func (a *Arena) releaseChunkLocked(c *chunk) {
	size := int64(len(c.data))
	_ = c.mapping.Close()
	a.reserved -= size
	if a.acquirer != nil {
		a.acquirer.ReleaseMemory(size)
	}
}

// Usage returns used bytes as a percentage of reserved bytes.
func (a *Arena) Usage() float64 {
	s := a.Stats()
	if s.BytesReserved == 0 {
		return 0
	}
	return float64(s.BytesUsed) / float64(s.BytesReserved) * 100
}

func (a *Arena) String() string {
	s := a.Stats()
	return fmt.Sprintf(
		"Arena{chunks: %d, reserved: %.2f KB, used: %.2f KB, wasted: %d B, usage: %.1f%%, allocs: %d}",
		s.ActiveChunks,
		float64(s.BytesReserved)/1024,
		float64(s.BytesUsed)/1024,
		s.BytesWasted,
		a.Usage(),
		s.TotalAllocs,
	)
}

func alignUp(v, align int64) int64 {
	return (v + align - 1) &^ (align - 1)
}

const pageSize = 4096

func roundPage(n int) int {
	return (n + pageSize - 1) &^ (pageSize - 1)
}
