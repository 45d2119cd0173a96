package probingpt

import (
	"runtime"
	"sync"

	"github.com/hupe1980/probingpt/internal/arena"
	"github.com/hupe1980/probingpt/resource"
	"github.com/hupe1980/probingpt/vocab"
)

const candidateSlabSize = 256

// ArenaStats describes an arena's memory.
type ArenaStats struct {
	arena.Stats
	// Candidates is the number of candidate headers handed out since the
	// last Reset.
	Candidates int
}

// ArenaOption configures NewArena.
type ArenaOption func(*arenaOptions)

type arenaOptions struct {
	chunkSize int
	rc        *resource.Controller
}

// WithArenaChunkSize sets the off-heap chunk size in bytes.
func WithArenaChunkSize(n int) ArenaOption {
	return func(o *arenaOptions) {
		o.chunkSize = n
	}
}

// WithArenaBudget charges arena chunks against rc.
func WithArenaBudget(rc *resource.Controller) ArenaOption {
	return func(o *arenaOptions) {
		o.rc = rc
	}
}

// Arena is the request-scoped memory candidates are built in.
//
// Word ids and score values live in off-heap chunks; candidate headers
// live in a slab of reusable blocks. Everything handed out becomes invalid
// on Reset. An Arena is not safe for concurrent use: give each request
// (or each worker goroutine) its own.
type Arena struct {
	mem *arena.Arena

	slabs [][]Candidate
	slab  int // index of the slab being filled
	used  int // headers used in slabs[slab]
	count int
	freed bool
}

// NewArena creates an arena.
func NewArena(opts ...ArenaOption) (*Arena, error) {
	var o arenaOptions
	for _, opt := range opts {
		opt(&o)
	}

	var aopts []arena.Option
	if o.rc != nil {
		aopts = append(aopts, arena.WithMemoryAcquirer(o.rc))
	}
	mem, err := arena.New(o.chunkSize, aopts...)
	if err != nil {
		return nil, err
	}
	a := &Arena{
		mem:   mem,
		slabs: [][]Candidate{make([]Candidate, candidateSlabSize)},
	}
	// Pooled arenas are dropped without Free when the pool is cleared.
	// Candidates hold a reference to a, so this only runs once none are
	// reachable.
	runtime.AddCleanup(a, func(m *arena.Arena) { m.Free() }, mem)
	return a, nil
}

// Reset invalidates every candidate built in the arena and keeps the
// memory for reuse.
func (a *Arena) Reset() {
	if a.freed {
		return
	}
	a.mem.Reset()
	for i := 0; i <= a.slab && i < len(a.slabs); i++ {
		clear(a.slabs[i])
	}
	a.slab, a.used, a.count = 0, 0, 0
}

// Free releases all memory. The arena cannot be used afterwards.
func (a *Arena) Free() {
	if a.freed {
		return
	}
	a.freed = true
	a.mem.Free()
	a.slabs = nil
}

// Stats returns memory statistics.
func (a *Arena) Stats() ArenaStats {
	return ArenaStats{Stats: a.mem.Stats(), Candidates: a.count}
}

// Generation changes on every Reset and Free.
func (a *Arena) Generation() uint32 {
	return a.mem.Generation()
}

func (a *Arena) allocWords(n int) ([]vocab.TokenID, error) {
	return arena.AllocSlice[vocab.TokenID](a.mem, n)
}

func (a *Arena) allocKey(n int) ([]uint64, error) {
	return arena.AllocSlice[uint64](a.mem, n)
}

// allocScores returns n zeroed score slots.
func (a *Arena) allocScores(n int) ([]float32, error) {
	s, err := arena.AllocSlice[float32](a.mem, n)
	if err != nil {
		return nil, err
	}
	clear(s)
	return s, nil
}

// allocCandidates returns n contiguous headers.
func (a *Arena) allocCandidates(n int) ([]Candidate, error) {
	if a.freed {
		return nil, ErrArenaClosed
	}
	if n <= 0 {
		return nil, nil
	}

	if a.used+n > len(a.slabs[a.slab]) {
		a.slab++
		a.used = 0
		if a.slab == len(a.slabs) || len(a.slabs[a.slab]) < n {
			s := make([]Candidate, max(n, candidateSlabSize))
			if a.slab == len(a.slabs) {
				a.slabs = append(a.slabs, s)
			} else {
				a.slabs[a.slab] = s
			}
		}
	}

	s := a.slabs[a.slab][a.used : a.used+n : a.used+n]
	a.used += n
	a.count += n
	return s, nil
}

var arenaPool = sync.Pool{}

// AcquireArena returns a pooled arena with default options.
func AcquireArena() (*Arena, error) {
	if a, ok := arenaPool.Get().(*Arena); ok {
		return a, nil
	}
	return NewArena()
}

// ReleaseArena resets a and returns it to the pool. Candidates built in a
// must not be used afterwards.
func ReleaseArena(a *Arena) {
	if a == nil || a.freed {
		return
	}
	a.Reset()
	arenaPool.Put(a)
}
