package probingpt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/probingpt/index"
	"github.com/hupe1980/probingpt/internal/bridge"
	"github.com/hupe1980/probingpt/scoring"
	"github.com/hupe1980/probingpt/vocab"
)

const (
	stateUnloaded int32 = iota
	stateLoaded
	stateClosed
)

// Scorer is the scoring chain every candidate passes through before it is
// returned. Bind is called once at Load with the table's score layout.
type Scorer interface {
	Bind(l *scoring.Layout) error
	EvaluateInIsolation(source, target []vocab.TokenID, scores *scoring.Scores)
}

// Table is a loaded phrase table.
//
// A Table is created Unloaded, becomes Loaded exactly once and serves
// lookups from any number of goroutines until it is closed.
type Table struct {
	opts   options
	logger *Logger

	mu    sync.Mutex // serializes Load and Close
	state atomic.Int32

	// Read-only once state is stateLoaded.
	idx         index.Index
	bridge      *bridge.Bridge
	layout      *scoring.Layout
	tableStart  int
	numScores   int
	sourceWords int
	targetWords int
	weights     []float32

	lookups    atomic.Int64
	violations atomic.Int64
	warnings   rate.Sometimes
}

// New creates an unloaded table.
func New(opts ...Option) (*Table, error) {
	o := applyOptions(opts)
	if o.tableLimit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTableLimit, o.tableLimit)
	}
	return &Table{
		opts:     o,
		logger:   o.logger.WithTable(o.name),
		warnings: rate.Sometimes{First: 10, Interval: time.Second},
	}, nil
}

// Open creates a table and loads the index at path.
func Open(ctx context.Context, path string, interner vocab.Interner, opts ...Option) (*Table, error) {
	t, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := t.Load(ctx, path, interner); err != nil {
		return nil, err
	}
	return t, nil
}

// Load opens the index at path, interns both of its vocabularies through
// interner and binds the scorer. It succeeds at most once per table; a
// failed Load leaves the table unloaded.
//
// When the table was created WithIndex, path is only used for logging.
func (t *Table) Load(ctx context.Context, path string, interner vocab.Interner) error {
	if interner == nil {
		return ErrNilInterner
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state.Load() {
	case stateLoaded:
		return ErrAlreadyLoaded
	case stateClosed:
		return ErrClosed
	}

	start := time.Now()
	err := t.load(ctx, path, interner)
	duration := time.Since(start)

	t.opts.metricsCollector.RecordLoad(duration, err)
	if err != nil {
		t.logger.LogLoad(ctx, path, 0, 0, duration, err)
		return err
	}
	t.logger.LogLoad(ctx, path, t.sourceWords, t.targetWords, duration, nil)

	t.state.Store(stateLoaded)
	return nil
}

func (t *Table) load(ctx context.Context, path string, interner vocab.Interner) error {
	idx := t.opts.idx
	owned := false
	if idx == nil {
		r, err := index.Open(ctx, t.opts.store, path,
			index.WithBlockCacheSize(t.opts.blockCacheSize),
			index.WithResourceController(t.opts.rc),
			index.WithLogger(t.logger.Logger),
		)
		if err != nil {
			return err
		}
		idx, owned = r, true
	}

	fail := func(err error) error {
		if owned {
			_ = idx.Close()
		}
		return err
	}

	b, err := bridge.Load(idx, interner)
	if err != nil {
		return fail(err)
	}

	layout := scoring.NewLayout()
	tableStart, err := layout.Register(t.opts.name, idx.NumScores())
	if err != nil {
		return fail(err)
	}
	if err := t.opts.scorer.Bind(layout); err != nil {
		return fail(err)
	}
	weights, err := layout.Weights(t.opts.weights)
	if err != nil {
		return fail(err)
	}

	t.idx = idx
	t.bridge = b
	t.layout = layout
	t.tableStart = tableStart
	t.numScores = idx.NumScores()
	t.sourceWords = len(idx.SourceVocabulary())
	t.targetWords = len(idx.TargetVocabulary())
	t.weights = weights
	return nil
}

func (t *Table) checkLoaded() error {
	switch t.state.Load() {
	case stateLoaded:
		return nil
	case stateClosed:
		return ErrClosed
	default:
		return ErrNotLoaded
	}
}

// LookupSpan returns the candidates for exactly span, best first, built in
// a. A span with an unknown word or without an entry yields an empty set
// and no error.
func (t *Table) LookupSpan(a *Arena, span []vocab.TokenID) (CandidateSet, error) {
	if err := t.checkLoaded(); err != nil {
		return CandidateSet{}, err
	}
	if a == nil {
		return CandidateSet{}, ErrNilArena
	}

	start := time.Now()
	set, outcome, err := t.lookupSpan(a, span)
	if err != nil {
		outcome = OutcomeError
	}
	t.lookups.Add(1)
	t.opts.metricsCollector.RecordLookup(time.Since(start), set.Len(), outcome)
	t.logger.LogLookup(context.Background(), len(span), set.Len(), outcome, err)
	return set, err
}

// Lookup looks up every span with the same arena. Results are in span
// order. It stops at the first error.
func (t *Table) Lookup(a *Arena, spans [][]vocab.TokenID) ([]CandidateSet, error) {
	out := make([]CandidateSet, len(spans))
	for i, span := range spans {
		set, err := t.LookupSpan(a, span)
		if err != nil {
			return nil, err
		}
		out[i] = set
	}
	return out, nil
}

// NumScores returns the number of raw scores per index record.
func (t *Table) NumScores() int {
	if t.checkLoaded() != nil {
		return 0
	}
	return t.numScores
}

// Layout returns the score layout, or nil before Load.
func (t *Table) Layout() *scoring.Layout {
	if t.checkLoaded() != nil {
		return nil
	}
	return t.layout
}

// TableStats describes a table.
type TableStats struct {
	Name                string
	Loaded              bool
	TableLimit          int
	NumScores           int
	ScoreSlots          int
	SourceWords         int
	TargetWords         int
	Lookups             int64
	IntegrityViolations int64
	// Index is set when the index reports its own statistics.
	Index *index.Stats
}

// Stats returns a snapshot of the table's statistics.
func (t *Table) Stats() TableStats {
	s := TableStats{
		Name:                t.opts.name,
		TableLimit:          t.opts.tableLimit,
		Lookups:             t.lookups.Load(),
		IntegrityViolations: t.violations.Load(),
	}
	if t.checkLoaded() != nil {
		return s
	}

	s.Loaded = true
	s.NumScores = t.numScores
	s.ScoreSlots = t.layout.Len()
	s.SourceWords = t.sourceWords
	s.TargetWords = t.targetWords
	if r, ok := t.idx.(interface{ Stats() index.Stats }); ok {
		is := r.Stats()
		s.Index = &is
	}
	return s
}

// Close releases the index. Lookups after Close return ErrClosed.
// Closing twice is a no-op.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Swap(stateClosed) != stateLoaded {
		return nil
	}
	if err := t.idx.Close(); err != nil && !errors.Is(err, index.ErrClosed) {
		return err
	}
	return nil
}
