package probingpt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/probingpt/blobstore"
	"github.com/hupe1980/probingpt/index"
	"github.com/hupe1980/probingpt/scoring"
	"github.com/hupe1980/probingpt/testutil"
	"github.com/hupe1980/probingpt/vocab"
)

func basicEntries() []testutil.Entry {
	return []testutil.Entry{
		entry("le chat", "the cat", 0.5),
		entry("le", "the", 0.7),
		entry("chat", "cat", 0.9),
	}
}

func TestLookupSpan_SingleMatch(t *testing.T) {
	tbl, v := openFixture(t, basicEntries(), 1)
	a := newArena(t)

	set, err := tbl.LookupSpan(a, v.Tokens("le", "chat"))
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	c := set.At(0)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "the cat", c.Text(v))
	assert.InDelta(t, math.Log(0.5), float64(c.Score(0)), 1e-6)
	assert.InDelta(t, math.Log(0.5), float64(c.Total()), 1e-6)
}

func TestLookupSpan_Empty(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	tbl, v := openFixture(t, basicEntries(), 1, WithMetricsCollector(metrics))
	a := newArena(t)

	tests := []struct {
		name    string
		span    []vocab.TokenID
		outcome func(BasicMetricsStats) int64
	}{
		{"unknown word", v.Tokens("le", "chien"), func(s BasicMetricsStats) int64 { return s.Untranslatable }},
		{"unknown only", v.Tokens("zzz"), func(s BasicMetricsStats) int64 { return s.Untranslatable }},
		{"no entry", v.Tokens("chat", "le"), func(s BasicMetricsStats) int64 { return s.LookupMisses }},
		{"empty span", nil, func(s BasicMetricsStats) int64 { return s.LookupMisses }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.outcome(metrics.GetStats())

			set, err := tbl.LookupSpan(a, tt.span)
			require.NoError(t, err)
			assert.True(t, set.Empty())
			assert.Equal(t, 0, set.Len())

			assert.Equal(t, before+1, tt.outcome(metrics.GetStats()))
		})
	}
}

func TestLookupSpan_TokenInternedBeforeLoad(t *testing.T) {
	store := blobstore.NewMemoryStore()
	require.NoError(t, testutil.StoreIndex(context.Background(), store, fixtureName, basicEntries(), 1))

	v := vocab.New()
	early := v.Intern("bonjour")

	tbl, err := Open(context.Background(), fixtureName, v, WithStore(store))
	require.NoError(t, err)
	defer tbl.Close()

	set, err := tbl.LookupSpan(newArena(t), []vocab.TokenID{early.ID})
	require.NoError(t, err)
	assert.True(t, set.Empty())
}

func TestLookupSpan_TableLimit(t *testing.T) {
	entries := []testutil.Entry{
		entry("le", "a", 0.2),
		entry("le", "b", 0.9),
		entry("le", "c", 0.5),
	}

	t.Run("limit 1", func(t *testing.T) {
		tbl, v := openFixture(t, entries, 1, WithTableLimit(1))

		set, err := tbl.LookupSpan(newArena(t), v.Tokens("le"))
		require.NoError(t, err)
		require.Equal(t, 1, set.Len())
		assert.Equal(t, "b", set.At(0).Text(v))
	})

	t.Run("default limit sorts", func(t *testing.T) {
		tbl, v := openFixture(t, entries, 1)

		set, err := tbl.LookupSpan(newArena(t), v.Tokens("le"))
		require.NoError(t, err)
		require.Equal(t, 3, set.Len())
		assert.Equal(t, "b", set.At(0).Text(v))
		assert.Equal(t, "c", set.At(1).Text(v))
		assert.Equal(t, "a", set.At(2).Text(v))
	})
}

func TestLookupSpan_TiesKeepRecordOrder(t *testing.T) {
	entries := []testutil.Entry{
		entry("x", "first", 0.5),
		entry("x", "second", 0.5),
		entry("x", "best", 0.8),
		entry("x", "third", 0.5),
	}
	tbl, v := openFixture(t, entries, 1, WithTableLimit(3))

	set, err := tbl.LookupSpan(newArena(t), v.Tokens("x"))
	require.NoError(t, err)

	var got []string
	for _, c := range set.All() {
		got = append(got, c.Text(v))
	}
	assert.Equal(t, []string{"best", "first", "second"}, got)
}

func TestLookupSpan_ScoreFloor(t *testing.T) {
	tbl, v := openFixture(t, []testutil.Entry{entry("x", "y", 0, 1e-44)}, 2)

	set, err := tbl.LookupSpan(newArena(t), v.Tokens("x"))
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, scoring.LowestScore, set.At(0).Score(0))
	assert.Equal(t, scoring.LowestScore, set.At(0).Score(1))
}

func TestLookupSpan_FeatureFunctionsAndWeights(t *testing.T) {
	tbl, v := openFixture(t, []testutil.Entry{entry("le chat", "the cat", 0.5, 0.25)}, 2,
		WithFeatureFunctions(scoring.NewWordPenalty(), scoring.NewPhrasePenalty()),
		WithWeights(map[string][]float32{
			DefaultName:      {1, 0},
			"WordPenalty0":   {0.5},
			"PhrasePenalty0": {2},
		}),
	)

	assert.Equal(t, 2, tbl.NumScores())
	assert.Equal(t, 4, tbl.Layout().Len())

	set, err := tbl.LookupSpan(newArena(t), v.Tokens("le", "chat"))
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	c := set.At(0)
	require.Equal(t, 4, c.NumScores())
	assert.InDelta(t, math.Log(0.5), float64(c.Score(0)), 1e-6)
	assert.InDelta(t, math.Log(0.25), float64(c.Score(1)), 1e-6)
	assert.Equal(t, float32(-2), c.Score(2))
	assert.Equal(t, float32(1), c.Score(3))

	want := math.Log(0.5) + 0.5*-2 + 2*1
	assert.InDelta(t, want, float64(c.Total()), 1e-5)
}

func TestLookupSpan_WordCountMatchesTarget(t *testing.T) {
	entries := testutil.NewRNG(4711).Entries(500, 30, 3, 3)
	tbl, v := openFixture(t, entries, 3, WithTableLimit(4))
	a := newArena(t)

	for _, group := range testutil.Expected(entries) {
		targets := map[string]bool{}
		for _, e := range group {
			targets[strings.Join(e.Target, " ")] = true
		}

		set, err := tbl.LookupSpan(a, v.Tokens(group[0].Source...))
		require.NoError(t, err)
		assert.Equal(t, min(4, len(group)), set.Len())

		prev := float32(math.Inf(1))
		for _, c := range set.All() {
			assert.True(t, targets[c.Text(v)], c.Text(v))
			assert.Equal(t, len(strings.Fields(c.Text(v))), c.Len())
			assert.LessOrEqual(t, c.Total(), prev)
			prev = c.Total()
		}
		a.Reset()
	}
}

func TestLookupSpan_Idempotent(t *testing.T) {
	tbl, v := openFixture(t, basicEntries(), 1,
		WithFeatureFunctions(scoring.NewWordPenalty(), scoring.NewSourceTargetRatio()))

	span := v.Tokens("le", "chat")

	first, err := tbl.LookupSpan(newArena(t), span)
	require.NoError(t, err)
	second, err := tbl.LookupSpan(newArena(t), span)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, snapshot(first, v), snapshot(second, v))
}

// lookupDetached returns a set whose arena is referenced by nothing else.
func lookupDetached(t *testing.T, tbl *Table, span []vocab.TokenID) CandidateSet {
	t.Helper()
	a, err := NewArena()
	require.NoError(t, err)
	set, err := tbl.LookupSpan(a, span)
	require.NoError(t, err)
	return set
}

func TestCandidateSet_OutlivesDroppedArena(t *testing.T) {
	tbl, v := openFixture(t, basicEntries(), 1)

	set := lookupDetached(t, tbl, v.Tokens("le", "chat"))
	require.Equal(t, 1, set.Len())
	c := set.At(0)
	words := slices.Clone(c.Words())
	score := c.Score(0)

	for range 5 {
		runtime.GC()
	}
	// Fresh arenas would be handed any unmapped chunks.
	for range 4 {
		scratch := newArena(t)
		w, err := scratch.allocWords(64)
		require.NoError(t, err)
		for i := range w {
			w[i] = vocab.TokenID(i + 1000)
		}
	}

	assert.Equal(t, words, c.Words())
	assert.Equal(t, "the cat", c.Text(v))
	assert.InDelta(t, math.Log(0.5), float64(score), 1e-6)
	assert.Equal(t, score, set.At(0).Score(0))
}

func TestLookup_Batch(t *testing.T) {
	tbl, v := openFixture(t, basicEntries(), 1)

	sets, err := tbl.Lookup(newArena(t), [][]vocab.TokenID{
		v.Tokens("le"),
		v.Tokens("chien"),
		v.Tokens("chat"),
	})
	require.NoError(t, err)
	require.Len(t, sets, 3)
	assert.Equal(t, "the", sets[0].At(0).Text(v))
	assert.True(t, sets[1].Empty())
	assert.Equal(t, "cat", sets[2].At(0).Text(v))
}

func TestLookupSpan_Concurrent(t *testing.T) {
	entries := testutil.NewRNG(99).Entries(300, 25, 3, 2)
	tbl, v := openFixture(t, entries, 2)

	var spans [][]vocab.TokenID
	want := map[int][]string{}
	a := newArena(t)
	for _, group := range testutil.Expected(entries) {
		span := v.Tokens(group[0].Source...)
		set, err := tbl.LookupSpan(a, span)
		require.NoError(t, err)
		want[len(spans)] = snapshot(set, v)
		spans = append(spans, span)
	}

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			a, err := AcquireArena()
			if err != nil {
				return err
			}
			defer ReleaseArena(a)

			for i, span := range spans {
				set, err := tbl.LookupSpan(a, span)
				if err != nil {
					return err
				}
				if got := snapshot(set, v); !assert.ObjectsAreEqual(want[i], got) {
					return fmt.Errorf("span %d: got %v, want %v", i, got, want[i])
				}
				a.Reset()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestIntegrityViolations(t *testing.T) {
	newFake := func() *fakeIndex {
		return &fakeIndex{
			numScores: 1,
			source:    []index.SourceWord{{ID: 7, Text: "le"}},
			target:    []index.TargetWord{{ID: 0, Text: "the"}, {ID: 1, Text: "a"}},
			records: map[string][]index.Record{
				fmt.Sprint([]uint64{7}): {
					{Target: []uint32{0}, Scores: []float32{0.5}},
					{Target: []uint32{1, 99}, Scores: []float32{0.9}},
					{Target: []uint32{1}, Scores: []float32{0.9, 0.1}},
					{Target: []uint32{1}, Scores: []float32{0.3}},
				},
			},
		}
	}

	t.Run("bad records are dropped", func(t *testing.T) {
		metrics := &BasicMetricsCollector{}
		v := vocab.New()
		tbl, err := Open(context.Background(), "fake", v,
			WithIndex(newFake()), WithMetricsCollector(metrics))
		require.NoError(t, err)

		set, err := tbl.LookupSpan(newArena(t), v.Tokens("le"))
		require.NoError(t, err)
		require.Equal(t, 2, set.Len())
		assert.Equal(t, "the", set.At(0).Text(v))
		assert.Equal(t, "a", set.At(1).Text(v))

		assert.Equal(t, int64(2), metrics.GetStats().IntegrityViolations)
		assert.Equal(t, int64(2), tbl.Stats().IntegrityViolations)
		assert.Equal(t, int64(1), metrics.GetStats().LookupHits)
	})

	t.Run("index error yields empty set", func(t *testing.T) {
		fake := newFake()
		fake.err = fmt.Errorf("%w: bad block", index.ErrCorrupt)

		v := vocab.New()
		tbl, err := Open(context.Background(), "fake", v, WithIndex(fake))
		require.NoError(t, err)

		set, err := tbl.LookupSpan(newArena(t), v.Tokens("le"))
		require.NoError(t, err)
		assert.True(t, set.Empty())
		assert.Equal(t, int64(1), tbl.Stats().IntegrityViolations)
	})

	t.Run("closed index is reported", func(t *testing.T) {
		fake := newFake()
		fake.err = index.ErrClosed

		v := vocab.New()
		tbl, err := Open(context.Background(), "fake", v, WithIndex(fake))
		require.NoError(t, err)

		_, err = tbl.LookupSpan(newArena(t), v.Tokens("le"))
		require.ErrorIs(t, err, ErrClosed)
	})
}

func TestTable_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	v := vocab.New()

	tbl, err := New(WithStore(store))
	require.NoError(t, err)

	_, err = tbl.LookupSpan(newArena(t), v.Tokens("le"))
	require.ErrorIs(t, err, ErrNotLoaded)
	assert.Equal(t, 0, tbl.NumScores())
	assert.Nil(t, tbl.Layout())
	assert.False(t, tbl.Stats().Loaded)

	require.ErrorIs(t, tbl.Load(ctx, fixtureName, nil), ErrNilInterner)

	// A failed load leaves the table unloaded.
	err = tbl.Load(ctx, fixtureName, v)
	require.ErrorIs(t, err, blobstore.ErrNotFound)
	_, err = tbl.LookupSpan(newArena(t), v.Tokens("le"))
	require.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, testutil.StoreIndex(ctx, store, fixtureName, basicEntries(), 1))
	require.NoError(t, tbl.Load(ctx, fixtureName, v))
	require.ErrorIs(t, tbl.Load(ctx, fixtureName, v), ErrAlreadyLoaded)

	_, err = tbl.LookupSpan(nil, v.Tokens("le"))
	require.ErrorIs(t, err, ErrNilArena)

	stats := tbl.Stats()
	assert.True(t, stats.Loaded)
	assert.Equal(t, DefaultName, stats.Name)
	assert.Equal(t, DefaultTableLimit, stats.TableLimit)
	assert.Equal(t, 2, stats.SourceWords)
	assert.Equal(t, 2, stats.TargetWords)
	require.NotNil(t, stats.Index)
	assert.Equal(t, 3, stats.Index.Phrases)

	require.NoError(t, tbl.Close())
	require.NoError(t, tbl.Close())

	_, err = tbl.LookupSpan(newArena(t), v.Tokens("le"))
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, tbl.Load(ctx, fixtureName, v), ErrClosed)
}

func TestNew_InvalidTableLimit(t *testing.T) {
	for _, n := range []int{0, -3} {
		_, err := New(WithTableLimit(n))
		require.ErrorIs(t, err, ErrInvalidTableLimit)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("unknown weight producer", func(t *testing.T) {
		fake := &fakeIndex{numScores: 1}
		tbl, err := New(WithIndex(fake), WithWeights(map[string][]float32{"Nope": {1}}))
		require.NoError(t, err)

		err = tbl.Load(context.Background(), "fake", vocab.New())
		require.ErrorIs(t, err, scoring.ErrUnknownProducer)
		assert.False(t, fake.closed)
	})

	t.Run("chain shared by two tables", func(t *testing.T) {
		chain := scoring.NewChain(scoring.NewWordPenalty())
		v := vocab.New()

		_, err := Open(context.Background(), "a", v, WithIndex(&fakeIndex{numScores: 1}), WithScorer(chain))
		require.NoError(t, err)

		_, err = Open(context.Background(), "b", v, WithIndex(&fakeIndex{numScores: 1}), WithScorer(chain))
		require.ErrorIs(t, err, scoring.ErrChainBound)
	})

	t.Run("corrupt index", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		require.NoError(t, store.Put(context.Background(), fixtureName, []byte("not an index")))

		_, err := Open(context.Background(), fixtureName, vocab.New(), WithStore(store))
		require.True(t, errors.Is(err, index.ErrCorrupt), err)
	})
}

func TestTable_CloseReleasesIndex(t *testing.T) {
	fake := &fakeIndex{numScores: 1}
	tbl, err := Open(context.Background(), "fake", vocab.New(), WithIndex(fake))
	require.NoError(t, err)

	require.NoError(t, tbl.Close())
	assert.True(t, fake.closed)
}
