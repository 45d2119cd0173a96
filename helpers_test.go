package probingpt

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hupe1980/probingpt/blobstore"
	"github.com/hupe1980/probingpt/index"
	"github.com/hupe1980/probingpt/testutil"
	"github.com/hupe1980/probingpt/vocab"
	"github.com/stretchr/testify/require"
)

const fixtureName = "pt.pbpt"

func entry(source, target string, scores ...float32) testutil.Entry {
	return testutil.Entry{
		Source: strings.Fields(source),
		Target: strings.Fields(target),
		Scores: scores,
	}
}

func openFixture(t *testing.T, entries []testutil.Entry, numScores int, opts ...Option) (*Table, *vocab.Vocabulary) {
	t.Helper()

	store := blobstore.NewMemoryStore()
	require.NoError(t, testutil.StoreIndex(context.Background(), store, fixtureName, entries, numScores))

	v := vocab.New()
	tbl, err := Open(context.Background(), fixtureName, v, append(opts, WithStore(store))...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tbl.Close() })
	return tbl, v
}

func newArena(t *testing.T) *Arena {
	t.Helper()

	a, err := NewArena()
	require.NoError(t, err)
	t.Cleanup(a.Free)
	return a
}

// snapshot copies a set out of its arena.
func snapshot(set CandidateSet, v *vocab.Vocabulary) []string {
	out := make([]string, 0, set.Len())
	for _, c := range set.All() {
		out = append(out, fmt.Sprintf("%s|%v", c.Text(v), c.ScoreValues()))
	}
	return out
}

// fakeIndex serves fixed records, including ones a real index would never
// produce.
type fakeIndex struct {
	numScores int
	source    []index.SourceWord
	target    []index.TargetWord
	records   map[string][]index.Record
	err       error
	closed    bool
}

func (f *fakeIndex) NumScores() int                       { return f.numScores }
func (f *fakeIndex) SourceVocabulary() []index.SourceWord { return f.source }
func (f *fakeIndex) TargetVocabulary() []index.TargetWord { return f.target }

func (f *fakeIndex) Query(key []uint64) ([]index.Record, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	recs, ok := f.records[fmt.Sprint(key)]
	return recs, ok, nil
}

func (f *fakeIndex) Close() error {
	f.closed = true
	return nil
}
