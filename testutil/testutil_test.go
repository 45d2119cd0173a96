package testutil

import (
	"context"
	"testing"

	"github.com/hupe1980/probingpt/blobstore"
	"github.com/hupe1980/probingpt/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntries(t *testing.T) {
	rng := NewRNG(4711)

	entries := rng.Entries(64, 10, 3, 4)

	assert.Len(t, entries, 64)
	for _, e := range entries {
		assert.NotEmpty(t, e.Source)
		assert.LessOrEqual(t, len(e.Source), 3)
		assert.NotEmpty(t, e.Target)
		assert.Len(t, e.Scores, 4)
		for _, p := range e.Scores {
			assert.Greater(t, p, float32(0))
			assert.LessOrEqual(t, p, float32(1))
		}
	}
}

func TestRNG_Reset(t *testing.T) {
	rng := NewRNG(42)
	first := rng.Entries(8, 10, 3, 2)

	rng.Reset()
	assert.Equal(t, first, rng.Entries(8, 10, 3, 2))
	assert.Equal(t, int64(42), rng.Seed())
}

func TestStoreIndex(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	entries := NewRNG(7).Entries(100, 20, 3, 2)
	require.NoError(t, StoreIndex(ctx, store, "pt.pbpt", entries, 2, index.WithCompression(index.CompressionZSTD)))

	r, err := index.Open(ctx, store, "pt.pbpt")
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 2, r.NumScores())
	assert.Equal(t, len(Expected(entries)), r.Len())
}

func TestBuildIndex_InvalidEntry(t *testing.T) {
	_, err := BuildIndex([]Entry{{Source: []string{"a"}, Target: []string{"b"}, Scores: []float32{1}}}, 2)
	require.ErrorIs(t, err, index.ErrScoreCount)
}
