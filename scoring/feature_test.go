package scoring

import (
	"math"
	"testing"

	"github.com/hupe1980/probingpt/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_EvaluateInIsolation(t *testing.T) {
	l := NewLayout()
	_, err := l.Register("pt", 1)
	require.NoError(t, err)

	chain := NewChain(NewWordPenalty(), NewPhrasePenalty(), NewSourceTargetRatio())
	require.NoError(t, chain.Bind(l))
	require.NoError(t, chain.Bind(l), "rebinding the same layout is a no-op")
	assert.Equal(t, 4, l.Len())
	assert.Equal(t, 3, chain.Len())

	weights, err := l.Weights(nil)
	require.NoError(t, err)
	s := NewScores(make([]float32, l.Len()), weights)

	source := []vocab.TokenID{1, 2}
	target := []vocab.TokenID{3, 4, 5, 6}
	chain.EvaluateInIsolation(source, target, &s)

	assert.Equal(t, float32(0), s.Value(0))
	assert.Equal(t, float32(-4), s.Value(1))
	assert.Equal(t, float32(1), s.Value(2))
	assert.InDelta(t, math.Log(2), s.Value(3), 1e-6)
}

func TestChain_BindOtherLayout(t *testing.T) {
	chain := NewChain(NewWordPenalty())
	require.NoError(t, chain.Bind(NewLayout()))
	assert.ErrorIs(t, chain.Bind(NewLayout()), ErrChainBound)
}

func TestChain_BindDuplicateName(t *testing.T) {
	chain := NewChain(NewWordPenalty(), NewWordPenalty())
	assert.ErrorIs(t, chain.Bind(NewLayout()), ErrDuplicateProducer)
}

func TestAccumulator_OutOfRange(t *testing.T) {
	s := NewScores(make([]float32, 2), []float32{1, 1})
	acc := Accumulator{scores: &s, start: 1, n: 1}

	acc.Add(0, 2)
	assert.Equal(t, float32(2), s.Value(1))
	assert.Panics(t, func() { acc.Add(1, 1) })
	assert.Panics(t, func() { acc.PlusEquals([]float32{1, 2}) })
}
