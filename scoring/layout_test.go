package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout_Register(t *testing.T) {
	l := NewLayout()

	start, err := l.Register("ProbingPT0", 4)
	require.NoError(t, err)
	assert.Equal(t, 0, start)

	start, err = l.Register("WordPenalty0", 1)
	require.NoError(t, err)
	assert.Equal(t, 4, start)
	assert.Equal(t, 5, l.Len())

	_, err = l.Register("WordPenalty0", 1)
	assert.ErrorIs(t, err, ErrDuplicateProducer)

	_, err = l.Register("Bad", -1)
	assert.ErrorIs(t, err, ErrInvalidNumScores)

	p, ok := l.Producer("WordPenalty0")
	require.True(t, ok)
	assert.Equal(t, Producer{Name: "WordPenalty0", Start: 4, Len: 1}, p)
	assert.Len(t, l.Producers(), 2)
}

func TestLayout_Weights(t *testing.T) {
	l := NewLayout()
	_, _ = l.Register("pt", 2)
	_, _ = l.Register("wp", 1)

	w, err := l.Weights(nil)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 1}, w)

	w, err = l.Weights(map[string][]float32{"pt": {0.2, 0.3}})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.2, 0.3, 1}, w)

	_, err = l.Weights(map[string][]float32{"pt": {0.2}})
	assert.ErrorIs(t, err, ErrWeightCount)

	_, err = l.Weights(map[string][]float32{"lm": {1}})
	assert.ErrorIs(t, err, ErrUnknownProducer)
}
