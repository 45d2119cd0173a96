package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScores(t *testing.T) {
	s := NewScores(make([]float32, 3), []float32{1, 2, 0.5})

	s.PlusEquals(0, []float32{-1, -2})
	assert.InDelta(t, -5, s.Total(), 1e-6)

	s.Add(2, 4)
	assert.InDelta(t, -3, s.Total(), 1e-6)
	assert.Equal(t, float32(4), s.Value(2))
	assert.Equal(t, 3, s.Len())

	vals := s.Values()
	vals[0] = 100
	assert.Equal(t, float32(-1), s.Value(0), "Values must return a copy")
}

func TestNewScores_ComputesTotal(t *testing.T) {
	s := NewScores([]float32{1, 2}, []float32{3, 4})
	assert.Equal(t, float32(11), s.Total())
}

func TestScores_Equal(t *testing.T) {
	w := []float32{1, 1}
	a := NewScores([]float32{1, 2}, w)
	b := NewScores([]float32{1, 2}, w)
	c := NewScores([]float32{2, 1}, w)

	assert.True(t, a.Equal(&b))
	assert.False(t, a.Equal(&c))
}
