package scoring

// Scores is a candidate's score vector with its running weighted total.
//
// The value slice is owned by the caller (typically a request arena) and
// weights are shared across all candidates of a table.
type Scores struct {
	values  []float32
	weights []float32
	total   float32
}

// NewScores wraps values and weights, which must have equal length.
// values is used as-is; the total is computed from its current contents.
func NewScores(values, weights []float32) Scores {
	s := Scores{values: values, weights: weights}
	for i, v := range values {
		s.total += v * weights[i]
	}
	return s
}

// PlusEquals adds vals to the slots starting at start.
func (s *Scores) PlusEquals(start int, vals []float32) {
	dst := s.values[start : start+len(vals)]
	w := s.weights[start : start+len(vals)]
	for i, v := range vals {
		dst[i] += v
		s.total += v * w[i]
	}
}

// Add adds v to slot i.
func (s *Scores) Add(i int, v float32) {
	s.values[i] += v
	s.total += v * s.weights[i]
}

// Total returns the weighted sum of all slots.
func (s *Scores) Total() float32 {
	return s.total
}

// Value returns slot i.
func (s *Scores) Value(i int) float32 {
	return s.values[i]
}

// Len returns the number of slots.
func (s *Scores) Len() int {
	return len(s.values)
}

// Values returns a copy of the slot values.
func (s *Scores) Values() []float32 {
	out := make([]float32, len(s.values))
	copy(out, s.values)
	return out
}

// Equal reports whether both vectors hold the same values and total.
func (s *Scores) Equal(o *Scores) bool {
	if s.total != o.total || len(s.values) != len(o.values) {
		return false
	}
	for i, v := range s.values {
		if v != o.values[i] {
			return false
		}
	}
	return true
}
