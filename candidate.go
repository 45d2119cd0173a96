package probingpt

import (
	"cmp"
	"iter"
	"slices"

	"github.com/hupe1980/probingpt/scoring"
	"github.com/hupe1980/probingpt/vocab"
)

// Candidate is one scored translation of a source span.
//
// A Candidate and the slices it returns live in the Arena it was built in
// and are invalid once that arena is reset. A reachable Candidate keeps its
// arena reachable; a slice from Words alone does not.
type Candidate struct {
	words  []vocab.TokenID
	scores scoring.Scores
	owner  *Arena
}

// Words returns the target words, in order. The slice must not be modified.
func (c *Candidate) Words() []vocab.TokenID {
	return c.words
}

// Len returns the number of target words.
func (c *Candidate) Len() int {
	return len(c.words)
}

// Total returns the weighted total score.
func (c *Candidate) Total() float32 {
	return c.scores.Total()
}

// Score returns score slot i.
func (c *Candidate) Score(i int) float32 {
	return c.scores.Value(i)
}

// NumScores returns the number of score slots.
func (c *Candidate) NumScores() int {
	return c.scores.Len()
}

// ScoreValues returns a heap copy of all score slots.
func (c *Candidate) ScoreValues() []float32 {
	return c.scores.Values()
}

// Text renders the target words through v, separated by spaces.
func (c *Candidate) Text(v *vocab.Vocabulary) string {
	return v.Text(c.words)
}

// Equal reports whether both candidates have the same words and scores.
func (c *Candidate) Equal(o *Candidate) bool {
	return slices.Equal(c.words, o.words) && c.scores.Equal(&o.scores)
}

// CandidateSet is the ordered result of a span lookup, best first.
// The zero value is an empty set.
type CandidateSet struct {
	items []Candidate
	owner *Arena
}

// Len returns the number of candidates.
func (s CandidateSet) Len() int {
	return len(s.items)
}

// Empty reports whether the set has no candidates.
func (s CandidateSet) Empty() bool {
	return len(s.items) == 0
}

// At returns the i-th best candidate.
func (s CandidateSet) At(i int) *Candidate {
	return &s.items[i]
}

// All iterates candidates best first.
func (s CandidateSet) All() iter.Seq2[int, *Candidate] {
	return func(yield func(int, *Candidate) bool) {
		for i := range s.items {
			if !yield(i, &s.items[i]) {
				return
			}
		}
	}
}

// Equal reports whether both sets hold equal candidates in the same order.
func (s CandidateSet) Equal(o CandidateSet) bool {
	if len(s.items) != len(o.items) {
		return false
	}
	for i := range s.items {
		if !s.items[i].Equal(&o.items[i]) {
			return false
		}
	}
	return true
}

// sortAndPrune orders candidates by descending total and keeps the first
// limit. Ties keep their index order.
func sortAndPrune(items []Candidate, limit int) []Candidate {
	slices.SortStableFunc(items, func(x, y Candidate) int {
		return cmp.Compare(y.Total(), x.Total())
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
