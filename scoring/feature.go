package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/probingpt/vocab"
)

// ErrChainBound is returned when a chain is bound to a second layout.
var ErrChainBound = errors.New("scoring: chain already bound to another layout")

// Accumulator writes into one producer's slots. Indices are relative to
// the producer's first slot.
type Accumulator struct {
	scores *Scores
	start  int
	n      int
}

// Add adds v to the producer's j-th slot.
func (a Accumulator) Add(j int, v float32) {
	if j < 0 || j >= a.n {
		panic(fmt.Sprintf("scoring: slot %d out of range [0,%d)", j, a.n))
	}
	a.scores.Add(a.start+j, v)
}

// PlusEquals adds vals to the producer's slots.
func (a Accumulator) PlusEquals(vals []float32) {
	if len(vals) > a.n {
		panic(fmt.Sprintf("scoring: %d values for %d slots", len(vals), a.n))
	}
	a.scores.PlusEquals(a.start, vals)
}

// FeatureFunction contributes scores computable from the phrase pair alone.
type FeatureFunction interface {
	Name() string
	NumScores() int
	EvaluateInIsolation(source, target []vocab.TokenID, acc Accumulator)
}

// Chain evaluates feature functions in order.
type Chain struct {
	ffs    []FeatureFunction
	starts []int
	layout *Layout
}

// NewChain creates a chain of feature functions.
func NewChain(ffs ...FeatureFunction) *Chain {
	return &Chain{ffs: ffs}
}

// Bind registers every feature function in the layout. Binding the same
// layout again is a no-op.
func (c *Chain) Bind(l *Layout) error {
	if c.layout == l {
		return nil
	}
	if c.layout != nil {
		return ErrChainBound
	}

	starts := make([]int, len(c.ffs))
	for i, ff := range c.ffs {
		start, err := l.Register(ff.Name(), ff.NumScores())
		if err != nil {
			return err
		}
		starts[i] = start
	}
	c.starts = starts
	c.layout = l
	return nil
}

// EvaluateInIsolation lets every feature function add its scores.
func (c *Chain) EvaluateInIsolation(source, target []vocab.TokenID, scores *Scores) {
	for i, ff := range c.ffs {
		ff.EvaluateInIsolation(source, target, Accumulator{
			scores: scores,
			start:  c.starts[i],
			n:      ff.NumScores(),
		})
	}
}

// Len returns the number of feature functions.
func (c *Chain) Len() int {
	return len(c.ffs)
}

// WordPenalty scores -1 per target word.
type WordPenalty struct {
	name string
}

// NewWordPenalty creates a WordPenalty named "WordPenalty0".
func NewWordPenalty() *WordPenalty { return &WordPenalty{name: "WordPenalty0"} }

func (f *WordPenalty) Name() string   { return f.name }
func (f *WordPenalty) NumScores() int { return 1 }

func (f *WordPenalty) EvaluateInIsolation(_, target []vocab.TokenID, acc Accumulator) {
	acc.Add(0, -float32(len(target)))
}

// PhrasePenalty scores 1 per phrase pair.
type PhrasePenalty struct {
	name string
}

// NewPhrasePenalty creates a PhrasePenalty named "PhrasePenalty0".
func NewPhrasePenalty() *PhrasePenalty { return &PhrasePenalty{name: "PhrasePenalty0"} }

func (f *PhrasePenalty) Name() string   { return f.name }
func (f *PhrasePenalty) NumScores() int { return 1 }

func (f *PhrasePenalty) EvaluateInIsolation(_, _ []vocab.TokenID, acc Accumulator) {
	acc.Add(0, 1)
}

// SourceTargetRatio scores ln(|target| / |source|).
type SourceTargetRatio struct {
	name string
}

// NewSourceTargetRatio creates a SourceTargetRatio named "SourceTargetRatio0".
func NewSourceTargetRatio() *SourceTargetRatio {
	return &SourceTargetRatio{name: "SourceTargetRatio0"}
}

func (f *SourceTargetRatio) Name() string   { return f.name }
func (f *SourceTargetRatio) NumScores() int { return 1 }

func (f *SourceTargetRatio) EvaluateInIsolation(source, target []vocab.TokenID, acc Accumulator) {
	if len(source) == 0 || len(target) == 0 {
		return
	}
	acc.Add(0, float32(math.Log(float64(len(target))/float64(len(source)))))
}
