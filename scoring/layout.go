package scoring

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateProducer is returned when a producer name is registered twice.
	ErrDuplicateProducer = errors.New("scoring: duplicate producer")
	// ErrUnknownProducer is returned for weights naming an unregistered producer.
	ErrUnknownProducer = errors.New("scoring: unknown producer")
	// ErrInvalidNumScores is returned for producers with a negative score count.
	ErrInvalidNumScores = errors.New("scoring: invalid number of scores")
	// ErrWeightCount is returned when a weight vector has the wrong length.
	ErrWeightCount = errors.New("scoring: weight count mismatch")
)

// Producer is a named range of score slots.
type Producer struct {
	Name  string
	Start int
	Len   int
}

// Layout assigns score slots to producers in registration order.
// It is not safe for concurrent registration; register everything before
// the first lookup.
type Layout struct {
	producers []Producer
	byName    map[string]int
	total     int
}

// NewLayout creates an empty layout.
func NewLayout() *Layout {
	return &Layout{byName: make(map[string]int)}
}

// Register reserves n slots for name and returns the first slot index.
func (l *Layout) Register(name string, n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: %s has %d", ErrInvalidNumScores, name, n)
	}
	if _, ok := l.byName[name]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateProducer, name)
	}

	start := l.total
	l.byName[name] = len(l.producers)
	l.producers = append(l.producers, Producer{Name: name, Start: start, Len: n})
	l.total += n
	return start, nil
}

// Producer returns the slot range registered for name.
func (l *Layout) Producer(name string) (Producer, bool) {
	i, ok := l.byName[name]
	if !ok {
		return Producer{}, false
	}
	return l.producers[i], true
}

// Producers returns all producers in slot order.
func (l *Layout) Producers() []Producer {
	out := make([]Producer, len(l.producers))
	copy(out, l.producers)
	return out
}

// Len returns the total number of slots.
func (l *Layout) Len() int {
	return l.total
}

// Weights builds the dense weight vector. Producers missing from w get
// weight 1 on every slot.
func (l *Layout) Weights(w map[string][]float32) ([]float32, error) {
	for name := range w {
		if _, ok := l.byName[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProducer, name)
		}
	}

	dense := make([]float32, l.total)
	for _, p := range l.producers {
		vals, ok := w[p.Name]
		if !ok {
			for i := p.Start; i < p.Start+p.Len; i++ {
				dense[i] = 1
			}
			continue
		}
		if len(vals) != p.Len {
			return nil, fmt.Errorf("%w: %s wants %d, got %d", ErrWeightCount, p.Name, p.Len, len(vals))
		}
		copy(dense[p.Start:], vals)
	}
	return dense, nil
}
