package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/probingpt/blobstore"
	"github.com/hupe1980/probingpt/index"
)

// Entry is one phrase pair with its raw scores.
type Entry struct {
	Source []string
	Target []string
	Scores []float32
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec // deterministic fixtures
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Prob returns a pseudo-random probability in (0,1].
func (r *RNG) Prob() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return 1 - r.rand.Float32()
}

// Word returns the i-th word of a synthetic language.
func Word(lang string, i int) string {
	return fmt.Sprintf("%s%d", lang, i)
}

// Phrase returns between 1 and maxLen words drawn from a vocabulary of
// vocabSize words.
func (r *RNG) Phrase(lang string, vocabSize, maxLen int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phraseLocked(lang, vocabSize, maxLen)
}

func (r *RNG) phraseLocked(lang string, vocabSize, maxLen int) []string {
	n := 1 + r.rand.Intn(maxLen)
	words := make([]string, n)
	for i := range words {
		words[i] = Word(lang, r.rand.Intn(vocabSize))
	}
	return words
}

// Entries generates n random phrase pairs with numScores probabilities
// each. Source words are "s<i>", target words "t<i>".
// Locks only once per call.
func (r *RNG) Entries(n, vocabSize, maxLen, numScores int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, n)
	for i := range out {
		scores := make([]float32, numScores)
		for j := range scores {
			scores[j] = 1 - r.rand.Float32()
		}
		out[i] = Entry{
			Source: r.phraseLocked("s", vocabSize, maxLen),
			Target: r.phraseLocked("t", vocabSize, maxLen),
			Scores: scores,
		}
	}
	return out
}

// BuildIndex encodes entries as an index file.
func BuildIndex(entries []Entry, numScores int, opts ...index.BuilderOption) ([]byte, error) {
	b, err := index.NewBuilder(numScores, opts...)
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		if err := b.Add(e.Source, e.Target, e.Scores); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return b.Bytes()
}

// StoreIndex builds entries and writes the index to store under name.
func StoreIndex(ctx context.Context, store blobstore.Store, name string, entries []Entry, numScores int, opts ...index.BuilderOption) error {
	data, err := BuildIndex(entries, numScores, opts...)
	if err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}

// Expected groups entries by source phrase, keeping insertion order.
func Expected(entries []Entry) map[string][]Entry {
	out := make(map[string][]Entry)
	for _, e := range entries {
		k := fmt.Sprint(e.Source)
		out[k] = append(out[k], e)
	}
	return out
}
