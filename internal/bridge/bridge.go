package bridge

import (
	"errors"
	"fmt"

	"github.com/hupe1980/probingpt/index"
	"github.com/hupe1980/probingpt/vocab"
)

// ErrTargetIDTooLarge is returned when a target vocabulary is too sparse to
// hold in a dense array.
var ErrTargetIDTooLarge = errors.New("bridge: target id too large")

// Vocabulary is the source index the bridge is built from.
type Vocabulary interface {
	SourceVocabulary() []index.SourceWord
	TargetVocabulary() []index.TargetWord
}

// Bridge holds both id mappings.
type Bridge struct {
	source []uint64
	target []*vocab.Token
}

// Load interns every index word and builds both mappings. Entries are
// consumed in ascending id order so interning is deterministic.
func Load(v Vocabulary, interner vocab.Interner) (*Bridge, error) {
	b := &Bridge{}

	for _, w := range v.SourceVocabulary() {
		tok := interner.Intern(w.Text)
		b.setSource(tok.ID, w.ID)
	}

	words := v.TargetVocabulary()
	limit := index.TargetIDLimit(len(words))
	for _, w := range words {
		if uint64(w.ID) >= limit {
			return nil, fmt.Errorf("%w: %d", ErrTargetIDTooLarge, w.ID)
		}
		tok := interner.Intern(w.Text)
		if int(w.ID) >= len(b.target) {
			b.target = grow(b.target, int(w.ID)+1, nil)
		}
		b.target[w.ID] = tok
	}
	return b, nil
}

func (b *Bridge) setSource(tok vocab.TokenID, id uint64) {
	if int(tok) >= len(b.source) {
		b.source = grow(b.source, int(tok)+1, index.UnknownSourceID)
	}
	b.source[tok] = id
}

// grow extends s to length n, filling new slots with fill. Capacity at
// least doubles so repeated growth stays amortised O(1).
func grow[T any](s []T, n int, fill T) []T {
	if n <= cap(s) {
		old := len(s)
		s = s[:n]
		for i := old; i < n; i++ {
			s[i] = fill
		}
		return s
	}

	out := make([]T, n, max(n, 2*cap(s)))
	copy(out, s)
	for i := len(s); i < n; i++ {
		out[i] = fill
	}
	return out
}

// ResolveSource returns the source index id of tok, or
// index.UnknownSourceID when the index does not contain the word.
func (b *Bridge) ResolveSource(tok vocab.TokenID) uint64 {
	if int(tok) >= len(b.source) {
		return index.UnknownSourceID
	}
	return b.source[tok]
}

// ResolveTarget returns the token for a target index id, or nil when the
// id is unmapped.
func (b *Bridge) ResolveTarget(id uint32) *vocab.Token {
	if int(id) >= len(b.target) {
		return nil
	}
	return b.target[id]
}

// SourceLen returns the length of the source array.
func (b *Bridge) SourceLen() int {
	return len(b.source)
}

// TargetLen returns the length of the target array.
func (b *Bridge) TargetLen() int {
	return len(b.target)
}
