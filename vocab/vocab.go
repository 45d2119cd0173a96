package vocab

import (
	"strings"
	"sync"
)

// TokenID is the dense id of an interned word.
type TokenID uint32

// Token is an interned surface word.
type Token struct {
	ID   TokenID
	Text string
}

// String returns the surface text.
func (t *Token) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Text
}

// Interner turns surface strings into interned tokens.
type Interner interface {
	// Intern returns the token for text, creating it if needed.
	Intern(text string) *Token
}

// Vocabulary is a concurrency-safe Interner.
//
// Ids are assigned densely from zero in interning order.
type Vocabulary struct {
	mu     sync.RWMutex
	byText map[string]*Token
	byID   []*Token
}

var _ Interner = (*Vocabulary)(nil)

// New creates an empty vocabulary.
func New() *Vocabulary {
	return &Vocabulary{
		byText: make(map[string]*Token),
	}
}

// Intern returns the token for text, creating it if needed.
func (v *Vocabulary) Intern(text string) *Token {
	v.mu.RLock()
	tok, ok := v.byText[text]
	v.mu.RUnlock()
	if ok {
		return tok
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if tok, ok := v.byText[text]; ok {
		return tok
	}

	tok = &Token{
		ID:   TokenID(len(v.byID)), //nolint:gosec // vocabulary never approaches 2^32 words
		Text: strings.Clone(text),
	}
	v.byText[tok.Text] = tok
	v.byID = append(v.byID, tok)
	return tok
}

// Lookup returns the token for text without interning it.
func (v *Vocabulary) Lookup(text string) (*Token, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	tok, ok := v.byText[text]
	return tok, ok
}

// Token returns the token with the given id, or nil.
func (v *Vocabulary) Token(id TokenID) *Token {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if int(id) >= len(v.byID) {
		return nil
	}
	return v.byID[id]
}

// Len returns the number of interned tokens.
func (v *Vocabulary) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.byID)
}

// Tokens interns each text and returns the ids in order. It is the usual
// way to build a source span from words.
func (v *Vocabulary) Tokens(texts ...string) []TokenID {
	ids := make([]TokenID, len(texts))
	for i, text := range texts {
		ids[i] = v.Intern(text).ID
	}
	return ids
}

// Text joins the surface forms of ids with single spaces. Unknown ids
// render as "<unk>".
func (v *Vocabulary) Text(ids []TokenID) string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if int(id) < len(v.byID) {
			sb.WriteString(v.byID[id].Text)
		} else {
			sb.WriteString("<unk>")
		}
	}
	return sb.String()
}
