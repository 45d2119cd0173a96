package bridge

import (
	"testing"

	"github.com/hupe1980/probingpt/index"
	"github.com/hupe1980/probingpt/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVocab struct {
	source []index.SourceWord
	target []index.TargetWord
}

func (s staticVocab) SourceVocabulary() []index.SourceWord { return s.source }
func (s staticVocab) TargetVocabulary() []index.TargetWord { return s.target }

func TestLoad(t *testing.T) {
	v := vocab.New()
	pre := v.Intern("bonjour") // interned before the table loads

	b, err := Load(staticVocab{
		source: []index.SourceWord{{ID: 0, Text: "le"}, {ID: 1, Text: "chat"}, {ID: 7, Text: "bonjour"}},
		target: []index.TargetWord{{ID: 0, Text: "the"}, {ID: 3, Text: "cat"}},
	}, v)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), b.ResolveSource(pre.ID))
	le, _ := v.Lookup("le")
	assert.Equal(t, uint64(0), b.ResolveSource(le.ID))
	chat, _ := v.Lookup("chat")
	assert.Equal(t, uint64(1), b.ResolveSource(chat.ID))

	the := b.ResolveTarget(0)
	require.NotNil(t, the)
	assert.Equal(t, "the", the.Text)
	got, ok := v.Lookup("the")
	require.True(t, ok)
	assert.Same(t, got, the, "target tokens resolve to the interned token")

	assert.Equal(t, "cat", b.ResolveTarget(3).Text)
	assert.Nil(t, b.ResolveTarget(1), "gap slot")
	assert.Nil(t, b.ResolveTarget(4), "out of bounds")
	assert.Equal(t, 4, b.TargetLen())
}

func TestResolveSource_Unknown(t *testing.T) {
	v := vocab.New()
	b, err := Load(staticVocab{
		source: []index.SourceWord{{ID: 0, Text: "chat"}},
	}, v)
	require.NoError(t, err)

	// Interned after load: beyond the array.
	chien := v.Intern("chien")
	assert.Equal(t, index.UnknownSourceID, b.ResolveSource(chien.ID))

	// Interned before load but not in the index: sentinel-filled slot.
	v2 := vocab.New()
	gap := v2.Intern("gap")
	b2, err := Load(staticVocab{source: []index.SourceWord{{ID: 5, Text: "chat"}}}, v2)
	require.NoError(t, err)
	assert.Equal(t, index.UnknownSourceID, b2.ResolveSource(gap.ID))
	assert.Equal(t, 2, b2.SourceLen())
}

func TestLoad_TargetTooLarge(t *testing.T) {
	_, err := Load(staticVocab{
		target: []index.TargetWord{{ID: 1 << 20, Text: "x"}},
	}, vocab.New())
	assert.ErrorIs(t, err, ErrTargetIDTooLarge)

	// The dense array is bounded by the vocabulary size.
	b, err := Load(staticVocab{
		target: []index.TargetWord{{ID: 0, Text: "a"}, {ID: 1027, Text: "b"}},
	}, vocab.New())
	require.NoError(t, err)
	assert.LessOrEqual(t, uint64(b.TargetLen()), index.TargetIDLimit(2))
}

func TestGrow(t *testing.T) {
	s := grow([]uint64{1}, 3, 9)
	assert.Equal(t, []uint64{1, 9, 9}, s)

	s = s[:1]
	s = grow(s, 2, 7)
	assert.Equal(t, []uint64{1, 7}, s, "reused capacity is refilled")
}
