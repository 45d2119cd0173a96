package index

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/probingpt/internal/conv"
	"github.com/hupe1980/probingpt/internal/hash"
)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithCompression sets the block compression. Default: CompressionLZ4.
func WithCompression(c Compression) BuilderOption {
	return func(b *Builder) {
		b.compression = c
	}
}

type phrase struct {
	key     []uint64
	records []Record
}

// Builder assembles an index in memory.
//
// Ids are assigned densely from zero in first-seen order. A Builder is not
// safe for concurrent use.
type Builder struct {
	numScores   int
	numScores16 uint16
	compression Compression

	sourceIDs   map[string]uint64
	sourceWords []SourceWord
	nextSource  uint64
	targetIDs   map[string]uint32
	targetWords []TargetWord

	phrases map[string]*phrase
	order   []*phrase
	pairs   int
}

// NewBuilder creates a builder for records with numScores scores each.
func NewBuilder(numScores int, opts ...BuilderOption) (*Builder, error) {
	n, err := conv.IntToUint16(numScores)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTooLarge, err)
	}

	b := &Builder{
		numScores:   numScores,
		numScores16: n,
		compression: CompressionLZ4,
		sourceIDs:   make(map[string]uint64),
		targetIDs:   make(map[string]uint32),
		phrases:     make(map[string]*phrase),
	}
	for _, opt := range opts {
		opt(b)
	}
	if !b.compression.valid() {
		return nil, fmt.Errorf("index: unknown compression %d", b.compression)
	}
	return b, nil
}

// NumScores returns the score vector length.
func (b *Builder) NumScores() int {
	return b.numScores
}

// Len returns the number of phrase pairs added.
func (b *Builder) Len() int {
	return b.pairs
}

// Add records that source translates to target with the given raw scores.
// Records for one source phrase keep their insertion order.
func (b *Builder) Add(source, target []string, scores []float32) error {
	if len(source) == 0 || len(target) == 0 {
		return ErrEmptyPhrase
	}
	if len(scores) != b.numScores {
		return fmt.Errorf("%w: want %d, got %d", ErrScoreCount, b.numScores, len(scores))
	}
	if len(source) > math.MaxUint16 || len(target) > math.MaxUint16 {
		return fmt.Errorf("%w: phrase of %d/%d words", ErrTooLarge, len(source), len(target))
	}
	for _, w := range slices.Concat(source, target) {
		if w == "" {
			return fmt.Errorf("%w: empty word", ErrEmptyPhrase)
		}
		if len(w) > math.MaxUint16 {
			return fmt.Errorf("%w: word of %d bytes", ErrTooLarge, len(w))
		}
	}

	key := make([]uint64, len(source))
	for i, w := range source {
		key[i] = b.sourceID(w)
	}
	tgt := make([]uint32, len(target))
	for i, w := range target {
		id, err := b.targetID(w)
		if err != nil {
			return err
		}
		tgt[i] = id
	}

	k := keyString(key)
	p, ok := b.phrases[k]
	if !ok {
		p = &phrase{key: key}
		b.phrases[k] = p
		b.order = append(b.order, p)
	}
	if len(p.records) == math.MaxUint32 {
		return fmt.Errorf("%w: too many records", ErrTooLarge)
	}
	p.records = append(p.records, Record{Target: tgt, Scores: slices.Clone(scores)})
	b.pairs++
	return nil
}

func (b *Builder) sourceID(w string) uint64 {
	if id, ok := b.sourceIDs[w]; ok {
		return id
	}
	id := b.nextSource
	if id == UnknownSourceID {
		id++
	}
	b.nextSource = id + 1
	b.sourceIDs[w] = id
	b.sourceWords = append(b.sourceWords, SourceWord{ID: id, Text: w})
	return id
}

func (b *Builder) targetID(w string) (uint32, error) {
	if id, ok := b.targetIDs[w]; ok {
		return id, nil
	}
	id, err := conv.IntToUint32(len(b.targetWords))
	if err != nil {
		return 0, fmt.Errorf("%w: target vocabulary", ErrTooLarge)
	}
	b.targetIDs[w] = id
	b.targetWords = append(b.targetWords, TargetWord{ID: id, Text: w})
	return id, nil
}

func keyString(key []uint64) string {
	buf := make([]byte, 8*len(key))
	for i, id := range key {
		binary.LittleEndian.PutUint64(buf[8*i:], id)
	}
	return string(buf)
}

// Bytes encodes the index.
func (b *Builder) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := b.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type keyEntry struct {
	hash   uint64
	offset uint64
	length uint32
}

// WriteTo encodes the index to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	var out bytes.Buffer
	out.Write(make([]byte, HeaderSize))

	h := fileHeader{
		Magic:       Magic,
		Version:     Version,
		NumScores:   b.numScores16,
		Compression: b.compression,
	}

	var err error
	if h.SourceWords, err = conv.IntToUint32(len(b.sourceWords)); err != nil {
		return 0, err
	}
	if h.TargetWords, err = conv.IntToUint32(len(b.targetWords)); err != nil {
		return 0, err
	}
	if h.NumKeys, err = conv.IntToUint32(len(b.order)); err != nil {
		return 0, err
	}

	var scratch [8]byte

	h.SourceVocabOffset = uint64(out.Len())
	for _, sw := range b.sourceWords {
		binary.LittleEndian.PutUint64(scratch[:], sw.ID)
		out.Write(scratch[:8])
		binary.LittleEndian.PutUint16(scratch[:], uint16(len(sw.Text))) //nolint:gosec // checked in Add
		out.Write(scratch[:2])
		out.WriteString(sw.Text)
	}

	h.TargetVocabOffset = uint64(out.Len())
	for _, tw := range b.targetWords {
		binary.LittleEndian.PutUint32(scratch[:], tw.ID)
		out.Write(scratch[:4])
		binary.LittleEndian.PutUint16(scratch[:], uint16(len(tw.Text))) //nolint:gosec // checked in Add
		out.Write(scratch[:2])
		out.WriteString(tw.Text)
	}

	h.FilterOffset = uint64(out.Len())
	filter := roaring64.New()
	for _, p := range b.order {
		filter.Add(p.key[0])
	}
	filter.RunOptimize()
	if _, err := filter.WriteTo(&out); err != nil {
		return 0, fmt.Errorf("index: write filter: %w", err)
	}

	var data bytes.Buffer
	entries := make([]keyEntry, 0, len(b.order))
	for _, p := range b.order {
		block, err := frameBlock(b.encodePhrase(p), b.compression)
		if err != nil {
			return 0, fmt.Errorf("index: compress block: %w", err)
		}
		length, err := conv.IntToUint32(len(block))
		if err != nil {
			return 0, fmt.Errorf("%w: block", ErrTooLarge)
		}
		entries = append(entries, keyEntry{
			hash:   hash.Key(p.key),
			offset: uint64(data.Len()),
			length: length,
		})
		data.Write(block)
	}
	slices.SortStableFunc(entries, func(x, y keyEntry) int {
		return cmp.Compare(x.hash, y.hash)
	})

	h.KeyTableOffset = uint64(out.Len())
	for _, e := range entries {
		var rec [keyEntrySize]byte
		binary.LittleEndian.PutUint64(rec[0:], e.hash)
		binary.LittleEndian.PutUint64(rec[8:], e.offset)
		binary.LittleEndian.PutUint32(rec[16:], e.length)
		out.Write(rec[:])
	}

	h.DataOffset = uint64(out.Len())
	out.Write(data.Bytes())

	body := out.Bytes()
	h.encode(body[:HeaderSize])

	binary.LittleEndian.PutUint32(scratch[:], hash.CRC32C(body))
	out.Write(scratch[:4])

	n, err := w.Write(out.Bytes())
	return int64(n), err
}

func (b *Builder) encodePhrase(p *phrase) []byte {
	size := 2 + 8*len(p.key) + 4
	for _, r := range p.records {
		size += 2 + 4*len(r.Target) + 4*b.numScores
	}

	buf := make([]byte, size)
	off := 0
	binary.LittleEndian.PutUint16(buf[off:], uint16(len(p.key))) //nolint:gosec // checked in Add
	off += 2
	for _, id := range p.key {
		binary.LittleEndian.PutUint64(buf[off:], id)
		off += 8
	}
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(p.records))) //nolint:gosec // checked in Add
	off += 4
	for _, r := range p.records {
		binary.LittleEndian.PutUint16(buf[off:], uint16(len(r.Target))) //nolint:gosec // checked in Add
		off += 2
		for _, id := range r.Target {
			binary.LittleEndian.PutUint32(buf[off:], id)
			off += 4
		}
		for _, s := range r.Scores {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(s))
			off += 4
		}
	}
	return buf
}
