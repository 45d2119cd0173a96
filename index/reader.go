package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/probingpt/blobstore"
	"github.com/hupe1980/probingpt/internal/cache"
	"github.com/hupe1980/probingpt/internal/conv"
	"github.com/hupe1980/probingpt/internal/hash"
	"github.com/hupe1980/probingpt/resource"
)

var readerIDs atomic.Uint64

// Stats describes an opened index.
type Stats struct {
	SourceWords int
	TargetWords int
	Phrases     int
	NumScores   int
	Compression Compression
	SizeBytes   int64
	Mapped      bool
	CacheHits   int64
	CacheMisses int64
	CacheBytes  int64
}

// Reader serves queries from an encoded index.
//
// Queries are safe for concurrent use. Close waits for in-flight queries
// before releasing the underlying blob; later queries fail with ErrClosed.
type Reader struct {
	id     uint64
	blob   blobstore.Blob
	mapped bool
	rc     *resource.Controller
	// charged is the memory held against rc for a copied index.
	charged int64

	hdr         *fileHeader
	size        int64
	sourceVocab []SourceWord
	targetVocab []TargetWord
	filter      *roaring64.Bitmap
	keyTable    []byte
	blocks      []byte
	cache       cache.BlockCache

	// mu guards the mapped blocks against Close.
	mu     sync.RWMutex
	closed bool
}

var _ Index = (*Reader)(nil)

// Open loads the index stored under name. Mappable blobs are served in
// place; other blobs are read fully into memory in throttled chunks.
// Any failure leaves nothing open.
func Open(ctx context.Context, store blobstore.Store, name string, opts ...Option) (*Reader, error) {
	o := applyOptions(opts)
	start := time.Now()

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", name, err)
	}

	data, mapped, charged, err := readBlob(ctx, blob, o)
	if err != nil {
		_ = blob.Close()
		return nil, fmt.Errorf("index: read %s: %w", name, err)
	}

	r, err := newReader(data, o)
	if err != nil {
		o.rc.ReleaseMemory(charged)
		_ = blob.Close()
		return nil, fmt.Errorf("index: open %s: %w", name, err)
	}

	r.rc = o.rc
	r.charged = charged
	r.mapped = mapped
	if mapped {
		r.blob = blob
	} else {
		_ = blob.Close()
	}

	o.logger.DebugContext(ctx, "index opened",
		"name", name,
		"bytes", r.size,
		"mapped", mapped,
		"source_words", len(r.sourceVocab),
		"target_words", len(r.targetVocab),
		"phrases", r.hdr.NumKeys,
		"compression", r.hdr.Compression.String(),
		"duration", time.Since(start),
	)
	return r, nil
}

// FromBytes serves queries directly from data, which must stay unmodified
// while the reader is in use.
func FromBytes(data []byte, opts ...Option) (*Reader, error) {
	return newReader(data, applyOptions(opts))
}

func readBlob(ctx context.Context, blob blobstore.Blob, o options) (data []byte, mapped bool, charged int64, err error) {
	if m, ok := blob.(blobstore.Mappable); ok {
		data, err := m.Bytes()
		return data, true, 0, err
	}

	size, err := conv.Int64ToInt(blob.Size())
	if err != nil {
		return nil, false, 0, err
	}
	if err := o.rc.AcquireMemory(ctx, int64(size)); err != nil {
		return nil, false, 0, err
	}

	buf := make([]byte, size)
	for off := 0; off < size; {
		n := min(o.readChunk, size-off)
		if err := o.rc.AcquireIO(ctx, n); err != nil {
			o.rc.ReleaseMemory(int64(size))
			return nil, false, 0, err
		}
		got, err := blob.ReadAt(ctx, buf[off:off+n], int64(off))
		if err != nil && !(errors.Is(err, io.EOF) && got == n) {
			o.rc.ReleaseMemory(int64(size))
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, false, 0, err
		}
		off += n
	}
	return buf, false, int64(size), nil
}

func newReader(data []byte, o options) (*Reader, error) {
	if len(data) < HeaderSize+trailerSize {
		return nil, &FormatError{Section: "header", Reason: "file too small"}
	}

	bodyLen := len(data) - trailerSize
	body := data[:bodyLen]
	if want, got := binary.LittleEndian.Uint32(data[bodyLen:]), hash.CRC32C(body); want != got {
		return nil, &FormatError{Section: "trailer", Reason: fmt.Sprintf("checksum mismatch: stored %#x, computed %#x", want, got)}
	}

	hdr, err := decodeHeader(body, uint64(bodyLen))
	if err != nil {
		return nil, err
	}

	r := &Reader{
		id:       readerIDs.Add(1),
		hdr:      hdr,
		size:     int64(len(data)),
		keyTable: body[hdr.KeyTableOffset:hdr.DataOffset],
		blocks:   body[hdr.DataOffset:],
	}

	if r.sourceVocab, err = decodeSourceVocab(body[hdr.SourceVocabOffset:hdr.TargetVocabOffset], hdr.SourceWords); err != nil {
		return nil, err
	}
	if r.targetVocab, err = decodeTargetVocab(body[hdr.TargetVocabOffset:hdr.FilterOffset], hdr.TargetWords); err != nil {
		return nil, err
	}

	r.filter = roaring64.New()
	if _, err := r.filter.ReadFrom(bytes.NewReader(body[hdr.FilterOffset:hdr.KeyTableOffset])); err != nil {
		return nil, &FormatError{Section: "filter", Reason: err.Error()}
	}

	if hdr.Compression != CompressionNone && o.blockCacheSize > 0 {
		r.cache = cache.NewShardedLRUBlockCache(o.blockCacheSize, o.rc)
	}
	return r, nil
}

func decodeSourceVocab(buf []byte, count uint32) ([]SourceWord, error) {
	words := make([]SourceWord, 0, min(int(count), len(buf)/10))
	for i := uint32(0); i < count; i++ {
		if len(buf) < 10 {
			return nil, &FormatError{Section: "source vocabulary", Reason: "truncated entry"}
		}
		id := binary.LittleEndian.Uint64(buf)
		n := int(binary.LittleEndian.Uint16(buf[8:]))
		if len(buf) < 10+n {
			return nil, &FormatError{Section: "source vocabulary", Reason: "truncated word"}
		}
		if id == UnknownSourceID {
			return nil, &FormatError{Section: "source vocabulary", Reason: "reserved unknown id assigned to " + string(buf[10:10+n])}
		}
		words = append(words, SourceWord{ID: id, Text: string(buf[10 : 10+n])})
		buf = buf[10+n:]
	}
	if len(buf) != 0 {
		return nil, &FormatError{Section: "source vocabulary", Reason: "trailing bytes"}
	}

	slices.SortFunc(words, func(a, b SourceWord) int { return compareIDs(a.ID, b.ID) })
	for i := 1; i < len(words); i++ {
		if words[i].ID == words[i-1].ID {
			return nil, &FormatError{Section: "source vocabulary", Reason: fmt.Sprintf("duplicate id %d", words[i].ID)}
		}
	}
	return words, nil
}

func decodeTargetVocab(buf []byte, count uint32) ([]TargetWord, error) {
	words := make([]TargetWord, 0, min(int(count), len(buf)/6))
	limit := TargetIDLimit(int(count))
	for i := uint32(0); i < count; i++ {
		if len(buf) < 6 {
			return nil, &FormatError{Section: "target vocabulary", Reason: "truncated entry"}
		}
		id := binary.LittleEndian.Uint32(buf)
		if uint64(id) >= limit {
			return nil, &FormatError{Section: "target vocabulary", Reason: fmt.Sprintf("id %d out of range", id)}
		}
		n := int(binary.LittleEndian.Uint16(buf[4:]))
		if len(buf) < 6+n {
			return nil, &FormatError{Section: "target vocabulary", Reason: "truncated word"}
		}
		words = append(words, TargetWord{ID: id, Text: string(buf[6 : 6+n])})
		buf = buf[6+n:]
	}
	if len(buf) != 0 {
		return nil, &FormatError{Section: "target vocabulary", Reason: "trailing bytes"}
	}

	slices.SortFunc(words, func(a, b TargetWord) int { return compareIDs(a.ID, b.ID) })
	for i := 1; i < len(words); i++ {
		if words[i].ID == words[i-1].ID {
			return nil, &FormatError{Section: "target vocabulary", Reason: fmt.Sprintf("duplicate id %d", words[i].ID)}
		}
	}
	return words, nil
}

func compareIDs[T uint32 | uint64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// NumScores returns the length of every record's score vector.
func (r *Reader) NumScores() int {
	return int(r.hdr.NumScores)
}

// Compression returns the block compression of the file.
func (r *Reader) Compression() Compression {
	return r.hdr.Compression
}

// SourceVocabulary returns the source vocabulary sorted by id.
func (r *Reader) SourceVocabulary() []SourceWord {
	return slices.Clone(r.sourceVocab)
}

// TargetVocabulary returns the target vocabulary sorted by id.
func (r *Reader) TargetVocabulary() []TargetWord {
	return slices.Clone(r.targetVocab)
}

// Len returns the number of distinct source phrases.
func (r *Reader) Len() int {
	return int(r.hdr.NumKeys)
}

func (r *Reader) entryHash(i int) uint64 {
	return binary.LittleEndian.Uint64(r.keyTable[i*keyEntrySize:])
}

// Query returns the records stored for exactly key.
func (r *Reader) Query(key []uint64) ([]Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, false, ErrClosed
	}
	if len(key) == 0 || !r.filter.Contains(key[0]) {
		return nil, false, nil
	}

	h := hash.Key(key)
	n := int(r.hdr.NumKeys)
	for i := sort.Search(n, func(i int) bool { return r.entryHash(i) >= h }); i < n && r.entryHash(i) == h; i++ {
		e := r.keyTable[i*keyEntrySize:]
		payload, err := r.block(binary.LittleEndian.Uint64(e[8:]), binary.LittleEndian.Uint32(e[16:]))
		if err != nil {
			return nil, false, err
		}

		rest, match, err := matchKey(payload, key)
		if err != nil {
			return nil, false, err
		}
		if !match {
			continue
		}

		records, err := r.decodeRecords(rest)
		if err != nil {
			return nil, false, err
		}
		return records, true, nil
	}
	return nil, false, nil
}

func (r *Reader) block(off uint64, length uint32) ([]byte, error) {
	if off > uint64(len(r.blocks)) || uint64(length) > uint64(len(r.blocks))-off {
		return nil, &FormatError{Section: "key table", Reason: fmt.Sprintf("block [%d,+%d) out of range", off, length)}
	}

	if r.cache != nil {
		if b, ok := r.cache.Get(cache.Key{Table: r.id, Offset: off}); ok {
			return b, nil
		}
	}

	payload, stored, err := unframeBlock(r.blocks[off:off+uint64(length)], r.hdr.Compression)
	if err != nil {
		return nil, err
	}
	if !stored && r.cache != nil {
		r.cache.Set(cache.Key{Table: r.id, Offset: off}, payload)
	}
	return payload, nil
}

func matchKey(payload []byte, key []uint64) (rest []byte, match bool, err error) {
	if len(payload) < 2 {
		return nil, false, &FormatError{Section: "block", Reason: "missing key length"}
	}
	n := int(binary.LittleEndian.Uint16(payload))
	payload = payload[2:]
	if len(payload) < 8*n {
		return nil, false, &FormatError{Section: "block", Reason: "truncated key"}
	}
	if n != len(key) {
		return nil, false, nil
	}
	for i, id := range key {
		if binary.LittleEndian.Uint64(payload[8*i:]) != id {
			return nil, false, nil
		}
	}
	return payload[8*n:], true, nil
}

func (r *Reader) decodeRecords(buf []byte) ([]Record, error) {
	if len(buf) < 4 {
		return nil, &FormatError{Section: "block", Reason: "missing record count"}
	}
	count := int(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]

	numScores := int(r.hdr.NumScores)
	minRecord := 2 + 4*numScores
	if count > len(buf)/minRecord {
		return nil, &FormatError{Section: "block", Reason: fmt.Sprintf("%d records do not fit in %d bytes", count, len(buf))}
	}

	totalTargets := 0
	for i, p := 0, buf; i < count; i++ {
		if len(p) < 2 {
			return nil, &FormatError{Section: "block", Reason: "truncated record"}
		}
		nt := int(binary.LittleEndian.Uint16(p))
		size := 2 + 4*nt + 4*numScores
		if len(p) < size {
			return nil, &FormatError{Section: "block", Reason: "truncated record"}
		}
		totalTargets += nt
		p = p[size:]
	}

	targets := make([]uint32, totalTargets)
	scores := make([]float32, count*numScores)
	records := make([]Record, count)
	for i := range records {
		nt := int(binary.LittleEndian.Uint16(buf))
		buf = buf[2:]

		tgt := targets[:nt:nt]
		targets = targets[nt:]
		for j := range tgt {
			tgt[j] = binary.LittleEndian.Uint32(buf[4*j:])
		}
		buf = buf[4*nt:]

		sc := scores[:numScores:numScores]
		scores = scores[numScores:]
		for j := range sc {
			sc[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:]))
		}
		buf = buf[4*numScores:]

		records[i] = Record{Target: tgt, Scores: sc}
	}
	return records, nil
}

// Stats returns size and cache statistics.
func (r *Reader) Stats() Stats {
	s := Stats{
		SourceWords: len(r.sourceVocab),
		TargetWords: len(r.targetVocab),
		Phrases:     int(r.hdr.NumKeys),
		NumScores:   int(r.hdr.NumScores),
		Compression: r.hdr.Compression,
		SizeBytes:   r.size,
		Mapped:      r.mapped,
	}
	if r.cache != nil {
		s.CacheHits, s.CacheMisses = r.cache.Stats()
		s.CacheBytes = r.cache.Size()
	}
	return s
}

// Close releases the underlying blob and any charged memory. It is
// idempotent.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if r.cache != nil {
		r.cache.Purge()
	}
	r.rc.ReleaseMemory(r.charged)
	if r.blob != nil {
		return r.blob.Close()
	}
	return nil
}
