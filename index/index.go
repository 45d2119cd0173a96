package index

import "errors"

// UnknownSourceID is the reserved source id for words the index does not
// know. The builder never assigns it and the reader rejects files that do.
const UnknownSourceID uint64 = 456456546456

// TargetIDLimit is the exclusive upper bound on target ids for a vocabulary
// of n words. The builder assigns ids densely from zero; the slack admits
// small gaps from other writers.
func TargetIDLimit(n int) uint64 {
	return uint64(n)*4 + 1024
}

var (
	// ErrCorrupt is wrapped by every FormatError.
	ErrCorrupt = errors.New("index: corrupt file")
	// ErrClosed is returned when a closed index is queried.
	ErrClosed = errors.New("index: closed")
	// ErrEmptyPhrase is returned when adding an empty source or target phrase.
	ErrEmptyPhrase = errors.New("index: empty phrase")
	// ErrScoreCount is returned when a score vector has the wrong length.
	ErrScoreCount = errors.New("index: score count mismatch")
	// ErrTooLarge is returned when a phrase, word or record list exceeds
	// what the file format can encode.
	ErrTooLarge = errors.New("index: value too large for file format")
)

// FormatError describes a malformed index file.
type FormatError struct {
	Section string
	Reason  string
}

func (e *FormatError) Error() string {
	return "index: malformed " + e.Section + ": " + e.Reason
}

// Unwrap returns ErrCorrupt.
func (e *FormatError) Unwrap() error {
	return ErrCorrupt
}

// SourceWord is one entry of the source vocabulary.
type SourceWord struct {
	ID   uint64
	Text string
}

// TargetWord is one entry of the target vocabulary.
type TargetWord struct {
	ID   uint32
	Text string
}

// Record is one translation of a source phrase. Both slices are owned by
// the caller.
type Record struct {
	Target []uint32
	Scores []float32
}

// Index is a read-only, exact-match phrase index.
//
// Implementations must be safe for concurrent queries.
type Index interface {
	// NumScores returns the length of every record's score vector.
	NumScores() int
	// SourceVocabulary returns the source vocabulary sorted by id.
	SourceVocabulary() []SourceWord
	// TargetVocabulary returns the target vocabulary sorted by id.
	TargetVocabulary() []TargetWord
	// Query returns the records stored for exactly key. found=false with a
	// nil error means the phrase is not in the index.
	Query(key []uint64) (records []Record, found bool, err error)
	// Close releases the index.
	Close() error
}
