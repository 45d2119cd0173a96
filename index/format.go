package index

import (
	"encoding/binary"
	"fmt"
)

const (
	// Magic identifies an index file ("PBPT" little endian).
	Magic uint32 = 0x54504250
	// Version is the current file format version.
	Version uint32 = 1
	// HeaderSize is the fixed header length.
	HeaderSize = 64

	trailerSize  = 4
	keyEntrySize = 20
)

type fileHeader struct {
	Magic             uint32
	Version           uint32
	NumScores         uint16
	Compression       Compression
	SourceWords       uint32
	TargetWords       uint32
	NumKeys           uint32
	SourceVocabOffset uint64
	TargetVocabOffset uint64
	FilterOffset      uint64
	KeyTableOffset    uint64
	DataOffset        uint64
}

func (h *fileHeader) encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:], h.Version)
	binary.LittleEndian.PutUint16(buf[8:], h.NumScores)
	buf[10] = byte(h.Compression)
	buf[11] = 0
	binary.LittleEndian.PutUint32(buf[12:], h.SourceWords)
	binary.LittleEndian.PutUint32(buf[16:], h.TargetWords)
	binary.LittleEndian.PutUint32(buf[20:], h.NumKeys)
	binary.LittleEndian.PutUint64(buf[24:], h.SourceVocabOffset)
	binary.LittleEndian.PutUint64(buf[32:], h.TargetVocabOffset)
	binary.LittleEndian.PutUint64(buf[40:], h.FilterOffset)
	binary.LittleEndian.PutUint64(buf[48:], h.KeyTableOffset)
	binary.LittleEndian.PutUint64(buf[56:], h.DataOffset)
}

// decodeHeader validates the header against a file of bodyLen bytes
// (trailer excluded).
func decodeHeader(buf []byte, bodyLen uint64) (*fileHeader, error) {
	if len(buf) < HeaderSize {
		return nil, &FormatError{Section: "header", Reason: "file too small"}
	}

	h := &fileHeader{
		Magic:             binary.LittleEndian.Uint32(buf[0:]),
		Version:           binary.LittleEndian.Uint32(buf[4:]),
		NumScores:         binary.LittleEndian.Uint16(buf[8:]),
		Compression:       Compression(buf[10]),
		SourceWords:       binary.LittleEndian.Uint32(buf[12:]),
		TargetWords:       binary.LittleEndian.Uint32(buf[16:]),
		NumKeys:           binary.LittleEndian.Uint32(buf[20:]),
		SourceVocabOffset: binary.LittleEndian.Uint64(buf[24:]),
		TargetVocabOffset: binary.LittleEndian.Uint64(buf[32:]),
		FilterOffset:      binary.LittleEndian.Uint64(buf[40:]),
		KeyTableOffset:    binary.LittleEndian.Uint64(buf[48:]),
		DataOffset:        binary.LittleEndian.Uint64(buf[56:]),
	}

	if h.Magic != Magic {
		return nil, &FormatError{Section: "header", Reason: fmt.Sprintf("invalid magic %#x", h.Magic)}
	}
	if h.Version != Version {
		return nil, &FormatError{Section: "header", Reason: fmt.Sprintf("unsupported version %d", h.Version)}
	}
	if !h.Compression.valid() {
		return nil, &FormatError{Section: "header", Reason: fmt.Sprintf("unknown compression %d", h.Compression)}
	}

	offsets := []uint64{HeaderSize, h.SourceVocabOffset, h.TargetVocabOffset, h.FilterOffset, h.KeyTableOffset, h.DataOffset, bodyLen}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, &FormatError{Section: "header", Reason: "section offsets out of order"}
		}
	}
	if h.DataOffset-h.KeyTableOffset != uint64(h.NumKeys)*keyEntrySize {
		return nil, &FormatError{Section: "header", Reason: "key table size mismatch"}
	}
	return h, nil
}
