package index

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block compression algorithm.
type Compression uint8

const (
	// CompressionNone stores blocks raw. Raw blocks are read zero-copy.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) valid() bool {
	return c <= CompressionZSTD
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("index: unknown compression %q", s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return dec
}

const (
	blockHeaderSize = 8
	// maxBlockSize bounds the uncompressed size a block header may claim.
	maxBlockSize = 1 << 30
)

// frameBlock compresses payload and prepends the block header. Payloads
// that do not shrink below 90% are stored raw.
func frameBlock(payload []byte, c Compression) ([]byte, error) {
	var compressed []byte

	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(payload)))
		n, err := lz4.CompressBlock(payload, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(payload, nil)
		zstdEncoderPool.Put(enc)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(payload))*0.9 {
		out := make([]byte, blockHeaderSize+len(payload))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(payload))) //nolint:gosec // bounded by maxBlockSize
		copy(out[blockHeaderSize:], payload)
		return out, nil
	}

	out := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(payload)))    //nolint:gosec // bounded by maxBlockSize
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed))) //nolint:gosec // smaller than payload
	copy(out[blockHeaderSize:], compressed)
	return out, nil
}

// unframeBlock returns the payload of a framed block. stored reports whether
// the result aliases data.
func unframeBlock(data []byte, c Compression) (payload []byte, stored bool, err error) {
	if len(data) < blockHeaderSize {
		return nil, false, &FormatError{Section: "block", Reason: "too small for header"}
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[0:])
	compressedSize := binary.LittleEndian.Uint32(data[4:])
	body := data[blockHeaderSize:]

	if compressedSize == 0 {
		if uint64(len(body)) < uint64(uncompressedSize) {
			return nil, false, &FormatError{Section: "block", Reason: "truncated raw block"}
		}
		return body[:uncompressedSize], true, nil
	}

	if uint64(len(body)) < uint64(compressedSize) {
		return nil, false, &FormatError{Section: "block", Reason: "truncated compressed block"}
	}
	if uncompressedSize > maxBlockSize {
		return nil, false, &FormatError{Section: "block", Reason: "implausible block size"}
	}
	body = body[:compressedSize]

	switch c {
	case CompressionLZ4:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, false, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		if uint32(n) != uncompressedSize { //nolint:gosec // n <= len(out)
			return nil, false, &FormatError{Section: "block", Reason: "decompressed size mismatch"}
		}
		return out, false, nil

	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		out, err := dec.DecodeAll(body, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, false, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		if uint64(len(out)) != uint64(uncompressedSize) {
			return nil, false, &FormatError{Section: "block", Reason: "decompressed size mismatch"}
		}
		return out, false, nil

	default:
		return nil, false, &FormatError{Section: "block", Reason: "compressed block in uncompressed index"}
	}
}
