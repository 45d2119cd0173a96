package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Key hashes a source phrase given as index ids.
func Key(ids []uint64) uint64 {
	var d xxhash.Digest
	d.Reset()

	var buf [8]byte
	for _, id := range ids {
		binary.LittleEndian.PutUint64(buf[:], id)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
