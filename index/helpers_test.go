package index

import "github.com/hupe1980/probingpt/internal/hash"

func crc(b []byte) uint32 { return hash.CRC32C(b) }
