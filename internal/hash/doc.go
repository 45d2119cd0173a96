// Package hash provides the hashing used by the index file format.
//
// # CRC32-Castagnoli (CRC32C)
//
// Index files end with a CRC32C of everything before the trailer. Go's
// crc32 package uses SSE4.2 / ARM CRC instructions when available.
//
//	checksum := hash.CRC32C(data)
//
// # Phrase keys
//
// Source phrases are located through an xxhash64 of their index ids.
// Collisions are resolved by comparing the full key stored in the block.
//
//	h := hash.Key([]uint64{17, 4})
package hash
