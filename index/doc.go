// Package index implements the read-only translation index consumed by the
// phrase table.
//
// An index maps a source phrase, given as a sequence of source index ids,
// to the records of all its translations. Each record carries target index
// ids and a raw score vector. Source ids are 64-bit and target ids 32-bit;
// both are assigned densely from zero by the Builder, and UnknownSourceID
// is never assigned.
//
// # File Format (v1, little endian)
//
//	header      64 bytes (magic "PBPT", version, score count, compression,
//	            section counts and offsets)
//	source vocab   repeated [id u64][len u16][bytes]
//	target vocab   repeated [id u32][len u16][bytes]
//	filter      roaring64 bitmap of every phrase's first source id
//	key table   repeated [xxhash64 u64][offset u64][length u32], hash-sorted
//	data        framed blocks, one per source phrase
//	trailer     CRC32C of everything above
//
// A block is framed as [uncompressed u32][compressed u32][bytes]; a zero
// compressed size means the payload is stored raw. The payload is
//
//	[keyLen u16][key ids u64...][numRecords u32]
//	repeated [numTargets u16][target ids u32...][scores f32 x numScores]
//
// # Usage
//
//	b, _ := index.NewBuilder(4, index.WithCompression(index.CompressionLZ4))
//	_ = b.Add([]string{"le", "chat"}, []string{"the", "cat"}, []float32{0.5, 0.4, 0.6, 0.3})
//	data, _ := b.Bytes()
//	_ = store.Put(ctx, "fr-en.pbpt", data)
//
//	r, err := index.Open(ctx, store, "fr-en.pbpt")
package index
