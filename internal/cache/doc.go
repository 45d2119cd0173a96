// Package cache holds decompressed index blocks between lookups.
//
// The same source span is typically looked up many times across decode
// requests, so keeping its decompressed block avoids repeated LZ4/ZSTD work.
// Cached slices are shared and must be treated as read-only.
package cache
