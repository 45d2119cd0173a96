// Package blobstore abstracts where translation index files live.
//
// Index files are immutable once published: a builder Puts them and tables
// Open them read-only. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, mmap-backed, zero-copy (Mappable)
//   - MemoryStore: in-process, for tests and embedding
//   - s3.Store: Amazon S3 with ranged reads and managed uploads
//   - minio.Store: MinIO and other S3-compatible servers
//
// Remote blobs are not Mappable; the index reader pulls them into memory
// once at load time.
package blobstore
