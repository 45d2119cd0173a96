// Package arena provides an off-heap bump allocator for request-scoped data.
//
// Memory comes from anonymous mmap chunks, so nothing allocated here is
// scanned by the garbage collector. Only pointer-free element types may be
// allocated; anything holding Go pointers belongs on the heap.
//
// # Features
//
//   - Lock-free bump allocation within the current chunk (CAS)
//   - Oversized requests get a dedicated chunk
//   - Generation counter bumped on Reset/Free to detect stale data
//   - Optional MemoryAcquirer to budget chunk memory
package arena
