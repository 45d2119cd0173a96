// Package mmap maps index files and anonymous arena chunks into memory.
//
// # Usage
//
//	m, err := mmap.Open("table.pbpt")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes() // zero-copy view of the file
//
// Anonymous mappings (MapAnon) back the request arena chunks, so candidate
// words and score vectors live outside the garbage-collected heap.
//
// # Thread Safety
//
// A Mapping is safe for concurrent reads. Close is idempotent; callers must
// not touch Bytes() after Close returns.
package mmap
