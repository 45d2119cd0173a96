// Package testutil provides fixtures for phrase-table tests and benchmarks.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Phrase Pairs
//
//	rng := testutil.NewRNG(seed)
//	entries := rng.Entries(1000, 50, 3, 4) // pairs, vocab size, max len, scores
//
// # Index Fixtures
//
//	store := blobstore.NewMemoryStore()
//	err := testutil.StoreIndex(ctx, store, "pt.pbpt", entries, 4)
package testutil
