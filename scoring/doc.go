// Package scoring holds candidate score vectors and the chain of feature
// functions that score a candidate in isolation.
//
// A Layout assigns each score producer (the phrase table first, then every
// feature function) a contiguous range of slots in the dense score vector.
// Scores keeps the raw per-slot values together with a running weighted
// total, so sorting candidates never recomputes the dot product.
package scoring
