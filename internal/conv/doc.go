// Package conv holds checked integer conversions for values read from or
// written to index files (counts, offsets, lengths).
//
// Use a plain cast where the bound is already guaranteed by construction.
package conv
