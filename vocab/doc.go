// Package vocab is the decoder-wide vocabulary of interned surface words.
//
// Every distinct surface string maps to exactly one Token with a dense,
// non-negative TokenID. Tokens are immutable and live for the process
// lifetime; pointers to them may be compared for identity.
package vocab
