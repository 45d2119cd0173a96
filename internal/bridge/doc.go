// Package bridge maps between decoder tokens and translation index ids.
//
// The source side is a dense array indexed by vocab.TokenID holding the
// source index id, or index.UnknownSourceID when the word is not in the
// index. The target side is a dense array indexed by target index id
// holding the interned token, or nil for unmapped slots. Both arrays are
// built once by Load and never change afterwards, so lookups need no
// locking.
package bridge
