// Package resource budgets process-wide memory and load bandwidth.
//
// Request arenas acquire memory chunk by chunk, the index block cache
// acquires memory per cached block, and index loads from remote blob stores
// acquire IO tokens per read. A nil *Controller imposes no limits.
package resource
