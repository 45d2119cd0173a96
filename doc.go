// Package probingpt is the phrase-table lookup subsystem of a statistical
// machine translation decoder.
//
// A Table loads a read-only translation index once and then, for every
// source span of a decode request, returns the scored candidate
// translations of exactly that span. Candidates are built inside a
// request-scoped Arena and stay valid until the arena is reset.
//
// # Quick Start
//
//	v := vocab.New()
//	tbl, err := probingpt.Open(ctx, "fr-en.pbpt", v,
//	    probingpt.WithTableLimit(20),
//	    probingpt.WithFeatureFunctions(scoring.NewWordPenalty(), scoring.NewPhrasePenalty()),
//	)
//
//	a, _ := probingpt.AcquireArena()
//	defer probingpt.ReleaseArena(a)
//
//	set, err := tbl.LookupSpan(a, v.Tokens("le", "chat"))
//	for _, c := range set.All() {
//	    fmt.Println(c.Text(v), c.Total())
//	}
//
// # Id Spaces
//
// Three id spaces meet here: decoder tokens (vocab.TokenID), 64-bit source
// index ids and 32-bit target index ids. The mapping between them is built
// once at Load and is read-only afterwards, so a loaded Table serves
// lookups from any number of goroutines without locking. Each goroutine
// must use its own Arena.
//
// # Errors
//
// A span containing a word the index does not know, and a span with no
// exact entry, both yield an empty CandidateSet. LookupSpan only fails on
// misuse (ErrNotLoaded, ErrNilArena) or when the arena cannot allocate.
// Records whose target ids do not resolve are dropped, counted and logged.
//
// # Storage
//
// Index files are read through a blobstore.Store: local files are
// memory-mapped, while S3 and MinIO objects are pulled into memory once at
// load time.
package probingpt
