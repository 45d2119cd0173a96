// Package fs abstracts the file operations behind atomic blob writes so
// tests can inject failures.
//
// Production code uses fs.Default ([LocalFS]). Tests wrap it in a
// [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp-", fs.Fault{FailAfterBytes: 1024})
//	// inject ffs into the component under test
package fs
