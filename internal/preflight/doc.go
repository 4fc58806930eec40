// Package preflight checks the machine before an indexing run: the corpus
// root is readable, the index location is writable with enough free space,
// and the process may open one file per worker plus the index segments.
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, preflight.Target{Input: in, Index: out, Threads: 8})
//	if checker.HasCriticalFailures(results) {
//	    // refuse to start
//	}
package preflight
