// Package preflight checks that amandocs can run before a build starts:
// free space and write access in the data directory, the open file limit,
// a reachable source and a working embedder.
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, preflight.Target{DataDir: dir, Source: src})
//	if checker.HasCriticalFailures(results) {
//	    // refuse to index
//	}
package preflight
