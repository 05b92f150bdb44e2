// Package memfaiss implements native.Library in process.
//
// It covers the entrypoints gofaiss drives: flat indexes, PCA, pre-transform
// and refine-flat composites, casts, cloning and a small factory. Objects live
// in a table keyed by pointer, so ownership mistakes show up as recorded
// violations rather than memory corruption:
//
//	lib := memfaiss.New()
//	rt := gofaiss.New(lib)
//	// ... exercise handles ...
//	if lib.Live() != 0 || len(lib.Violations()) != 0 {
//	    // leak or double free
//	}
//
// Failures can be injected per entrypoint with Fail and ReturnNull.
package memfaiss
