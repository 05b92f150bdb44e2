// Package testutil provides testing utilities for gofaiss.
//
// This package is intended for use in tests only. It provides seeded vector
// generators, a small reference data set and exact nearest neighbors for
// verifying search results.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	data := rng.Uniform(n, d)   // n row-major vectors in [0, 1)
//	unit := rng.Gaussian(n, d)  // L2-normalized
//
// # Ground Truth
//
//	labels := testutil.ExactL2(query, data, d, k)
//	recall := testutil.ComputeRecall(labels, approx)
package testutil
