// Package index provides typed handles to native FAISS indexes and the
// composites built from them.
//
// # Leaves and composites
//
//	flat, _ := index.NewFlatL2(rt, 32)           // *Flat
//	pca, _ := transform.NewPCAMatrix(rt, 128, 32, 0, false)
//	pt, err := index.NewPreTransform(pca, flat)  // *PreTransform[*Flat]
//	rf, err := index.NewRefineFlat(pt)           // *RefineFlat[*PreTransform[*Flat]]
//
// Composite constructors take ownership of their arguments only when they
// succeed. Closing the outermost handle frees the whole tree.
//
// # Casts
//
// Upcast turns any typed handle into an *IndexImpl without a native call.
// IntoFlat, IntoPreTransform and IntoRefineFlat check the native dynamic type
// and fail with a *gofaiss.BadCastError, leaving the source usable, when it
// does not match.
//
// # Concurrency
//
// Mutating calls need exclusive access. Searches may run in parallel only
// through a ConcurrentIndex. *Flat is one; a composite is one when its type
// parameter is, via Concurrent:
//
//	ci, err := index.Concurrent(pt) // ok for *PreTransform[*Flat]
//	res, err := index.ParallelSearch(ctx, pt, queries, 10)
package index
