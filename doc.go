// Package gofaiss provides typed, ownership-correct Go handles over the FAISS
// C API (libfaiss_c).
//
// The root package holds the Runtime every handle belongs to, together with
// the error taxonomy, logging and metrics. Index and transform handles live in
// the index and transform packages.
//
// # Quick Start
//
//	rt, err := gofaiss.Open() // finds libfaiss_c, or set FAISS_C_LIBRARY
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	pca, _ := transform.NewPCAMatrix(rt, 128, 32, 0, false)
//	flat, _ := index.NewFlatL2(rt, 32)
//
//	// pca and flat now belong to idx.
//	idx, err := index.NewPreTransform(pca, flat)
//	if err != nil {
//	    // Construction failed: pca and flat are still ours.
//	    pca.Close()
//	    flat.Close()
//	    return err
//	}
//	defer idx.Close()
//
//	_ = idx.Train(data)
//	_ = idx.Add(data)
//	res, _ := idx.Search(query, 10)
//
// # Ownership
//
// Every native object has exactly one owning handle. Composite constructors
// take ownership of their children on success only; on failure the caller
// still owns them. Casts move ownership between handle types; a rejected cast
// leaves the source untouched. Close frees the object exactly once.
//
// # Errors
//
//   - *ConstructionError: a composite could not be built
//   - *OperationError: train, add, search, reset or prepend failed
//   - *BadCastError: matches ErrBadCast
//
// A constructor reporting success with a null pointer panics with
// *InvariantError.
package gofaiss
