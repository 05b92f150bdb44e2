// Package native describes the FAISS C API surface this module consumes and
// loads it at runtime.
//
// # Library
//
// Library is a Go rendition of the handful of libfaiss_c entrypoints the
// composition layer needs: generic index operations, the flat, pre-transform
// and refine-flat variants, vector transforms, dynamic casts and cloning.
// Pointers are opaque (Ptr) and every fallible call returns a Status.
//
// # Loading
//
// Dylib binds the entrypoints with purego, so building does not need cgo:
//
//	lib, err := native.Load() // honours FAISS_C_LIBRARY, then system paths
//	if err != nil {
//	    return err
//	}
//	defer lib.Close()
//
// On amd64, AVX512 and AVX2 builds (libfaiss_c_avx512, libfaiss_c_avx2) are
// preferred when the CPU supports them. Loading needs dlopen, so Open always
// fails with ErrLibraryNotFound on Windows.
//
// Nothing in this package tracks ownership. See the index package.
package native
