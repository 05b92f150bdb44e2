//go:build !windows

package native

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

// Dylib is a Library backed by a dynamically loaded libfaiss_c.
// It binds the C entrypoints with purego, so no cgo toolchain is required.
type Dylib struct {
	path   string
	handle uintptr

	closeOnce sync.Once
	closeErr  error

	faissGetLastError func() string

	faissIndexFree        func(uintptr)
	faissIndexD           func(uintptr) int32
	faissIndexIsTrained   func(uintptr) int32
	faissIndexNTotal      func(uintptr) int64
	faissIndexMetricType  func(uintptr) int32
	faissIndexTrain       func(uintptr, int64, []float32) int32
	faissIndexAdd         func(uintptr, int64, []float32) int32
	faissIndexSearch      func(uintptr, int64, []float32, int64, []float32, []int64) int32
	faissIndexReset       func(uintptr) int32
	faissCloneIndex       func(uintptr, *uintptr) int32
	faissIndexFactory     func(*uintptr, int32, string, int32) int32
	faissIndexFlatNewWith func(*uintptr, int64, int32) int32
	faissIndexFlatCast    func(uintptr) uintptr

	faissPreTransformNewWithTransform func(*uintptr, uintptr, uintptr) int32
	faissPreTransformPrepend          func(uintptr, uintptr) int32
	faissPreTransformOwnFields        func(uintptr) int32
	faissPreTransformSetOwnFields     func(uintptr, int32)
	faissPreTransformCast             func(uintptr) uintptr
	faissPreTransformFree             func(uintptr)

	faissRefineFlatNew          func(*uintptr, uintptr) int32
	faissRefineFlatOwnFields    func(uintptr) int32
	faissRefineFlatSetOwnFields func(uintptr, int32)
	faissRefineFlatKFactor      func(uintptr) float32
	faissRefineFlatSetKFactor   func(uintptr, float32)
	faissRefineFlatCast         func(uintptr) uintptr
	faissRefineFlatFree         func(uintptr)

	faissVectorTransformFree      func(uintptr)
	faissVectorTransformDIn       func(uintptr) int32
	faissVectorTransformDOut      func(uintptr) int32
	faissVectorTransformIsTrained func(uintptr) int32
	faissVectorTransformTrain     func(uintptr, int64, []float32) int32
	faissVectorTransformApply     func(uintptr, int64, []float32, []float32)
	faissPCAMatrixNewWith         func(*uintptr, int32, int32, float32, int32) int32
}

var _ Library = (*Dylib)(nil)

// Open loads the shared library at path and binds every entrypoint.
func Open(path string) (*Dylib, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l := &Dylib{path: path, handle: handle}
	if err := l.register(); err != nil {
		_ = purego.Dlclose(handle)
		return nil, err
	}
	return l, nil
}

// Path returns the file the library was loaded from.
func (l *Dylib) Path() string { return l.path }

// Close unloads the library. Every handle created through it must be freed first.
func (l *Dylib) Close() error {
	l.closeOnce.Do(func() {
		if err := purego.Dlclose(l.handle); err != nil {
			l.closeErr = fmt.Errorf("failed to close %s: %w", l.path, err)
		}
	})
	return l.closeErr
}

type symbol struct {
	fptr any
	name string
}

func (l *Dylib) symbols() []symbol {
	return []symbol{
		{&l.faissGetLastError, "faiss_get_last_error"},

		{&l.faissIndexFree, "faiss_Index_free"},
		{&l.faissIndexD, "faiss_Index_d"},
		{&l.faissIndexIsTrained, "faiss_Index_is_trained"},
		{&l.faissIndexNTotal, "faiss_Index_ntotal"},
		{&l.faissIndexMetricType, "faiss_Index_metric_type"},
		{&l.faissIndexTrain, "faiss_Index_train"},
		{&l.faissIndexAdd, "faiss_Index_add"},
		{&l.faissIndexSearch, "faiss_Index_search"},
		{&l.faissIndexReset, "faiss_Index_reset"},
		{&l.faissCloneIndex, "faiss_clone_index"},
		{&l.faissIndexFactory, "faiss_index_factory"},
		{&l.faissIndexFlatNewWith, "faiss_IndexFlat_new_with"},
		{&l.faissIndexFlatCast, "faiss_IndexFlat_cast"},

		{&l.faissPreTransformNewWithTransform, "faiss_IndexPreTransform_new_with_transform"},
		{&l.faissPreTransformPrepend, "faiss_IndexPreTransform_prepend_transform"},
		{&l.faissPreTransformOwnFields, "faiss_IndexPreTransform_own_fields"},
		{&l.faissPreTransformSetOwnFields, "faiss_IndexPreTransform_set_own_fields"},
		{&l.faissPreTransformCast, "faiss_IndexPreTransform_cast"},
		{&l.faissPreTransformFree, "faiss_IndexPreTransform_free"},

		{&l.faissRefineFlatNew, "faiss_IndexRefineFlat_new"},
		{&l.faissRefineFlatOwnFields, "faiss_IndexRefineFlat_own_fields"},
		{&l.faissRefineFlatSetOwnFields, "faiss_IndexRefineFlat_set_own_fields"},
		{&l.faissRefineFlatKFactor, "faiss_IndexRefineFlat_k_factor"},
		{&l.faissRefineFlatSetKFactor, "faiss_IndexRefineFlat_set_k_factor"},
		{&l.faissRefineFlatCast, "faiss_IndexRefineFlat_cast"},
		{&l.faissRefineFlatFree, "faiss_IndexRefineFlat_free"},

		{&l.faissVectorTransformFree, "faiss_VectorTransform_free"},
		{&l.faissVectorTransformDIn, "faiss_VectorTransform_d_in"},
		{&l.faissVectorTransformDOut, "faiss_VectorTransform_d_out"},
		{&l.faissVectorTransformIsTrained, "faiss_VectorTransform_is_trained"},
		{&l.faissVectorTransformTrain, "faiss_VectorTransform_train"},
		{&l.faissVectorTransformApply, "faiss_VectorTransform_apply_noalloc"},
		{&l.faissPCAMatrixNewWith, "faiss_PCAMatrix_new_with"},
	}
}

// register binds all symbols. Unlike purego.RegisterLibFunc it reports a
// missing symbol as an error instead of panicking.
func (l *Dylib) register() error {
	for _, s := range l.symbols() {
		sym, err := purego.Dlsym(l.handle, s.name)
		if err != nil {
			return fmt.Errorf("%s: missing symbol %s: %w", l.path, s.name, err)
		}
		purego.RegisterFunc(s.fptr, sym)
	}
	return nil
}

func cBool(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// LastError implements Library.
func (l *Dylib) LastError() string { return l.faissGetLastError() }

// IndexFree implements Library.
func (l *Dylib) IndexFree(idx Ptr) { l.faissIndexFree(uintptr(idx)) }

// IndexD implements Library.
func (l *Dylib) IndexD(idx Ptr) int { return int(l.faissIndexD(uintptr(idx))) }

// IndexIsTrained implements Library.
func (l *Dylib) IndexIsTrained(idx Ptr) bool { return l.faissIndexIsTrained(uintptr(idx)) != 0 }

// IndexNTotal implements Library.
func (l *Dylib) IndexNTotal(idx Ptr) int64 { return l.faissIndexNTotal(uintptr(idx)) }

// IndexMetricType implements Library.
func (l *Dylib) IndexMetricType(idx Ptr) MetricType {
	return MetricType(l.faissIndexMetricType(uintptr(idx)))
}

// IndexTrain implements Library.
func (l *Dylib) IndexTrain(idx Ptr, n int64, x []float32) Status {
	return Status(l.faissIndexTrain(uintptr(idx), n, x))
}

// IndexAdd implements Library.
func (l *Dylib) IndexAdd(idx Ptr, n int64, x []float32) Status {
	return Status(l.faissIndexAdd(uintptr(idx), n, x))
}

// IndexSearch implements Library.
func (l *Dylib) IndexSearch(idx Ptr, n int64, x []float32, k int64, distances []float32, labels []int64) Status {
	return Status(l.faissIndexSearch(uintptr(idx), n, x, k, distances, labels))
}

// IndexReset implements Library.
func (l *Dylib) IndexReset(idx Ptr) Status { return Status(l.faissIndexReset(uintptr(idx))) }

// CloneIndex implements Library.
func (l *Dylib) CloneIndex(idx Ptr) (Ptr, Status) {
	var out uintptr
	st := Status(l.faissCloneIndex(uintptr(idx), &out))
	return Ptr(out), st
}

// IndexFactory implements Library.
func (l *Dylib) IndexFactory(d int, description string, metric MetricType) (Ptr, Status) {
	var out uintptr
	st := Status(l.faissIndexFactory(&out, int32(d), description, int32(metric)))
	return Ptr(out), st
}

// IndexFlatNew implements Library.
func (l *Dylib) IndexFlatNew(d int64, metric MetricType) (Ptr, Status) {
	var out uintptr
	st := Status(l.faissIndexFlatNewWith(&out, d, int32(metric)))
	return Ptr(out), st
}

// IndexFlatCast implements Library.
func (l *Dylib) IndexFlatCast(idx Ptr) Ptr { return Ptr(l.faissIndexFlatCast(uintptr(idx))) }

// IndexPreTransformNewWithTransform implements Library.
func (l *Dylib) IndexPreTransformNewWithTransform(lt, sub Ptr) (Ptr, Status) {
	var out uintptr
	st := Status(l.faissPreTransformNewWithTransform(&out, uintptr(lt), uintptr(sub)))
	return Ptr(out), st
}

// IndexPreTransformPrependTransform implements Library.
func (l *Dylib) IndexPreTransformPrependTransform(idx, lt Ptr) Status {
	return Status(l.faissPreTransformPrepend(uintptr(idx), uintptr(lt)))
}

// IndexPreTransformOwnFields implements Library.
func (l *Dylib) IndexPreTransformOwnFields(idx Ptr) bool {
	return l.faissPreTransformOwnFields(uintptr(idx)) != 0
}

// IndexPreTransformSetOwnFields implements Library.
func (l *Dylib) IndexPreTransformSetOwnFields(idx Ptr, own bool) {
	l.faissPreTransformSetOwnFields(uintptr(idx), cBool(own))
}

// IndexPreTransformCast implements Library.
func (l *Dylib) IndexPreTransformCast(idx Ptr) Ptr {
	return Ptr(l.faissPreTransformCast(uintptr(idx)))
}

// IndexPreTransformFree implements Library.
func (l *Dylib) IndexPreTransformFree(idx Ptr) { l.faissPreTransformFree(uintptr(idx)) }

// IndexRefineFlatNew implements Library.
func (l *Dylib) IndexRefineFlatNew(base Ptr) (Ptr, Status) {
	var out uintptr
	st := Status(l.faissRefineFlatNew(&out, uintptr(base)))
	return Ptr(out), st
}

// IndexRefineFlatOwnFields implements Library.
func (l *Dylib) IndexRefineFlatOwnFields(idx Ptr) bool {
	return l.faissRefineFlatOwnFields(uintptr(idx)) != 0
}

// IndexRefineFlatSetOwnFields implements Library.
func (l *Dylib) IndexRefineFlatSetOwnFields(idx Ptr, own bool) {
	l.faissRefineFlatSetOwnFields(uintptr(idx), cBool(own))
}

// IndexRefineFlatKFactor implements Library.
func (l *Dylib) IndexRefineFlatKFactor(idx Ptr) float32 {
	return l.faissRefineFlatKFactor(uintptr(idx))
}

// IndexRefineFlatSetKFactor implements Library.
func (l *Dylib) IndexRefineFlatSetKFactor(idx Ptr, kFactor float32) {
	l.faissRefineFlatSetKFactor(uintptr(idx), kFactor)
}

// IndexRefineFlatCast implements Library.
func (l *Dylib) IndexRefineFlatCast(idx Ptr) Ptr {
	return Ptr(l.faissRefineFlatCast(uintptr(idx)))
}

// IndexRefineFlatFree implements Library.
func (l *Dylib) IndexRefineFlatFree(idx Ptr) { l.faissRefineFlatFree(uintptr(idx)) }

// VectorTransformFree implements Library.
func (l *Dylib) VectorTransformFree(vt Ptr) { l.faissVectorTransformFree(uintptr(vt)) }

// VectorTransformDIn implements Library.
func (l *Dylib) VectorTransformDIn(vt Ptr) int { return int(l.faissVectorTransformDIn(uintptr(vt))) }

// VectorTransformDOut implements Library.
func (l *Dylib) VectorTransformDOut(vt Ptr) int {
	return int(l.faissVectorTransformDOut(uintptr(vt)))
}

// VectorTransformIsTrained implements Library.
func (l *Dylib) VectorTransformIsTrained(vt Ptr) bool {
	return l.faissVectorTransformIsTrained(uintptr(vt)) != 0
}

// VectorTransformTrain implements Library.
func (l *Dylib) VectorTransformTrain(vt Ptr, n int64, x []float32) Status {
	return Status(l.faissVectorTransformTrain(uintptr(vt), n, x))
}

// VectorTransformApply implements Library.
func (l *Dylib) VectorTransformApply(vt Ptr, n int64, x, xt []float32) {
	l.faissVectorTransformApply(uintptr(vt), n, x, xt)
}

// PCAMatrixNew implements Library.
func (l *Dylib) PCAMatrixNew(dIn, dOut int, eigenPower float32, randomRotation bool) (Ptr, Status) {
	var out uintptr
	st := Status(l.faissPCAMatrixNewWith(&out, int32(dIn), int32(dOut), eigenPower, cBool(randomRotation)))
	return Ptr(out), st
}
