package native

import "fmt"

// Ptr is an opaque pointer to an object owned by the native library.
// The zero value is the null pointer.
type Ptr uintptr

// IsNull reports whether p is the null pointer.
func (p Ptr) IsNull() bool { return p == 0 }

// Status is the return code of a fallible native call. Zero means success.
type Status int32

// Status codes returned by the FAISS C API.
const (
	StatusOK               Status = 0
	StatusFaissException   Status = -1
	StatusStdException     Status = -2
	StatusUnknownException Status = -4
)

// OK reports whether s signals success.
func (s Status) OK() bool { return s == StatusOK }

// String returns a string representation of the Status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFaissException:
		return "faiss exception"
	case StatusStdException:
		return "std exception"
	case StatusUnknownException:
		return "unknown exception"
	default:
		return fmt.Sprintf("status %d", int32(s))
	}
}

// MetricType mirrors the native metric enumeration.
type MetricType int32

// Metric types understood by the native library.
const (
	MetricInnerProduct MetricType = 0
	MetricL2           MetricType = 1
)

// String returns a string representation of the MetricType.
func (m MetricType) String() string {
	switch m {
	case MetricInnerProduct:
		return "InnerProduct"
	case MetricL2:
		return "L2"
	default:
		return "Unknown"
	}
}

// Library is the subset of the FAISS C API this module drives.
//
// Every method maps to one C entrypoint. Slices stand in for (pointer, length)
// pairs; the callee never retains them past the call. Constructors return the
// new object and the call status; a failed constructor returns a null pointer.
// Cast functions return the null pointer when the dynamic type does not match.
type Library interface {
	// LastError returns the message of the last failed call on this thread.
	LastError() string

	IndexFree(idx Ptr)
	IndexD(idx Ptr) int
	IndexIsTrained(idx Ptr) bool
	IndexNTotal(idx Ptr) int64
	IndexMetricType(idx Ptr) MetricType
	IndexTrain(idx Ptr, n int64, x []float32) Status
	IndexAdd(idx Ptr, n int64, x []float32) Status
	IndexSearch(idx Ptr, n int64, x []float32, k int64, distances []float32, labels []int64) Status
	IndexReset(idx Ptr) Status
	CloneIndex(idx Ptr) (Ptr, Status)
	IndexFactory(d int, description string, metric MetricType) (Ptr, Status)

	IndexFlatNew(d int64, metric MetricType) (Ptr, Status)
	IndexFlatCast(idx Ptr) Ptr

	IndexPreTransformNewWithTransform(lt, sub Ptr) (Ptr, Status)
	IndexPreTransformPrependTransform(idx, lt Ptr) Status
	IndexPreTransformOwnFields(idx Ptr) bool
	IndexPreTransformSetOwnFields(idx Ptr, own bool)
	IndexPreTransformCast(idx Ptr) Ptr
	IndexPreTransformFree(idx Ptr)

	IndexRefineFlatNew(base Ptr) (Ptr, Status)
	IndexRefineFlatOwnFields(idx Ptr) bool
	IndexRefineFlatSetOwnFields(idx Ptr, own bool)
	IndexRefineFlatKFactor(idx Ptr) float32
	IndexRefineFlatSetKFactor(idx Ptr, kFactor float32)
	IndexRefineFlatCast(idx Ptr) Ptr
	IndexRefineFlatFree(idx Ptr)

	VectorTransformFree(vt Ptr)
	VectorTransformDIn(vt Ptr) int
	VectorTransformDOut(vt Ptr) int
	VectorTransformIsTrained(vt Ptr) bool
	VectorTransformTrain(vt Ptr, n int64, x []float32) Status
	// VectorTransformApply writes n transformed vectors into xt. The C entrypoint
	// cannot report failure; callers validate before calling.
	VectorTransformApply(vt Ptr, n int64, x, xt []float32)

	PCAMatrixNew(dIn, dOut int, eigenPower float32, randomRotation bool) (Ptr, Status)
}
