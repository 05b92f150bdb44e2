package gofaiss

import (
	"errors"
	"fmt"

	"github.com/hupe1980/gofaiss/internal/resource"
	"github.com/hupe1980/gofaiss/native"
)

var (
	// ErrBadCast is matched by every *BadCastError.
	ErrBadCast = errors.New("bad cast")

	// ErrReleased is returned when a handle was closed or its ownership moved.
	ErrReleased = errors.New("handle released")

	// ErrNotOwner is returned when ownership is requested from a handle that
	// only views its native object.
	ErrNotOwner = errors.New("handle does not own its native object")

	// ErrNotConcurrent is returned when a concurrent view is requested for an
	// index whose type does not support shared searches.
	ErrNotConcurrent = errors.New("index does not support concurrent search")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrRuntimeMismatch is returned when composing handles from different runtimes.
	ErrRuntimeMismatch = errors.New("handles belong to different runtimes")

	// ErrNotTrained is returned when a transform is applied before training.
	ErrNotTrained = errors.New("not trained")

	// ErrLibraryNotFound is returned when no libfaiss_c could be located.
	ErrLibraryNotFound = native.ErrLibraryNotFound

	// ErrMemoryLimitExceeded is returned when accounted bytes would exceed the
	// runtime's memory limit.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

// ConstructionError reports a failed native constructor. Children passed to
// the constructor are still owned by the caller.
type ConstructionError struct {
	Op      string
	Status  native.Status
	Message string
}

func (e *ConstructionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("construct %s: %s", e.Op, e.Status)
	}
	return fmt.Sprintf("construct %s: %s: %s", e.Op, e.Status, e.Message)
}

// OperationError reports a failed operation on a live handle. The handle stays
// valid.
//
// Validation failures detected before the native call carry the reason in
// the wrapped error and a zero Status.
type OperationError struct {
	Op      string
	Kind    string
	Status  native.Status
	Message string
	cause   error
}

func (e *OperationError) Error() string {
	switch {
	case e.cause != nil:
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.cause)
	case e.Message != "":
		return fmt.Sprintf("%s %s: %s: %s", e.Kind, e.Op, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s %s: %s", e.Kind, e.Op, e.Status)
	}
}

func (e *OperationError) Unwrap() error { return e.cause }

// BadCastError indicates that a handle's native dynamic type does not match
// the requested type. The source handle is left untouched.
type BadCastError struct {
	From string
	To   string
}

func (e *BadCastError) Error() string {
	return fmt.Sprintf("bad cast: %s is not a %s", e.From, e.To)
}

func (e *BadCastError) Is(target error) bool { return target == ErrBadCast }

// DimensionMismatchError indicates an input whose length is not a positive
// multiple of the index dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: %d values is not a positive multiple of d=%d", e.Actual, e.Expected)
}

// InvariantError describes a broken contract with the native library, such as
// a constructor reporting success while returning a null pointer. It is only
// ever panicked.
type InvariantError struct {
	Op      string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s: %s", e.Op, e.Message)
}

// Invariant panics with an *InvariantError.
func Invariant(op, msg string) {
	panic(&InvariantError{Op: op, Message: msg})
}

// OpError wraps a validation or resource failure of op on a handle of kind.
func OpError(op, kind string, cause error) error {
	if cause == nil {
		return nil
	}
	var oe *OperationError
	if errors.As(cause, &oe) {
		return cause
	}
	return &OperationError{Op: op, Kind: kind, cause: cause}
}

// CheckConstruction translates the status of a native constructor.
func (r *Runtime) CheckConstruction(op string, st native.Status) error {
	if st.OK() {
		return nil
	}
	return &ConstructionError{Op: op, Status: st, Message: r.lib.LastError()}
}

// Check translates the status of a native operation on a handle of kind.
func (r *Runtime) Check(op, kind string, st native.Status) error {
	if st.OK() {
		return nil
	}
	return &OperationError{Op: op, Kind: kind, Status: st, Message: r.lib.LastError()}
}
