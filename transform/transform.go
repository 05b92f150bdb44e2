package transform

import (
	"context"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/internal/handle"
)

// VectorTransform is a trainable mapping from DIn to DOut dimensions.
//
// Passing a VectorTransform to a composite constructor transfers its
// ownership; afterwards its methods fail with gofaiss.ErrReleased.
type VectorTransform interface {
	DIn() int
	DOut() int
	IsTrained() bool
	Train(x []float32) error
	Apply(x []float32) ([]float32, error)
	Close() error
	NativeHandle() *handle.Handle
}

// PCAMatrix reduces dimensionality with principal component analysis.
type PCAMatrix struct {
	h *handle.Handle
}

var _ VectorTransform = (*PCAMatrix)(nil)

// NewPCAMatrix creates an untrained PCA transform from dIn to dOut dimensions.
// eigenPower scales each component by its eigenvalue raised to that power
// (0 disables whitening); randomRotation applies a random rotation after the
// projection.
func NewPCAMatrix(rt *gofaiss.Runtime, dIn, dOut int, eigenPower float32, randomRotation bool) (*PCAMatrix, error) {
	lib := rt.Library()
	p, st := lib.PCAMatrixNew(dIn, dOut, eigenPower, randomRotation)
	if err := rt.CheckConstruction(string(handle.KindPCAMatrix), st); err != nil {
		return nil, err
	}
	return &PCAMatrix{h: handle.New(rt, p, handle.KindPCAMatrix, lib.VectorTransformFree)}, nil
}

// NativeHandle returns the underlying handle.
func (m *PCAMatrix) NativeHandle() *handle.Handle { return m.h }

// DIn returns the input dimension, or 0 once released.
func (m *PCAMatrix) DIn() int {
	defer m.h.KeepAlive()
	p, err := m.h.Ptr()
	if err != nil {
		return 0
	}
	return m.h.Runtime().Library().VectorTransformDIn(p)
}

// DOut returns the output dimension, or 0 once released.
func (m *PCAMatrix) DOut() int {
	defer m.h.KeepAlive()
	p, err := m.h.Ptr()
	if err != nil {
		return 0
	}
	return m.h.Runtime().Library().VectorTransformDOut(p)
}

// IsTrained reports whether the transform can be applied.
func (m *PCAMatrix) IsTrained() bool {
	defer m.h.KeepAlive()
	p, err := m.h.Ptr()
	if err != nil {
		return false
	}
	return m.h.Runtime().Library().VectorTransformIsTrained(p)
}

// Train fits the transform on row-major vectors of dimension DIn.
func (m *PCAMatrix) Train(x []float32) error {
	const op = "train"
	kind := m.h.Kind().String()

	defer m.h.KeepAlive()
	p, err := m.h.Ptr()
	if err != nil {
		return gofaiss.OpError(op, kind, err)
	}
	rt := m.h.Runtime()
	lib := rt.Library()
	n, err := rowCount(x, lib.VectorTransformDIn(p))
	if err != nil {
		return gofaiss.OpError(op, kind, err)
	}

	err = rt.Check(op, kind, lib.VectorTransformTrain(p, int64(n), x))
	rt.Logger().LogOperation(context.Background(), op, kind, n, err)
	return err
}

// Apply maps row-major vectors of dimension DIn to dimension DOut.
// The transform must be trained.
func (m *PCAMatrix) Apply(x []float32) ([]float32, error) {
	const op = "apply"
	kind := m.h.Kind().String()

	defer m.h.KeepAlive()
	p, err := m.h.Ptr()
	if err != nil {
		return nil, gofaiss.OpError(op, kind, err)
	}
	lib := m.h.Runtime().Library()
	n, err := rowCount(x, lib.VectorTransformDIn(p))
	if err != nil {
		return nil, gofaiss.OpError(op, kind, err)
	}
	if !lib.VectorTransformIsTrained(p) {
		return nil, gofaiss.OpError(op, kind, gofaiss.ErrNotTrained)
	}

	out := make([]float32, n*lib.VectorTransformDOut(p))
	lib.VectorTransformApply(p, int64(n), x, out)
	return out, nil
}

// Close frees the transform. It is a no-op after ownership moved to a
// composite index.
func (m *PCAMatrix) Close() error { return m.h.Close() }

func rowCount(x []float32, d int) (int, error) {
	if d <= 0 || len(x) == 0 || len(x)%d != 0 {
		return 0, &gofaiss.DimensionMismatchError{Expected: d, Actual: len(x)}
	}
	return len(x) / d, nil
}
