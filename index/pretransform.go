package index

import (
	"context"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/internal/handle"
	"github.com/hupe1980/gofaiss/native"
	"github.com/hupe1980/gofaiss/transform"
)

// PreTransform applies a chain of vector transforms to every input before
// handing it to a wrapped index of type I. Labels and distances come from the
// wrapped index unchanged.
//
// I records the wrapped type only; concurrent search and the CPU marker are
// derived from it.
type PreTransform[I Index] struct {
	base
}

var _ Index = (*PreTransform[*Flat])(nil)

// NewPreTransform wraps sub behind lt and takes ownership of both.
//
// If the native constructor fails (for example lt.DOut() != sub.D()) a
// *gofaiss.ConstructionError is returned and the caller still owns lt and sub.
func NewPreTransform[I Index](lt transform.VectorTransform, sub I) (*PreTransform[I], error) {
	lth, subh := lt.NativeHandle(), sub.NativeHandle()
	rt := subh.Runtime()
	lib := rt.Library()

	h, err := compose(rt, composition{
		kind: handle.KindPreTransform,
		free: lib.IndexPreTransformFree,
		build: func(c []native.Ptr) (native.Ptr, native.Status) {
			return lib.IndexPreTransformNewWithTransform(c[0], c[1])
		},
		setOwn: lib.IndexPreTransformSetOwnFields,
	}, lth, subh)
	if err != nil {
		return nil, err
	}
	return &PreTransform[I]{base{h: h}}, nil
}

// SupportsConcurrentSearch implements Index. It holds when I supports it.
func (*PreTransform[I]) SupportsConcurrentSearch() bool { return supportsConcurrent[I]() }

// OnCPU implements Index. It holds when I is on the CPU.
func (*PreTransform[I]) OnCPU() bool { return onCPU[I]() }

// PrependTransform puts lt in front of the chain, so it is applied first, and
// takes ownership of it. lt.DOut() must equal the current D().
//
// On failure an error is returned and the caller still owns lt.
func (p *PreTransform[I]) PrependTransform(lt transform.VectorTransform) error {
	const op = "prepend_transform"
	kind := p.kind()
	defer p.h.KeepAlive()

	self, err := p.h.Ptr()
	if err != nil {
		return gofaiss.OpError(op, kind, err)
	}
	lth := lt.NativeHandle()
	defer lth.KeepAlive()
	ltp, err := lth.Ptr()
	if err != nil {
		return gofaiss.OpError(op, kind, err)
	}
	switch {
	case !lth.Owned():
		return gofaiss.OpError(op, kind, gofaiss.ErrNotOwner)
	case lth.Runtime() != p.rt():
		return gofaiss.OpError(op, kind, gofaiss.ErrRuntimeMismatch)
	case !p.OwnsChildren():
		// The chain would never free lt.
		return gofaiss.OpError(op, kind, gofaiss.ErrNotOwner)
	}

	rt := p.rt()
	err = rt.Check(op, kind, p.lib().IndexPreTransformPrependTransform(self, ltp))
	rt.Logger().LogOperation(context.Background(), op, kind, 1, err)
	if err != nil {
		return err
	}
	handle.Adopt(p.h, lth)
	return nil
}

// OwnsChildren reports whether freeing the index frees its transforms and
// wrapped index.
func (p *PreTransform[I]) OwnsChildren() bool {
	defer p.h.KeepAlive()
	self, err := p.h.Ptr()
	if err != nil {
		return false
	}
	return p.lib().IndexPreTransformOwnFields(self)
}

// Upcast moves ownership into a generic handle. p is released.
func (p *PreTransform[I]) Upcast() *IndexImpl { return upcast(p.h) }

// AsIndex returns a non-owning generic view of p.
func (p *PreTransform[I]) AsIndex() *IndexImpl { return &IndexImpl{base{h: p.h.View()}} }

// TryClone returns an independent deep copy owning copies of every child.
func (p *PreTransform[I]) TryClone() (*PreTransform[I], error) {
	h, err := cloneHandle(p.h, handle.KindPreTransform, p.lib().IndexPreTransformFree)
	if err != nil {
		return nil, err
	}
	return &PreTransform[I]{base{h: h}}, nil
}

// IntoPreTransform downcasts x. On a type mismatch it returns a
// *gofaiss.BadCastError and x keeps ownership.
func IntoPreTransform(x *IndexImpl) (*PreTransform[*IndexImpl], error) {
	lib := x.lib()
	h, err := downcast(x.h, handle.KindPreTransform, lib.IndexPreTransformCast, lib.IndexPreTransformFree)
	if err != nil {
		return nil, err
	}
	p := &PreTransform[*IndexImpl]{base{h: h}}
	if !p.OwnsChildren() {
		p.rt().Logger().LogNonOwning(context.Background(), p.kind())
	}
	return p, nil
}
