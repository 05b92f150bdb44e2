package index

import (
	"context"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/internal/handle"
	"github.com/hupe1980/gofaiss/native"
)

// RefineFlat searches a base index of type I for k*KFactor() candidates and
// re-ranks them with exact distances. The base must be empty when wrapped;
// added vectors go to both the base and the exact store.
type RefineFlat[I Index] struct {
	base
}

var _ Index = (*RefineFlat[*Flat])(nil)

// NewRefineFlat wraps the base index b and takes ownership of it. KFactor starts at 1.
//
// If the native constructor fails (for example because base already holds
// vectors) a *gofaiss.ConstructionError is returned and the caller still owns
// b.
func NewRefineFlat[I Index](b I) (*RefineFlat[I], error) {
	bh := b.NativeHandle()
	rt := bh.Runtime()
	lib := rt.Library()

	h, err := compose(rt, composition{
		kind: handle.KindRefineFlat,
		free: lib.IndexRefineFlatFree,
		build: func(c []native.Ptr) (native.Ptr, native.Status) {
			return lib.IndexRefineFlatNew(c[0])
		},
		setOwn: lib.IndexRefineFlatSetOwnFields,
	}, bh)
	if err != nil {
		return nil, err
	}
	return newRefineFlat[I](h), nil
}

func newRefineFlat[I Index](h *handle.Handle) *RefineFlat[I] {
	return &RefineFlat[I]{base{h: h}}
}

// SupportsConcurrentSearch implements Index. It holds when I supports it.
func (*RefineFlat[I]) SupportsConcurrentSearch() bool { return supportsConcurrent[I]() }

// OnCPU implements Index. It holds when I is on the CPU.
func (*RefineFlat[I]) OnCPU() bool { return onCPU[I]() }

// KFactor returns the candidate multiplier, or 0 once released.
func (r *RefineFlat[I]) KFactor() float32 {
	defer r.h.KeepAlive()
	self, err := r.h.Ptr()
	if err != nil {
		return 0
	}
	return r.lib().IndexRefineFlatKFactor(self)
}

// SetKFactor sets the candidate multiplier. Values are not validated here;
// the native search rejects factors that yield fewer than k candidates.
func (r *RefineFlat[I]) SetKFactor(kFactor float32) error {
	defer r.h.KeepAlive()
	self, err := r.h.Ptr()
	if err != nil {
		return gofaiss.OpError("set_k_factor", r.kind(), err)
	}
	r.lib().IndexRefineFlatSetKFactor(self, kFactor)
	return nil
}

// OwnsChildren reports whether freeing the index frees its base.
func (r *RefineFlat[I]) OwnsChildren() bool {
	defer r.h.KeepAlive()
	self, err := r.h.Ptr()
	if err != nil {
		return false
	}
	return r.lib().IndexRefineFlatOwnFields(self)
}

// Upcast moves ownership into a generic handle. r is released.
func (r *RefineFlat[I]) Upcast() *IndexImpl { return upcast(r.h) }

// AsIndex returns a non-owning generic view of r.
func (r *RefineFlat[I]) AsIndex() *IndexImpl { return &IndexImpl{base{h: r.h.View()}} }

// TryClone returns an independent deep copy owning a copy of the base.
func (r *RefineFlat[I]) TryClone() (*RefineFlat[I], error) {
	h, err := cloneHandle(r.h, handle.KindRefineFlat, r.lib().IndexRefineFlatFree)
	if err != nil {
		return nil, err
	}
	return newRefineFlat[I](h), nil
}

// IntoRefineFlat downcasts x. On a type mismatch it returns a
// *gofaiss.BadCastError and x keeps ownership.
func IntoRefineFlat(x *IndexImpl) (*RefineFlat[*IndexImpl], error) {
	lib := x.lib()
	h, err := downcast(x.h, handle.KindRefineFlat, lib.IndexRefineFlatCast, lib.IndexRefineFlatFree)
	if err != nil {
		return nil, err
	}
	r := newRefineFlat[*IndexImpl](h)
	if !r.OwnsChildren() {
		r.rt().Logger().LogNonOwning(context.Background(), r.kind())
	}
	return r, nil
}
