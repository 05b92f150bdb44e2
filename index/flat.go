package index

import (
	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/internal/handle"
)

// Flat stores vectors as-is and searches them exhaustively.
type Flat struct {
	base
}

var (
	_ Index           = (*Flat)(nil)
	_ ConcurrentIndex = (*Flat)(nil)
)

// NewFlat creates an empty flat index of dimension d.
func NewFlat(rt *gofaiss.Runtime, d int, metric MetricType) (*Flat, error) {
	lib := rt.Library()
	p, st := lib.IndexFlatNew(int64(d), metric)
	if err := rt.CheckConstruction(handle.KindFlat.String(), st); err != nil {
		return nil, err
	}
	return &Flat{base{h: handle.New(rt, p, handle.KindFlat, lib.IndexFree)}}, nil
}

// NewFlatL2 creates an empty flat index using squared L2 distance.
func NewFlatL2(rt *gofaiss.Runtime, d int) (*Flat, error) {
	return NewFlat(rt, d, MetricL2)
}

// NewFlatIP creates an empty flat index using inner product.
func NewFlatIP(rt *gofaiss.Runtime, d int) (*Flat, error) {
	return NewFlat(rt, d, MetricInnerProduct)
}

// SupportsConcurrentSearch implements Index.
func (*Flat) SupportsConcurrentSearch() bool { return true }

// OnCPU implements Index.
func (*Flat) OnCPU() bool { return true }

// SearchShared implements ConcurrentIndex.
func (f *Flat) SearchShared(query []float32, k int) (SearchResult, error) {
	return f.search(query, k)
}

// Upcast moves ownership into a generic handle. f is released.
func (f *Flat) Upcast() *IndexImpl { return upcast(f.h) }

// AsIndex returns a non-owning generic view of f.
func (f *Flat) AsIndex() *IndexImpl { return &IndexImpl{base{h: f.h.View()}} }

// TryClone returns an independent deep copy.
func (f *Flat) TryClone() (*Flat, error) {
	h, err := cloneHandle(f.h, handle.KindFlat, f.lib().IndexFree)
	if err != nil {
		return nil, err
	}
	return &Flat{base{h: h}}, nil
}

// IntoFlat downcasts x. On a type mismatch it returns a *gofaiss.BadCastError
// and x keeps ownership.
func IntoFlat(x *IndexImpl) (*Flat, error) {
	lib := x.lib()
	h, err := downcast(x.h, handle.KindFlat, lib.IndexFlatCast, lib.IndexFree)
	if err != nil {
		return nil, err
	}
	return &Flat{base{h: h}}, nil
}
