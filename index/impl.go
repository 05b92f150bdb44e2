package index

import (
	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/internal/handle"
)

// IndexImpl is a handle to an index of any native type.
//
// Its dynamic type is unknown, so it never supports concurrent search. Use
// the Into* functions to recover a typed handle.
type IndexImpl struct {
	base
}

var _ Index = (*IndexImpl)(nil)

// Factory builds an index from a FAISS factory description such as "Flat" or
// "PCA32,Flat". Parsing is done by the native library.
func Factory(rt *gofaiss.Runtime, d int, description string, metric MetricType) (*IndexImpl, error) {
	lib := rt.Library()
	p, st := lib.IndexFactory(d, description, metric)
	if err := rt.CheckConstruction("index_factory("+description+")", st); err != nil {
		return nil, err
	}
	return &IndexImpl{base{h: handle.New(rt, p, handle.KindIndex, lib.IndexFree)}}, nil
}

// SupportsConcurrentSearch implements Index.
func (*IndexImpl) SupportsConcurrentSearch() bool { return false }

// OnCPU implements Index.
func (*IndexImpl) OnCPU() bool { return true }

// TryClone returns an independent deep copy.
func (x *IndexImpl) TryClone() (*IndexImpl, error) {
	h, err := cloneHandle(x.h, handle.KindIndex, x.lib().IndexFree)
	if err != nil {
		return nil, err
	}
	return &IndexImpl{base{h: h}}, nil
}

// upcast moves ownership of h into a generic handle. The generic free honours
// the object's own ownership flags.
func upcast(h *handle.Handle) *IndexImpl {
	m, err := h.Move(handle.KindIndex, h.Runtime().Library().IndexFree)
	if err != nil {
		return &IndexImpl{base{h: h}}
	}
	return &IndexImpl{base{h: m}}
}
