package index

import (
	"context"
	"runtime"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/internal/handle"
	"github.com/hupe1980/gofaiss/native"
)

// composition describes how to build one composite kind from its children.
type composition struct {
	kind   handle.Kind
	free   handle.FreeFunc
	build  func(children []native.Ptr) (native.Ptr, native.Status)
	setOwn func(p native.Ptr, own bool)
}

// compose builds a composite and transfers ownership of children to it.
//
// Children are checked before the native call. If the native constructor
// fails the children are untouched and still owned by the caller. On success
// the composite is told to own its children and becomes their only release
// path.
func compose(rt *gofaiss.Runtime, c composition, children ...*handle.Handle) (*handle.Handle, error) {
	kind := c.kind.String()
	ctx := context.Background()

	ptrs := make([]native.Ptr, len(children))
	for i, child := range children {
		p, err := child.Ptr()
		if err != nil {
			return nil, gofaiss.OpError("compose", kind, err)
		}
		if !child.Owned() {
			return nil, gofaiss.OpError("compose", kind, gofaiss.ErrNotOwner)
		}
		if child.Runtime() != rt {
			return nil, gofaiss.OpError("compose", kind, gofaiss.ErrRuntimeMismatch)
		}
		ptrs[i] = p
	}

	defer runtime.KeepAlive(children)

	p, st := c.build(ptrs)
	if err := rt.CheckConstruction(kind, st); err != nil {
		rt.Metrics().RecordCompose(kind, err)
		rt.Logger().LogCompose(ctx, kind, len(children), err)
		return nil, err
	}

	h := handle.New(rt, p, c.kind, c.free)
	c.setOwn(p, true)
	handle.Adopt(h, children...)

	rt.Metrics().RecordCompose(kind, nil)
	rt.Logger().LogCompose(ctx, kind, len(children), nil)
	return h, nil
}
