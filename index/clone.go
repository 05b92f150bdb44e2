package index

import (
	"context"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/internal/handle"
)

// Clone returns an independent deep copy of idx as a generic handle.
func Clone(idx Index) (*IndexImpl, error) {
	h := idx.NativeHandle()
	c, err := cloneHandle(h, handle.KindIndex, h.Runtime().Library().IndexFree)
	if err != nil {
		return nil, err
	}
	return &IndexImpl{base{h: c}}, nil
}

// cloneHandle deep-copies the object behind h. The copy owns its own
// children, and the bytes accounted to h are reserved again for it.
func cloneHandle(h *handle.Handle, kind handle.Kind, free handle.FreeFunc) (*handle.Handle, error) {
	const op = "clone"
	rt := h.Runtime()
	name := h.Kind().String()
	ctx := context.Background()

	defer h.KeepAlive()
	p, err := h.Ptr()
	if err != nil {
		return nil, gofaiss.OpError(op, name, err)
	}

	cp, st := rt.Library().CloneIndex(p)
	if err := rt.Check(op, name, st); err != nil {
		rt.Metrics().RecordClone(name, err)
		rt.Logger().LogClone(ctx, name, err)
		return nil, err
	}
	c := handle.New(rt, cp, kind, free)

	bytes := h.Accounted()
	if err := rt.AcquireMemory(bytes); err != nil {
		_ = c.Close()
		err = gofaiss.OpError(op, name, err)
		rt.Metrics().RecordClone(name, err)
		rt.Logger().LogClone(ctx, name, err)
		return nil, err
	}
	c.Account(bytes)

	rt.Metrics().RecordClone(name, nil)
	rt.Logger().LogClone(ctx, name, nil)
	return c, nil
}
