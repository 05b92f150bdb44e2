package index

import (
	"context"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/internal/handle"
	"github.com/hupe1980/gofaiss/native"
)

// downcast checks the native dynamic type of src and, on a match, moves its
// ownership into a handle of kind to. On a mismatch src is left untouched.
func downcast(src *handle.Handle, to handle.Kind, cast func(native.Ptr) native.Ptr, free handle.FreeFunc) (*handle.Handle, error) {
	rt := src.Runtime()
	from := src.Kind().String()

	defer src.KeepAlive()
	p, err := src.Ptr()
	if err != nil {
		return nil, gofaiss.OpError("cast", from, err)
	}

	cp := cast(p)
	if cp.IsNull() {
		err := &gofaiss.BadCastError{From: from, To: to.String()}
		rt.Metrics().RecordCast(from, to.String(), err)
		rt.Logger().LogCast(context.Background(), from, to.String(), err)
		return nil, err
	}

	h, err := src.MoveAs(to, cp, free)
	if err != nil {
		return nil, gofaiss.OpError("cast", from, err)
	}
	rt.Metrics().RecordCast(from, to.String(), nil)
	rt.Logger().LogCast(context.Background(), from, to.String(), nil)
	return h, nil
}
