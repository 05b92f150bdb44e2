package handle

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/native"
)

// Kind names the static type a handle was created or cast as.
type Kind string

// Handle kinds.
const (
	KindIndex           Kind = "Index"
	KindFlat            Kind = "IndexFlat"
	KindPreTransform    Kind = "IndexPreTransform"
	KindRefineFlat      Kind = "IndexRefineFlat"
	KindVectorTransform Kind = "VectorTransform"
	KindPCAMatrix       Kind = "PCAMatrix"
)

func (k Kind) String() string { return string(k) }

// FreeFunc releases a native object of one kind.
type FreeFunc func(native.Ptr)

// state is shared by the owner of a native object and its views. It never
// references a Handle, so the leak cleanup can run once the owner is
// unreachable.
type state struct {
	rt    *gofaiss.Runtime
	ptr   native.Ptr
	kind  Kind
	free  FreeFunc
	bytes atomic.Int64
	freed atomic.Bool
	// adopted is set once a native parent owns the object. Every handle
	// sharing the state is released from then on.
	adopted atomic.Bool
}

func (s *state) live() bool { return !s.freed.Load() && !s.adopted.Load() }

func (s *state) release() {
	s.freed.Store(true)
	s.free(s.ptr)
	s.rt.ReleaseMemory(s.bytes.Swap(0))
	s.rt.Metrics().RecordFree(string(s.kind))
}

func reclaim(s *state) {
	if !s.live() {
		return
	}
	s.rt.Logger().LogLeak(context.Background(), string(s.kind), uintptr(s.ptr))
	s.release()
}

// Handle owns, or views, exactly one native object.
//
// An owning handle frees its object on Close. Ownership can be moved to a new
// handle (Move) or handed to a composite parent (Adopt); either way the
// source handle is released afterwards and its operations fail with
// gofaiss.ErrReleased. A Handle must not be closed or moved concurrently with
// other calls.
type Handle struct {
	rt      *gofaiss.Runtime
	kind    Kind
	st      *state
	owned   bool
	cleanup runtime.Cleanup
}

// New takes ownership of ptr. A null ptr panics with *gofaiss.InvariantError:
// the native call that produced it reported success.
func New(rt *gofaiss.Runtime, ptr native.Ptr, kind Kind, free FreeFunc) *Handle {
	if ptr.IsNull() {
		gofaiss.Invariant("new "+string(kind), "native call succeeded but returned a null pointer")
	}
	st := &state{rt: rt, ptr: ptr, kind: kind, free: free}
	return own(rt, kind, st)
}

func own(rt *gofaiss.Runtime, kind Kind, st *state) *Handle {
	h := &Handle{rt: rt, kind: kind, st: st, owned: true}
	h.cleanup = runtime.AddCleanup(h, reclaim, st)
	return h
}

// Runtime returns the runtime the object belongs to.
func (h *Handle) Runtime() *gofaiss.Runtime { return h.rt }

// Kind returns the handle kind.
func (h *Handle) Kind() Kind { return h.kind }

// Owned reports whether h frees the object on Close.
func (h *Handle) Owned() bool { return h.owned }

// Valid reports whether the object can still be used through h.
func (h *Handle) Valid() bool {
	return h != nil && h.st != nil && h.st.live()
}

// KeepAlive keeps h reachable, and with it the object, until the call.
// Defer it in any method that hands a pointer read from h to the native
// library, or the leak cleanup may free the object mid-call.
func (h *Handle) KeepAlive() { runtime.KeepAlive(h) }

// Ptr returns the native pointer, or gofaiss.ErrReleased.
func (h *Handle) Ptr() (native.Ptr, error) {
	if !h.Valid() {
		return 0, gofaiss.ErrReleased
	}
	return h.st.ptr, nil
}

// View returns a non-owning handle to the same object. Closing a view is a
// no-op; a view must not outlive the owner.
func (h *Handle) View() *Handle {
	return &Handle{rt: h.rt, kind: h.kind, st: h.st}
}

// Move transfers ownership into a new handle of the given kind and releases
// h. Moving a view yields a view.
func (h *Handle) Move(kind Kind, free FreeFunc) (*Handle, error) {
	if !h.Valid() {
		return nil, gofaiss.ErrReleased
	}
	return h.MoveAs(kind, h.st.ptr, free)
}

// MoveAs is Move for a cast that may yield a different address for the same
// object. ptr replaces the address for every handle sharing the object.
func (h *Handle) MoveAs(kind Kind, ptr native.Ptr, free FreeFunc) (*Handle, error) {
	if !h.Valid() {
		return nil, gofaiss.ErrReleased
	}
	if ptr.IsNull() {
		gofaiss.Invariant("move "+string(kind), "cast succeeded but returned a null pointer")
	}
	st := h.st
	st.ptr = ptr
	if !h.owned {
		h.st = nil
		return &Handle{rt: h.rt, kind: kind, st: st}, nil
	}

	h.cleanup.Stop()
	h.st = nil
	st.kind = kind
	st.free = free
	return own(h.rt, kind, st), nil
}

// Adopt releases children after a native parent took ownership of them.
// Views taken from a child earlier are released too. Accounted bytes move to
// parent.
func Adopt(parent *Handle, children ...*Handle) {
	for _, c := range children {
		if c.owned {
			c.cleanup.Stop()
		}
		c.st.adopted.Store(true)
		parent.st.bytes.Add(c.st.bytes.Swap(0))
		c.st = nil
	}
}

// Account adds bytes already reserved on the runtime to the object.
func (h *Handle) Account(bytes int64) {
	if h.Valid() {
		h.st.bytes.Add(bytes)
	}
}

// ReleaseAccounted returns all bytes accounted to the object to the runtime.
func (h *Handle) ReleaseAccounted() {
	if h.Valid() {
		h.rt.ReleaseMemory(h.st.bytes.Swap(0))
	}
}

// Accounted returns the bytes accounted to the object.
func (h *Handle) Accounted() int64 {
	if !h.Valid() {
		return 0
	}
	return h.st.bytes.Load()
}

// Close frees the object if h owns it. Calling Close more than once is a no-op.
func (h *Handle) Close() error {
	if h == nil || h.st == nil {
		return nil
	}
	st := h.st
	h.st = nil
	if !h.owned || !st.live() {
		return nil
	}

	h.cleanup.Stop()
	st.release()
	h.rt.Logger().LogFree(context.Background(), string(st.kind), uintptr(st.ptr))
	return nil
}
