package memfaiss

import (
	"errors"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/gofaiss/native"
)

var (
	errNotTrained   = errors.New("index is not trained")
	errShortBuffer  = errors.New("buffer shorter than n vectors")
	errUnsupported  = errors.New("not supported by the in-process library")
	errBadDimension = errors.New("invalid dimension")
	errBadMetric    = errors.New("unsupported metric type")
)

// Library is an in-process implementation of native.Library.
//
// It keeps every object in a table keyed by pointer and records ownership
// violations (double frees, use after free, frees through the wrong type)
// instead of crashing, so tests can assert on them.
type Library struct {
	mu      sync.RWMutex
	objects map[native.Ptr]any
	next    native.Ptr
	freed   *roaring64.Bitmap
	allocs  uint64

	diagMu     sync.Mutex
	lastErr    string
	violations []string
	faults     map[string]native.Status
	nulls      map[string]bool
}

var _ native.Library = (*Library)(nil)

// New creates an empty library.
func New() *Library {
	return &Library{
		objects: make(map[native.Ptr]any),
		freed:   roaring64.New(),
		faults:  make(map[string]native.Status),
		nulls:   make(map[string]bool),
	}
}

// Fail makes every later call of op fail with st until Clear is called.
// op is the native.Library method name, for example "IndexAdd".
func (l *Library) Fail(op string, st native.Status) {
	l.diagMu.Lock()
	defer l.diagMu.Unlock()
	l.faults[op] = st
}

// ReturnNull makes the constructor op report success with a null pointer.
func (l *Library) ReturnNull(op string) {
	l.diagMu.Lock()
	defer l.diagMu.Unlock()
	l.nulls[op] = true
}

// Clear removes the faults injected for op.
func (l *Library) Clear(op string) {
	l.diagMu.Lock()
	defer l.diagMu.Unlock()
	delete(l.faults, op)
	delete(l.nulls, op)
}

// Live returns the number of objects not yet freed.
func (l *Library) Live() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.objects)
}

// Allocated returns the number of objects ever created.
func (l *Library) Allocated() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allocs
}

// Freed returns the number of objects freed.
func (l *Library) Freed() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.freed.GetCardinality()
}

// IsFreed reports whether p was allocated and freed.
func (l *Library) IsFreed(p native.Ptr) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.freed.Contains(uint64(p))
}

// Violations returns the ownership violations observed so far.
func (l *Library) Violations() []string {
	l.diagMu.Lock()
	defer l.diagMu.Unlock()
	return append([]string(nil), l.violations...)
}

// LastError implements native.Library.
func (l *Library) LastError() string {
	l.diagMu.Lock()
	defer l.diagMu.Unlock()
	return l.lastErr
}

func (l *Library) violate(format string, args ...any) {
	l.diagMu.Lock()
	defer l.diagMu.Unlock()
	l.violations = append(l.violations, fmt.Sprintf(format, args...))
}

func (l *Library) status(err error) native.Status {
	if err == nil {
		return native.StatusOK
	}
	l.diagMu.Lock()
	defer l.diagMu.Unlock()
	l.lastErr = err.Error()
	return native.StatusFaissException
}

// injected returns the fault configured for op, if any.
func (l *Library) injected(op string) (native.Status, bool) {
	l.diagMu.Lock()
	defer l.diagMu.Unlock()
	if l.nulls[op] {
		return native.StatusOK, true
	}
	if st, ok := l.faults[op]; ok {
		l.lastErr = "injected failure in " + op
		return st, true
	}
	return native.StatusOK, false
}

func (l *Library) register(obj any) native.Ptr {
	l.next++
	p := l.next
	l.objects[p] = obj
	l.allocs++
	return p
}

func (l *Library) lookup(p native.Ptr, op string) (any, bool) {
	obj, ok := l.objects[p]
	if ok {
		return obj, true
	}
	if l.freed.Contains(uint64(p)) {
		l.violate("%s: use after free of %#x", op, uintptr(p))
	} else {
		l.violate("%s: unknown pointer %#x", op, uintptr(p))
	}
	return nil, false
}

func (l *Library) index(p native.Ptr, op string) (index, bool) {
	obj, ok := l.lookup(p, op)
	if !ok {
		return nil, false
	}
	ix, ok := obj.(index)
	if !ok {
		l.violate("%s: %#x is not an index", op, uintptr(p))
	}
	return ix, ok
}

func (l *Library) transform(p native.Ptr, op string) (transform, bool) {
	obj, ok := l.lookup(p, op)
	if !ok {
		return nil, false
	}
	vt, ok := obj.(transform)
	if !ok {
		l.violate("%s: %#x is not a vector transform", op, uintptr(p))
	}
	return vt, ok
}

// free removes p and, when p owns them, its children. accept restricts the
// dynamic types the caller may free through.
func (l *Library) free(p native.Ptr, op string, accept func(any) bool) {
	obj, ok := l.objects[p]
	if !ok {
		if l.freed.Contains(uint64(p)) {
			l.violate("%s: double free of %#x", op, uintptr(p))
		} else {
			l.violate("%s: free of unknown pointer %#x", op, uintptr(p))
		}
		return
	}
	if !accept(obj) {
		l.violate("%s: %#x freed through the wrong type (%T)", op, uintptr(p), obj)
		return
	}

	delete(l.objects, p)
	l.freed.Add(uint64(p))
	if ix, ok := obj.(index); ok {
		ix.release(l)
	}
}

func anyIndex(obj any) bool {
	_, ok := obj.(index)
	return ok
}

func anyTransform(obj any) bool {
	_, ok := obj.(transform)
	return ok
}

// IndexFree implements native.Library.
func (l *Library) IndexFree(idx native.Ptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.free(idx, "IndexFree", anyIndex)
}

// IndexD implements native.Library.
func (l *Library) IndexD(idx native.Ptr) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ix, ok := l.index(idx, "IndexD")
	if !ok {
		return 0
	}
	return ix.dim()
}

// IndexIsTrained implements native.Library.
func (l *Library) IndexIsTrained(idx native.Ptr) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ix, ok := l.index(idx, "IndexIsTrained")
	return ok && ix.isTrained(l)
}

// IndexNTotal implements native.Library.
func (l *Library) IndexNTotal(idx native.Ptr) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ix, ok := l.index(idx, "IndexNTotal")
	if !ok {
		return 0
	}
	return ix.count(l)
}

// IndexMetricType implements native.Library.
func (l *Library) IndexMetricType(idx native.Ptr) native.MetricType {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ix, ok := l.index(idx, "IndexMetricType")
	if !ok {
		return native.MetricL2
	}
	return ix.metricType()
}

// IndexTrain implements native.Library.
func (l *Library) IndexTrain(idx native.Ptr, n int64, x []float32) native.Status {
	if st, ok := l.injected("IndexTrain"); ok {
		return st
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ix, ok := l.index(idx, "IndexTrain")
	if !ok {
		return native.StatusUnknownException
	}
	vecs, err := rows(x, n, ix.dim())
	if err != nil {
		return l.status(err)
	}
	return l.status(ix.train(l, int(n), vecs))
}

// IndexAdd implements native.Library.
func (l *Library) IndexAdd(idx native.Ptr, n int64, x []float32) native.Status {
	if st, ok := l.injected("IndexAdd"); ok {
		return st
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ix, ok := l.index(idx, "IndexAdd")
	if !ok {
		return native.StatusUnknownException
	}
	vecs, err := rows(x, n, ix.dim())
	if err != nil {
		return l.status(err)
	}
	return l.status(ix.add(l, int(n), vecs))
}

// IndexSearch implements native.Library.
func (l *Library) IndexSearch(idx native.Ptr, n int64, x []float32, k int64, distances []float32, labels []int64) native.Status {
	if st, ok := l.injected("IndexSearch"); ok {
		return st
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	ix, ok := l.index(idx, "IndexSearch")
	if !ok {
		return native.StatusUnknownException
	}
	queries, err := rows(x, n, ix.dim())
	if err != nil {
		return l.status(err)
	}
	if k <= 0 {
		return l.status(fmt.Errorf("invalid k %d", k))
	}
	if int64(len(distances)) < n*k || int64(len(labels)) < n*k {
		return l.status(errShortBuffer)
	}
	d, lbl, err := ix.search(l, int(n), queries, int(k))
	if err != nil {
		return l.status(err)
	}
	copy(distances, d)
	copy(labels, lbl)
	return native.StatusOK
}

// IndexReset implements native.Library.
func (l *Library) IndexReset(idx native.Ptr) native.Status {
	if st, ok := l.injected("IndexReset"); ok {
		return st
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ix, ok := l.index(idx, "IndexReset")
	if !ok {
		return native.StatusUnknownException
	}
	ix.reset(l)
	return native.StatusOK
}

// CloneIndex implements native.Library.
func (l *Library) CloneIndex(idx native.Ptr) (native.Ptr, native.Status) {
	if st, ok := l.injected("CloneIndex"); ok {
		return 0, st
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ix, ok := l.index(idx, "CloneIndex")
	if !ok {
		return 0, native.StatusUnknownException
	}
	c, err := ix.clone(l)
	if err != nil {
		return 0, l.status(err)
	}
	return l.register(c), native.StatusOK
}

// VectorTransformFree implements native.Library.
func (l *Library) VectorTransformFree(vt native.Ptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.free(vt, "VectorTransformFree", anyTransform)
}

// VectorTransformDIn implements native.Library.
func (l *Library) VectorTransformDIn(vt native.Ptr) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.transform(vt, "VectorTransformDIn")
	if !ok {
		return 0
	}
	return t.dIn()
}

// VectorTransformDOut implements native.Library.
func (l *Library) VectorTransformDOut(vt native.Ptr) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.transform(vt, "VectorTransformDOut")
	if !ok {
		return 0
	}
	return t.dOut()
}

// VectorTransformIsTrained implements native.Library.
func (l *Library) VectorTransformIsTrained(vt native.Ptr) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.transform(vt, "VectorTransformIsTrained")
	return ok && t.isTrained()
}

// VectorTransformTrain implements native.Library.
func (l *Library) VectorTransformTrain(vt native.Ptr, n int64, x []float32) native.Status {
	if st, ok := l.injected("VectorTransformTrain"); ok {
		return st
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.transform(vt, "VectorTransformTrain")
	if !ok {
		return native.StatusUnknownException
	}
	vecs, err := rows(x, n, t.dIn())
	if err != nil {
		return l.status(err)
	}
	return l.status(t.train(int(n), vecs))
}

// VectorTransformApply implements native.Library. Misuse is recorded as a
// violation since the entrypoint cannot report it.
func (l *Library) VectorTransformApply(vt native.Ptr, n int64, x, xt []float32) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.transform(vt, "VectorTransformApply")
	if !ok {
		return
	}
	vecs, err := rows(x, n, t.dIn())
	if err != nil || int64(len(xt)) < n*int64(t.dOut()) {
		l.violate("VectorTransformApply: buffers do not hold %d vectors", n)
		return
	}
	if !t.isTrained() {
		l.violate("VectorTransformApply: transform %#x is not trained", uintptr(vt))
		return
	}
	copy(xt, t.apply(int(n), vecs))
}

func rows(x []float32, n int64, d int) ([]float32, error) {
	if n < 0 || d <= 0 || int64(len(x)) < n*int64(d) {
		return nil, errShortBuffer
	}
	return x[:n*int64(d)], nil
}
