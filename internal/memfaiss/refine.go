package memfaiss

import (
	"errors"
	"fmt"

	"github.com/hupe1980/gofaiss/native"
)

// refineFlat searches base for k*kFactor candidates and re-ranks them with
// exact distances held in its own flat store.
type refineFlat struct {
	base    native.Ptr
	refine  *flatIndex
	kFactor float32
	own     bool
}

func (r *refineFlat) dim() int                      { return r.refine.d }
func (r *refineFlat) metricType() native.MetricType { return r.refine.metric }

func (r *refineFlat) baseIndex(l *Library) (index, error) {
	ix, ok := l.index(r.base, "IndexRefineFlat")
	if !ok {
		return nil, fmt.Errorf("base index %#x is invalid", uintptr(r.base))
	}
	return ix, nil
}

func (r *refineFlat) isTrained(l *Library) bool {
	base, err := r.baseIndex(l)
	return err == nil && base.isTrained(l)
}

func (r *refineFlat) count(*Library) int64 { return r.refine.count(nil) }

func (r *refineFlat) train(l *Library, n int, x []float32) error {
	base, err := r.baseIndex(l)
	if err != nil {
		return err
	}
	return base.train(l, n, x)
}

func (r *refineFlat) add(l *Library, n int, x []float32) error {
	base, err := r.baseIndex(l)
	if err != nil {
		return err
	}
	if !base.isTrained(l) {
		return errNotTrained
	}
	if err := base.add(l, n, x); err != nil {
		return err
	}
	return r.refine.add(l, n, x)
}

func (r *refineFlat) search(l *Library, n int, x []float32, k int) ([]float32, []int64, error) {
	kBase := int(float32(k) * r.kFactor)
	if kBase < k {
		return nil, nil, errors.New("k_factor must be at least 1")
	}
	base, err := r.baseIndex(l)
	if err != nil {
		return nil, nil, err
	}
	if !base.isTrained(l) {
		return nil, nil, errNotTrained
	}
	_, candidates, err := base.search(l, n, x, kBase)
	if err != nil {
		return nil, nil, err
	}

	d := r.refine.d
	distances := make([]float32, n*k)
	labels := make([]int64, n*k)
	scratch := make([]float32, d)
	ntotal := r.refine.count(nil)

	hits := make([]hit, 0, kBase)
	for q := range n {
		query := x[q*d : (q+1)*d]
		hits = hits[:0]
		for _, label := range candidates[q*kBase : (q+1)*kBase] {
			if label < 0 || label >= ntotal {
				continue
			}
			hits = append(hits, hit{label: label, distance: r.refine.distance(query, label, scratch)})
		}
		topK(hits, k, r.refine.metric, distances[q*k:(q+1)*k], labels[q*k:(q+1)*k])
	}
	return distances, labels, nil
}

func (r *refineFlat) reset(l *Library) {
	if base, err := r.baseIndex(l); err == nil {
		base.reset(l)
	}
	r.refine.reset(l)
}

func (r *refineFlat) clone(l *Library) (index, error) {
	base, err := r.baseIndex(l)
	if err != nil {
		return nil, err
	}
	baseClone, err := base.clone(l)
	if err != nil {
		return nil, err
	}
	refine, _ := r.refine.clone(l)
	return &refineFlat{
		base:    l.register(baseClone),
		refine:  refine.(*flatIndex),
		kFactor: r.kFactor,
		own:     true,
	}, nil
}

func (r *refineFlat) release(l *Library) {
	if r.own {
		l.free(r.base, "IndexRefineFlat release", anyIndex)
	}
}

// IndexRefineFlatNew implements native.Library. base must be empty; the new
// object does not own it until own_fields is set.
func (l *Library) IndexRefineFlatNew(base native.Ptr) (native.Ptr, native.Status) {
	if st, ok := l.injected("IndexRefineFlatNew"); ok {
		return 0, st
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ix, ok := l.index(base, "IndexRefineFlatNew")
	if !ok {
		return 0, native.StatusUnknownException
	}
	if ix.count(l) != 0 {
		return 0, l.status(errors.New("base_index should be empty in the beginning"))
	}
	refine, err := newFlat(ix.dim(), ix.metricType())
	if err != nil {
		return 0, l.status(err)
	}
	return l.register(&refineFlat{base: base, refine: refine, kFactor: 1}), native.StatusOK
}

func (l *Library) refineFlat(idx native.Ptr, op string) (*refineFlat, bool) {
	obj, ok := l.lookup(idx, op)
	if !ok {
		return nil, false
	}
	r, ok := obj.(*refineFlat)
	if !ok {
		l.violate("%s: %#x is not an IndexRefineFlat", op, uintptr(idx))
	}
	return r, ok
}

// IndexRefineFlatOwnFields implements native.Library.
func (l *Library) IndexRefineFlatOwnFields(idx native.Ptr) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.refineFlat(idx, "IndexRefineFlatOwnFields")
	return ok && r.own
}

// IndexRefineFlatSetOwnFields implements native.Library.
func (l *Library) IndexRefineFlatSetOwnFields(idx native.Ptr, own bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.refineFlat(idx, "IndexRefineFlatSetOwnFields"); ok {
		r.own = own
	}
}

// IndexRefineFlatKFactor implements native.Library.
func (l *Library) IndexRefineFlatKFactor(idx native.Ptr) float32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.refineFlat(idx, "IndexRefineFlatKFactor")
	if !ok {
		return 0
	}
	return r.kFactor
}

// IndexRefineFlatSetKFactor implements native.Library.
func (l *Library) IndexRefineFlatSetKFactor(idx native.Ptr, kFactor float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.refineFlat(idx, "IndexRefineFlatSetKFactor"); ok {
		r.kFactor = kFactor
	}
}

// IndexRefineFlatCast implements native.Library.
func (l *Library) IndexRefineFlatCast(idx native.Ptr) native.Ptr {
	l.mu.RLock()
	defer l.mu.RUnlock()
	obj, ok := l.lookup(idx, "IndexRefineFlatCast")
	if !ok {
		return 0
	}
	if _, ok := obj.(*refineFlat); !ok {
		return 0
	}
	return idx
}

// IndexRefineFlatFree implements native.Library.
func (l *Library) IndexRefineFlatFree(idx native.Ptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.free(idx, "IndexRefineFlatFree", func(obj any) bool {
		_, ok := obj.(*refineFlat)
		return ok
	})
}
