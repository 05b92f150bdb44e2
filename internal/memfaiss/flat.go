package memfaiss

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/gofaiss/native"
	"gonum.org/v1/gonum/blas/blas32"
)

// index is the behaviour shared by every index object in the table.
// Methods run with l.mu held (read lock for queries, write lock otherwise).
type index interface {
	dim() int
	metricType() native.MetricType
	isTrained(l *Library) bool
	count(l *Library) int64
	train(l *Library, n int, x []float32) error
	add(l *Library, n int, x []float32) error
	search(l *Library, n int, x []float32, k int) ([]float32, []int64, error)
	reset(l *Library)
	// clone returns an independent deep copy; children it owns are registered.
	clone(l *Library) (index, error)
	// release frees the children the object owns.
	release(l *Library)
}

type flatIndex struct {
	d      int
	metric native.MetricType
	data   []float32
}

func newFlat(d int, metric native.MetricType) (*flatIndex, error) {
	if d <= 0 {
		return nil, fmt.Errorf("%w: %d", errBadDimension, d)
	}
	if metric != native.MetricL2 && metric != native.MetricInnerProduct {
		return nil, fmt.Errorf("%w: %d", errBadMetric, metric)
	}
	return &flatIndex{d: d, metric: metric}, nil
}

func (f *flatIndex) dim() int                      { return f.d }
func (f *flatIndex) metricType() native.MetricType { return f.metric }
func (f *flatIndex) isTrained(*Library) bool       { return true }
func (f *flatIndex) count(*Library) int64          { return int64(len(f.data) / f.d) }
func (f *flatIndex) train(*Library, int, []float32) error {
	return nil
}

func (f *flatIndex) add(_ *Library, _ int, x []float32) error {
	f.data = append(f.data, x...)
	return nil
}

func (f *flatIndex) reset(*Library) { f.data = nil }

func (f *flatIndex) clone(*Library) (index, error) {
	return &flatIndex{d: f.d, metric: f.metric, data: slices.Clone(f.data)}, nil
}

func (f *flatIndex) release(*Library) {}

// distance scores q against stored vector i.
func (f *flatIndex) distance(q []float32, i int64, scratch []float32) float32 {
	y := f.data[int(i)*f.d : int(i+1)*f.d]
	if f.metric == native.MetricInnerProduct {
		return blas32.Dot(
			blas32.Vector{N: f.d, Inc: 1, Data: q},
			blas32.Vector{N: f.d, Inc: 1, Data: y},
		)
	}
	for j := range y {
		scratch[j] = q[j] - y[j]
	}
	v := blas32.Vector{N: f.d, Inc: 1, Data: scratch}
	return blas32.Dot(v, v)
}

func (f *flatIndex) search(_ *Library, n int, x []float32, k int) ([]float32, []int64, error) {
	distances := make([]float32, n*k)
	labels := make([]int64, n*k)
	scratch := make([]float32, f.d)
	ntotal := f.count(nil)

	hits := make([]hit, 0, ntotal)
	for q := range n {
		query := x[q*f.d : (q+1)*f.d]
		hits = hits[:0]
		for i := range ntotal {
			hits = append(hits, hit{label: i, distance: f.distance(query, i, scratch)})
		}
		topK(hits, k, f.metric, distances[q*k:(q+1)*k], labels[q*k:(q+1)*k])
	}
	return distances, labels, nil
}

type hit struct {
	label    int64
	distance float32
}

// topK sorts hits best first and writes the first k into the output rows,
// padding with label -1 when fewer than k hits exist.
func topK(hits []hit, k int, metric native.MetricType, distances []float32, labels []int64) {
	slices.SortStableFunc(hits, func(a, b hit) int {
		if metric == native.MetricInnerProduct {
			return cmp.Compare(b.distance, a.distance)
		}
		return cmp.Compare(a.distance, b.distance)
	})

	pad := float32(math.MaxFloat32)
	if metric == native.MetricInnerProduct {
		pad = -math.MaxFloat32
	}
	for j := range k {
		if j < len(hits) {
			distances[j] = hits[j].distance
			labels[j] = hits[j].label
		} else {
			distances[j] = pad
			labels[j] = -1
		}
	}
}

// IndexFlatNew implements native.Library.
func (l *Library) IndexFlatNew(d int64, metric native.MetricType) (native.Ptr, native.Status) {
	if st, ok := l.injected("IndexFlatNew"); ok {
		return 0, st
	}
	f, err := newFlat(int(d), metric)
	if err != nil {
		return 0, l.status(err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.register(f), native.StatusOK
}

// IndexFlatCast implements native.Library.
func (l *Library) IndexFlatCast(idx native.Ptr) native.Ptr {
	l.mu.RLock()
	defer l.mu.RUnlock()
	obj, ok := l.lookup(idx, "IndexFlatCast")
	if !ok {
		return 0
	}
	if _, ok := obj.(*flatIndex); !ok {
		return 0
	}
	return idx
}
