package index

import (
	"github.com/hupe1980/gofaiss/internal/handle"
	"github.com/hupe1980/gofaiss/native"
)

// MetricType selects how an index scores vectors.
type MetricType = native.MetricType

// Metric types.
const (
	MetricInnerProduct = native.MetricInnerProduct
	MetricL2           = native.MetricL2
)

// Idx is a result label: the sequential id of a stored vector, or NoLabel
// where fewer than k results exist.
type Idx int64

// NoLabel marks an empty result slot.
const NoLabel Idx = -1

// IsNone reports whether i is NoLabel.
func (i Idx) IsNone() bool { return i < 0 }

// Get returns the label as an id, or false for NoLabel.
func (i Idx) Get() (uint64, bool) {
	if i < 0 {
		return 0, false
	}
	return uint64(i), true
}

// Hit is one neighbor of a query.
type Hit struct {
	Label    Idx
	Distance float32
}

// SearchResult holds k neighbors per query in row-major order, best first.
type SearchResult struct {
	Distances []float32
	Labels    []Idx
	K         int
}

// NQ returns the number of queries.
func (r SearchResult) NQ() int {
	if r.K == 0 {
		return 0
	}
	return len(r.Labels) / r.K
}

// Hits returns the neighbors of query i, skipping empty slots.
func (r SearchResult) Hits(i int) []Hit {
	labels := r.Labels[i*r.K : (i+1)*r.K]
	hits := make([]Hit, 0, r.K)
	for j, l := range labels {
		if l.IsNone() {
			continue
		}
		hits = append(hits, Hit{Label: l, Distance: r.Distances[i*r.K+j]})
	}
	return hits
}

func newSearchResult(distances []float32, labels []int64, k int) SearchResult {
	idx := make([]Idx, len(labels))
	for i, l := range labels {
		idx[i] = Idx(l)
	}
	return SearchResult{Distances: distances, Labels: idx, K: k}
}

// Index is the operation set shared by every index handle.
//
// Vectors are passed row-major: len(x) must be a positive multiple of D().
// Mutating calls need exclusive access to the handle. Accessors return zero
// values once the handle is released.
type Index interface {
	D() int
	IsTrained() bool
	NTotal() int64
	MetricType() MetricType

	Train(x []float32) error
	Add(x []float32) error
	Search(query []float32, k int) (SearchResult, error)
	Reset() error

	// Close frees the native object, and with it every child it owns.
	Close() error

	// NativeHandle returns the handle owning or viewing the native object.
	NativeHandle() *handle.Handle

	// SupportsConcurrentSearch reports whether searches may run from several
	// goroutines at once. It must not dereference its receiver: composites
	// call it on the zero value of their type parameter.
	SupportsConcurrentSearch() bool

	// OnCPU reports whether the native object lives in host memory. Same
	// receiver contract as SupportsConcurrentSearch.
	OnCPU() bool
}

// ConcurrentIndex is the read-only subset of an index that may be shared
// between goroutines, as long as nobody mutates the index meanwhile.
type ConcurrentIndex interface {
	D() int
	IsTrained() bool
	NTotal() int64
	MetricType() MetricType

	SearchShared(query []float32, k int) (SearchResult, error)
}
