package index

import "github.com/hupe1980/gofaiss"

// supportsConcurrent derives the concurrent-search capability from a type
// parameter. For a concrete pointer type the probe runs on its nil value; an
// interface type has no method set to probe and yields false.
func supportsConcurrent[I Index]() bool {
	var zero I
	p, ok := any(zero).(interface{ SupportsConcurrentSearch() bool })
	return ok && p.SupportsConcurrentSearch()
}

// onCPU derives the CPU marker from a type parameter like supportsConcurrent.
func onCPU[I Index]() bool {
	var zero I
	p, ok := any(zero).(interface{ OnCPU() bool })
	return ok && p.OnCPU()
}

// IsCPU reports whether idx lives in host memory.
func IsCPU(idx Index) bool { return idx.OnCPU() }

type corer interface{ core() *base }

// Concurrent returns a view of idx whose searches may run from several
// goroutines at once. It fails with gofaiss.ErrNotConcurrent when the type of
// idx does not support that.
//
// The view shares the native object: it must not be used after idx is closed
// or while idx is being mutated.
func Concurrent(idx Index) (ConcurrentIndex, error) {
	if !idx.SupportsConcurrentSearch() {
		return nil, gofaiss.ErrNotConcurrent
	}
	if ci, ok := idx.(ConcurrentIndex); ok {
		return ci, nil
	}
	if c, ok := idx.(corer); ok {
		return shared{c.core()}, nil
	}
	return nil, gofaiss.ErrNotConcurrent
}

// shared exposes the read operations of a composite whose children all
// support concurrent search.
type shared struct {
	b *base
}

func (s shared) D() int                 { return s.b.D() }
func (s shared) IsTrained() bool        { return s.b.IsTrained() }
func (s shared) NTotal() int64          { return s.b.NTotal() }
func (s shared) MetricType() MetricType { return s.b.MetricType() }

func (s shared) SearchShared(query []float32, k int) (SearchResult, error) {
	return s.b.search(query, k)
}
