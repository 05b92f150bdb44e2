package index

import (
	"context"
	"time"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/internal/handle"
	"github.com/hupe1980/gofaiss/native"
)

// base implements Index on top of the generic native entrypoints.
type base struct {
	h *handle.Handle
}

func (b *base) core() *base { return b }

func (b *base) kind() string { return b.h.Kind().String() }

func (b *base) rt() *gofaiss.Runtime { return b.h.Runtime() }

func (b *base) lib() native.Library { return b.h.Runtime().Library() }

// NativeHandle returns the underlying handle.
func (b *base) NativeHandle() *handle.Handle { return b.h }

// D returns the input dimension.
func (b *base) D() int {
	defer b.h.KeepAlive()
	p, err := b.h.Ptr()
	if err != nil {
		return 0
	}
	return b.lib().IndexD(p)
}

// IsTrained reports whether the index accepts additions and searches.
func (b *base) IsTrained() bool {
	defer b.h.KeepAlive()
	p, err := b.h.Ptr()
	if err != nil {
		return false
	}
	return b.lib().IndexIsTrained(p)
}

// NTotal returns the number of stored vectors.
func (b *base) NTotal() int64 {
	defer b.h.KeepAlive()
	p, err := b.h.Ptr()
	if err != nil {
		return 0
	}
	return b.lib().IndexNTotal(p)
}

// MetricType returns the metric the index scores with.
func (b *base) MetricType() MetricType {
	defer b.h.KeepAlive()
	p, err := b.h.Ptr()
	if err != nil {
		return MetricL2
	}
	return b.lib().IndexMetricType(p)
}

// Train fits the index on row-major vectors.
func (b *base) Train(x []float32) error {
	const op = "train"
	kind := b.kind()
	defer b.h.KeepAlive()

	p, n, err := b.input(x)
	if err != nil {
		return gofaiss.OpError(op, kind, err)
	}

	rt := b.rt()
	start := time.Now()
	err = rt.Check(op, kind, b.lib().IndexTrain(p, int64(n), x))
	rt.Metrics().RecordTrain(kind, n, time.Since(start), err)
	rt.Logger().LogOperation(context.Background(), op, kind, n, err)
	return err
}

// Add stores row-major vectors. Their size is accounted against the
// runtime's memory limit.
func (b *base) Add(x []float32) error {
	const op = "add"
	kind := b.kind()
	defer b.h.KeepAlive()

	p, n, err := b.input(x)
	if err != nil {
		return gofaiss.OpError(op, kind, err)
	}

	rt := b.rt()
	bytes := int64(len(x)) * 4
	if err := rt.AcquireMemory(bytes); err != nil {
		return gofaiss.OpError(op, kind, err)
	}

	start := time.Now()
	err = rt.Check(op, kind, b.lib().IndexAdd(p, int64(n), x))
	rt.Metrics().RecordAdd(kind, n, time.Since(start), err)
	rt.Logger().LogOperation(context.Background(), op, kind, n, err)
	if err != nil {
		rt.ReleaseMemory(bytes)
		return err
	}
	b.h.Account(bytes)
	return nil
}

// Search returns the k nearest stored vectors for each query.
func (b *base) Search(query []float32, k int) (SearchResult, error) {
	return b.search(query, k)
}

func (b *base) search(query []float32, k int) (SearchResult, error) {
	const op = "search"
	kind := b.kind()
	defer b.h.KeepAlive()

	if k <= 0 {
		return SearchResult{}, gofaiss.OpError(op, kind, gofaiss.ErrInvalidK)
	}
	p, n, err := b.input(query)
	if err != nil {
		return SearchResult{}, gofaiss.OpError(op, kind, err)
	}

	rt := b.rt()
	distances := make([]float32, n*k)
	labels := make([]int64, n*k)

	start := time.Now()
	err = rt.Check(op, kind, b.lib().IndexSearch(p, int64(n), query, int64(k), distances, labels))
	rt.Metrics().RecordSearch(kind, n, k, time.Since(start), err)
	rt.Logger().LogOperation(context.Background(), op, kind, n, err)
	if err != nil {
		return SearchResult{}, err
	}
	return newSearchResult(distances, labels, k), nil
}

// Reset removes all stored vectors and releases their accounted memory.
func (b *base) Reset() error {
	const op = "reset"
	kind := b.kind()
	defer b.h.KeepAlive()

	p, err := b.h.Ptr()
	if err != nil {
		return gofaiss.OpError(op, kind, err)
	}

	rt := b.rt()
	err = rt.Check(op, kind, b.lib().IndexReset(p))
	rt.Metrics().RecordReset(kind, err)
	rt.Logger().LogOperation(context.Background(), op, kind, 0, err)
	if err != nil {
		return err
	}
	b.h.ReleaseAccounted()
	return nil
}

// Close frees the native object.
func (b *base) Close() error { return b.h.Close() }

// input validates x against the index dimension and returns the pointer and
// row count.
func (b *base) input(x []float32) (native.Ptr, int, error) {
	p, err := b.h.Ptr()
	if err != nil {
		return 0, 0, err
	}
	d := b.lib().IndexD(p)
	if d <= 0 || len(x) == 0 || len(x)%d != 0 {
		return 0, 0, &gofaiss.DimensionMismatchError{Expected: d, Actual: len(x)}
	}
	return p, len(x) / d, nil
}
