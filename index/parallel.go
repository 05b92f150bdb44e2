package index

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ParallelSearch searches each query row of queries on its own goroutine and
// returns the results in query order.
//
// idx must support concurrent search (see Concurrent). Goroutines are bounded
// by the runtime's search slots and admitted by its search rate limit. The
// first failure cancels the remaining queries.
func ParallelSearch(ctx context.Context, idx Index, queries []float32, k int) (SearchResult, error) {
	ci, err := Concurrent(idx)
	if err != nil {
		return SearchResult{}, err
	}
	rt := idx.NativeHandle().Runtime()

	d := ci.D()
	if d <= 0 || len(queries) == 0 || len(queries)%d != 0 || k <= 0 {
		// Let the index produce the usual validation error.
		return ci.SearchShared(queries, k)
	}
	nq := len(queries) / d

	out := SearchResult{
		Distances: make([]float32, nq*k),
		Labels:    make([]Idx, nq*k),
		K:         k,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rt.MaxConcurrentSearches())
	for i := range nq {
		g.Go(func() error {
			if err := rt.AcquireSearch(ctx); err != nil {
				return err
			}
			defer rt.ReleaseSearch()

			res, err := ci.SearchShared(queries[i*d:(i+1)*d], k)
			if err != nil {
				return err
			}
			copy(out.Distances[i*k:(i+1)*k], res.Distances)
			copy(out.Labels[i*k:(i+1)*k], res.Labels)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SearchResult{}, err
	}
	return out, nil
}
