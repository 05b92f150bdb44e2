package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/index"
	"github.com/spf13/cobra"
)

type searchOptions struct {
	baseURI  string
	queryURI string
	trainURI string
	k        int
	show     int
	parallel bool
	recall   bool
}

func newSearchCmd(a *app) *cobra.Command {
	o := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Index a base dataset and search it with a query dataset",
		Long: `Search builds the configured index, trains it (on --train, or on the base
set), adds the base set and runs every query.

Examples:
  faissctl search --base base.fvecs.zst --query query.fvecs -k 10
  faissctl search -c pca.yaml --base s3://datasets/base.fvecs.lz4 --query s3://datasets/query.fvecs --recall`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSearch(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.baseURI, "base", "", "Base vectors (path or s3:// URI)")
	flags.StringVar(&o.queryURI, "query", "", "Query vectors (path or s3:// URI)")
	flags.StringVar(&o.trainURI, "train", "", "Training vectors (defaults to the base set)")
	flags.IntVarP(&o.k, "k", "k", 10, "Number of neighbors per query")
	flags.IntVar(&o.show, "show", 3, "Number of queries whose neighbors are printed")
	flags.BoolVar(&o.parallel, "parallel", true, "Search queries in parallel when the index supports it")
	flags.BoolVar(&o.recall, "recall", false, "Measure recall against exact search")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func (a *app) runSearch(ctx context.Context, out io.Writer, o *searchOptions) (err error) {
	if o.k <= 0 {
		return fmt.Errorf("-k must be positive")
	}
	cfg, rt, err := a.runtime()
	if err != nil {
		return err
	}
	defer rt.Close()

	base, d, err := load(ctx, cfg.Storage, o.baseURI)
	if err != nil {
		return err
	}
	queries, qd, err := load(ctx, cfg.Storage, o.queryURI)
	if err != nil {
		return err
	}
	if qd != d {
		return fmt.Errorf("query dimension %d does not match base dimension %d", qd, d)
	}
	train := base
	if o.trainURI != "" {
		var td int
		if train, td, err = load(ctx, cfg.Storage, o.trainURI); err != nil {
			return err
		}
		if td != d {
			return fmt.Errorf("train dimension %d does not match base dimension %d", td, d)
		}
	}

	idx, err := buildIndex(rt, cfg.Index, d)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, idx.Close()) }()

	start := time.Now()
	if err := idx.Train(train); err != nil {
		return err
	}
	trained := time.Since(start)

	start = time.Now()
	if err := idx.Add(base); err != nil {
		return err
	}
	added := time.Since(start)

	start = time.Now()
	res, mode, err := search(ctx, idx, queries, o)
	if err != nil {
		return err
	}
	searched := time.Since(start)

	nq := res.NQ()
	fmt.Fprintf(out, "index:   %s\n", describe(idx))
	fmt.Fprintf(out, "train:   %d vectors in %s\n", len(train)/d, trained.Round(time.Microsecond))
	fmt.Fprintf(out, "add:     %d vectors in %s (%s accounted)\n", len(base)/d, added.Round(time.Microsecond),
		humanize.IBytes(uint64(rt.MemoryUsage())))
	fmt.Fprintf(out, "search:  %d queries, k=%d, %s in %s\n", nq, o.k, mode, searched.Round(time.Microsecond))

	for i := range min(o.show, nq) {
		fmt.Fprintf(out, "query %d:", i)
		for _, h := range res.Hits(i) {
			fmt.Fprintf(out, " %d(%.4g)", h.Label, h.Distance)
		}
		fmt.Fprintln(out)
	}

	if o.recall {
		r, err := recall(rt, idx.MetricType(), base, d, queries, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "recall@%d: %.4f\n", o.k, r)
	}
	return nil
}

// search runs the queries in parallel when the index supports shared
// searches, and as one batch otherwise.
func search(ctx context.Context, idx index.Index, queries []float32, o *searchOptions) (index.SearchResult, string, error) {
	if o.parallel {
		res, err := index.ParallelSearch(ctx, idx, queries, o.k)
		if !errors.Is(err, gofaiss.ErrNotConcurrent) {
			return res, "parallel", err
		}
	}
	res, err := idx.Search(queries, o.k)
	return res, "batch", err
}

// recall compares res with an exact flat search over base.
func recall(rt *gofaiss.Runtime, metric index.MetricType, base []float32, d int, queries []float32, res index.SearchResult) (float64, error) {
	exact, err := index.NewFlat(rt, d, metric)
	if err != nil {
		return 0, err
	}
	defer exact.Close()

	if err := exact.Add(base); err != nil {
		return 0, err
	}
	truth, err := exact.Search(queries, res.K)
	if err != nil {
		return 0, err
	}

	var found, total int
	for i := range res.NQ() {
		want := make(map[index.Idx]struct{}, res.K)
		for _, h := range truth.Hits(i) {
			want[h.Label] = struct{}{}
		}
		total += len(want)
		for _, h := range res.Hits(i) {
			if _, ok := want[h.Label]; ok {
				found++
			}
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(found) / float64(total), nil
}
