package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/index"
	"github.com/hupe1980/gofaiss/testutil"
	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that the backend composes, casts and clones correctly",
		Long: `Check loads the configured backend and runs a PCA pipeline with exact
refinement on a small reference dataset, then verifies the neighbors, a
cast round trip and a clone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend: %s\n", cfg.Library.Backend)
			if p := rt.LibraryPath(); p != "" {
				fmt.Fprintf(out, "library: %s\n", p)
			}
			if err := selfCheck(rt); err != nil {
				return fmt.Errorf("check failed: %w", err)
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}

// selfCheck exercises composition, search, cast and clone on the reference
// dataset.
func selfCheck(rt *gofaiss.Runtime) (err error) {
	data, d := testutil.Reference()
	want := []index.Idx{2, 1, 0, 3, 4}

	pt, err := buildPipeline(rt, d, d/2, index.MetricL2)
	if err != nil {
		return err
	}
	r, err := index.NewRefineFlat(pt)
	if err != nil {
		return errors.Join(err, pt.Close())
	}
	defer func() { err = errors.Join(err, r.Close()) }()

	if err := r.Train(data); err != nil {
		return err
	}
	if err := r.Add(data); err != nil {
		return err
	}
	res, err := r.Search(make([]float32, d), len(want))
	if err != nil {
		return err
	}
	if !slices.Equal(res.Labels, want) {
		return fmt.Errorf("search returned %v, want %v", res.Labels, want)
	}

	c, err := r.TryClone()
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, c.Close()) }()
	if err := r.Reset(); err != nil {
		return err
	}
	if c.NTotal() != int64(len(want)) {
		return fmt.Errorf("clone holds %d vectors after resetting the source", c.NTotal())
	}

	x, err := index.Clone(c)
	if err != nil {
		return err
	}
	if _, err := index.IntoFlat(x); !errors.Is(err, gofaiss.ErrBadCast) {
		_ = x.Close()
		return fmt.Errorf("cast to IndexFlat: got %v, want a bad cast", err)
	}
	back, err := index.IntoRefineFlat(x)
	if err != nil {
		return errors.Join(err, x.Close())
	}
	defer func() { err = errors.Join(err, back.Close()) }()
	if back.KFactor() != 1 || back.NTotal() != int64(len(want)) {
		return fmt.Errorf("cast round trip lost state")
	}
	return nil
}
