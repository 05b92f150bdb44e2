package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/gofaiss/index"
	"github.com/spf13/cobra"
)

func newInspectCmd(a *app) *cobra.Command {
	var dim int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Build the configured index and print its composition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if dim > 0 {
				cfg.Index.Dimension = dim
			}
			if cfg.Index.Dimension <= 0 {
				return fmt.Errorf("index dimension is not set; use --dim or index.dimension")
			}

			idx, err := buildIndex(rt, cfg.Index, cfg.Index.Dimension)
			if err != nil {
				return err
			}
			defer idx.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "index:\t%s\n", describe(idx))
			fmt.Fprintf(w, "dimension:\t%d\n", idx.D())
			fmt.Fprintf(w, "metric:\t%s\n", idx.MetricType())
			fmt.Fprintf(w, "trained:\t%t\n", idx.IsTrained())
			fmt.Fprintf(w, "vectors:\t%d\n", idx.NTotal())
			fmt.Fprintf(w, "concurrent search:\t%t\n", idx.SupportsConcurrentSearch())
			fmt.Fprintf(w, "cpu:\t%t\n", index.IsCPU(idx))
			if o, ok := idx.(interface{ OwnsChildren() bool }); ok {
				fmt.Fprintf(w, "owns children:\t%t\n", o.OwnsChildren())
			}
			fmt.Fprintf(w, "memory:\t%s\n", humanize.IBytes(uint64(rt.MemoryUsage())))
			if limit := rt.MemoryLimit(); limit > 0 {
				fmt.Fprintf(w, "memory limit:\t%s\n", humanize.IBytes(uint64(limit)))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&dim, "dim", 0, "Input dimension (overrides index.dimension)")
	return cmd
}
