package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/gofaiss/testutil"
	"github.com/hupe1980/gofaiss/vecio"
	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		n        int
		dim      int
		clusters int
		seed     int64
		outURI   string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic fvecs dataset",
		Long: `Generate writes n random vectors to an fvecs file. With --clusters the
vectors are drawn around that many random centers, which gives search
results a structure worth inspecting.

Examples:
  faissctl generate --n 10000 --dim 64 --out base.fvecs.zst
  faissctl generate --n 100 --dim 64 --seed 2 --out s3://datasets/query.fvecs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n <= 0 || dim <= 0 {
				return fmt.Errorf("--n and --dim must be positive")
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}

			rng := testutil.NewRNG(seed)
			var data []float32
			if clusters > 0 {
				data = rng.Clustered(n, dim, clusters, 0.05)
			} else {
				data = rng.Uniform(n, dim)
			}

			ctx := cmd.Context()
			s, name, err := store(ctx, cfg.Storage, outURI)
			if err != nil {
				return err
			}
			if err := vecio.Save(ctx, s, name, data, dim); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d vectors of dimension %d (%s raw) to %s\n",
				n, dim, humanize.IBytes(uint64(4*len(data))), outURI)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&n, "n", 1000, "Number of vectors")
	flags.IntVarP(&dim, "dim", "d", 32, "Vector dimension")
	flags.IntVar(&clusters, "clusters", 0, "Draw vectors around this many centers")
	flags.Int64Var(&seed, "seed", 1, "Random seed")
	flags.StringVarP(&outURI, "out", "o", "", "Output path or s3:// URI")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
