package main

import (
	"context"
	"fmt"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/config"
	"github.com/hupe1980/gofaiss/vecio"
	"github.com/hupe1980/gofaiss/vecio/minio"
	"github.com/hupe1980/gofaiss/vecio/s3"
	"github.com/spf13/cobra"
)

// app carries the flags shared by every command.
type app struct {
	configPath string
	backend    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "faissctl",
		Short: "Build and exercise FAISS index pipelines",
		Long: `faissctl composes FAISS indexes (flat, PCA pre-transform, exact refinement)
from a YAML configuration and runs them on fvecs datasets.

The native backend loads libfaiss_c at runtime; the mem backend uses an
in-process implementation that needs no native library.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to the YAML configuration")
	flags.StringVar(&a.backend, "backend", "", "Library backend override (native, mem)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(
		newCheckCmd(a),
		newInspectCmd(a),
		newSearchCmd(a),
		newGenerateCmd(a),
	)
	return cmd
}

// config loads the configuration file, if any, and applies flag overrides.
func (a *app) config() (*config.Config, error) {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return nil, err
		}
	} else {
		cfg.ApplyEnv()
	}

	if a.backend != "" {
		cfg.Library.Backend = a.backend
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// runtime opens the configured runtime.
func (a *app) runtime() (*config.Config, *gofaiss.Runtime, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}
	rt, err := cfg.OpenRuntime()
	if err != nil {
		return nil, nil, fmt.Errorf("open runtime: %w", err)
	}
	return cfg, rt, nil
}

// store resolves uri to a store and the name to use within it.
func store(ctx context.Context, cfg config.Storage, uri string) (vecio.Store, string, error) {
	loc, err := vecio.ParseURI(uri)
	if err != nil {
		return nil, "", err
	}
	if !loc.IsRemote() {
		return vecio.NewLocalStore(cfg.Root), loc.Key, nil
	}

	switch cfg.Backend {
	case config.StorageS3:
		client, err := s3.NewClient(ctx, s3.Config{
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			UsePathStyle: cfg.UsePathStyle,
		})
		if err != nil {
			return nil, "", err
		}
		return s3.NewStore(client, loc.Bucket, ""), loc.Key, nil
	case config.StorageMinio:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "s3.amazonaws.com"
		}
		client, err := minio.NewClient(minio.Config{
			Endpoint:  endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Region:    cfg.Region,
			Secure:    cfg.Secure,
		})
		if err != nil {
			return nil, "", err
		}
		return minio.NewStore(client, loc.Bucket, ""), loc.Key, nil
	default:
		return nil, "", fmt.Errorf("%s needs an object store backend, got %q", loc, cfg.Backend)
	}
}

// load reads the dataset at uri.
func load(ctx context.Context, cfg config.Storage, uri string) ([]float32, int, error) {
	s, name, err := store(ctx, cfg, uri)
	if err != nil {
		return nil, 0, err
	}
	data, d, err := vecio.Load(ctx, s, name)
	if err != nil {
		return nil, 0, err
	}
	if d == 0 {
		return nil, 0, fmt.Errorf("%s: empty dataset", uri)
	}
	return data, d, nil
}
