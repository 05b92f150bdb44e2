package config

import (
	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/internal/memfaiss"
)

// RuntimeOptions translates the library, log and resource sections into
// runtime options.
func (c *Config) RuntimeOptions() ([]gofaiss.Option, error) {
	level, err := c.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	limit, err := c.Resources.MemoryLimitBytes()
	if err != nil {
		return nil, err
	}

	var logger *gofaiss.Logger
	if c.Log.Format == "json" {
		logger = gofaiss.NewJSONLogger(level)
	} else {
		logger = gofaiss.NewTextLogger(level)
	}

	opts := []gofaiss.Option{
		gofaiss.WithLogger(logger),
		gofaiss.WithMemoryLimit(limit),
		gofaiss.WithMaxConcurrentSearches(c.Resources.MaxConcurrentSearches),
		gofaiss.WithSearchRate(c.Resources.SearchRate),
	}
	switch c.Library.Backend {
	case BackendMem:
		opts = append(opts, gofaiss.WithLibrary(memfaiss.New()))
	default:
		if c.Library.Path != "" {
			opts = append(opts, gofaiss.WithLibraryPath(c.Library.Path))
		}
	}
	return opts, nil
}

// OpenRuntime opens a runtime as configured.
func (c *Config) OpenRuntime() (*gofaiss.Runtime, error) {
	opts, err := c.RuntimeOptions()
	if err != nil {
		return nil, err
	}
	return gofaiss.Open(opts...)
}
