// Package config loads the YAML configuration of the faissctl tool.
//
// A minimal file:
//
//	library:
//	  backend: native          # or "mem" for the in-process stand-in
//	  path: /opt/faiss/lib/libfaiss_c.so
//	log:
//	  level: info
//	  format: text
//	resources:
//	  memory_limit: 2GiB
//	  max_concurrent_searches: 8
//	index:
//	  dimension: 128
//	  pca: 32
//	  refine: true
//	  k_factor: 4
//	storage:
//	  backend: minio
//	  endpoint: localhost:9000
//
// Secrets are never read from the file; see Storage.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Library backends.
const (
	BackendNative = "native"
	BackendMem    = "mem"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageS3    = "s3"
)

// Environment variables holding object store credentials.
const (
	EnvAccessKey = "FAISSCTL_ACCESS_KEY"
	EnvSecretKey = "FAISSCTL_SECRET_KEY"
)

// Config is the complete faissctl configuration.
type Config struct {
	Library   Library   `yaml:"library"`
	Log       Log       `yaml:"log"`
	Resources Resources `yaml:"resources"`
	Index     Index     `yaml:"index"`
	Storage   Storage   `yaml:"storage"`
}

// Library selects the native library.
type Library struct {
	// Backend is "native" (libfaiss_c via purego) or "mem".
	Backend string `yaml:"backend"`

	// Path to libfaiss_c. Empty searches FAISS_C_LIBRARY and the system paths.
	Path string `yaml:"path,omitempty"`
}

// Log configures the runtime logger.
type Log struct {
	// Level is a slog level name: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Resources bounds what a runtime may consume.
type Resources struct {
	// MemoryLimit is a human readable size such as "512MiB". Empty or "0"
	// disables the limit.
	MemoryLimit string `yaml:"memory_limit,omitempty"`

	// MaxConcurrentSearches bounds parallel searches. 0 uses GOMAXPROCS.
	MaxConcurrentSearches int `yaml:"max_concurrent_searches,omitempty"`

	// SearchRate is the maximum number of queries per second. 0 is unlimited.
	SearchRate int `yaml:"search_rate,omitempty"`
}

// Index describes the index faissctl builds.
type Index struct {
	// Dimension of the input vectors. 0 takes it from the dataset.
	Dimension int `yaml:"dimension,omitempty"`

	// Metric is "L2" or "IP".
	Metric string `yaml:"metric"`

	// Description is a FAISS factory string. When set, PCA, Refine and
	// KFactor are ignored.
	Description string `yaml:"description,omitempty"`

	// PCA reduces inputs to this many dimensions before the flat index.
	PCA int `yaml:"pca,omitempty"`

	// Refine re-ranks candidates with exact distances.
	Refine bool `yaml:"refine,omitempty"`

	// KFactor is the refinement candidate multiplier.
	KFactor float32 `yaml:"k_factor,omitempty"`
}

// Storage selects where dataset URIs are resolved.
//
// Credentials come from FAISSCTL_ACCESS_KEY and FAISSCTL_SECRET_KEY, or the
// standard AWS environment when those are unset.
type Storage struct {
	// Backend for s3:// URIs: "minio" or "s3". Plain paths always use the
	// local file system.
	Backend string `yaml:"backend"`

	// Root is prepended to local paths.
	Root string `yaml:"root,omitempty"`

	Endpoint     string `yaml:"endpoint,omitempty"`
	Region       string `yaml:"region,omitempty"`
	Secure       bool   `yaml:"secure,omitempty"`
	UsePathStyle bool   `yaml:"use_path_style,omitempty"`

	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Library: Library{Backend: BackendNative},
		Log:     Log{Level: "info", Format: "text"},
		Index:   Index{Metric: "L2", KFactor: 1},
		Storage: Storage{Backend: StorageMinio},
	}
}

// Load reads the configuration at path over the defaults, applies the
// environment and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, applies the environment and
// validates the result. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv fills values that are only taken from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAccessKey); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv(EnvSecretKey); v != "" {
		c.Storage.SecretKey = v
	}
}

// Validate checks the complete configuration.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Library.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("library: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	if err := c.Resources.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("resources: %w", err))
	}
	if err := c.Index.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("index: %w", err))
	}
	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	return errors.Join(errs...)
}

// Validate checks the library section.
func (l *Library) Validate() error {
	switch l.Backend {
	case BackendNative, BackendMem:
		return nil
	default:
		return fmt.Errorf("unknown backend %q", l.Backend)
	}
}

// Validate checks the log section.
func (l *Log) Validate() error {
	if _, err := l.SlogLevel(); err != nil {
		return err
	}
	switch l.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown format %q", l.Format)
	}
}

// SlogLevel parses Level.
func (l *Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid level %q", l.Level)
	}
	return level, nil
}

// Validate checks the resources section.
func (r *Resources) Validate() error {
	if _, err := r.MemoryLimitBytes(); err != nil {
		return err
	}
	if r.MaxConcurrentSearches < 0 {
		return fmt.Errorf("max_concurrent_searches must be non-negative")
	}
	if r.SearchRate < 0 {
		return fmt.Errorf("search_rate must be non-negative")
	}
	return nil
}

// MemoryLimitBytes parses MemoryLimit. An empty limit is 0.
func (r *Resources) MemoryLimitBytes() (int64, error) {
	if r.MemoryLimit == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(r.MemoryLimit)
	if err != nil {
		return 0, fmt.Errorf("invalid memory_limit %q: %w", r.MemoryLimit, err)
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("memory_limit %q is too large", r.MemoryLimit)
	}
	return int64(n), nil
}

// Validate checks the index section.
func (i *Index) Validate() error {
	if i.Dimension < 0 {
		return fmt.Errorf("dimension must be non-negative")
	}
	switch strings.ToUpper(i.Metric) {
	case "L2", "IP", "INNER_PRODUCT":
	default:
		return fmt.Errorf("unknown metric %q", i.Metric)
	}
	if i.Description != "" {
		return nil
	}
	if i.PCA < 0 {
		return fmt.Errorf("pca must be non-negative")
	}
	if i.Dimension > 0 && i.PCA > i.Dimension {
		return fmt.Errorf("pca %d exceeds dimension %d", i.PCA, i.Dimension)
	}
	if i.Refine && i.KFactor < 1 {
		return fmt.Errorf("k_factor must be at least 1, got %g", i.KFactor)
	}
	return nil
}

// InnerProduct reports whether Metric selects inner product search.
func (i *Index) InnerProduct() bool {
	m := strings.ToUpper(i.Metric)
	return m == "IP" || m == "INNER_PRODUCT"
}

// Validate checks the storage section.
func (s *Storage) Validate() error {
	switch s.Backend {
	case StorageMinio:
		if s.Endpoint == "" {
			return nil
		}
		if strings.Contains(s.Endpoint, "://") {
			return fmt.Errorf("endpoint %q must be host[:port]", s.Endpoint)
		}
		return nil
	case StorageS3, StorageLocal:
		return nil
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
}
