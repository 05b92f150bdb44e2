package gofaiss

import (
	"log/slog"

	"github.com/hupe1980/gofaiss/native"
)

type options struct {
	lib                   native.Library
	libraryPath           string
	metricsCollector      MetricsCollector
	logger                *Logger
	memoryLimit           int64
	maxConcurrentSearches int
	searchRate            int
}

// Option configures a Runtime.
type Option func(*options)

// WithLibrary uses lib instead of loading libfaiss_c from disk.
//
// The runtime does not close lib; the caller keeps it alive for as long as
// any handle created through the runtime exists.
func WithLibrary(lib native.Library) Option {
	return func(o *options) {
		o.lib = lib
	}
}

// WithLibraryPath loads libfaiss_c from path instead of searching for it.
// Ignored when WithLibrary is set.
func WithLibraryPath(path string) Option {
	return func(o *options) {
		o.libraryPath = path
	}
}

// WithMetricsCollector reports compose, cast, clone and search events to mc.
// nil restores the no-op collector.
//
//	stats := &gofaiss.BasicMetricsCollector{}
//	rt, err := gofaiss.Open(gofaiss.WithMetricsCollector(stats))
//	...
//	fmt.Println(stats.GetStats().BadCasts)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) { o.metricsCollector = mc }
}

// WithLogger sets the logger for handle lifecycle events. nil silences it.
func WithLogger(logger *Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLogLevel is WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return WithLogger(NewTextLogger(level))
}

// WithMemoryLimit bounds the vector bytes added to indexes of this runtime.
// Adds and clones that would exceed it fail with ErrMemoryLimitExceeded.
// Zero (default) only tracks usage.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithMaxConcurrentSearches bounds the native searches ParallelSearch runs at
// once. Defaults to GOMAXPROCS.
func WithMaxConcurrentSearches(n int) Option {
	return func(o *options) {
		o.maxConcurrentSearches = n
	}
}

// WithSearchRate limits ParallelSearch to qps queries per second.
// Zero (default) means unlimited.
func WithSearchRate(qps int) Option {
	return func(o *options) {
		o.searchRate = qps
	}
}

func applyOptions(optFns []Option) options {
	var o options
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
