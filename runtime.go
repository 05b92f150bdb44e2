package gofaiss

import (
	"context"
	"sync"

	"github.com/hupe1980/gofaiss/internal/resource"
	"github.com/hupe1980/gofaiss/native"
)

// Runtime binds handles to one native library together with the logger,
// metrics collector and resource limits they report to.
//
// A Runtime is safe for concurrent use. Handles from different runtimes can
// not be composed with each other.
type Runtime struct {
	lib     native.Library
	closer  interface{ Close() error }
	path    string
	logger  *Logger
	metrics MetricsCollector
	rc      *resource.Controller

	closeOnce sync.Once
	closeErr  error
}

// Open creates a Runtime. Unless WithLibrary is given, libfaiss_c is loaded
// from WithLibraryPath or the default search paths.
//
// The returned runtime must be closed after every handle it created.
func Open(optFns ...Option) (*Runtime, error) {
	o := applyOptions(optFns)
	if o.lib != nil {
		return newRuntime(o), nil
	}

	var (
		lib *native.Dylib
		err error
	)
	if o.libraryPath != "" {
		lib, err = native.Open(o.libraryPath)
	} else {
		lib, err = native.Load()
	}
	o.logger.LogLoad(context.Background(), o.libraryPath, err)
	if err != nil {
		return nil, err
	}

	o.lib = lib
	r := newRuntime(o)
	r.closer = lib
	r.path = lib.Path()
	return r, nil
}

// New creates a Runtime over an already loaded library.
func New(lib native.Library, optFns ...Option) *Runtime {
	o := applyOptions(optFns)
	o.lib = lib
	return newRuntime(o)
}

func newRuntime(o options) *Runtime {
	return &Runtime{
		lib:     o.lib,
		logger:  o.logger,
		metrics: o.metricsCollector,
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes: o.memoryLimit,
			Slots:            int64(o.maxConcurrentSearches),
			QueriesPerSec:    int64(o.searchRate),
		}),
	}
}

// Library returns the native library.
func (r *Runtime) Library() native.Library { return r.lib }

// LibraryPath returns the file the library was loaded from, or "" when it was
// supplied with WithLibrary.
func (r *Runtime) LibraryPath() string { return r.path }

// Logger returns the runtime's logger.
func (r *Runtime) Logger() *Logger { return r.logger }

// Metrics returns the runtime's metrics collector.
func (r *Runtime) Metrics() MetricsCollector { return r.metrics }

// AcquireMemory reserves bytes against the memory limit.
func (r *Runtime) AcquireMemory(bytes int64) error { return r.rc.Reserve(bytes) }

// ReleaseMemory returns bytes reserved with AcquireMemory.
func (r *Runtime) ReleaseMemory(bytes int64) { r.rc.Release(bytes) }

// MemoryUsage returns the bytes currently accounted to live handles.
func (r *Runtime) MemoryUsage() int64 { return r.rc.Reserved() }

// MemoryLimit returns the configured memory limit (0 if unlimited).
func (r *Runtime) MemoryLimit() int64 { return r.rc.Limit() }

// AcquireSearch blocks until a search slot is free and the rate limit admits
// one more query.
func (r *Runtime) AcquireSearch(ctx context.Context) error { return r.rc.Admit(ctx) }

// ReleaseSearch frees a slot taken by AcquireSearch.
func (r *Runtime) ReleaseSearch() { r.rc.Done() }

// MaxConcurrentSearches returns the number of search slots.
func (r *Runtime) MaxConcurrentSearches() int { return r.rc.Slots() }

// Close unloads the library if the runtime loaded it. Handles still alive
// become unusable.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		if r.closer != nil {
			r.closeErr = r.closer.Close()
		}
	})
	return r.closeErr
}
