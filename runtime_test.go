package gofaiss

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	lib := lastErrorLib{}
	rt := New(lib)

	assert.Equal(t, lib, rt.Library())
	assert.Empty(t, rt.LibraryPath())
	assert.NotNil(t, rt.Logger())
	assert.IsType(t, NoopMetricsCollector{}, rt.Metrics())
	assert.Equal(t, int64(0), rt.MemoryLimit())
	assert.Positive(t, rt.MaxConcurrentSearches())
	require.NoError(t, rt.Close())
	require.NoError(t, rt.Close())
}

func TestNew_Options(t *testing.T) {
	mc := &BasicMetricsCollector{}
	rt := New(lastErrorLib{},
		WithMetricsCollector(mc),
		WithLogLevel(slog.LevelDebug),
		WithMemoryLimit(64),
		WithMaxConcurrentSearches(3),
		WithSearchRate(100),
	)

	assert.Same(t, mc, rt.Metrics())
	assert.Equal(t, int64(64), rt.MemoryLimit())
	assert.Equal(t, 3, rt.MaxConcurrentSearches())

	require.NoError(t, rt.AcquireMemory(48))
	assert.ErrorIs(t, rt.AcquireMemory(32), ErrMemoryLimitExceeded)
	rt.ReleaseMemory(48)
	assert.Equal(t, int64(0), rt.MemoryUsage())

	require.NoError(t, rt.AcquireSearch(t.Context()))
	rt.ReleaseSearch()
}

func TestNew_NilOptions(t *testing.T) {
	rt := New(lastErrorLib{}, nil, WithLogger(nil), WithMetricsCollector(nil))
	assert.NotNil(t, rt.Logger())
	assert.IsType(t, NoopMetricsCollector{}, rt.Metrics())
}

func TestOpen_WithLibrary(t *testing.T) {
	lib := lastErrorLib{}
	rt, err := Open(WithLibrary(lib), WithLibraryPath("/ignored"))
	require.NoError(t, err)
	assert.Equal(t, lib, rt.Library())
	require.NoError(t, rt.Close())
}

func TestOpen_MissingPath(t *testing.T) {
	_, err := Open(WithLibraryPath(filepath.Join(t.TempDir(), "libfaiss_c.so")))
	assert.Error(t, err)
}

func TestBasicMetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}
	mc.RecordAdd("IndexFlat", 5, 0, nil)
	mc.RecordAdd("IndexFlat", 5, 0, ErrInvalidK)
	mc.RecordSearch("IndexFlat", 2, 3, 10, nil)
	mc.RecordSearch("IndexFlat", 1, 3, 30, ErrInvalidK)
	mc.RecordCast("Index", "IndexFlat", nil)
	mc.RecordCast("Index", "IndexRefineFlat", ErrBadCast)
	mc.RecordFree("IndexFlat")

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.AddCount)
	assert.Equal(t, int64(5), stats.AddVectors)
	assert.Equal(t, int64(1), stats.AddErrors)
	assert.Equal(t, int64(2), stats.SearchCount)
	assert.Equal(t, int64(3), stats.SearchQueries)
	assert.Equal(t, int64(20), stats.SearchAvgNanos)
	assert.Equal(t, int64(2), stats.CastCount)
	assert.Equal(t, int64(1), stats.BadCasts)
	assert.Equal(t, int64(1), stats.FreeCount)
}
