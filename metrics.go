package gofaiss

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// kind is the handle kind the call was made on (for example "IndexFlat" or
// "IndexPreTransform").
type MetricsCollector interface {
	// RecordTrain is called after each train call with the number of vectors.
	RecordTrain(kind string, n int, duration time.Duration, err error)

	// RecordAdd is called after each add call with the number of vectors.
	RecordAdd(kind string, n int, duration time.Duration, err error)

	// RecordSearch is called after each search call.
	// nq is the number of queries, k the number of neighbors requested.
	RecordSearch(kind string, nq, k int, duration time.Duration, err error)

	// RecordReset is called after each reset call.
	RecordReset(kind string, err error)

	// RecordCompose is called after each composite construction attempt.
	RecordCompose(kind string, err error)

	// RecordCast is called after each downcast attempt.
	RecordCast(from, to string, err error)

	// RecordClone is called after each clone attempt.
	RecordClone(kind string, err error)

	// RecordFree is called when a native object is freed.
	RecordFree(kind string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTrain(string, int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordAdd(string, int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordSearch(string, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordReset(string, error)                           {}
func (NoopMetricsCollector) RecordCompose(string, error)                         {}
func (NoopMetricsCollector) RecordCast(string, string, error)                    {}
func (NoopMetricsCollector) RecordClone(string, error)                           {}
func (NoopMetricsCollector) RecordFree(string)                                   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	TrainCount       atomic.Int64
	TrainErrors      atomic.Int64
	AddCount         atomic.Int64
	AddVectors       atomic.Int64
	AddErrors        atomic.Int64
	SearchCount      atomic.Int64
	SearchQueries    atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	ResetCount       atomic.Int64
	ComposeCount     atomic.Int64
	ComposeErrors    atomic.Int64
	CastCount        atomic.Int64
	BadCasts         atomic.Int64
	CloneCount       atomic.Int64
	CloneErrors      atomic.Int64
	FreeCount        atomic.Int64
}

// RecordTrain implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTrain(kind string, n int, duration time.Duration, err error) {
	b.TrainCount.Add(1)
	if err != nil {
		b.TrainErrors.Add(1)
	}
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(kind string, n int, duration time.Duration, err error) {
	b.AddCount.Add(1)
	if err != nil {
		b.AddErrors.Add(1)
		return
	}
	b.AddVectors.Add(int64(n))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(kind string, nq, k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchQueries.Add(int64(nq))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordReset implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReset(kind string, err error) {
	b.ResetCount.Add(1)
}

// RecordCompose implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCompose(kind string, err error) {
	b.ComposeCount.Add(1)
	if err != nil {
		b.ComposeErrors.Add(1)
	}
}

// RecordCast implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCast(from, to string, err error) {
	b.CastCount.Add(1)
	if err != nil {
		b.BadCasts.Add(1)
	}
}

// RecordClone implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClone(kind string, err error) {
	b.CloneCount.Add(1)
	if err != nil {
		b.CloneErrors.Add(1)
	}
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(kind string) {
	b.FreeCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		TrainCount:     b.TrainCount.Load(),
		TrainErrors:    b.TrainErrors.Load(),
		AddCount:       b.AddCount.Load(),
		AddVectors:     b.AddVectors.Load(),
		AddErrors:      b.AddErrors.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchQueries:  b.SearchQueries.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: b.avgSearchNanos(),
		ResetCount:     b.ResetCount.Load(),
		ComposeCount:   b.ComposeCount.Load(),
		ComposeErrors:  b.ComposeErrors.Load(),
		CastCount:      b.CastCount.Load(),
		BadCasts:       b.BadCasts.Load(),
		CloneCount:     b.CloneCount.Load(),
		CloneErrors:    b.CloneErrors.Load(),
		FreeCount:      b.FreeCount.Load(),
	}
}

func (b *BasicMetricsCollector) avgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	TrainCount     int64
	TrainErrors    int64
	AddCount       int64
	AddVectors     int64
	AddErrors      int64
	SearchCount    int64
	SearchQueries  int64
	SearchErrors   int64
	SearchAvgNanos int64
	ResetCount     int64
	ComposeCount   int64
	ComposeErrors  int64
	CastCount      int64
	BadCasts       int64
	CloneCount     int64
	CloneErrors    int64
	FreeCount      int64
}
