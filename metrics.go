package archidb

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; a
// Prometheus-backed implementation ships in prometheus.go.
type MetricsCollector interface {
	// RecordInit is called after each initialization attempt of a
	// strategy. mode identifies the loader, err is nil on success.
	RecordInit(mode Mode, duration time.Duration, err error)

	// RecordQuery is called after each query execution.
	RecordQuery(duration time.Duration, err error)

	// RecordChunkFetch is called after each backend range request made by
	// the chunked path.
	RecordChunkFetch(bytes int64, duration time.Duration, err error)

	// RecordDownload is called after a full-file download by the direct
	// path.
	RecordDownload(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInit(Mode, time.Duration, error)          {}
func (NoopMetricsCollector) RecordQuery(time.Duration, error)               {}
func (NoopMetricsCollector) RecordChunkFetch(int64, time.Duration, error)   {}
func (NoopMetricsCollector) RecordDownload(int64, time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InitCount        atomic.Int64
	InitErrors       atomic.Int64
	InitTotalNanos   atomic.Int64
	QueryCount       atomic.Int64
	QueryErrors      atomic.Int64
	QueryTotalNanos  atomic.Int64
	ChunkFetchCount  atomic.Int64
	ChunkFetchErrors atomic.Int64
	ChunkFetchBytes  atomic.Int64
	DownloadCount    atomic.Int64
	DownloadBytes    atomic.Int64
}

// RecordInit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInit(mode Mode, duration time.Duration, err error) {
	b.InitCount.Add(1)
	b.InitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InitErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordChunkFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunkFetch(bytes int64, duration time.Duration, err error) {
	b.ChunkFetchCount.Add(1)
	b.ChunkFetchBytes.Add(bytes)
	if err != nil {
		b.ChunkFetchErrors.Add(1)
	}
}

// RecordDownload implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDownload(bytes int64, duration time.Duration, err error) {
	b.DownloadCount.Add(1)
	b.DownloadBytes.Add(bytes)
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector counters.
type BasicMetricsStats struct {
	InitCount       int64
	InitErrors      int64
	QueryCount      int64
	QueryErrors     int64
	ChunkFetchCount int64
	ChunkFetchBytes int64
	DownloadCount   int64
	DownloadBytes   int64
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InitCount:       b.InitCount.Load(),
		InitErrors:      b.InitErrors.Load(),
		QueryCount:      b.QueryCount.Load(),
		QueryErrors:     b.QueryErrors.Load(),
		ChunkFetchCount: b.ChunkFetchCount.Load(),
		ChunkFetchBytes: b.ChunkFetchBytes.Load(),
		DownloadCount:   b.DownloadCount.Load(),
		DownloadBytes:   b.DownloadBytes.Load(),
	}
}
