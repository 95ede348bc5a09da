package archidb

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements MetricsCollector on top of a Prometheus
// registry. It exists for deployments that already scrape the host process
// (e.g. a server-side renderer or the CLI in batch mode).
type PrometheusCollector struct {
	initTotal     *prometheus.CounterVec
	initDuration  *prometheus.HistogramVec
	queryTotal    *prometheus.CounterVec
	queryDuration prometheus.Histogram
	chunkFetches  prometheus.Counter
	chunkBytes    prometheus.Counter
	chunkErrors   prometheus.Counter
	downloadBytes prometheus.Counter
}

// NewPrometheusCollector creates and registers the collector's metrics with
// reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		initTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "archidb",
			Name:      "init_attempts_total",
			Help:      "Initialization attempts by engine mode and outcome.",
		}, []string{"mode", "outcome"}),
		initDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "archidb",
			Name:      "init_duration_seconds",
			Help:      "Initialization duration by engine mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		queryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "archidb",
			Name:      "queries_total",
			Help:      "Query executions by outcome.",
		}, []string{"outcome"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "archidb",
			Name:      "query_duration_seconds",
			Help:      "Query execution duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		chunkFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "archidb",
			Name:      "chunk_fetches_total",
			Help:      "Backend range requests made by the chunked path.",
		}),
		chunkBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "archidb",
			Name:      "chunk_fetched_bytes_total",
			Help:      "Bytes fetched by the chunked path.",
		}),
		chunkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "archidb",
			Name:      "chunk_fetch_errors_total",
			Help:      "Failed backend range requests.",
		}),
		downloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "archidb",
			Name:      "download_bytes_total",
			Help:      "Bytes fetched by full-file downloads.",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.initTotal, c.initDuration, c.queryTotal, c.queryDuration,
		c.chunkFetches, c.chunkBytes, c.chunkErrors, c.downloadBytes,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordInit implements MetricsCollector.
func (c *PrometheusCollector) RecordInit(mode Mode, duration time.Duration, err error) {
	c.initTotal.WithLabelValues(mode.String(), outcome(err)).Inc()
	c.initDuration.WithLabelValues(mode.String()).Observe(duration.Seconds())
}

// RecordQuery implements MetricsCollector.
func (c *PrometheusCollector) RecordQuery(duration time.Duration, err error) {
	c.queryTotal.WithLabelValues(outcome(err)).Inc()
	c.queryDuration.Observe(duration.Seconds())
}

// RecordChunkFetch implements MetricsCollector.
func (c *PrometheusCollector) RecordChunkFetch(bytes int64, duration time.Duration, err error) {
	c.chunkFetches.Inc()
	c.chunkBytes.Add(float64(bytes))
	if err != nil {
		c.chunkErrors.Inc()
	}
}

// RecordDownload implements MetricsCollector.
func (c *PrometheusCollector) RecordDownload(bytes int64, duration time.Duration, err error) {
	c.downloadBytes.Add(float64(bytes))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
