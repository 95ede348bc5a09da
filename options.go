package archidb

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/archi-map/archidb/asset"
)

// Config identifies the remote database and how it may be loaded.
type Config struct {
	// DatabaseURL is the URL of the SQLite file.
	DatabaseURL string

	// ConfigURL is the URL of the chunk config JSON describing the
	// chunked access parameters (chunk size and the authoritative
	// uncompressed byte length). Required for the chunked path over HTTP.
	ConfigURL string

	// ProbeURL is a small static asset used by the connection probe.
	// Defaults to ConfigURL, then DatabaseURL.
	ProbeURL string

	// DisableChunked skips the chunked loader entirely and goes straight
	// to the full download. Callers set it when they know the chunked
	// path cannot work in their context; it is an explicit capability
	// flag, not something inferred from the environment.
	DisableChunked bool
}

type options struct {
	logger     *Logger
	metrics    MetricsCollector
	httpClient *http.Client
	source     asset.Source

	chunkSize      int64
	memCacheBytes  int64
	diskCacheDir   string
	diskCacheBytes int64

	rateLimit rate.Limit
	rateBurst int

	tempDir string
}

// Option configures Session construction behavior.
type Option func(*options)

// WithLogger configures structured logging for the session.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithHTTPClient sets the HTTP client used for all requests (config fetch,
// range reads, downloads, probe). The default client carries a 30s timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithSource overrides the HTTP transport with an explicit asset source
// (S3, MinIO, local file). When set, DatabaseURL and ConfigURL are not
// fetched; the source's Stat supplies the database length and the chunk size
// comes from WithChunkSize.
func WithSource(src asset.Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithChunkSize sets the range-request chunk size in bytes for the chunked
// path. The chunk config's requestChunkSize takes precedence when present.
// Defaults to 64KB.
func WithChunkSize(size int64) Option {
	return func(o *options) {
		if size > 0 {
			o.chunkSize = size
		}
	}
}

// WithMemoryCacheSize bounds the in-memory block cache in bytes.
// Defaults to 16MB.
func WithMemoryCacheSize(bytes int64) Option {
	return func(o *options) {
		if bytes > 0 {
			o.memCacheBytes = bytes
		}
	}
}

// WithDiskCache enables a persistent block cache under dir, bounded to
// maxBytes of compressed blocks. Blocks survive process restarts.
func WithDiskCache(dir string, maxBytes int64) Option {
	return func(o *options) {
		o.diskCacheDir = dir
		o.diskCacheBytes = maxBytes
	}
}

// WithRateLimit throttles backend range requests to rps requests per second
// with the given burst. Zero disables throttling (the default).
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rateLimit = rate.Limit(rps)
		o.rateBurst = burst
	}
}

// WithTempDir sets the directory the direct loader downloads into.
// Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tempDir = dir
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:        NoopLogger(),
		metrics:       NoopMetricsCollector{},
		chunkSize:     defaultChunkSize,
		memCacheBytes: defaultMemCacheBytes,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return o
}

const (
	defaultChunkSize     = 64 * 1024
	defaultMemCacheBytes = 16 * 1024 * 1024
	defaultHTTPTimeout   = 30 * time.Second
)
