package archidb

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/archi-map/archidb/internal/blockcache"
)

// Mode identifies which loading strategy produced the active engine handle.
type Mode int

const (
	// ModeChunked is the range-request VFS engine.
	ModeChunked Mode = iota + 1
	// ModeDirect is the fully downloaded in-process engine.
	ModeDirect
)

func (m Mode) String() string {
	switch m {
	case ModeChunked:
		return "chunked"
	case ModeDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// Engine is the opaque handle produced by a loader. Exactly one Engine is
// live per Session; it is shared by all callers for the session lifetime.
type Engine struct {
	db       *sql.DB
	mode     Mode
	coverage func() blockcache.Coverage
	cleanup  func() error
}

// DB exposes the underlying database handle for callers that need raw
// database/sql access (e.g. the repo package's scans).
func (e *Engine) DB() *sql.DB { return e.db }

// Mode reports which loader produced this engine.
func (e *Engine) Mode() Mode { return e.mode }

// Close releases the engine and everything the loader set up for it.
func (e *Engine) Close() error {
	var firstErr error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			firstErr = err
		}
	}
	if e.cleanup != nil {
		if err := e.cleanup(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Coverage reports how much of the remote file the chunked path has fetched.
type Coverage struct {
	BlockSize    int64
	BlocksTotal  uint64
	BlocksLoaded uint64
	BytesLoaded  int64
	Fraction     float64
}

// Session owns the engine handle, the status lifecycle and the shared
// in-flight initialization. It replaces the global module state of earlier
// revisions: construct one at the composition root and pass it around.
type Session struct {
	cfg     Config
	opts    options
	logger  *Logger
	metrics MetricsCollector

	status atomic.Int32
	engine atomic.Pointer[Engine]
	closed atomic.Bool
	flight singleflight.Group

	// Loader strategies, swappable in tests.
	chunkedFn func(ctx context.Context) (*Engine, error)
	directFn  func(ctx context.Context) (*Engine, error)
}

// New creates a Session for the database described by cfg.
// No network activity happens until the first query or an explicit
// Initialize call.
func New(cfg Config, optFns ...Option) *Session {
	s := &Session{
		cfg:  cfg,
		opts: applyOptions(optFns),
	}
	s.logger = s.opts.logger
	s.metrics = s.opts.metrics
	s.chunkedFn = s.loadChunked
	s.directFn = s.loadDirect
	return s
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	return Status(s.status.Load())
}

// Initialize returns the active engine handle, creating it if necessary.
// It is idempotent: concurrent callers share a single in-flight attempt,
// and after a failure the next call starts a fresh one.
func (s *Session) Initialize(ctx context.Context) (*Engine, error) {
	if s.closed.Load() {
		return nil, newError(KindNotInitialized, "initialize database", errSessionClosed)
	}
	if eng := s.engine.Load(); eng != nil {
		return eng, nil
	}

	v, err, _ := s.flight.Do("initialize", func() (any, error) {
		return s.initialize(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Engine), nil
}

// initialize runs one full attempt: chunked first (unless disabled), then
// direct. It owns all status transitions.
func (s *Session) initialize(ctx context.Context) (*Engine, error) {
	s.status.Store(int32(StatusInitializing))

	if !s.cfg.DisableChunked {
		start := time.Now()
		eng, err := s.chunkedFn(ctx)
		s.metrics.RecordInit(ModeChunked, time.Since(start), err)
		if err == nil {
			if err := s.adopt(eng); err != nil {
				return nil, err
			}
			s.logger.LogInitialize(ctx, ModeChunked, time.Since(start), nil)
			return eng, nil
		}
		s.logger.LogFallback(ctx, err)
	} else {
		s.logger.DebugContext(ctx, "chunked loader disabled by caller, using direct download")
	}

	start := time.Now()
	eng, err := s.directFn(ctx)
	s.metrics.RecordInit(ModeDirect, time.Since(start), err)
	s.logger.LogInitialize(ctx, ModeDirect, time.Since(start), err)
	if err != nil {
		s.status.Store(int32(StatusError))
		quality := ProbeConnection(ctx, s.opts.httpClient, s.probeTarget())
		return nil, enrich(err, quality)
	}

	if err := s.adopt(eng); err != nil {
		return nil, err
	}
	return eng, nil
}

// adopt publishes a freshly loaded engine. If the session was closed while
// the loader was running, the engine is closed instead of stored so that a
// racing Close never strands a live handle.
func (s *Session) adopt(eng *Engine) error {
	if s.closed.Load() {
		_ = eng.Close()
		return newError(KindNotInitialized, "initialize database", errSessionClosed)
	}
	s.engine.Store(eng)
	s.status.Store(int32(StatusReady))
	if s.closed.Load() {
		// Close ran between the check and the store. Exactly one of the two
		// Swap calls observes the engine, so it is closed exactly once.
		if e := s.engine.Swap(nil); e != nil {
			_ = e.Close()
		}
		s.status.Store(int32(StatusNotInitialized))
		return newError(KindNotInitialized, "initialize database", errSessionClosed)
	}
	return nil
}

// Coverage reports chunked fetch statistics. ok is false when no chunked
// engine is live.
func (s *Session) Coverage() (Coverage, bool) {
	eng := s.engine.Load()
	if eng == nil || eng.coverage == nil {
		return Coverage{}, false
	}
	c := eng.coverage()
	return Coverage{
		BlockSize:    c.BlockSize,
		BlocksTotal:  c.BlocksTotal,
		BlocksLoaded: c.BlocksLoaded,
		BytesLoaded:  c.BytesLoaded,
		Fraction:     c.Fraction,
	}, true
}

// Close releases the engine handle if one is live. The session must not be
// used afterwards.
func (s *Session) Close() error {
	s.closed.Store(true)
	s.status.Store(int32(StatusNotInitialized))
	eng := s.engine.Swap(nil)
	if eng == nil {
		return nil
	}
	return eng.Close()
}

var errSessionClosed = errors.New("session closed")

func (s *Session) probeTarget() string {
	if s.cfg.ProbeURL != "" {
		return s.cfg.ProbeURL
	}
	if s.cfg.ConfigURL != "" {
		return s.cfg.ConfigURL
	}
	return s.cfg.DatabaseURL
}
