package archidb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/time/rate"

	"github.com/archi-map/archidb/asset"
	"github.com/archi-map/archidb/internal/blockcache"
)

// sqliteMagic is the first 16 bytes of every SQLite 3 database file.
const sqliteMagic = "SQLite format 3\x00"

// chunkedSource is what the range VFS needs from us: random access plus a
// known total size. blockcache.CachedSource satisfies it.
type chunkedSource interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	Size() int64
}

// loadChunked builds the range-request engine: resolve the chunk config,
// wrap the remote file in a block cache and mount it behind the SQLite VFS.
func (s *Session) loadChunked(ctx context.Context) (*Engine, error) {
	src, size, blockSize, err := s.chunkedAsset(ctx)
	if err != nil {
		return nil, err
	}

	cache, err := s.newBlockCache()
	if err != nil {
		src.Close()
		return nil, newError(KindChunkedInit, "create block cache", err)
	}

	cached := blockcache.NewCachedSource(src, cache, s.cfg.DatabaseURL, size, blockSize, s.metrics.RecordChunkFetch)

	if err := verifyHeader(ctx, cached, size); err != nil {
		cached.Close()
		return nil, err
	}

	db, release, err := openChunkedEngine(cached)
	if err != nil {
		cached.Close()
		return nil, err
	}

	if err := sanityCheck(ctx, db); err != nil {
		db.Close()
		release()
		cached.Close()
		return nil, newError(KindChunkedInit, "verify chunked database", err)
	}

	eng := &Engine{
		db:       db,
		mode:     ModeChunked,
		coverage: cached.Coverage,
		cleanup: func() error {
			release()
			return cached.Close()
		},
	}
	return eng, nil
}

// chunkedAsset resolves the remote file for the chunked path. An explicit
// source option wins; otherwise the chunk config tells us the byte length,
// the preferred chunk size and the final URL.
func (s *Session) chunkedAsset(ctx context.Context) (asset.Source, int64, int64, error) {
	if s.opts.source != nil {
		info, err := s.opts.source.Stat(ctx)
		if err != nil {
			return nil, 0, 0, newError(KindChunkedInit, "stat database source", err)
		}
		return s.opts.source, info.Size, s.opts.chunkSize, nil
	}

	cfg, err := s.fetchChunkConfig(ctx)
	if err != nil {
		return nil, 0, 0, err
	}

	blockSize := s.opts.chunkSize
	if cfg.RequestChunkSize > 0 {
		blockSize = cfg.RequestChunkSize
	}

	srcOpts := []asset.HTTPOption{asset.WithKnownSize(cfg.DatabaseLengthBytes)}
	if s.opts.rateLimit > 0 {
		srcOpts = append(srcOpts, asset.WithRateLimiter(rate.NewLimiter(s.opts.rateLimit, s.opts.rateBurst)))
	}
	src := asset.NewHTTPSource(s.opts.httpClient, cfg.URL, srcOpts...)
	return src, cfg.DatabaseLengthBytes, blockSize, nil
}

func (s *Session) newBlockCache() (blockcache.Cache, error) {
	if s.opts.diskCacheDir != "" {
		return blockcache.NewDisk(blockcache.DiskConfig{
			RootDir:      s.opts.diskCacheDir,
			MaxSizeBytes: s.opts.diskCacheBytes,
		})
	}
	return blockcache.NewLRU(s.opts.memCacheBytes), nil
}

// verifyHeader reads the 100-byte SQLite header through the cache and
// cross-checks the file magic and the declared page geometry against the
// configured byte length. Catching a stale config here costs one block
// fetch instead of a failed query later.
func verifyHeader(ctx context.Context, src chunkedSource, size int64) error {
	header := make([]byte, 100)
	if _, err := src.ReadAt(ctx, header, 0); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return newError(KindNotSQLite, "read database header", fmt.Errorf("file shorter than header: %d bytes", size))
		}
		return newError(KindChunkedInit, "read database header", err)
	}

	if string(header[:16]) != sqliteMagic {
		return newError(KindNotSQLite, "read database header", fmt.Errorf("bad magic %q", header[:16]))
	}

	pageSize := int64(binary.BigEndian.Uint16(header[16:18]))
	if pageSize == 1 {
		pageSize = 65536
	}

	// The in-header page count is only authoritative when the change
	// counter matches the version-valid-for number.
	changeCounter := binary.BigEndian.Uint32(header[24:28])
	versionValidFor := binary.BigEndian.Uint32(header[92:96])
	if changeCounter == versionValidFor {
		pageCount := int64(binary.BigEndian.Uint32(header[28:32]))
		if declared := pageSize * pageCount; declared != size {
			return newError(KindLengthMismatch, "verify database length",
				fmt.Errorf("header declares %d bytes (%d pages of %d), config says %d", declared, pageCount, pageSize, size))
		}
	}
	return nil
}

// sanityCheck runs two cheap reads against a freshly opened handle so we
// fail inside the loader rather than on the caller's first query.
func sanityCheck(ctx context.Context, db *sql.DB) error {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return fmt.Errorf("sqlite_version: %w", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		return fmt.Errorf("read sqlite_master: %w", err)
	}
	return nil
}
