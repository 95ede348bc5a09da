package archidb

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	// Registers the pure Go "sqlite" driver used by the direct path.
	_ "modernc.org/sqlite"

	"github.com/archi-map/archidb/asset"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// loadDirect downloads the whole database to a temp file and opens it with
// the in-process driver. It is the fallback when the chunked path fails and
// the only path when chunking is disabled.
func (s *Session) loadDirect(ctx context.Context) (*Engine, error) {
	src, err := s.directAsset(ctx)
	if err != nil {
		return nil, err
	}

	path, err := s.download(ctx, src)
	if err != nil {
		return nil, err
	}

	path, err = s.decompressIfNeeded(path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	if err := verifyLocalHeader(path); err != nil {
		os.Remove(path)
		return nil, err
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		os.Remove(path)
		return nil, newError(KindUnknown, "open database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := sanityCheck(ctx, db); err != nil {
		db.Close()
		os.Remove(path)
		return nil, newError(KindNotSQLite, "verify database", err)
	}

	s.logRowCounts(ctx, db)

	eng := &Engine{
		db:   db,
		mode: ModeDirect,
		cleanup: func() error {
			return os.Remove(path)
		},
	}
	return eng, nil
}

// directAsset resolves the source for the full download, checking
// reachability up front so unreachable hosts fail with a clear kind instead
// of a stalled download.
func (s *Session) directAsset(ctx context.Context) (asset.Source, error) {
	if s.opts.source != nil {
		if _, err := s.opts.source.Stat(ctx); err != nil {
			return nil, newError(KindFileUnreachable, "stat database source", err)
		}
		return s.opts.source, nil
	}

	if s.cfg.DatabaseURL == "" {
		return nil, newError(KindFileUnreachable, "resolve database url",
			fmt.Errorf("no database url configured"))
	}
	if _, err := asset.CheckReachable(ctx, s.opts.httpClient, s.cfg.DatabaseURL); err != nil {
		return nil, newError(KindFileUnreachable, "reach database url", err)
	}
	return asset.NewHTTPSource(s.opts.httpClient, s.cfg.DatabaseURL), nil
}

func (s *Session) download(ctx context.Context, src asset.Source) (string, error) {
	f, err := os.CreateTemp(s.opts.tempDir, "archidb-*.db")
	if err != nil {
		return "", newError(KindUnknown, "create temp file", err)
	}
	path := f.Name()

	start := time.Now()
	n, err := src.Download(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	s.metrics.RecordDownload(n, time.Since(start), err)
	if err != nil {
		os.Remove(path)
		return "", newError(KindFileUnreachable, "download database", err)
	}
	s.logger.LogDownload(ctx, n, time.Since(start))
	return path, nil
}

// decompressIfNeeded sniffs the downloaded file and inflates gzip or zstd
// payloads into a fresh temp file. Hosts sometimes serve pre-compressed
// snapshots without a matching Content-Encoding header.
func (s *Session) decompressIfNeeded(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return path, newError(KindUnknown, "open downloaded file", err)
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return path, newError(KindNotSQLite, "read downloaded file",
			fmt.Errorf("file too short: %w", err))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return path, newError(KindUnknown, "read downloaded file", err)
	}

	var r io.Reader
	switch {
	case bytes.Equal(magic[:2], gzipMagic):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return path, newError(KindNotSQLite, "decompress database", err)
		}
		defer gz.Close()
		r = gz
	case bytes.Equal(magic, zstdMagic):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return path, newError(KindNotSQLite, "decompress database", err)
		}
		defer zr.Close()
		r = zr
	default:
		return path, nil
	}

	out, err := os.CreateTemp(s.opts.tempDir, "archidb-*.db")
	if err != nil {
		return path, newError(KindUnknown, "create temp file", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(out.Name())
		return path, newError(KindNotSQLite, "decompress database", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return path, newError(KindUnknown, "decompress database", err)
	}

	os.Remove(path)
	return out.Name(), nil
}

func verifyLocalHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return newError(KindUnknown, "open downloaded file", err)
	}
	defer f.Close()

	magic := make([]byte, 16)
	if _, err := io.ReadFull(f, magic); err != nil {
		return newError(KindNotSQLite, "read database header",
			fmt.Errorf("file too short: %w", err))
	}
	if string(magic) != sqliteMagic {
		return newError(KindNotSQLite, "read database header",
			fmt.Errorf("bad magic %q", magic))
	}
	return nil
}

// logRowCounts logs the table sizes of the two core tables when present.
// Purely informational; copies of the database without one of the tables
// are still usable.
func (s *Session) logRowCounts(ctx context.Context, db *sql.DB) {
	for _, table := range []string{"ZCDARCHITECT", "ZCDBUILDING"} {
		var n int64
		if err := db.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
			continue
		}
		s.logger.DebugContext(ctx, "table loaded", "table", table, "rows", n)
	}
}
