package asset

import (
	"context"
	"errors"
	"io"
	"os"
	"time"
)

// ErrNotFound is returned when the remote asset does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// ErrRangeUnsupported is returned when the host answers a ranged request with
// the full body. Serving the full file where a chunk was asked for usually
// means a proxy or compression layer rewrote the response, and the advertised
// length can no longer be trusted.
var ErrRangeUnsupported = errors.New("asset: host does not honor range requests")

// Info describes a remote asset.
type Info struct {
	// Size is the size of the asset in bytes. For hosts that serve
	// compressed bytes this is the configured uncompressed size, not the
	// advertised content length.
	Size int64
	// ETag is the entity tag reported by the host, if any.
	ETag string
	// LastModified is the modification time reported by the host, if any.
	LastModified time.Time
}

// Source is a read-only handle to the remote database asset.
type Source interface {
	// Stat verifies the asset is reachable and returns its metadata.
	Stat(ctx context.Context) (Info, error)

	// ReadAt reads len(p) bytes starting at offset off using a bounded
	// range request. It returns io.EOF when the read extends past the end
	// of the asset.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)

	// Download fetches the entire asset into w and returns the number of
	// bytes written.
	Download(ctx context.Context, w io.WriterAt) (int64, error)

	// Close releases resources held by the source.
	Close() error
}

// sequentialWriterAt adapts an io.WriterAt to io.Writer for backends that
// stream the body in order.
type sequentialWriterAt struct {
	w   io.WriterAt
	off int64
}

// NewSequentialWriter wraps w so that successive writes land at increasing
// offsets. It is not safe for concurrent use.
func NewSequentialWriter(w io.WriterAt) io.Writer {
	return &sequentialWriterAt{w: w}
}

func (s *sequentialWriterAt) Write(p []byte) (int, error) {
	n, err := s.w.WriteAt(p, s.off)
	s.off += int64(n)
	return n, err
}
