package archidb

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a failure at the site where it happens. Callers branch on
// kinds with KindOf or errors.As; message text is never inspected.
type Kind int

const (
	// KindUnknown covers failures that fit no other kind.
	KindUnknown Kind = iota
	// KindConfigUnreachable means the chunk config asset did not respond
	// with success or did not parse.
	KindConfigUnreachable
	// KindFileUnreachable means the database asset did not respond with
	// success.
	KindFileUnreachable
	// KindDriverUnavailable means the chunked engine's driver is not
	// available in this build.
	KindDriverUnavailable
	// KindChunkedInit means the chunked engine failed during VFS or
	// connection construction.
	KindChunkedInit
	// KindLengthMismatch means the bytes served do not match the
	// configured length, typically a compressing host or a proxy that
	// ignores range requests.
	KindLengthMismatch
	// KindNotSQLite means the downloaded payload is not a SQLite file.
	KindNotSQLite
	// KindTimeout means a network operation exceeded its deadline.
	KindTimeout
	// KindNotInitialized means a query ran with no live engine handle.
	KindNotInitialized
	// KindQueryFailed means the engine rejected a query.
	KindQueryFailed
)

func (k Kind) String() string {
	switch k {
	case KindConfigUnreachable:
		return "config_unreachable"
	case KindFileUnreachable:
		return "file_unreachable"
	case KindDriverUnavailable:
		return "driver_unavailable"
	case KindChunkedInit:
		return "chunked_init"
	case KindLengthMismatch:
		return "length_mismatch"
	case KindNotSQLite:
		return "not_sqlite"
	case KindTimeout:
		return "timeout"
	case KindNotInitialized:
		return "not_initialized"
	case KindQueryFailed:
		return "query_failed"
	default:
		return "unknown"
	}
}

// Error is the failure type surfaced by the loaders and the query facade.
//
// The underlying error is preserved verbatim and can be accessed via
// errors.Unwrap; Hint carries the user-facing message added by enrichment.
type Error struct {
	Kind Kind
	Op   string
	Hint string
	err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.err != nil {
		msg = fmt.Sprintf("%s: %v", e.Op, e.err)
	}
	if e.Hint != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Hint)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.err }

// newError wraps err with a kind at the throw site.
func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, err: err}
}

// KindOf extracts the kind from err, unwrapping as needed. Context deadline
// and net timeouts classify as KindTimeout even when untagged.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != KindUnknown {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
