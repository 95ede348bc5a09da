//go:build !cgo

package archidb

import (
	"database/sql"
	"errors"
)

// openChunkedEngine reports the chunked driver as unavailable. The range VFS
// rides on the cgo SQLite driver; without cgo the session falls back to the
// direct download path, which uses the pure Go driver.
func openChunkedEngine(src chunkedSource) (*sql.DB, func(), error) {
	_ = src
	return nil, nil, newError(KindDriverUnavailable, "open chunked database",
		errors.New("chunked driver requires cgo"))
}
