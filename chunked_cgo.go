//go:build cgo

package archidb

import (
	"database/sql"

	// Registers the "sqlite3" driver the range VFS plugs into.
	_ "github.com/mattn/go-sqlite3"

	"github.com/archi-map/archidb/rangevfs"
)

// openChunkedEngine mounts src behind the range VFS and opens a read-only
// single-connection handle on it. The returned release func unregisters the
// virtual file.
func openChunkedEngine(src chunkedSource) (*sql.DB, func(), error) {
	name, release, err := rangevfs.Register(src)
	if err != nil {
		return nil, nil, newError(KindChunkedInit, "register range vfs", err)
	}

	db, err := sql.Open("sqlite3", rangevfs.DSN(name))
	if err != nil {
		release()
		return nil, nil, newError(KindChunkedInit, "open chunked database", err)
	}

	// SQLite serializes access per connection anyway; a second connection
	// would only duplicate page cache over the same remote file.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return db, release, nil
}
