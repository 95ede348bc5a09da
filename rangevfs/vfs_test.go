//go:build cgo

package rangevfs

import (
	"context"
	"database/sql"
	"io"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archi-map/archidb/testutil"
)

type byteSource []byte

func (s byteSource) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off >= int64(len(s)) {
		return 0, io.EOF
	}
	n := copy(p, s[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s byteSource) Size() int64 { return int64(len(s)) }

func TestRegisterAndQuery(t *testing.T) {
	data, err := os.ReadFile(testutil.BuildFixtureDB(t))
	require.NoError(t, err)

	name, release, err := Register(byteSource(data))
	require.NoError(t, err)
	defer release()

	db, err := sql.Open("sqlite3", DSN(name))
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM ZCDARCHITECT").Scan(&count))
	assert.Equal(t, len(testutil.FixtureArchitects), count)

	var title string
	require.NoError(t, db.QueryRow(
		"SELECT ZBD_TITLE FROM ZCDBUILDING WHERE ZBD_PREFECTURE = ? ORDER BY ZBD_YEAR LIMIT 1",
		"東京都").Scan(&title))
	assert.Equal(t, "国立代々木競技場", title)
}

func TestWritesRejected(t *testing.T) {
	data, err := os.ReadFile(testutil.BuildFixtureDB(t))
	require.NoError(t, err)

	name, release, err := Register(byteSource(data))
	require.NoError(t, err)
	defer release()

	db, err := sql.Open("sqlite3", DSN(name))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("INSERT INTO ZCDARCHITECT (Z_PK, ZAR_NAME) VALUES (99, 'x')")
	assert.Error(t, err, "the vfs is read-only")
}

func TestUnknownFile(t *testing.T) {
	db, err := sql.Open("sqlite3", DSN("never-registered.db"))
	require.NoError(t, err)
	defer db.Close()

	// sql.Open is lazy; the missing file surfaces on first use.
	assert.Error(t, db.Ping())
}

func TestConcurrentSources(t *testing.T) {
	data, err := os.ReadFile(testutil.BuildFixtureDB(t))
	require.NoError(t, err)

	nameA, releaseA, err := Register(byteSource(data))
	require.NoError(t, err)
	defer releaseA()
	nameB, releaseB, err := Register(byteSource(data))
	require.NoError(t, err)
	defer releaseB()

	assert.NotEqual(t, nameA, nameB, "every registration gets its own file name")

	for _, name := range []string{nameA, nameB} {
		db, err := sql.Open("sqlite3", DSN(name))
		require.NoError(t, err)
		var n int
		require.NoError(t, db.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&n))
		assert.Greater(t, n, 0)
		require.NoError(t, db.Close())
	}
}
