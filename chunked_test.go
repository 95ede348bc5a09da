package archidb

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archi-map/archidb/testutil"
)

type memSource []byte

func (m memSource) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off >= int64(len(m)) {
		return 0, io.EOF
	}
	n := copy(p, m[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m memSource) Size() int64 { return int64(len(m)) }

func TestVerifyHeader(t *testing.T) {
	ctx := context.Background()

	t.Run("real database passes", func(t *testing.T) {
		data, err := os.ReadFile(testutil.BuildFixtureDB(t))
		require.NoError(t, err)

		err = verifyHeader(ctx, memSource(data), int64(len(data)))
		assert.NoError(t, err)
	})

	t.Run("bad magic", func(t *testing.T) {
		data := make([]byte, 4096)
		copy(data, "PK\x03\x04")

		err := verifyHeader(ctx, memSource(data), int64(len(data)))
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotSQLite))
	})

	t.Run("too short", func(t *testing.T) {
		err := verifyHeader(ctx, memSource([]byte("SQLite")), 6)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotSQLite))
	})

	t.Run("length mismatch", func(t *testing.T) {
		data, err := os.ReadFile(testutil.BuildFixtureDB(t))
		require.NoError(t, err)

		err = verifyHeader(ctx, memSource(data), int64(len(data))+4096)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindLengthMismatch))
	})

	t.Run("stale page count is ignored", func(t *testing.T) {
		data, err := os.ReadFile(testutil.BuildFixtureDB(t))
		require.NoError(t, err)

		// Desync the change counter so the in-header page count no longer
		// counts as authoritative.
		counter := binary.BigEndian.Uint32(data[24:28])
		binary.BigEndian.PutUint32(data[24:28], counter+1)

		err = verifyHeader(ctx, memSource(data), int64(len(data))+4096)
		assert.NoError(t, err)
	})
}

func TestChunkedAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("from chunk config", func(t *testing.T) {
		path := testutil.BuildFixtureDB(t)
		host := testutil.NewHost(t, path)

		s := New(Config{ConfigURL: host.ConfigURL()})
		src, size, blockSize, err := s.chunkedAsset(ctx)
		require.NoError(t, err)
		defer src.Close()

		assert.Equal(t, testutil.FixtureSize(t, path), size)
		assert.Equal(t, int64(4096), blockSize, "chunk size must come from the config")
	})

	t.Run("config failure surfaces as config kind", func(t *testing.T) {
		path := testutil.BuildFixtureDB(t)
		host := testutil.NewHost(t, path)
		host.FailConfig.Store(true)

		s := New(Config{ConfigURL: host.ConfigURL()})
		_, _, _, err := s.chunkedAsset(ctx)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindConfigUnreachable))
	})
}
