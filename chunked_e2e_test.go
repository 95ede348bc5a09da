//go:build cgo

package archidb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archi-map/archidb/testutil"
)

func TestChunkedEndToEnd(t *testing.T) {
	ctx := context.Background()

	t.Run("queries without a full download", func(t *testing.T) {
		path := testutil.BuildFixtureDB(t)
		host := testutil.NewHost(t, path)

		s := New(Config{
			DatabaseURL: host.DBURL(),
			ConfigURL:   host.ConfigURL(),
		})
		defer s.Close()

		eng, err := s.Initialize(ctx)
		require.NoError(t, err)
		assert.Equal(t, ModeChunked, eng.Mode())
		assert.Equal(t, StatusReady, s.Status())

		rows, err := s.QueryAll(ctx,
			"SELECT ZAR_NAME FROM ZCDARCHITECT ORDER BY Z_PK")
		require.NoError(t, err)
		require.Len(t, rows, len(testutil.FixtureArchitects))
		assert.Equal(t, "安藤忠雄", rows[0]["ZAR_NAME"])

		assert.Greater(t, host.RangeRequests.Load(), int64(0), "reads must go through range requests")
		assert.Equal(t, int64(0), host.FullRequests.Load(), "chunked mode must never download the whole file")

		cov, ok := s.Coverage()
		require.True(t, ok)
		assert.Greater(t, cov.BlocksLoaded, uint64(0))
		assert.LessOrEqual(t, cov.BytesLoaded, cov.BlockSize*int64(cov.BlocksTotal))
	})

	t.Run("host without range support falls back", func(t *testing.T) {
		path := testutil.BuildFixtureDB(t)
		host := testutil.NewHost(t, path)
		host.DenyRanges.Store(true)

		s := New(Config{
			DatabaseURL: host.DBURL(),
			ConfigURL:   host.ConfigURL(),
		}, WithTempDir(t.TempDir()))
		defer s.Close()

		eng, err := s.Initialize(ctx)
		require.NoError(t, err)
		assert.Equal(t, ModeDirect, eng.Mode())
	})

	t.Run("disk cache persists across sessions", func(t *testing.T) {
		path := testutil.BuildFixtureDB(t)
		host := testutil.NewHost(t, path)
		cacheDir := t.TempDir()

		open := func() int64 {
			s := New(Config{
				DatabaseURL: host.DBURL(),
				ConfigURL:   host.ConfigURL(),
			}, WithDiskCache(cacheDir, 64<<20))
			defer s.Close()

			_, err := s.QueryAll(ctx, "SELECT Z_PK FROM ZCDBUILDING")
			require.NoError(t, err)
			return host.RangeRequests.Load()
		}

		first := open()
		second := open() - first
		assert.Less(t, second, first, "a warm cache must need fewer range requests")
	})
}
