package archidb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archi-map/archidb/testutil"
)

func newDirectSession(t *testing.T) *Session {
	t.Helper()

	path := testutil.BuildFixtureDB(t)
	host := testutil.NewHost(t, path)

	s := New(Config{
		DatabaseURL:    host.DBURL(),
		DisableChunked: true,
	}, WithTempDir(t.TempDir()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	s := newDirectSession(t)

	t.Run("select literal", func(t *testing.T) {
		res, err := s.Execute(ctx, "SELECT 1 as test")
		require.NoError(t, err)
		require.Len(t, res.Values, 1)

		rows := res.Maps()
		require.Len(t, rows, 1)
		assert.Equal(t, int64(1), rows[0]["test"])
	})

	t.Run("columns and values line up", func(t *testing.T) {
		res, err := s.Execute(ctx,
			"SELECT Z_PK, ZAR_NAME FROM ZCDARCHITECT ORDER BY Z_PK")
		require.NoError(t, err)
		assert.Equal(t, []string{"Z_PK", "ZAR_NAME"}, res.Columns)
		require.Len(t, res.Values, len(testutil.FixtureArchitects))
		for _, row := range res.Values {
			assert.Len(t, row, len(res.Columns))
		}
		assert.Equal(t, "安藤忠雄", res.Values[0][1])
	})

	t.Run("placeholders", func(t *testing.T) {
		rows, err := s.QueryAll(ctx,
			"SELECT ZBD_TITLE FROM ZCDBUILDING WHERE ZBD_PREFECTURE = ? ORDER BY Z_PK", "東京都")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "根津美術館", rows[0]["ZBD_TITLE"])
	})

	t.Run("empty result is non-nil", func(t *testing.T) {
		res, err := s.Execute(ctx, "SELECT Z_PK FROM ZCDARCHITECT WHERE Z_PK = -1")
		require.NoError(t, err)
		assert.NotNil(t, res.Values)
		assert.Empty(t, res.Values)

		rows := res.Maps()
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})

	t.Run("bad sql is a query failure", func(t *testing.T) {
		_, err := s.Execute(ctx, "SELECT FROM nothing")
		require.Error(t, err)
		assert.True(t, IsKind(err, KindQueryFailed))
		assert.Contains(t, err.Error(), "syntax")
	})
}

func TestQueryOne(t *testing.T) {
	ctx := context.Background()
	s := newDirectSession(t)

	t.Run("first row", func(t *testing.T) {
		row, err := s.QueryOne(ctx,
			"SELECT ZAR_NAME, ZAR_BIRTHYEAR FROM ZCDARCHITECT WHERE Z_PK = ?", 2)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, "隈研吾", row["ZAR_NAME"])
		assert.Equal(t, int64(1954), row["ZAR_BIRTHYEAR"])
	})

	t.Run("nil when no rows", func(t *testing.T) {
		row, err := s.QueryOne(ctx, "SELECT Z_PK FROM ZCDARCHITECT WHERE Z_PK = -1")
		require.NoError(t, err)
		assert.Nil(t, row)
	})
}

func TestResultMaps(t *testing.T) {
	t.Run("m rows by n columns", func(t *testing.T) {
		res := &Result{
			Columns: []string{"a", "b", "c"},
			Values: [][]any{
				{int64(1), "x", nil},
				{int64(2), "y", 3.5},
			},
		}
		rows := res.Maps()
		require.Len(t, rows, 2)
		for _, row := range rows {
			assert.Len(t, row, 3)
		}
		assert.Equal(t, int64(2), rows[1]["a"])
		assert.Equal(t, 3.5, rows[1]["c"])
	})

	t.Run("empty", func(t *testing.T) {
		res := &Result{Columns: []string{"a"}, Values: [][]any{}}
		rows := res.Maps()
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})
}

func TestExecuteInitializesLazily(t *testing.T) {
	s := newDirectSession(t)
	assert.Equal(t, StatusNotInitialized, s.Status())

	_, err := s.Execute(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, s.Status())
}
