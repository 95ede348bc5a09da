package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archi-map/archidb"
	"github.com/archi-map/archidb/repo"
	"github.com/archi-map/archidb/testutil"
)

func newSession(t *testing.T) *archidb.Session {
	t.Helper()

	path := testutil.BuildFixtureDB(t)
	host := testutil.NewHost(t, path)

	s := archidb.New(archidb.Config{
		DatabaseURL:    host.DBURL(),
		DisableChunked: true,
	}, archidb.WithTempDir(t.TempDir()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestArchitects(t *testing.T) {
	ctx := context.Background()
	architects := repo.NewArchitects(newSession(t))

	t.Run("get by key", func(t *testing.T) {
		a, err := architects.Get(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, "安藤忠雄", a.Name)
		assert.Equal(t, "Tadao Ando", a.NameEng)
		assert.Equal(t, int64(1941), a.BirthYear)
	})

	t.Run("get missing", func(t *testing.T) {
		a, err := architects.Get(ctx, 99)
		require.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("search by name", func(t *testing.T) {
		got, err := architects.Search(ctx, repo.ArchitectFilter{Name: "kuma"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "隈研吾", got[0].Name)
	})

	t.Run("search by japanese name", func(t *testing.T) {
		got, err := architects.Search(ctx, repo.ArchitectFilter{Name: "丹下"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Kenzo Tange", got[0].NameEng)
	})

	t.Run("search by birth year range", func(t *testing.T) {
		got, err := architects.Search(ctx, repo.ArchitectFilter{BornAfter: 1940, BornBefore: 1960})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("pagination", func(t *testing.T) {
		page1, err := architects.Search(ctx, repo.ArchitectFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, page1, 2)

		page2, err := architects.Search(ctx, repo.ArchitectFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page2, 1)
		assert.NotContains(t, []int64{page1[0].ID, page1[1].ID}, page2[0].ID)
	})

	t.Run("count", func(t *testing.T) {
		n, err := architects.Count(ctx, repo.ArchitectFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(len(testutil.FixtureArchitects)), n)

		n, err = architects.Count(ctx, repo.ArchitectFilter{BornAfter: 1950})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestBuildings(t *testing.T) {
	ctx := context.Background()
	buildings := repo.NewBuildings(newSession(t))

	t.Run("get by key", func(t *testing.T) {
		b, err := buildings.Get(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, "光の教会", b.Title)
		assert.Equal(t, "大阪府", b.Prefecture)
		assert.Equal(t, int64(1989), b.Year)
		assert.InDelta(t, 34.8196, b.Latitude, 1e-4)
	})

	t.Run("filter by prefecture", func(t *testing.T) {
		got, err := buildings.Search(ctx, repo.BuildingFilter{Prefecture: "東京都"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "根津美術館", got[0].Title, "newest first")
	})

	t.Run("filter by architect", func(t *testing.T) {
		got, err := buildings.Search(ctx, repo.BuildingFilter{Architect: 1})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("filter by year range", func(t *testing.T) {
		got, err := buildings.Search(ctx, repo.BuildingFilter{BuiltAfter: 2000, BuiltBefore: 2010})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("combined filters", func(t *testing.T) {
		got, err := buildings.Search(ctx, repo.BuildingFilter{
			Prefecture: "東京都",
			BuiltAfter: 2000,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Nezu Museum", got[0].TitleEng)
	})

	t.Run("title search", func(t *testing.T) {
		got, err := buildings.Search(ctx, repo.BuildingFilter{Title: "museum"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("count", func(t *testing.T) {
		n, err := buildings.Count(ctx, repo.BuildingFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(testutil.FixtureBuildingCount), n)
	})

	t.Run("prefecture histogram", func(t *testing.T) {
		got, err := buildings.Prefectures(ctx)
		require.NoError(t, err)
		assert.Equal(t, []repo.PrefectureCount{
			{Prefecture: "東京都", Count: 2},
			{Prefecture: "大阪府", Count: 1},
			{Prefecture: "香川県", Count: 1},
		}, got, "count descending, ties by name")
	})
}
