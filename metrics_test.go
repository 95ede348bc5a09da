package archidb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archi-map/archidb/testutil"
)

func TestBasicMetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}

	mc.RecordInit(ModeChunked, 10*time.Millisecond, nil)
	mc.RecordInit(ModeDirect, 20*time.Millisecond, errors.New("boom"))
	mc.RecordQuery(time.Millisecond, nil)
	mc.RecordQuery(time.Millisecond, errors.New("bad sql"))
	mc.RecordChunkFetch(4096, time.Millisecond, nil)
	mc.RecordChunkFetch(4096, time.Millisecond, nil)
	mc.RecordDownload(1<<20, time.Second, nil)

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.InitCount)
	assert.Equal(t, int64(1), stats.InitErrors)
	assert.Equal(t, int64(2), stats.QueryCount)
	assert.Equal(t, int64(1), stats.QueryErrors)
	assert.Equal(t, int64(2), stats.ChunkFetchCount)
	assert.Equal(t, int64(8192), stats.ChunkFetchBytes)
	assert.Equal(t, int64(1), stats.DownloadCount)
	assert.Equal(t, int64(1<<20), stats.DownloadBytes)
}

func TestMetricsFlowThroughSession(t *testing.T) {
	path := testutil.BuildFixtureDB(t)
	host := testutil.NewHost(t, path)

	mc := &BasicMetricsCollector{}
	s := New(Config{DatabaseURL: host.DBURL(), DisableChunked: true},
		WithMetricsCollector(mc), WithTempDir(t.TempDir()))
	defer s.Close()

	_, err := s.Execute(context.Background(), "SELECT 1")
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.InitCount)
	assert.Equal(t, int64(0), stats.InitErrors)
	assert.Equal(t, int64(1), stats.QueryCount)
	assert.Equal(t, int64(1), stats.DownloadCount)
	assert.Greater(t, stats.DownloadBytes, int64(0))
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	pc, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	pc.RecordInit(ModeChunked, 5*time.Millisecond, nil)
	pc.RecordQuery(time.Millisecond, nil)
	pc.RecordChunkFetch(4096, time.Millisecond, nil)
	pc.RecordChunkFetch(0, time.Millisecond, errors.New("range failed"))
	pc.RecordDownload(1<<20, time.Second, nil)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["archidb_init_attempts_total"])
	assert.True(t, names["archidb_queries_total"])
	assert.True(t, names["archidb_chunk_fetches_total"])
	assert.True(t, names["archidb_chunk_fetch_errors_total"])
	assert.True(t, names["archidb_download_bytes_total"])
}
