package blockcache

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archi-map/archidb/asset"
)

// countingSource wraps a MemorySource and counts backend reads.
type countingSource struct {
	*asset.MemorySource
	reads atomic.Int64
	fail  atomic.Bool
}

func (s *countingSource) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if s.fail.Load() {
		return 0, errors.New("backend down")
	}
	s.reads.Add(1)
	return s.MemorySource.ReadAt(ctx, p, off)
}

func newCountingSource(n int) (*countingSource, []byte) {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return &countingSource{MemorySource: asset.NewMemorySource(data)}, data
}

func TestCachedSourceReadAt(t *testing.T) {
	ctx := context.Background()

	t.Run("reads through and caches", func(t *testing.T) {
		src, data := newCountingSource(1 << 16)
		cs := NewCachedSource(src, NewLRU(1<<20), "db", int64(len(data)), 4096, nil)

		p := make([]byte, 100)
		n, err := cs.ReadAt(ctx, p, 5000)
		require.NoError(t, err)
		assert.Equal(t, 100, n)
		assert.Equal(t, data[5000:5100], p)

		before := src.reads.Load()
		n, err = cs.ReadAt(ctx, p, 5050)
		require.NoError(t, err)
		assert.Equal(t, 100, n)
		assert.Equal(t, before, src.reads.Load(), "second read inside a cached block must not hit the backend")
	})

	t.Run("read spanning blocks", func(t *testing.T) {
		src, data := newCountingSource(1 << 16)
		cs := NewCachedSource(src, NewLRU(1<<20), "db", int64(len(data)), 4096, nil)

		p := make([]byte, 10000)
		n, err := cs.ReadAt(ctx, p, 1000)
		require.NoError(t, err)
		assert.Equal(t, 10000, n)
		assert.Equal(t, data[1000:11000], p)
	})

	t.Run("missing run fetched in one request", func(t *testing.T) {
		src, data := newCountingSource(1 << 16)
		cs := NewCachedSource(src, NewLRU(1<<20), "db", int64(len(data)), 4096, nil)

		p := make([]byte, 3*4096)
		_, err := cs.ReadAt(ctx, p, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), src.reads.Load(), "three contiguous missing blocks coalesce into one fetch")
	})

	t.Run("short read at the tail", func(t *testing.T) {
		size := int64(4096 + 100)
		src, data := newCountingSource(int(size))
		cs := NewCachedSource(src, NewLRU(1<<20), "db", size, 4096, nil)

		p := make([]byte, 4096)
		n, err := cs.ReadAt(ctx, p, 4096)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, 100, n)
		assert.Equal(t, data[4096:], p[:n])
	})

	t.Run("read spanning past the last block", func(t *testing.T) {
		src, data := newCountingSource(100)
		cs := NewCachedSource(src, NewLRU(1<<20), "db", 100, 64, nil)

		// Starts inside the short last block, extends well past the end.
		p := make([]byte, 100)
		n, err := cs.ReadAt(ctx, p, 90)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, 10, n)
		assert.Equal(t, data[90:], p[:n])
	})

	t.Run("offset past the end", func(t *testing.T) {
		src, _ := newCountingSource(4096)
		cs := NewCachedSource(src, NewLRU(1<<20), "db", 4096, 4096, nil)

		_, err := cs.ReadAt(ctx, make([]byte, 10), 4096)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("backend failure propagates", func(t *testing.T) {
		src, _ := newCountingSource(1 << 16)
		src.fail.Store(true)
		cs := NewCachedSource(src, NewLRU(1<<20), "db", 1<<16, 4096, nil)

		_, err := cs.ReadAt(ctx, make([]byte, 100), 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backend down")
	})

	t.Run("canceled context", func(t *testing.T) {
		src, _ := newCountingSource(1 << 16)
		cs := NewCachedSource(src, NewLRU(1<<20), "db", 1<<16, 4096, nil)

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := cs.ReadAt(canceled, make([]byte, 100), 0)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCachedSourceCoverage(t *testing.T) {
	ctx := context.Background()
	src, data := newCountingSource(10 * 4096)
	cs := NewCachedSource(src, NewLRU(1<<20), "db", int64(len(data)), 4096, nil)

	cov := cs.Coverage()
	assert.Equal(t, uint64(10), cov.BlocksTotal)
	assert.Equal(t, uint64(0), cov.BlocksLoaded)
	assert.Equal(t, 0.0, cov.Fraction)

	_, err := cs.ReadAt(ctx, make([]byte, 2*4096), 0)
	require.NoError(t, err)

	cov = cs.Coverage()
	assert.Equal(t, uint64(2), cov.BlocksLoaded)
	assert.Equal(t, int64(2*4096), cov.BytesLoaded)
	assert.InDelta(t, 0.2, cov.Fraction, 1e-9)
}

func TestCachedSourceFetchCallback(t *testing.T) {
	ctx := context.Background()
	src, data := newCountingSource(1 << 16)

	var fetches atomic.Int64
	var bytes atomic.Int64
	cs := NewCachedSource(src, NewLRU(1<<20), "db", int64(len(data)), 4096,
		func(n int64, d time.Duration, err error) {
			fetches.Add(1)
			bytes.Add(n)
			assert.NoError(t, err)
		})

	_, err := cs.ReadAt(ctx, make([]byte, 4096), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetches.Load())
	assert.Equal(t, int64(4096), bytes.Load())
}

func TestCachedSourceDefaultBlockSize(t *testing.T) {
	src, data := newCountingSource(1 << 17)
	cs := NewCachedSource(src, NewLRU(1<<20), "db", int64(len(data)), 0, nil)
	assert.Equal(t, int64(64*1024), cs.Coverage().BlockSize)
}
