package blockcache

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/archi-map/archidb/asset"
)

// Coverage reports how much of the remote asset has been fetched through the
// chunked path. A fraction approaching 1.0 means a full download would have
// been cheaper.
type Coverage struct {
	BlockSize    int64
	BlocksTotal  uint64
	BlocksLoaded uint64
	BytesLoaded  int64
	Fraction     float64
}

// FetchFunc observes backend fetches (bytes, latency, outcome).
type FetchFunc func(bytes int64, duration time.Duration, err error)

// CachedSource wraps an asset.Source with block-aligned caching.
// Reads are split on block boundaries; missing blocks are fetched from the
// backend in coalesced runs, in parallel, and populated into the cache.
type CachedSource struct {
	src       asset.Source
	cache     Cache
	name      string
	size      int64
	blockSize int64

	onFetch FetchFunc

	mu      sync.Mutex
	fetched *roaring.Bitmap
	bytes   int64
}

// NewCachedSource creates a CachedSource over src.
// name scopes cache keys (use the asset URL or object key), size is the
// authoritative asset length, blockSize defaults to 64KB if <= 0.
func NewCachedSource(src asset.Source, cache Cache, name string, size, blockSize int64, onFetch FetchFunc) *CachedSource {
	if blockSize <= 0 {
		blockSize = 64 * 1024
	}
	return &CachedSource{
		src:       src,
		cache:     cache,
		name:      name,
		size:      size,
		blockSize: blockSize,
		onFetch:   onFetch,
		fetched:   roaring.New(),
	}
}

// Size returns the asset length in bytes.
func (s *CachedSource) Size() int64 {
	return s.size
}

// Coverage returns fetch statistics for the asset.
func (s *CachedSource) Coverage() Coverage {
	s.mu.Lock()
	loaded := s.fetched.GetCardinality()
	bytes := s.bytes
	s.mu.Unlock()

	total := uint64((s.size + s.blockSize - 1) / s.blockSize)
	cov := Coverage{
		BlockSize:    s.blockSize,
		BlocksTotal:  total,
		BlocksLoaded: loaded,
		BytesLoaded:  bytes,
	}
	if total > 0 {
		cov.Fraction = float64(loaded) / float64(total)
	}
	return cov
}

// Close closes the underlying source.
func (s *CachedSource) Close() error {
	return s.src.Close()
}

// ReadAt reads len(p) bytes at offset off, serving from the cache where
// possible. Implements the read side of asset.Source.
func (s *CachedSource) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off < 0 || off >= s.size {
		return 0, io.EOF
	}

	startBlock := off / s.blockSize
	endBlock := (off + int64(len(p)) - 1) / s.blockSize
	if lastBlock := (s.size - 1) / s.blockSize; endBlock > lastBlock {
		// The read extends past the end of the asset. Serve the bytes that
		// exist and report io.EOF via the short-read check below.
		endBlock = lastBlock
	}

	if err := s.fillCache(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	totalRead := 0
	for blk := startBlock; blk <= endBlock; blk++ {
		blkStart := blk * s.blockSize

		// Intersection of this block with [off, off+len(p)).
		intersectStart := max(blkStart, off)
		intersectEnd := min(blkStart+s.blockSize, off+int64(len(p)))
		if intersectEnd <= intersectStart {
			continue
		}

		blockData, err := s.fetchBlock(ctx, blk)
		if err != nil {
			return totalRead, err
		}

		srcOffset := intersectStart - blkStart
		copySize := intersectEnd - intersectStart
		if srcOffset+copySize > int64(len(blockData)) {
			// Short last block.
			copySize = int64(len(blockData)) - srcOffset
		}
		if copySize > 0 {
			dstOffset := intersectStart - off
			totalRead += copy(p[dstOffset:dstOffset+copySize], blockData[srcOffset:srcOffset+copySize])
		}
	}

	if totalRead < len(p) {
		return totalRead, io.EOF
	}
	return totalRead, nil
}

// fillCache ensures the blocks in [startBlock, endBlock] are cached,
// fetching contiguous runs of missing blocks in single backend requests.
func (s *CachedSource) fillCache(ctx context.Context, startBlock, endBlock int64) error {
	type run struct {
		start, count int64
	}
	var missing []run

	runStart := int64(-1)
	runCount := int64(0)
	for blk := startBlock; blk <= endBlock; blk++ {
		if _, ok := s.cache.Get(ctx, Key{Path: s.name, Block: uint64(blk)}); !ok {
			if runStart == -1 {
				runStart = blk
				runCount = 1
			} else {
				runCount++
			}
		} else if runStart != -1 {
			missing = append(missing, run{runStart, runCount})
			runStart, runCount = -1, 0
		}
	}
	if runStart != -1 {
		missing = append(missing, run{runStart, runCount})
	}
	if len(missing) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	for _, r := range missing {
		r := r
		g.Go(func() error {
			byteStart := r.start * s.blockSize
			byteSize := r.count * s.blockSize
			if byteStart >= s.size {
				return nil
			}
			if byteStart+byteSize > s.size {
				byteSize = s.size - byteStart
			}

			buf := make([]byte, byteSize)
			fetchStart := time.Now()
			n, err := s.src.ReadAt(gctx, buf, byteStart)
			if s.onFetch != nil {
				s.onFetch(int64(n), time.Since(fetchStart), ignoreEOF(err))
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			if n == 0 {
				return nil
			}

			valid := buf[:n]
			for i := int64(0); i < r.count; i++ {
				offsetInRun := i * s.blockSize
				if offsetInRun >= int64(len(valid)) {
					break
				}
				endInRun := min(offsetInRun+s.blockSize, int64(len(valid)))

				// Copy so the cache does not pin the run buffer.
				block := make([]byte, endInRun-offsetInRun)
				copy(block, valid[offsetInRun:endInRun])

				blkIdx := r.start + i
				s.cache.Set(gctx, Key{Path: s.name, Block: uint64(blkIdx)}, block)
				s.markFetched(blkIdx, int64(len(block)))
			}
			return nil
		})
	}

	return g.Wait()
}

// fetchBlock returns block blk from the cache, falling back to a direct
// backend read if it was evicted between fillCache and the copy loop.
func (s *CachedSource) fetchBlock(ctx context.Context, blk int64) ([]byte, error) {
	key := Key{Path: s.name, Block: uint64(blk)}
	if b, ok := s.cache.Get(ctx, key); ok {
		return b, nil
	}

	byteStart := blk * s.blockSize
	byteSize := min(s.blockSize, s.size-byteStart)
	buf := make([]byte, byteSize)

	fetchStart := time.Now()
	n, err := s.src.ReadAt(ctx, buf, byteStart)
	if s.onFetch != nil {
		s.onFetch(int64(n), time.Since(fetchStart), ignoreEOF(err))
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	block := buf[:n]
	s.cache.Set(ctx, key, block)
	s.markFetched(blk, int64(n))
	return block, nil
}

func (s *CachedSource) markFetched(blk, bytes int64) {
	s.mu.Lock()
	if !s.fetched.Contains(uint32(blk)) {
		s.fetched.Add(uint32(blk))
		s.bytes += bytes
	}
	s.mu.Unlock()
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
