package blockcache

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pierrec/lz4/v4"
	"golang.org/x/sync/semaphore"
)

// DiskConfig holds configuration for the disk cache.
type DiskConfig struct {
	// RootDir is the directory where cache files are stored.
	RootDir string
	// MaxSizeBytes is the maximum size of the cache in bytes (compressed).
	MaxSizeBytes int64
	// MaxConcurrentWrites limits background disk writes.
	// Defaults to 16 if <= 0.
	MaxConcurrentWrites int64
}

// Disk implements Cache backed by the local filesystem. Blocks survive
// process restarts so a revisit does not refetch the whole working set.
// Files are lz4-compressed; SQLite pages compress well.
type Disk struct {
	mu          sync.Mutex
	rootDir     string
	maxSize     int64
	currentSize int64

	// writeSem bounds concurrent background writes.
	writeSem *semaphore.Weighted
	wg       sync.WaitGroup
	closed   atomic.Bool

	// Index: key -> compressed size on disk, maintained LRU-ordered.
	items map[Key]*diskEntry
	head  *diskEntry
	tail  *diskEntry

	hits   atomic.Int64
	misses atomic.Int64
}

type diskEntry struct {
	key        Key
	size       int64
	filePath   string
	next, prev *diskEntry
}

// NewDisk creates a disk-backed block cache rooted at config.RootDir.
// Existing cache files are scanned to rebuild the index.
func NewDisk(config DiskConfig) (*Disk, error) {
	if err := os.MkdirAll(config.RootDir, 0o755); err != nil {
		return nil, err
	}

	maxWrites := config.MaxConcurrentWrites
	if maxWrites <= 0 {
		maxWrites = 16
	}

	c := &Disk{
		rootDir:  config.RootDir,
		maxSize:  config.MaxSizeBytes,
		writeSem: semaphore.NewWeighted(maxWrites),
		items:    make(map[Key]*diskEntry),
	}

	if err := c.scan(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns a cached block, decompressing it from disk. Blocks written by
// an earlier process are indexed under synthetic keys after scan; the first
// Get for their real key adopts them.
func (c *Disk) Get(_ context.Context, key Key) ([]byte, bool) {
	path := c.filePath(key)

	c.mu.Lock()
	ent, ok := c.items[key]
	if ok {
		c.moveToFront(ent)
		path = ent.filePath
	} else {
		ok = c.adoptLocked(key, path)
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	f, err := os.Open(path)
	if err != nil {
		// Index is stale (file pruned externally); drop the entry.
		c.mu.Lock()
		if cur, still := c.items[key]; still {
			c.removeEntry(cur)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(lz4.NewReader(f))
	if err != nil {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return data, true
}

// Set caches a block. The write happens in the background so range-request
// latency is not extended by disk I/O.
func (c *Disk) Set(ctx context.Context, key Key, b []byte) {
	if c.closed.Load() {
		return
	}
	if err := c.writeSem.Acquire(ctx, 1); err != nil {
		return
	}

	buf := make([]byte, len(b))
	copy(buf, b)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.writeSem.Release(1)
		c.write(key, buf)
	}()
}

// Invalidate removes entries matching the predicate.
func (c *Disk) Invalidate(predicate func(key Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*diskEntry
	for key, ent := range c.items {
		if predicate(key) {
			toRemove = append(toRemove, ent)
		}
	}
	for _, ent := range toRemove {
		c.removeEntry(ent)
	}
}

// Close waits for in-flight writes and releases the index.
func (c *Disk) Close() error {
	c.closed.Store(true)
	c.wg.Wait()
	return nil
}

// Stats returns hit/miss counts.
func (c *Disk) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Disk) write(key Key, b []byte) {
	path := c.filePath(key)

	tmp, err := os.CreateTemp(c.rootDir, "blk-*.tmp")
	if err != nil {
		return
	}
	zw := lz4.NewWriter(tmp)
	_, werr := zw.Write(b)
	if cerr := zw.Close(); werr == nil {
		werr = cerr
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmp.Name())
		return
	}

	fi, err := os.Stat(tmp.Name())
	if err != nil {
		_ = os.Remove(tmp.Name())
		return
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.items[key]; ok {
		c.currentSize -= old.size
		c.unlink(old)
		delete(c.items, key)
	}
	// A recovered entry may already account for this file under a
	// synthetic key; drop it so the file is not double-counted.
	for k, ent := range c.items {
		if ent.filePath == path {
			c.currentSize -= ent.size
			c.unlink(ent)
			delete(c.items, k)
		}
	}
	ent := &diskEntry{key: key, size: fi.Size(), filePath: path}
	c.items[key] = ent
	c.pushFront(ent)
	c.currentSize += ent.size
	c.evict()
}

// adoptLocked re-keys a recovered entry whose file matches path. Caller
// holds the mutex.
func (c *Disk) adoptLocked(key Key, path string) bool {
	for k, ent := range c.items {
		if ent.filePath != path {
			continue
		}
		delete(c.items, k)
		ent.key = key
		c.items[key] = ent
		c.moveToFront(ent)
		return true
	}
	return false
}

func (c *Disk) evict() {
	for c.maxSize > 0 && c.currentSize > c.maxSize && c.tail != nil {
		c.removeEntry(c.tail)
	}
}

func (c *Disk) removeEntry(ent *diskEntry) {
	c.unlink(ent)
	delete(c.items, ent.key)
	c.currentSize -= ent.size
	_ = os.Remove(ent.filePath)
}

// filePath encodes the key into a stable file name:
// <fnv64a(Path)>-<Block>.blk
func (c *Disk) filePath(key Key) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key.Path))
	return filepath.Join(c.rootDir, fmt.Sprintf("%016x-%d.blk", h.Sum64(), key.Block))
}

// scan rebuilds size accounting from files already on disk. Keys cannot be
// recovered from hashed names, so recovered entries are indexed by their
// file name alone and only participate in eviction.
func (c *Disk) scan() error {
	entries, err := os.ReadDir(c.rootDir)
	if err != nil {
		return err
	}
	for _, de := range entries {
		name := de.Name()
		if !strings.HasSuffix(name, ".blk") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		// Reconstruct a synthetic key so recovered files are evictable.
		base := strings.TrimSuffix(name, ".blk")
		parts := strings.SplitN(base, "-", 2)
		var block uint64
		if len(parts) == 2 {
			block, _ = strconv.ParseUint(parts[1], 10, 64)
		}
		ent := &diskEntry{
			key:      Key{Path: "recovered/" + parts[0], Block: block},
			size:     info.Size(),
			filePath: filepath.Join(c.rootDir, name),
		}
		c.items[ent.key] = ent
		c.pushFront(ent)
		c.currentSize += ent.size
	}
	c.evict()
	return nil
}

func (c *Disk) pushFront(ent *diskEntry) {
	ent.prev = nil
	ent.next = c.head
	if c.head != nil {
		c.head.prev = ent
	}
	c.head = ent
	if c.tail == nil {
		c.tail = ent
	}
}

func (c *Disk) unlink(ent *diskEntry) {
	if ent.prev != nil {
		ent.prev.next = ent.next
	} else if c.head == ent {
		c.head = ent.next
	}
	if ent.next != nil {
		ent.next.prev = ent.prev
	} else if c.tail == ent {
		c.tail = ent.prev
	}
	ent.prev, ent.next = nil, nil
}

func (c *Disk) moveToFront(ent *diskEntry) {
	if c.head == ent {
		return
	}
	c.unlink(ent)
	c.pushFront(ent)
}
