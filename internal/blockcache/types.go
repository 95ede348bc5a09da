// Package blockcache provides block-level caching for the chunked loader.
//
// The chunked loader reads the remote database in fixed-size blocks; SQLite's
// access pattern revisits the same pages constantly (header, schema, index
// interior pages), so even a small cache removes most range requests.
package blockcache

import "context"

// Key identifies a cached block.
type Key struct {
	// Path identifies the source asset (URL or object key).
	Path string
	// Block is the block index within the asset.
	Block uint64
}

// Cache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type Cache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a block. Implementations may copy or retain; caller must
	// treat b as immutable.
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Close releases any resources (e.g. background workers).
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
