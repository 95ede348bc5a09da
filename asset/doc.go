// Package asset provides read access to the remotely hosted database file
// and its companion assets (chunk config, probe target).
//
// Source is the interface both loaders consume: the chunked loader issues
// bounded ReadAt range requests through it, the direct loader pulls the whole
// file with Download.
//
// # Built-in Implementations
//
//   - HTTPSource: static web host with HTTP Range requests
//   - s3.Source: Amazon S3 with ranged GetObject and managed full downloads
//   - minio.Source: MinIO / S3-compatible object storage
//   - FileSource: local file via mmap (CLI and tests)
//   - MemorySource: in-memory bytes (tests)
//
// Implementations must be safe for concurrent use.
package asset
