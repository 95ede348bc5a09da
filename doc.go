// Package archidb provides read-only access to the remotely hosted SQLite
// database behind the Japanese architecture map (buildings and architects).
//
// The database is published as a static file. A Session opens it with one of
// two strategies:
//
//   - Chunked: SQL runs against a virtual file system whose page reads are
//     HTTP range requests in fixed-size chunks, with block-level caching.
//     Nothing is downloaded in full.
//   - Direct: the whole file is downloaded (decompressed if the host served
//     compressed bytes) and opened with an in-process engine.
//
// Chunked is tried first and falls back to Direct on any failure; callers
// that know the chunked path is unavailable can skip it with
// Config.DisableChunked.
//
// # Quick Start
//
//	sess := archidb.New(archidb.Config{
//	    DatabaseURL: "https://archi-map.example/db/archimap.sqlite",
//	    ConfigURL:   "https://archi-map.example/db/archimap.sqlite.json",
//	}, archidb.WithLogLevel(slog.LevelInfo))
//	defer sess.Close()
//
//	rows, err := sess.QueryAll(ctx, "SELECT ZBD_TITLE FROM ZCDBUILDING WHERE ZBD_PREFECTURE = ?", "東京都")
//
// Initialization is lazy: the first query triggers it, concurrent callers
// share the same attempt, and Status reports the lifecycle
// (NotInitialized → Initializing → Ready | Error).
//
// Higher-level typed access lives in the repo package; object storage
// backends (S3, MinIO) live under asset.
package archidb
