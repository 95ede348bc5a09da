// Package s3 provides an S3 implementation of the asset.Source interface.
//
// # Usage
//
//	src, err := s3.NewFromDefaultConfig(ctx, "my-bucket", "db/archimap.sqlite")
//
//	sess := archidb.New(archidb.Config{}, archidb.WithSource(src))
//
// Range reads map to ranged GetObject calls; the direct loader's full
// download goes through the transfer manager for parallel part fetches.
package s3
