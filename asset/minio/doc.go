// Package minio provides a MinIO / S3-compatible implementation of the
// asset.Source interface.
//
// # Usage
//
//	client, err := minio.New("play.min.io", &minio.Options{...})
//	src := assetminio.New(client, "archi", "db/archimap.sqlite")
package minio
