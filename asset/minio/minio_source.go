package minio

import (
	"context"
	"errors"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/archi-map/archidb/asset"
)

// Source implements asset.Source for an object in MinIO or any
// S3-compatible store reachable through the minio client.
type Source struct {
	client *minio.Client
	bucket string
	key    string

	// size is cached after the first successful Stat.
	size int64
}

// New creates a Source for bucket/key.
func New(client *minio.Client, bucket, key string) *Source {
	return &Source{
		client: client,
		bucket: bucket,
		key:    key,
	}
}

// Stat implements asset.Source.
func (s *Source) Stat(ctx context.Context) (asset.Info, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return asset.Info{}, asset.ErrNotFound
		}
		return asset.Info{}, err
	}

	s.size = info.Size
	return asset.Info{
		Size:         info.Size,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// ReadAt reads len(p) bytes starting at offset off with a ranged GetObject.
// Implements asset.Source.
func (s *Source) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if s.size > 0 && off >= s.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	if s.size > 0 && end >= s.size {
		end = s.size - 1
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.key, opts)
	if err != nil {
		return 0, err
	}
	defer func() { _ = obj.Close() }()

	n, err := io.ReadFull(obj, p[:end-off+1])
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	if err == nil && int64(n) < int64(len(p)) {
		err = io.EOF
	}
	return n, err
}

// Download fetches the entire object into w.
func (s *Source) Download(ctx context.Context, w io.WriterAt) (int64, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = obj.Close() }()

	return io.Copy(asset.NewSequentialWriter(w), obj)
}

// Close implements asset.Source.
func (s *Source) Close() error {
	return nil
}
