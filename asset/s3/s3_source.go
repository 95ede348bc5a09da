package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/archi-map/archidb/asset"
)

// Client is the subset of the S3 API the source needs.
// It is satisfied by *s3.Client and by mocks in tests.
type Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Source implements asset.Source for an object in S3.
type Source struct {
	client Client
	bucket string
	key    string

	// size is cached after the first successful Stat.
	size int64
}

// New creates a Source for bucket/key using an existing client.
func New(client Client, bucket, key string) *Source {
	return &Source{
		client: client,
		bucket: bucket,
		key:    key,
	}
}

// NewFromDefaultConfig creates a Source using the default AWS credential and
// region resolution chain.
func NewFromDefaultConfig(ctx context.Context, bucket, key string, optFns ...func(*awsconfig.LoadOptions) error) (*Source, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	return New(s3.NewFromConfig(cfg), bucket, key), nil
}

// Stat implements asset.Source.
func (s *Source) Stat(ctx context.Context) (asset.Info, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return asset.Info{}, asset.ErrNotFound
		}
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return asset.Info{}, asset.ErrNotFound
		}
		return asset.Info{}, err
	}

	info := asset.Info{Size: aws.ToInt64(head.ContentLength)}
	if head.ETag != nil {
		info.ETag = *head.ETag
	}
	if head.LastModified != nil {
		info.LastModified = *head.LastModified
	}
	s.size = info.Size
	return info, nil
}

// ReadAt reads len(p) bytes starting at offset off with a ranged GetObject.
// Implements asset.Source.
func (s *Source) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.size > 0 && off >= s.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	if s.size > 0 && end >= s.size {
		end = s.size - 1
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return 0, asset.ErrNotFound
		}
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.ReadFull(resp.Body, p[:end-off+1])
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	if err == nil && int64(n) < int64(len(p)) {
		err = io.EOF
	}
	return n, err
}

// Download fetches the entire object into w. A real *s3.Client goes through
// the transfer manager for concurrent part downloads; other Client
// implementations get a single sequential read.
func (s *Source) Download(ctx context.Context, w io.WriterAt) (int64, error) {
	if client, ok := s.client.(*s3.Client); ok {
		downloader := manager.NewDownloader(client)
		return downloader.Download(ctx, w, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key),
		})
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	return io.Copy(asset.NewSequentialWriter(w), resp.Body)
}

// Close implements asset.Source.
func (s *Source) Close() error {
	return nil
}
