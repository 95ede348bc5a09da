package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// HTTPSource reads the database asset from a static web host using HTTP
// Range requests.
type HTTPSource struct {
	client    *http.Client
	url       string
	knownSize int64
	limiter   *rate.Limiter
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithKnownSize fixes the asset size instead of trusting the host's
// Content-Length header. Hosts that compress on the fly report the compressed
// length, so the true byte length has to come from the chunk config.
func WithKnownSize(size int64) HTTPOption {
	return func(s *HTTPSource) {
		s.knownSize = size
	}
}

// WithRateLimiter throttles range requests against the host.
// Pass nil to disable throttling.
func WithRateLimiter(l *rate.Limiter) HTTPOption {
	return func(s *HTTPSource) {
		s.limiter = l
	}
}

// NewHTTPSource creates a Source backed by url.
// If client is nil, http.DefaultClient is used.
func NewHTTPSource(client *http.Client, url string, optFns ...HTTPOption) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	s := &HTTPSource{
		client: client,
		url:    url,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(s)
		}
	}
	return s
}

// URL returns the asset URL.
func (s *HTTPSource) URL() string {
	return s.url
}

// Stat verifies the asset is reachable and returns its metadata.
func (s *HTTPSource) Stat(ctx context.Context) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.url, nil)
	if err != nil {
		return Info{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, s.url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Info{}, fmt.Errorf("asset: HEAD %s: unexpected status %d", s.url, resp.StatusCode)
	}

	info := Info{
		Size: resp.ContentLength,
		ETag: resp.Header.Get("ETag"),
	}
	if s.knownSize > 0 {
		info.Size = s.knownSize
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			info.LastModified = t
		}
	}
	return info, nil
}

// ReadAt reads len(p) bytes starting at offset off with a single Range
// request. Implements Source.
func (s *HTTPSource) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.knownSize > 0 && off >= s.knownSize {
		return 0, io.EOF
	}
	if err := s.wait(ctx); err != nil {
		return 0, err
	}

	end := off + int64(len(p)) - 1
	if s.knownSize > 0 && end >= s.knownSize {
		end = s.knownSize - 1
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		// ok
	case http.StatusOK:
		// The host ignored the Range header and is streaming the whole
		// file. Treat it as a hard error instead of silently reading
		// everything on every chunk.
		return 0, ErrRangeUnsupported
	case http.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	case http.StatusNotFound:
		return 0, fmt.Errorf("%w: %s", ErrNotFound, s.url)
	default:
		return 0, fmt.Errorf("asset: GET %s: unexpected status %d", s.url, resp.StatusCode)
	}

	n, err := io.ReadFull(resp.Body, p[:end-off+1])
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	if err == nil && int64(n) < int64(len(p)) {
		err = io.EOF
	}
	return n, err
}

// Download fetches the entire asset into w.
func (s *HTTPSource) Download(ctx context.Context, w io.WriterAt) (int64, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, s.url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("asset: GET %s: unexpected status %d", s.url, resp.StatusCode)
	}

	return io.Copy(NewSequentialWriter(w), resp.Body)
}

// Close implements Source. HTTP sources hold no resources.
func (s *HTTPSource) Close() error {
	return nil
}

func (s *HTTPSource) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// probeTimeout bounds Stat calls used purely for reachability checks.
const probeTimeout = 10 * time.Second

// CheckReachable performs a bounded existence check against url and returns
// the reported content length (which may be -1 when unknown).
func CheckReachable(ctx context.Context, client *http.Client, url string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	src := NewHTTPSource(client, url)
	info, err := src.Stat(ctx)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}
