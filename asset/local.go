package asset

import (
	"context"
	"io"
	"os"

	"github.com/archi-map/archidb/internal/mmap"
)

// FileSource reads the database from a local file. It backs the CLI's
// offline mode and the test suite; reads go through a read-only memory
// mapping for cheap random access.
type FileSource struct {
	path string
	m    *mmap.Mapping
}

// NewFileSource maps the file at path.
func NewFileSource(path string) (*FileSource, error) {
	m, err := mmap.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &FileSource{path: path, m: m}, nil
}

// Stat implements Source.
func (s *FileSource) Stat(_ context.Context) (Info, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return Info{}, err
	}
	return Info{Size: fi.Size(), LastModified: fi.ModTime()}, nil
}

// ReadAt implements Source.
func (s *FileSource) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return s.m.ReadAt(p, off)
}

// Download implements Source.
func (s *FileSource) Download(_ context.Context, w io.WriterAt) (int64, error) {
	data := s.m.Bytes()
	n, err := w.WriteAt(data, 0)
	return int64(n), err
}

// Close unmaps the file.
func (s *FileSource) Close() error {
	return s.m.Close()
}

// MemorySource serves the database from an in-memory byte slice.
// It exists for tests.
type MemorySource struct {
	data []byte
}

// NewMemorySource creates a Source over data. The slice is not copied;
// the caller must not mutate it.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

// Stat implements Source.
func (s *MemorySource) Stat(_ context.Context) (Info, error) {
	return Info{Size: int64(len(s.data))}, nil
}

// ReadAt implements Source.
func (s *MemorySource) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Download implements Source.
func (s *MemorySource) Download(_ context.Context, w io.WriterAt) (int64, error) {
	n, err := w.WriteAt(s.data, 0)
	return int64(n), err
}

// Close implements Source.
func (s *MemorySource) Close() error {
	return nil
}
