//go:build cgo

// Package rangevfs exposes a remote database asset to SQLite as a read-only
// virtual file system. Page reads issued by the engine become bounded range
// reads against the registered source; nothing is ever downloaded in full.
//
// The VFS is registered once per process under VFSName. Each registered
// source gets a unique in-VFS file name:
//
//	name, release, err := rangevfs.Register(src)
//	defer release()
//	db, err := sql.Open("sqlite3", rangevfs.DSN(name))
package rangevfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/psanford/sqlite3vfs"
)

// VFSName is the name the virtual file system is registered under.
const VFSName = "archidb-range"

// Source is the read surface the VFS needs. *blockcache.CachedSource and
// anything wrapping asset.Source satisfies it.
type Source interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	Size() int64
}

type rangeVFS struct {
	mu    sync.Mutex
	files map[string]Source
}

var (
	registerOnce sync.Once
	registerErr  error
	global       = &rangeVFS{files: make(map[string]Source)}
	nameSeq      atomic.Uint64
)

// Register makes src available to SQLite and returns the in-VFS file name to
// open. The release function detaches the source again.
func Register(src Source) (name string, release func(), err error) {
	registerOnce.Do(func() {
		registerErr = sqlite3vfs.RegisterVFS(VFSName, global)
	})
	if registerErr != nil {
		return "", nil, fmt.Errorf("rangevfs: register vfs: %w", registerErr)
	}

	name = fmt.Sprintf("archi-%d.db", nameSeq.Add(1))
	global.mu.Lock()
	global.files[name] = src
	global.mu.Unlock()

	return name, func() {
		global.mu.Lock()
		delete(global.files, name)
		global.mu.Unlock()
	}, nil
}

// DSN builds the database/sql data source name for a registered file.
// The database is opened read-only and marked immutable so SQLite never
// looks for journal or WAL files on the remote host.
func DSN(name string) string {
	return fmt.Sprintf("file:%s?vfs=%s&mode=ro&immutable=1", name, VFSName)
}

// Open implements sqlite3vfs.VFS.
func (v *rangeVFS) Open(name string, flags sqlite3vfs.OpenFlag) (sqlite3vfs.File, sqlite3vfs.OpenFlag, error) {
	v.mu.Lock()
	src, ok := v.files[name]
	v.mu.Unlock()
	if !ok {
		return nil, flags, os.ErrNotExist
	}
	return &rangeFile{src: src}, flags, nil
}

// Delete implements sqlite3vfs.VFS. The VFS is read-only.
func (v *rangeVFS) Delete(name string, dirSync bool) error {
	return sqlite3vfs.ReadOnlyError
}

// Access implements sqlite3vfs.VFS. Journal and WAL files never exist.
func (v *rangeVFS) Access(name string, flag sqlite3vfs.AccessFlag) (bool, error) {
	v.mu.Lock()
	_, ok := v.files[name]
	v.mu.Unlock()
	return ok, nil
}

// FullPathname implements sqlite3vfs.VFS.
func (v *rangeVFS) FullPathname(name string) string {
	return name
}

// rangeFile adapts a Source to sqlite3vfs.File.
type rangeFile struct {
	src Source
}

func (f *rangeFile) Close() error {
	return nil
}

// ReadAt serves SQLite page reads. Reads past the end return io.EOF with a
// partial count; SQLite turns that into a short-read error itself.
func (f *rangeFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.src.ReadAt(context.Background(), p, off)
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (f *rangeFile) WriteAt(p []byte, off int64) (int, error) {
	return 0, sqlite3vfs.ReadOnlyError
}

func (f *rangeFile) Truncate(size int64) error {
	return sqlite3vfs.ReadOnlyError
}

func (f *rangeFile) Sync(flag sqlite3vfs.SyncType) error {
	return nil
}

func (f *rangeFile) FileSize() (int64, error) {
	return f.src.Size(), nil
}

// Lock is a no-op: the file is immutable and shared read access needs no
// coordination.
func (f *rangeFile) Lock(elock sqlite3vfs.LockType) error {
	return nil
}

func (f *rangeFile) Unlock(elock sqlite3vfs.LockType) error {
	return nil
}

func (f *rangeFile) CheckReservedLock() (bool, error) {
	return false, nil
}

func (f *rangeFile) SectorSize() int64 {
	return 0
}

func (f *rangeFile) DeviceCharacteristics() sqlite3vfs.DeviceCharacteristic {
	return sqlite3vfs.IocapImmutable
}
