// Package fsutil provides the OS filesystem service used by path validation
// and file-editing actions. Writes are always atomic: content lands in a temp
// file in the target directory, is fsynced, then renamed over the target, so
// a crash mid-write never corrupts the original.
package fsutil

import (
	"io"
	"os"
	"path/filepath"
)

// writeSyncCloser is the minimal handle an atomic write needs. Abstracting it
// lets tests inject failing handles without touching *os.File.
type writeSyncCloser interface {
	io.Writer
	Sync() error
	Close() error
	Name() string
}

// OSFileSystem performs filesystem operations against the local OS. The
// syscall wrappers are function fields so tests can inject failures at any
// stage of an atomic write.
type OSFileSystem struct {
	createTemp func(dir, pattern string) (writeSyncCloser, error)
	rename     func(oldpath, newpath string) error
	chmod      func(name string, mode os.FileMode) error
	remove     func(name string) error
}

// NewOSFileSystem creates an OSFileSystem backed by real syscalls.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{
		createTemp: func(dir, pattern string) (writeSyncCloser, error) {
			return os.CreateTemp(dir, pattern)
		},
		rename: os.Rename,
		chmod:  os.Chmod,
		remove: os.Remove,
	}
}

// Stat returns file info for a path (follows symlinks).
func (r *OSFileSystem) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// Lstat returns file info for a path without following symlinks.
func (r *OSFileSystem) Lstat(path string) (os.FileInfo, error) {
	return os.Lstat(path)
}

// Readlink reads the target of a symlink.
func (r *OSFileSystem) Readlink(path string) (string, error) {
	return os.Readlink(path)
}

// UserHomeDir returns the current user's home directory.
func (r *OSFileSystem) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

// ReadFile reads the entire file.
func (r *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ReadFileLimited reads a file, refusing files larger than max bytes.
// A max of zero means unlimited.
func (r *OSFileSystem) ReadFileLimited(path string, max int64) ([]byte, error) {
	if max > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.Size() > max {
			return nil, &FileTooLargeError{Path: path, Size: info.Size(), Max: max}
		}
	}
	return os.ReadFile(path)
}

// WriteFileAtomic writes content to path via temp file + fsync + rename.
// The temp file lives in the target's directory so the rename stays on one
// filesystem and is atomic. On any failure the temp file is removed and the
// original file is untouched.
func (r *OSFileSystem) WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := r.createTemp(dir, ".tmp-*")
	if err != nil {
		return &AtomicWriteError{Stage: "create", Path: path, Cause: err}
	}

	tmpPath := tmpFile.Name()
	needsCleanup := true

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
		}
		if needsCleanup {
			_ = r.remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(content); err != nil {
		return &AtomicWriteError{Stage: "write", Path: path, Cause: err}
	}

	if err := tmpFile.Sync(); err != nil {
		return &AtomicWriteError{Stage: "sync", Path: path, Cause: err}
	}

	// Close before rename; some systems refuse to rename an open file.
	if err := tmpFile.Close(); err != nil {
		tmpFile = nil
		return &AtomicWriteError{Stage: "close", Path: path, Cause: err}
	}
	tmpFile = nil

	if err := r.rename(tmpPath, path); err != nil {
		return &AtomicWriteError{Stage: "rename", Path: path, Cause: err}
	}
	needsCleanup = false

	if err := r.chmod(path, perm); err != nil {
		return &ChmodError{Path: path, Mode: perm, Cause: err}
	}

	return nil
}

// EnsureDirs creates parent directories recursively if they don't exist.
func (r *OSFileSystem) EnsureDirs(path string) error {
	return os.MkdirAll(path, 0o755)
}
