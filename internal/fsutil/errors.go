package fsutil

import (
	"fmt"
	"os"
)

// AtomicWriteError is returned when any stage of an atomic write fails.
// Stage names the operation that failed (create, write, sync, close, rename,
// chmod). The target file is never left half-written.
type AtomicWriteError struct {
	Stage string
	Path  string
	Cause error
}

func (e *AtomicWriteError) Error() string {
	return fmt.Sprintf("atomic write of %s failed at %s: %v", e.Path, e.Stage, e.Cause)
}

func (e *AtomicWriteError) Unwrap() error {
	return e.Cause
}

func (e *AtomicWriteError) IOError() bool {
	return true
}

// FileTooLargeError is returned when a read would exceed the configured
// per-file size limit.
type FileTooLargeError struct {
	Path string
	Size int64
	Max  int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file %s is %d bytes, exceeds limit of %d", e.Path, e.Size, e.Max)
}

func (e *FileTooLargeError) InvalidInput() bool {
	return true
}

// ChmodError is returned when setting permissions after a write fails.
type ChmodError struct {
	Path  string
	Mode  os.FileMode
	Cause error
}

func (e *ChmodError) Error() string {
	return fmt.Sprintf("failed to set permissions for %s to %v: %v", e.Path, e.Mode, e.Cause)
}

func (e *ChmodError) Unwrap() error {
	return e.Cause
}

func (e *ChmodError) IOError() bool {
	return true
}
