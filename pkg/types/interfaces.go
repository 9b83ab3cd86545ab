package types

import (
	"io"
	"io/fs"
	"time"
)

// FS is the filesystem interface the reconciler and backup manager mutate
// state through. Implementations must not follow symlinks in Lstat, Readlink,
// Lchtimes, Remove or RemoveAll.
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	Lstat(name string) (fs.FileInfo, error)
	Open(name string) (io.ReadCloser, error)
	Create(name string, perm fs.FileMode) (io.WriteCloser, error)

	// Directory operations
	Mkdir(path string, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)

	// Symlink operations
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)

	// Metadata
	Chmod(name string, mode fs.FileMode) error
	Chtimes(name string, atime, mtime time.Time) error
	Lchtimes(name string, atime, mtime time.Time) error

	// Removal
	Remove(name string) error
	RemoveAll(path string) error
}

// Reporter receives the user-facing lines of a run. Destructive actions are
// reported through it before they happen.
type Reporter interface {
	Info(format string, args ...interface{})
	Success(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
}
