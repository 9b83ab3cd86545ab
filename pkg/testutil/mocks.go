package testutil

import (
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/gapurov/simple-dotfiles/pkg/types"
)

// FaultFS wraps a types.FS. Any hook that is set replaces the wrapped
// operation, which makes individual failures easy to inject.
type FaultFS struct {
	types.FS

	CreateFunc    func(name string, perm fs.FileMode) (io.WriteCloser, error)
	MkdirAllFunc  func(path string, perm fs.FileMode) error
	SymlinkFunc   func(oldname, newname string) error
	RemoveFunc    func(name string) error
	RemoveAllFunc func(path string) error
}

// NewFaultFS wraps base with no faults
func NewFaultFS(base types.FS) *FaultFS {
	return &FaultFS{FS: base}
}

func (f *FaultFS) Create(name string, perm fs.FileMode) (io.WriteCloser, error) {
	if f.CreateFunc != nil {
		return f.CreateFunc(name, perm)
	}
	return f.FS.Create(name, perm)
}

func (f *FaultFS) MkdirAll(path string, perm fs.FileMode) error {
	if f.MkdirAllFunc != nil {
		return f.MkdirAllFunc(path, perm)
	}
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultFS) Symlink(oldname, newname string) error {
	if f.SymlinkFunc != nil {
		return f.SymlinkFunc(oldname, newname)
	}
	return f.FS.Symlink(oldname, newname)
}

func (f *FaultFS) Remove(name string) error {
	if f.RemoveFunc != nil {
		return f.RemoveFunc(name)
	}
	return f.FS.Remove(name)
}

func (f *FaultFS) RemoveAll(path string) error {
	if f.RemoveAllFunc != nil {
		return f.RemoveAllFunc(path)
	}
	return f.FS.RemoveAll(path)
}

// Line is one recorded report
type Line struct {
	Level   string
	Message string
}

// Reporter records reported lines
type Reporter struct {
	mu    sync.Mutex
	Lines []Line
}

var _ types.Reporter = (*Reporter)(nil)

func (r *Reporter) Info(format string, args ...interface{}) {
	r.record("info", format, args...)
}

func (r *Reporter) Success(format string, args ...interface{}) {
	r.record("success", format, args...)
}

func (r *Reporter) Warning(format string, args ...interface{}) {
	r.record("warning", format, args...)
}

func (r *Reporter) Error(format string, args ...interface{}) {
	r.record("error", format, args...)
}

// Messages returns the messages reported at level, or all when level is ""
func (r *Reporter) Messages(level string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, l := range r.Lines {
		if level == "" || l.Level == level {
			out = append(out, l.Message)
		}
	}
	return out
}

// Contains reports whether any message contains substr
func (r *Reporter) Contains(substr string) bool {
	for _, m := range r.Messages("") {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func (r *Reporter) record(level, format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Lines = append(r.Lines, Line{Level: level, Message: fmt.Sprintf(format, args...)})
}
