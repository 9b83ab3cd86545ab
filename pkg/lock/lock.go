// Package lock keeps two runs from touching the same home directory at once.
//
// The lock is a directory, created with a single mkdir so that exactly one
// process can succeed. A pid file inside records the owner for diagnostics.
// Locks left by a killed run are not broken automatically; the LOCK_HELD
// error says whether the recorded owner still appears to be alive.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gapurov/simple-dotfiles/pkg/errors"
	"github.com/gapurov/simple-dotfiles/pkg/logging"
)

// PIDFileName is the owner record inside the lock directory
const PIDFileName = "pid"

// Lock is a held run lock
type Lock struct {
	path    string
	once    sync.Once
	release error
}

// Owner describes the process recorded in a lock
type Owner struct {
	PID     int
	Started time.Time
}

// Alive reports whether the owner process still exists
func (o *Owner) Alive() bool {
	if o.PID <= 0 {
		return false
	}
	// EPERM means the process exists but belongs to someone else
	err := unix.Kill(o.PID, 0)
	return err == nil || err == unix.EPERM
}

// Acquire takes the lock at path or fails with LOCK_HELD when another run has it
func Acquire(path string) (*Lock, error) {
	logger := logging.GetLogger("lock")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrLockAcquire, "failed to create lock parent %s", filepath.Dir(path)).
			WithDetail("path", path)
	}

	if err := os.Mkdir(path, 0700); err != nil {
		if os.IsExist(err) {
			return nil, heldError(path)
		}
		return nil, errors.Wrapf(err, errors.ErrLockAcquire, "failed to create lock %s", path).
			WithDetail("path", path)
	}

	record := fmt.Sprintf("%d\n%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	if err := os.WriteFile(filepath.Join(path, PIDFileName), []byte(record), 0600); err != nil {
		_ = os.RemoveAll(path)
		return nil, errors.Wrapf(err, errors.ErrLockAcquire, "failed to record lock owner in %s", path).
			WithDetail("path", path)
	}

	logger.Debug().Str("path", path).Int("pid", os.Getpid()).Msg("Lock acquired")
	return &Lock{path: path}, nil
}

func heldError(path string) error {
	err := errors.Newf(errors.ErrLockHeld, "another run holds the lock at %s", path).
		WithDetail("path", path)

	owner, readErr := ReadOwner(path)
	if readErr != nil {
		return err
	}

	err.WithDetail("pid", owner.PID).WithDetail("started", owner.Started)
	if owner.Alive() {
		err.Message = fmt.Sprintf("another run (pid %d, started %s) holds the lock at %s",
			owner.PID, owner.Started.Format(time.RFC3339), path)
	} else {
		err.Message = fmt.Sprintf("lock at %s is held by pid %d, which is no longer running; "+
			"if no other run is active remove it with: rm -r %s", path, owner.PID, path)
	}
	return err
}

// Path returns the lock directory
func (l *Lock) Path() string {
	return l.path
}

// Release removes the lock. Calls after the first return the first result.
func (l *Lock) Release() error {
	l.once.Do(func() {
		if err := os.RemoveAll(l.path); err != nil {
			l.release = errors.Wrapf(err, errors.ErrFileRemove, "failed to remove lock %s", l.path).
				WithDetail("path", l.path)
			return
		}
		logger := logging.GetLogger("lock")
		logger.Debug().Str("path", l.path).Msg("Lock released")
	})
	return l.release
}

// ReadOwner parses the pid file of the lock at path
func ReadOwner(path string) (*Owner, error) {
	data, err := os.ReadFile(filepath.Join(path, PIDFileName))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read lock owner of %s", path)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid pid in lock %s", path)
	}

	owner := &Owner{PID: pid}
	if len(lines) > 1 {
		if started, err := time.Parse(time.RFC3339, strings.TrimSpace(lines[1])); err == nil {
			owner.Started = started
		}
	}
	return owner, nil
}
