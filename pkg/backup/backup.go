package backup

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gapurov/simple-dotfiles/pkg/errors"
	"github.com/gapurov/simple-dotfiles/pkg/logging"
	"github.com/gapurov/simple-dotfiles/pkg/paths"
	"github.com/gapurov/simple-dotfiles/pkg/types"
)

const (
	// RootPerm is the mode of a backup root; backups may hold secrets
	RootPerm fs.FileMode = 0700

	// maxSuffix bounds the search for a free backup name
	maxSuffix = 1000
)

// Manager backs up paths for one run
type Manager struct {
	fs      types.FS
	root    string
	dryRun  bool
	created bool
	// reserved holds every backup path handed out, so dry runs also suffix
	reserved map[string]bool
	logger   zerolog.Logger
}

// NewManager creates a Manager whose backups go under root. Nothing is
// created until the first Backup.
func NewManager(fsys types.FS, root string, dryRun bool) *Manager {
	return &Manager{
		fs:       fsys,
		root:     filepath.Clean(root),
		dryRun:   dryRun,
		reserved: make(map[string]bool),
		logger:   logging.GetLogger("backup"),
	}
}

// Root returns the backup root. It may differ from the root given to
// NewManager when that directory already existed.
func (m *Manager) Root() string {
	return m.root
}

// Used reports whether anything was backed up, or would have been in a dry run
func (m *Manager) Used() bool {
	return len(m.reserved) > 0
}

// Backup copies path into the backup root and returns where the copy lives.
// An absent path is not an error and returns "". path must be absolute.
// In dry-run mode the would-be location is returned and nothing is written.
func (m *Manager) Backup(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", errors.Newf(errors.ErrInvalidInput, "backup path %s is not absolute", path)
	}
	path = filepath.Clean(path)
	if paths.Within(m.root, path) {
		return "", errors.Newf(errors.ErrBackupFailed, "%s contains the backup root %s", path, m.root).
			WithDetail("path", path).
			WithDetail("root", m.root)
	}

	info, err := m.fs.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrapf(err, errors.ErrBackupFailed, "failed to inspect %s", path).
			WithDetail("path", path)
	}

	if !m.dryRun {
		if err := m.ensureRoot(); err != nil {
			return "", err
		}
	}

	target, err := m.reserve(path)
	if err != nil {
		return "", err
	}

	if m.dryRun {
		m.logger.Info().Str("path", path).Str("backup", target).Msg("Would back up")
		return target, nil
	}

	if err := m.fs.MkdirAll(filepath.Dir(target), RootPerm); err != nil {
		return "", errors.Wrapf(err, errors.ErrBackupFailed, "failed to create backup directory for %s", path).
			WithDetail("path", path)
	}

	if err := m.copy(path, target, info); err != nil {
		// A partial copy is left for inspection; the original is untouched.
		return "", errors.Wrapf(err, errors.ErrBackupFailed, "failed to back up %s", path).
			WithDetail("path", path).
			WithDetail("backup", target)
	}

	m.logger.Info().Str("path", path).Str("backup", target).Msg("Backed up")
	return target, nil
}

// ensureRoot creates the backup root on first use. An existing directory of
// the same name belongs to another run, so a suffixed name is taken instead.
func (m *Manager) ensureRoot() error {
	if m.created {
		return nil
	}

	if err := m.fs.MkdirAll(filepath.Dir(m.root), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrBackupFailed, "failed to create backup parent %s", filepath.Dir(m.root))
	}

	base := m.root
	for i := 0; i < maxSuffix; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s.%d", base, i)
		}
		err := m.fs.Mkdir(candidate, RootPerm)
		if err == nil {
			m.root = candidate
			m.created = true
			m.logger.Debug().Str("root", candidate).Msg("Created backup root")
			return nil
		}
		if !os.IsExist(err) {
			return errors.Wrapf(err, errors.ErrBackupFailed, "failed to create backup root %s", candidate).
				WithDetail("root", candidate)
		}
	}

	return errors.Newf(errors.ErrBackupFailed, "no free backup root name after %s", base)
}

// reserve picks the backup location for path: the mirrored path, or the
// first free .N suffix when the same path was already backed up this run.
func (m *Manager) reserve(path string) (string, error) {
	mirrored := filepath.Join(m.root, strings.TrimPrefix(path, string(filepath.Separator)))

	for i := 0; i < maxSuffix; i++ {
		candidate := mirrored
		if i > 0 {
			candidate = fmt.Sprintf("%s.%d", mirrored, i)
		}
		if m.reserved[candidate] {
			continue
		}
		if _, err := m.fs.Lstat(candidate); err == nil {
			continue
		}
		m.reserved[candidate] = true
		return candidate, nil
	}

	return "", errors.Newf(errors.ErrBackupFailed, "no free backup name for %s", path).
		WithDetail("path", path)
}

// copy duplicates src at dst without following symlinks, keeping
// permission bits and modification times.
func (m *Manager) copy(src, dst string, info fs.FileInfo) error {
	switch mode := info.Mode(); {
	case mode&fs.ModeSymlink != 0:
		return m.copySymlink(src, dst, info)
	case mode.IsDir():
		return m.copyDir(src, dst, info)
	case mode.IsRegular():
		return m.copyFile(src, dst, info)
	default:
		return fmt.Errorf("%s has unsupported file type %s", src, mode.Type())
	}
}

func (m *Manager) copySymlink(src, dst string, info fs.FileInfo) error {
	target, err := m.fs.Readlink(src)
	if err != nil {
		return err
	}
	if err := m.fs.Symlink(target, dst); err != nil {
		return err
	}
	return m.fs.Lchtimes(dst, info.ModTime(), info.ModTime())
}

func (m *Manager) copyFile(src, dst string, info fs.FileInfo) error {
	in, err := m.fs.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := m.fs.Create(dst, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	// Create is subject to the umask
	if err := m.fs.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return m.fs.Chtimes(dst, info.ModTime(), info.ModTime())
}

// copyDir copies children before fixing the directory's own mode and time,
// since adding entries changes both.
func (m *Manager) copyDir(src, dst string, info fs.FileInfo) error {
	if err := m.fs.Mkdir(dst, RootPerm); err != nil {
		return err
	}

	entries, err := m.fs.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		childSrc := filepath.Join(src, entry.Name())
		childInfo, err := m.fs.Lstat(childSrc)
		if err != nil {
			return err
		}
		if err := m.copy(childSrc, filepath.Join(dst, entry.Name()), childInfo); err != nil {
			return err
		}
	}

	if err := m.fs.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return m.fs.Chtimes(dst, info.ModTime(), info.ModTime())
}
