package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gapurov/simple-dotfiles/pkg/errors"
)

// Resolve turns path into a canonical absolute path.
//
// Relative paths are joined onto baseDir, or the working directory when
// baseDir is empty. The result is lexically cleaned, then the nearest existing
// ancestor directory is canonicalized with its symlinks evaluated. The final
// component is never followed, so a symlink resolves to its own location.
// Paths whose directories do not exist yet resolve lexically.
func Resolve(path, baseDir string) (string, error) {
	if path == "" {
		return "", errors.New(errors.ErrInvalidInput, "empty path")
	}

	if !filepath.IsAbs(path) {
		if baseDir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return "", errors.Wrap(err, errors.ErrFileAccess, "failed to get current directory")
			}
			baseDir = cwd
		}
		path = filepath.Join(baseDir, path)
	}

	// baseDir may itself be relative
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path for %s", path)
	}

	return canonicalize(filepath.Clean(abs)), nil
}

// Within reports whether path is root or lies beneath it. Both are compared
// lexically after cleaning.
func Within(path, root string) bool {
	path, root = filepath.Clean(path), filepath.Clean(root)
	if path == root {
		return true
	}
	if root == string(filepath.Separator) {
		return filepath.IsAbs(path)
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

func canonicalize(p string) string {
	dir, name := filepath.Dir(p), filepath.Base(p)
	if dir == p {
		return p
	}
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		return filepath.Join(real, name)
	}
	return filepath.Join(canonicalize(dir), name)
}
