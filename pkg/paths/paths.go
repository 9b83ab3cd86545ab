package paths

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/gapurov/simple-dotfiles/pkg/errors"
)

// Environment variable names
const (
	// EnvDotfilesRoot overrides repository root discovery
	EnvDotfilesRoot = "DOTFILES_ROOT"

	// EnvConfig names the default configuration file
	EnvConfig = "DOTFILES_CONFIG"

	// EnvLock overrides the run lock location
	EnvLock = "DOTFILES_LOCK"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Fixed names. The lock and backup names are what an operator looks for when
// recovering from an interrupted run, so they are not configurable.
const (
	// AppDirName is the directory name used under XDG base directories
	AppDirName = "simple-dotfiles"

	// LockName is the run lock directory created under the home directory
	LockName = ".dotfiles-install.lock"

	// BackupPrefix starts every per-run backup directory name
	BackupPrefix = ".dotfiles-backup-"

	// BackupTimeFormat is the timestamp suffix of backup directory names
	BackupTimeFormat = "20060102-150405"

	// ConfigBaseName is the base name of default configuration files
	ConfigBaseName = "dotfiles"
)

// ConfigExtensions are tried in order when looking for a default config file
var ConfigExtensions = []string{".toml", ".yaml", ".yml", ".hcl"}

// Paths bundles the locations derived from one home directory
type Paths struct {
	home string
}

// New creates a Paths rooted at home. An empty home is detected.
func New(home string) (*Paths, error) {
	if home == "" {
		detected, err := GetHomeDirectory()
		if err != nil {
			return nil, err
		}
		home = detected
	}

	abs, err := filepath.Abs(home)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrHomeDir, "failed to get absolute path for home %s", home)
	}

	return &Paths{home: filepath.Clean(abs)}, nil
}

// Home returns the home directory
func (p *Paths) Home() string {
	return p.home
}

// ExpandHome expands a leading home placeholder against this home directory
func (p *Paths) ExpandHome(path string) string {
	return ExpandHomeWith(path, p.home)
}

// LockPath returns the run lock location, honoring DOTFILES_LOCK
func (p *Paths) LockPath() string {
	if lock := os.Getenv(EnvLock); lock != "" {
		return p.ExpandHome(lock)
	}
	return filepath.Join(p.home, LockName)
}

// BackupRoot returns the per-run backup directory under parent (home when empty)
func (p *Paths) BackupRoot(parent string, at time.Time) string {
	if parent == "" {
		parent = p.home
	}
	return filepath.Join(p.ExpandHome(parent), BackupPrefix+at.Format(BackupTimeFormat))
}

// StateDir returns the XDG state directory for simple-dotfiles
func (p *Paths) StateDir() string {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, AppDirName)
	}
	return filepath.Join(xdg.StateHome, AppDirName)
}

// GetHomeDirectory returns the user's home directory with proper error handling
func GetHomeDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		// Try the HOME environment variable as a fallback
		if home := os.Getenv(EnvHome); home != "" {
			return home, nil
		}
		return "", errors.Wrap(err, errors.ErrHomeDir, "failed to get home directory")
	}
	return homeDir, nil
}

// ExpandHomeWith expands ~, ~/x, $HOME, $HOME/x, ${HOME} and ${HOME}/x
// against home. Other paths, including ~user forms, are returned unchanged.
func ExpandHomeWith(path, home string) string {
	if path == "" || home == "" {
		return path
	}

	for _, placeholder := range []string{"${HOME}", "$HOME", "~"} {
		if !strings.HasPrefix(path, placeholder) {
			continue
		}
		rest := path[len(placeholder):]
		if rest == "" {
			return home
		}
		if rest[0] == '/' || rest[0] == filepath.Separator {
			return filepath.Join(home, rest[1:])
		}
		// $HOMEDIR or ~user, not ours
		return path
	}

	return path
}

// FindRepoRoot determines the repository root for a run:
//  1. DOTFILES_ROOT environment variable (if set)
//  2. Git repository root containing startDir
//  3. startDir itself
//
// The boolean is false only for the last case, so callers can warn that the
// run is happening outside a recognized repository.
func FindRepoRoot(startDir string) (string, bool, error) {
	if root := os.Getenv(EnvDotfilesRoot); root != "" {
		resolved, err := Resolve(ExpandHomeWith(root, os.Getenv(EnvHome)), "")
		return resolved, true, err
	}

	if gitRoot, err := findGitRoot(startDir); err == nil {
		resolved, err := Resolve(gitRoot, "")
		return resolved, true, err
	}

	resolved, err := Resolve(startDir, "")
	return resolved, false, err
}

// findGitRoot attempts to find the root of the git repository containing dir
func findGitRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		// Not in a git repo or git not installed
		return "", err
	}

	gitRoot := strings.TrimSpace(string(output))
	if gitRoot == "" {
		return "", errors.New(errors.ErrNotFound, "git root is empty")
	}

	return gitRoot, nil
}

// FindDefaultConfig locates the configuration file used when none is given:
// DOTFILES_CONFIG, then dotfiles.{toml,yaml,yml,hcl} next to the executable,
// then in the working directory.
func FindDefaultConfig() (string, error) {
	if cfg := os.Getenv(EnvConfig); cfg != "" {
		return ExpandHomeWith(cfg, os.Getenv(EnvHome)), nil
	}

	var dirs []string
	if exe, err := os.Executable(); err == nil {
		if real, err := filepath.EvalSymlinks(exe); err == nil {
			exe = real
		}
		dirs = append(dirs, filepath.Dir(exe))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	for _, dir := range dirs {
		for _, ext := range ConfigExtensions {
			candidate := filepath.Join(dir, ConfigBaseName+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}

	return "", errors.Newf(errors.ErrConfigLoad,
		"no configuration found: pass -c, pipe one on stdin, set %s, or place %s%s next to the executable",
		EnvConfig, ConfigBaseName, ConfigExtensions[0])
}
