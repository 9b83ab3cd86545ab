package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gapurov/simple-dotfiles/pkg/filesystem"
	"github.com/gapurov/simple-dotfiles/pkg/types"
)

// TestEnvironment is an isolated repository plus home directory
type TestEnvironment struct {
	// Root is the dotfiles repository
	Root string
	// Home is the fake home directory, also exported as HOME
	Home string
	// State is XDG_STATE_HOME
	State string
	// Lock is the run lock location, exported as DOTFILES_LOCK
	Lock string

	FS types.FS

	t *testing.T
}

// NewTestEnvironment creates the directories and environment for one test.
// Paths have symlinks in the temp dir prefix evaluated, so they compare
// equal to resolver output.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	base, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}

	env := &TestEnvironment{
		Root:  filepath.Join(base, "dotfiles"),
		Home:  filepath.Join(base, "home"),
		State: filepath.Join(base, "state"),
		FS:    filesystem.NewOS(),
		t:     t,
	}
	env.Lock = filepath.Join(env.Home, ".dotfiles-install.lock")

	for _, dir := range []string{env.Root, env.Home, env.State} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("XDG_STATE_HOME", env.State)
	t.Setenv("DOTFILES_LOCK", env.Lock)
	t.Setenv("DOTFILES_ROOT", "")
	t.Setenv("DOTFILES_CONFIG", "")
	t.Setenv("DOTFILES_SHELL", "")
	t.Setenv("DOTFILES_STEP_TIMEOUT", "")
	t.Setenv("DOTFILES_BACKUP_DIR", "")
	// Keep git from finding a repository above the temp dir
	t.Setenv("GIT_CEILING_DIRECTORIES", base)

	return env
}

// RepoPath returns the absolute path of rel inside the repository
func (env *TestEnvironment) RepoPath(rel string) string {
	return filepath.Join(env.Root, rel)
}

// HomePath returns the absolute path of rel inside the home directory
func (env *TestEnvironment) HomePath(rel string) string {
	return filepath.Join(env.Home, rel)
}

// WriteRepoFile creates a repository file, with parents
func (env *TestEnvironment) WriteRepoFile(rel, content string) string {
	env.t.Helper()
	return env.writeFile(env.RepoPath(rel), content)
}

// WriteHomeFile creates a file in the home directory, with parents
func (env *TestEnvironment) WriteHomeFile(rel, content string) string {
	env.t.Helper()
	return env.writeFile(env.HomePath(rel), content)
}

// HomeSymlink creates a symlink in the home directory pointing at target
func (env *TestEnvironment) HomeSymlink(rel, target string) string {
	env.t.Helper()
	path := env.HomePath(rel)
	env.mkdirParent(path)
	if err := os.Symlink(target, path); err != nil {
		env.t.Fatalf("Failed to create symlink %s: %v", path, err)
	}
	return path
}

// WriteConfig writes dotfiles.toml at the repository root and returns its path
func (env *TestEnvironment) WriteConfig(content string) string {
	env.t.Helper()
	return env.WriteRepoFile("dotfiles.toml", content)
}

// BackupRoots lists the backup directories created in the home directory
func (env *TestEnvironment) BackupRoots() []string {
	env.t.Helper()
	matches, err := filepath.Glob(filepath.Join(env.Home, ".dotfiles-backup-*"))
	if err != nil {
		env.t.Fatalf("Failed to list backups: %v", err)
	}
	return matches
}

func (env *TestEnvironment) writeFile(path, content string) string {
	env.t.Helper()
	env.mkdirParent(path)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		env.t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func (env *TestEnvironment) mkdirParent(path string) {
	env.t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		env.t.Fatalf("Failed to create parent of %s: %v", path, err)
	}
}
