package linker

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gapurov/simple-dotfiles/pkg/backup"
	"github.com/gapurov/simple-dotfiles/pkg/errors"
	"github.com/gapurov/simple-dotfiles/pkg/testutil"
	"github.com/gapurov/simple-dotfiles/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	env      *testutil.TestEnvironment
	fs       *testutil.FaultFS
	backups  *backup.Manager
	reporter *testutil.Reporter
	rec      *Reconciler
}

func newHarness(t *testing.T, dryRun bool) *harness {
	t.Helper()
	env := testutil.NewTestEnvironment(t)
	fsys := testutil.NewFaultFS(env.FS)
	backups := backup.NewManager(fsys, filepath.Join(env.Home, ".dotfiles-backup-20261014-120000"), dryRun)
	reporter := &testutil.Reporter{}
	return &harness{
		env:      env,
		fs:       fsys,
		backups:  backups,
		reporter: reporter,
		rec: New(fsys, backups, reporter, Options{
			RepoRoot: env.Root,
			Home:     env.Home,
			DryRun:   dryRun,
		}),
	}
}

func (h *harness) backupOf(path string) string {
	return filepath.Join(h.backups.Root(), strings.TrimPrefix(path, "/"))
}

func link(source, dest string) types.LinkSpec {
	return types.LinkSpec{Source: source, Destination: dest}
}

func TestReconcile_CreatesMissingLink(t *testing.T) {
	h := newHarness(t, false)
	src := h.env.WriteRepoFile("config/test/file1", "one")

	res := h.rec.Reconcile(link("config/test/file1", "~/.file1"))

	require.NoError(t, res.Err)
	assert.Equal(t, Created, res.Outcome)
	assert.Equal(t, ActionCreate, res.Action)
	assert.Equal(t, src, res.Source)
	assert.Equal(t, h.env.HomePath(".file1"), res.Destination)
	assert.True(t, res.OK())
	testutil.AssertSymlink(t, h.env.HomePath(".file1"), src)
	assert.False(t, h.backups.Used())
}

func TestReconcile_DestinationSpellings(t *testing.T) {
	tests := []struct {
		name string
		dest string
		want string
	}{
		{"tilde", "~/.zshrc", ".zshrc"},
		{"HOME", "$HOME/.zshrc", ".zshrc"},
		{"braced HOME", "${HOME}/.config/zsh/.zshrc", ".config/zsh/.zshrc"},
		{"relative to home", ".config/zsh/zshrc", ".config/zsh/zshrc"},
		{"dot segments", "~/.config/../.zshrc", ".zshrc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			src := h.env.WriteRepoFile("zsh/zshrc", "z")

			res := h.rec.Reconcile(link("zsh/zshrc", tt.dest))

			require.NoError(t, res.Err)
			assert.Equal(t, h.env.HomePath(tt.want), res.Destination)
			testutil.AssertSymlink(t, h.env.HomePath(tt.want), src)
		})
	}
}

func TestReconcile_AlreadyCorrect(t *testing.T) {
	tests := []struct {
		name   string
		target func(h *harness) string
	}{
		{"absolute target", func(h *harness) string { return h.env.RepoPath("git/gitconfig") }},
		{"relative target", func(h *harness) string { return "../dotfiles/git/gitconfig" }},
		{"unclean target", func(h *harness) string { return h.env.RepoPath("git/../git/./gitconfig") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			h.env.WriteRepoFile("git/gitconfig", "[user]")
			h.env.HomeSymlink(".gitconfig", tt.target(h))
			before := testutil.Snapshot(t, h.env.Home)

			res := h.rec.Reconcile(link("git/gitconfig", "~/.gitconfig"))

			require.NoError(t, res.Err)
			assert.Equal(t, AlreadyCorrect, res.Outcome)
			assert.Equal(t, ActionNone, res.Action)
			assert.Equal(t, before, testutil.Snapshot(t, h.env.Home))
			assert.False(t, h.backups.Used())
		})
	}
}

func TestReconcile_ThroughSymlinkedHomeDirectory(t *testing.T) {
	h := newHarness(t, false)
	src := h.env.WriteRepoFile("nvim/init.lua", "-- lua")
	real := h.env.HomePath("real-config")
	require.NoError(t, os.MkdirAll(real, 0755))
	h.env.HomeSymlink(".config", real)
	require.NoError(t, os.Symlink(src, filepath.Join(real, "init.lua")))

	res := h.rec.Reconcile(link("nvim/init.lua", "~/.config/init.lua"))

	require.NoError(t, res.Err)
	assert.Equal(t, AlreadyCorrect, res.Outcome)
	assert.Equal(t, filepath.Join(real, "init.lua"), res.Destination)
}

func TestReconcile_Idempotent(t *testing.T) {
	h := newHarness(t, false)
	h.env.WriteRepoFile("a", "a")
	h.env.WriteHomeFile(".a", "old")

	first := h.rec.Reconcile(link("a", "~/.a"))
	require.NoError(t, first.Err)
	assert.Equal(t, Created, first.Outcome)
	after := testutil.Snapshot(t, h.env.Home)

	second := h.rec.Reconcile(link("a", "~/.a"))
	require.NoError(t, second.Err)
	assert.Equal(t, AlreadyCorrect, second.Outcome)
	assert.Equal(t, after, testutil.Snapshot(t, h.env.Home))
}

func TestReconcile_ReplacesWrongSymlink(t *testing.T) {
	h := newHarness(t, false)
	src := h.env.WriteRepoFile("vim/vimrc", "set nu")
	other := h.env.WriteHomeFile("old-vimrc", "old")
	dest := h.env.HomeSymlink(".vimrc", other)
	oldTime := time.Date(2021, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, h.env.FS.Lchtimes(dest, oldTime, oldTime))

	res := h.rec.Reconcile(link("vim/vimrc", "~/.vimrc"))

	require.NoError(t, res.Err)
	assert.Equal(t, Created, res.Outcome)
	assert.Equal(t, ActionReplaceSymlink, res.Action)
	assert.Equal(t, h.backupOf(dest), res.BackupPath)
	testutil.AssertSymlink(t, dest, src)
	testutil.AssertSymlink(t, res.BackupPath, other)
	testutil.AssertFileContent(t, other, "old")

	info, err := os.Lstat(res.BackupPath)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(oldTime))
}

func TestReconcile_ReplacesDanglingSymlink(t *testing.T) {
	h := newHarness(t, false)
	src := h.env.WriteRepoFile("tmux.conf", "set -g mouse on")
	dest := h.env.HomeSymlink(".tmux.conf", "/nonexistent/tmux.conf")

	res := h.rec.Reconcile(link("tmux.conf", "~/.tmux.conf"))

	require.NoError(t, res.Err)
	assert.Equal(t, ActionReplaceSymlink, res.Action)
	testutil.AssertSymlink(t, dest, src)
	testutil.AssertSymlink(t, res.BackupPath, "/nonexistent/tmux.conf")
}

func TestReconcile_ReplacesDifferentFile(t *testing.T) {
	h := newHarness(t, false)
	src := h.env.WriteRepoFile("zsh/zshrc", "new")
	dest := h.env.WriteHomeFile(".zshrc", "precious")

	res := h.rec.Reconcile(link("zsh/zshrc", "~/.zshrc"))

	require.NoError(t, res.Err)
	assert.Equal(t, Created, res.Outcome)
	assert.Equal(t, ActionReplaceFile, res.Action)
	assert.Equal(t, h.backupOf(dest), res.BackupPath)
	testutil.AssertFileContent(t, res.BackupPath, "precious")
	testutil.AssertSymlink(t, dest, src)
	assert.True(t, h.reporter.Contains("backed up to "+res.BackupPath))
}

func TestReconcile_IdenticalFileIsNotBackedUp(t *testing.T) {
	h := newHarness(t, false)
	src := h.env.WriteRepoFile("zsh/zshrc", "same")
	dest := h.env.WriteHomeFile(".zshrc", "same")

	res := h.rec.Reconcile(link("zsh/zshrc", "~/.zshrc"))

	require.NoError(t, res.Err)
	assert.Equal(t, ActionReplaceFile, res.Action)
	assert.Empty(t, res.BackupPath)
	assert.False(t, h.backups.Used())
	assert.Empty(t, h.env.BackupRoots())
	testutil.AssertSymlink(t, dest, src)
}

func TestReconcile_ReplacesDirectory(t *testing.T) {
	h := newHarness(t, false)
	src := h.env.WriteRepoFile("nvim/init.lua", "-- new")
	srcDir := filepath.Dir(src)
	h.env.WriteHomeFile(".config/nvim/init.lua", "-- old")
	h.env.WriteHomeFile(".config/nvim/lua/plugins.lua", "return {}")
	dest := h.env.HomePath(".config/nvim")

	res := h.rec.Reconcile(link("nvim", "~/.config/nvim"))

	require.NoError(t, res.Err)
	assert.Equal(t, ActionReplaceDirectory, res.Action)
	testutil.AssertSymlink(t, dest, srcDir)
	testutil.AssertFileContent(t, filepath.Join(res.BackupPath, "init.lua"), "-- old")
	testutil.AssertFileContent(t, filepath.Join(res.BackupPath, "lua", "plugins.lua"), "return {}")
}

func TestReconcile_CreatesParentDirectories(t *testing.T) {
	h := newHarness(t, false)
	src := h.env.WriteRepoFile("alacritty.toml", "")

	res := h.rec.Reconcile(link("alacritty.toml", "~/.config/alacritty/alacritty.toml"))

	require.NoError(t, res.Err)
	assert.DirExists(t, h.env.HomePath(".config/alacritty"))
	testutil.AssertSymlink(t, h.env.HomePath(".config/alacritty/alacritty.toml"), src)
	assert.True(t, h.reporter.Contains("Creating directory "+h.env.HomePath(".config/alacritty")))
}

func TestReconcile_MissingSource(t *testing.T) {
	h := newHarness(t, false)
	dest := h.env.WriteHomeFile(".bashrc", "keep")
	before := testutil.Snapshot(t, h.env.Home)

	res := h.rec.Reconcile(link("bash/bashrc", "~/.bashrc"))

	assert.Equal(t, Error, res.Outcome)
	assert.False(t, res.OK())
	assert.True(t, errors.IsErrorCode(res.Err, errors.ErrSourceMissing))
	assert.Equal(t, before, testutil.Snapshot(t, h.env.Home))
	testutil.AssertFileContent(t, dest, "keep")
	assert.NotEmpty(t, h.reporter.Messages("warning"))
}

func TestReconcile_ParentIsAFile(t *testing.T) {
	h := newHarness(t, false)
	h.env.WriteRepoFile("git/config", "")
	h.env.WriteHomeFile(".config", "i am a file")

	res := h.rec.Reconcile(link("git/config", "~/.config/git/config"))

	assert.Equal(t, Error, res.Outcome)
	assert.True(t, errors.IsErrorCode(res.Err, errors.ErrDirCreate))
	testutil.AssertFileContent(t, h.env.HomePath(".config"), "i am a file")
}

func TestReconcile_DirectParentIsAFile(t *testing.T) {
	h := newHarness(t, false)
	h.env.WriteRepoFile("git/config", "")
	h.env.WriteHomeFile(".config/git", "i am a file")

	res := h.rec.Reconcile(link("git/config", "~/.config/git/config"))

	assert.Equal(t, Error, res.Outcome)
	assert.True(t, errors.IsErrorCode(res.Err, errors.ErrDirCreate))
}

func TestReconcile_FailedBackupLeavesDestination(t *testing.T) {
	h := newHarness(t, false)
	h.env.WriteRepoFile("zsh/zshrc", "new")
	dest := h.env.WriteHomeFile(".zshrc", "precious")
	h.fs.CreateFunc = func(name string, perm fs.FileMode) (io.WriteCloser, error) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}

	res := h.rec.Reconcile(link("zsh/zshrc", "~/.zshrc"))

	assert.Equal(t, Error, res.Outcome)
	assert.True(t, errors.IsErrorCode(res.Err, errors.ErrBackupFailed))
	testutil.AssertFileContent(t, dest, "precious")
	assert.NotEmpty(t, h.reporter.Messages("error"))
}

func TestReconcile_RemoveFailure(t *testing.T) {
	h := newHarness(t, false)
	h.env.WriteRepoFile("zsh/zshrc", "new")
	dest := h.env.WriteHomeFile(".zshrc", "old")
	h.fs.RemoveFunc = func(name string) error {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrPermission}
	}

	res := h.rec.Reconcile(link("zsh/zshrc", "~/.zshrc"))

	assert.Equal(t, Error, res.Outcome)
	assert.True(t, errors.IsErrorCode(res.Err, errors.ErrFileRemove))
	testutil.AssertFileContent(t, dest, "old")
	// The backup was taken before the failed removal
	testutil.AssertFileContent(t, res.BackupPath, "old")
}

func TestReconcile_SymlinkFailure(t *testing.T) {
	h := newHarness(t, false)
	h.env.WriteRepoFile("a", "a")
	h.fs.SymlinkFunc = func(oldname, newname string) error {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: fs.ErrPermission}
	}

	res := h.rec.Reconcile(link("a", "~/.a"))

	assert.Equal(t, Error, res.Outcome)
	assert.True(t, errors.IsErrorCode(res.Err, errors.ErrSymlinkCreate))
	testutil.AssertNotExists(t, h.env.HomePath(".a"))
}

func TestReconcile_DryRunTouchesNothing(t *testing.T) {
	h := newHarness(t, true)
	h.env.WriteRepoFile("a", "a")
	h.env.WriteRepoFile("b", "b")
	h.env.WriteRepoFile("c/file", "c")
	h.env.WriteRepoFile("d", "d")
	h.env.WriteHomeFile(".a", "existing file")
	h.env.WriteHomeFile(".c/file", "existing dir")
	h.env.HomeSymlink(".d", "/elsewhere")
	before := testutil.Snapshot(t, h.env.Home)

	specs := []struct {
		spec   types.LinkSpec
		action Action
	}{
		{link("a", "~/.a"), ActionReplaceFile},
		{link("b", "~/.config/new/b"), ActionCreate},
		{link("c", "~/.c"), ActionReplaceDirectory},
		{link("d", "~/.d"), ActionReplaceSymlink},
	}
	for _, s := range specs {
		res := h.rec.Reconcile(s.spec)
		require.NoError(t, res.Err, s.spec.String())
		assert.Equal(t, Created, res.Outcome, s.spec.String())
		assert.Equal(t, s.action, res.Action, s.spec.String())
	}

	assert.Equal(t, before, testutil.Snapshot(t, h.env.Home))
	assert.Empty(t, h.env.BackupRoots())
	assert.True(t, h.reporter.Contains("Creating directory "+h.env.HomePath(".config/new")))
}

func TestOutcomeAndActionStrings(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "already correct", AlreadyCorrect.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "replace directory", ActionReplaceDirectory.String())
	assert.Equal(t, "unknown", Action(99).String())
}

func TestReconcile_DestinationOverlapsSource(t *testing.T) {
	tests := []struct {
		name   string
		source string
		dest   string
	}{
		{"destination is the source", "config/nvim/init.vim", "~/.config/nvim/init.vim"},
		{"destination inside source directory", "config/nvim", "~/.config/nvim/init.vim"},
		{"source inside destination", "config/nvim/init.vim", "../dotfiles/config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			src := h.env.WriteRepoFile("config/nvim/init.vim", "set number")
			require.NoError(t, os.MkdirAll(h.env.HomePath(".config"), 0755))
			h.env.HomeSymlink(".config/nvim", h.env.RepoPath("config/nvim"))
			before := testutil.Snapshot(t, h.env.Root)

			res := h.rec.Reconcile(link(tt.source, tt.dest))

			assert.Equal(t, Error, res.Outcome)
			assert.True(t, errors.IsErrorCode(res.Err, errors.ErrLinkSelf))
			assert.Equal(t, before, testutil.Snapshot(t, h.env.Root))
			testutil.AssertFileContent(t, src, "set number")
			testutil.AssertSymlink(t, h.env.HomePath(".config/nvim"), h.env.RepoPath("config/nvim"))
			assert.False(t, h.backups.Used())
			assert.NotEmpty(t, h.reporter.Messages("error"))
		})
	}
}

func TestReconcile_DestinationContainingBackupRoot(t *testing.T) {
	h := newHarness(t, false)
	h.env.WriteRepoFile("zsh/zshrc", "new")
	dest := h.env.WriteHomeFile(".zshrc", "old")

	res := h.rec.Reconcile(link("zsh/zshrc", "~"))

	assert.Equal(t, Error, res.Outcome)
	assert.True(t, errors.IsErrorCode(res.Err, errors.ErrBackupFailed))
	testutil.AssertFileContent(t, dest, "old")
	_, err := os.Lstat(h.backups.Root())
	assert.True(t, os.IsNotExist(err))
}
