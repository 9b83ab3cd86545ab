package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gapurov/simple-dotfiles/pkg/errors"
	"github.com/gapurov/simple-dotfiles/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullTOML = `
init  = ["export PATH=\"$HOME/.local/bin:$PATH\""]
links = [
  "config/git/gitconfig:~/.gitconfig",
  "# config/zsh/zshrc:~/.zshrc",
  "   ",
  "config/nvim:~/.config/nvim",
]
steps = ["./scripts/brew.sh", "# disabled", "echo done"]

[settings]
shell        = "zsh"
step_timeout = "90s"
backup_dir   = "~/backups"
root         = "."
`

// isolate clears the environment the loader reads and points HOME at a temp dir
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{"DOTFILES_SHELL", "DOTFILES_STEP_TIMEOUT", "DOTFILES_BACKUP_DIR", "DOTFILES_ROOT"} {
		t.Setenv(name, "")
	}
	return home
}

func writeConfig(t *testing.T, name, content string) *Source {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	src, err := FileSource(path)
	require.NoError(t, err)
	return src
}

func TestLoad_TOML(t *testing.T) {
	home := isolate(t)
	src := writeConfig(t, "dotfiles.toml", fullTOML)

	cfg, err := Load(src, Options{Home: home})
	require.NoError(t, err)

	assert.Equal(t, []types.StepSpec{{Command: `export PATH="$HOME/.local/bin:$PATH"`}}, cfg.Init)
	assert.Equal(t, []types.LinkSpec{
		{Source: "config/git/gitconfig", Destination: "~/.gitconfig"},
		{Source: "config/nvim", Destination: "~/.config/nvim"},
	}, cfg.Links)
	assert.Equal(t, []types.StepSpec{{Command: "./scripts/brew.sh"}, {Command: "echo done"}}, cfg.Steps)
	assert.Equal(t, "zsh", cfg.Settings.Shell)
	assert.Equal(t, 90*time.Second, cfg.Settings.StepTimeout)
	assert.Equal(t, filepath.Join(home, "backups"), cfg.Settings.BackupDir)
	assert.Equal(t, src.Dir, cfg.RepoRoot)
	assert.Equal(t, src.Name, cfg.Source)
	assert.Empty(t, cfg.Warnings)
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)
	src := writeConfig(t, "dotfiles.toml", "links = []\n[settings]\nroot = \".\"\n")

	cfg, err := Load(src, Options{Home: home})
	require.NoError(t, err)

	assert.Empty(t, cfg.Links)
	assert.Empty(t, cfg.Init)
	assert.Empty(t, cfg.Steps)
	assert.Equal(t, types.DefaultShell, cfg.Settings.Shell)
	assert.Equal(t, types.DefaultStepTimeout, cfg.Settings.StepTimeout)
	assert.Equal(t, "", cfg.Settings.BackupDir)
}

func TestLoad_YAML(t *testing.T) {
	home := isolate(t)
	src := writeConfig(t, "dotfiles.yaml", `
links:
  - config/test/file1:~/.file1
  - "# skipped"
steps:
  - echo hi
settings:
  step_timeout: 45
  root: .
`)

	cfg, err := Load(src, Options{Home: home})
	require.NoError(t, err)

	assert.Equal(t, []types.LinkSpec{{Source: "config/test/file1", Destination: "~/.file1"}}, cfg.Links)
	assert.Equal(t, []types.StepSpec{{Command: "echo hi"}}, cfg.Steps)
	assert.Equal(t, 45*time.Second, cfg.Settings.StepTimeout)
}

func TestLoad_HCL(t *testing.T) {
	home := isolate(t)
	src := writeConfig(t, "dotfiles.hcl", `
init  = ["export EDITOR=nvim"]
links = ["config/git/gitconfig:~/.gitconfig"]

settings {
  shell        = "sh"
  step_timeout = "2m"
  root         = "."
}
`)

	cfg, err := Load(src, Options{Home: home})
	require.NoError(t, err)

	assert.Equal(t, []types.StepSpec{{Command: "export EDITOR=nvim"}}, cfg.Init)
	assert.Equal(t, []types.LinkSpec{{Source: "config/git/gitconfig", Destination: "~/.gitconfig"}}, cfg.Links)
	assert.Empty(t, cfg.Steps)
	assert.Equal(t, "sh", cfg.Settings.Shell)
	assert.Equal(t, 2*time.Minute, cfg.Settings.StepTimeout)
}

func TestLoad_Stdin(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"toml", "links = [\"a:~/.a\"]\n[settings]\nroot = \"/\"\n"},
		{"yaml", "links:\n  - a:~/.a\nsettings:\n  root: /\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := isolate(t)
			src, err := ReaderSource(strings.NewReader(tt.content))
			require.NoError(t, err)
			assert.Equal(t, StdinName, src.Name)

			cfg, err := Load(src, Options{Home: home})
			require.NoError(t, err)
			assert.Equal(t, []types.LinkSpec{{Source: "a", Destination: "~/.a"}}, cfg.Links)
			assert.Equal(t, "/", cfg.RepoRoot)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		code    errors.ErrorCode
	}{
		{"missing links", "c.toml", "steps = [\"echo\"]\n", errors.ErrConfigValid},
		{"links not a list", "c.toml", "links = \"a:b\"\n", errors.ErrConfigValid},
		{"links table", "c.toml", "[links]\na = \"b\"\n", errors.ErrConfigValid},
		{"non-string entry", "c.yaml", "links: [\"a:b\", 3]\n", errors.ErrConfigValid},
		{"steps not a list", "c.yaml", "links: []\nsteps: echo hi\n", errors.ErrConfigValid},
		{"settings not a table", "c.yaml", "links: []\nsettings: fast\n", errors.ErrConfigValid},
		{"link without delimiter", "c.toml", "links = [\"config/file\"]\n", errors.ErrConfigValid},
		{"link with empty destination", "c.toml", "links = [\"config/file:\"]\n", errors.ErrConfigValid},
		{"link with empty source", "c.toml", "links = [\":~/.file\"]\n", errors.ErrConfigValid},
		{"empty shell", "c.toml", "links = []\n[settings]\nshell = \" \"\n", errors.ErrConfigValid},
		{"bad timeout", "c.toml", "links = []\n[settings]\nstep_timeout = \"soon\"\n", errors.ErrConfigValid},
		{"malformed toml", "c.toml", "links = [\n", errors.ErrConfigParse},
		{"malformed yaml", "c.yaml", "links: [\n", errors.ErrConfigParse},
		{"malformed hcl", "c.hcl", "links = [\n", errors.ErrConfigParse},
		{"unknown hcl attribute", "c.hcl", "links = []\nlinkz = []\n", errors.ErrConfigParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := isolate(t)
			src := writeConfig(t, tt.file, tt.content)

			_, err := Load(src, Options{Home: home, RepoRoot: "/"})
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetErrorCode(err), err.Error())
		})
	}
}

func TestLoad_StdinGarbage(t *testing.T) {
	home := isolate(t)
	src, err := ReaderSource(strings.NewReader("{{{ not config"))
	require.NoError(t, err)

	_, err = Load(src, Options{Home: home})
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse))
}

func TestFileSource_Missing(t *testing.T) {
	_, err := FileSource(filepath.Join(t.TempDir(), "nope.toml"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	home := isolate(t)
	t.Setenv("DOTFILES_SHELL", "zsh")
	t.Setenv("DOTFILES_STEP_TIMEOUT", "60")
	t.Setenv("DOTFILES_BACKUP_DIR", "~/bk")
	t.Setenv("DOTFILES_LOCK", "/tmp/not-a-setting")
	src := writeConfig(t, "dotfiles.toml", fullTOML)

	cfg, err := Load(src, Options{Home: home})
	require.NoError(t, err)

	assert.Equal(t, "zsh", cfg.Settings.Shell)
	assert.Equal(t, 60*time.Second, cfg.Settings.StepTimeout)
	assert.Equal(t, filepath.Join(home, "bk"), cfg.Settings.BackupDir)
}

func TestLoad_RootFromEnvironment(t *testing.T) {
	home := isolate(t)
	src := writeConfig(t, "dotfiles.toml", "links = []\n")
	require.NoError(t, os.Mkdir(filepath.Join(src.Dir, "repo"), 0755))
	t.Setenv("DOTFILES_ROOT", "repo")

	cfg, err := Load(src, Options{Home: home})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(src.Dir, "repo"), cfg.RepoRoot)
}

func TestLoad_FlagOverridesWin(t *testing.T) {
	home := isolate(t)
	t.Setenv("DOTFILES_STEP_TIMEOUT", "60s")
	repo := t.TempDir()
	src := writeConfig(t, "dotfiles.toml", fullTOML)

	cfg, err := Load(src, Options{Home: home, StepTimeout: 5 * time.Second, RepoRoot: repo})
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Settings.StepTimeout)
	want, err := filepath.EvalSymlinks(repo)
	require.NoError(t, err)
	assert.Equal(t, want, cfg.RepoRoot)
}

func TestLoad_OutsideRepositoryWarns(t *testing.T) {
	home := isolate(t)
	t.Setenv("GIT_CEILING_DIRECTORIES", os.TempDir())
	src := writeConfig(t, "dotfiles.toml", "links = []\n")

	cfg, err := Load(src, Options{Home: home})
	require.NoError(t, err)

	assert.Equal(t, src.Dir, cfg.RepoRoot)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "outside a recognized repository")
}

func TestLoad_UnknownKeys(t *testing.T) {
	t.Run("toml", func(t *testing.T) {
		home := isolate(t)
		src := writeConfig(t, "dotfiles.toml", "links = []\nstep = []\n[settings]\nshel = \"zsh\"\nroot = \".\"\n")

		cfg, err := Load(src, Options{Home: home})
		require.NoError(t, err)

		require.Len(t, cfg.Warnings, 2)
		assert.Contains(t, cfg.Warnings[0], `"settings.shel"`)
		assert.Contains(t, cfg.Warnings[0], `did you mean "settings.shell"`)
		assert.Contains(t, cfg.Warnings[1], `did you mean "steps"`)
		assert.Equal(t, types.DefaultShell, cfg.Settings.Shell)
	})

	t.Run("yaml", func(t *testing.T) {
		home := isolate(t)
		src := writeConfig(t, "dotfiles.yml", "links: []\ncompletely_different: 1\nsettings:\n  root: .\n")

		cfg, err := Load(src, Options{Home: home})
		require.NoError(t, err)

		require.Len(t, cfg.Warnings, 1)
		assert.Equal(t, `unknown configuration key "completely_different"`, cfg.Warnings[0])
	})
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatTOML, FormatFromPath("dotfiles.toml"))
	assert.Equal(t, FormatYAML, FormatFromPath("dotfiles.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("dotfiles.YML"))
	assert.Equal(t, FormatHCL, FormatFromPath("dotfiles.hcl"))
	assert.Equal(t, FormatTOML, FormatFromPath("dotfiles.conf"))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("ini")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestDefaultsContent(t *testing.T) {
	assert.Contains(t, DefaultsContent(), `step_timeout = "300s"`)
}

func TestEncode(t *testing.T) {
	home := isolate(t)
	src := writeConfig(t, "dotfiles.toml", fullTOML)
	cfg, err := Load(src, Options{Home: home})
	require.NoError(t, err)

	t.Run("toml loads back to the same configuration", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, cfg, FormatTOML))
		assert.Contains(t, buf.String(), "step_timeout")
		assert.Contains(t, buf.String(), "1m30s")

		again, err := ReaderSource(&buf)
		require.NoError(t, err)
		reloaded, err := Load(again, Options{Home: home})
		require.NoError(t, err)

		assert.Equal(t, cfg.Init, reloaded.Init)
		assert.Equal(t, cfg.Links, reloaded.Links)
		assert.Equal(t, cfg.Steps, reloaded.Steps)
		assert.Equal(t, cfg.Settings.StepTimeout, reloaded.Settings.StepTimeout)
		assert.Equal(t, cfg.RepoRoot, reloaded.RepoRoot)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, cfg, FormatYAML))
		assert.Contains(t, buf.String(), "step_timeout: 1m30s")
		assert.Contains(t, buf.String(), "config/git/gitconfig:~/.gitconfig")
	})

	t.Run("hcl is not printable", func(t *testing.T) {
		err := Encode(&bytes.Buffer{}, cfg, FormatHCL)
		assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	})
}
