package types

import (
	"strings"
	"time"
)

// Default settings values
const (
	DefaultShell       = "bash"
	DefaultStepTimeout = 300 * time.Second
)

// Settings holds the tunables that accompany the declared lists.
type Settings struct {
	// Shell runs steps and init commands
	Shell string `koanf:"shell" json:"shell" yaml:"shell" toml:"shell"`
	// StepTimeout bounds the wall-clock time of a single step
	StepTimeout time.Duration `koanf:"step_timeout" json:"step_timeout" yaml:"step_timeout" toml:"step_timeout"`
	// BackupDir is the parent of the per-run backup directory
	BackupDir string `koanf:"backup_dir" json:"backup_dir" yaml:"backup_dir" toml:"backup_dir"`
	// Root is the repository root; relative values are taken from the config file's directory
	Root string `koanf:"root" json:"root,omitempty" yaml:"root,omitempty" toml:"root,omitempty"`
}

// Configuration is the loaded, filtered description of one run.
type Configuration struct {
	Init     []StepSpec `json:"init" yaml:"init" toml:"init"`
	Links    []LinkSpec `json:"links" yaml:"links" toml:"links"`
	Steps    []StepSpec `json:"steps" yaml:"steps" toml:"steps"`
	Settings Settings   `json:"settings" yaml:"settings" toml:"settings"`

	// RepoRoot is the absolute directory link sources and steps are relative to
	RepoRoot string `json:"-" yaml:"-" toml:"-"`
	// Source names where the configuration came from, for messages
	Source string `json:"-" yaml:"-" toml:"-"`
	// Warnings are non-fatal findings from loading, such as unknown keys
	Warnings []string `json:"-" yaml:"-" toml:"-"`
}

// IsIgnoredEntry reports whether a raw list entry is blank or a comment.
func IsIgnoredEntry(entry string) bool {
	trimmed := strings.TrimSpace(entry)
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}
