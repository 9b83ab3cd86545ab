// Package config loads the run configuration for simple-dotfiles.
//
// A configuration is data only: three lists of strings (init, links, steps)
// plus an optional settings table. It may be written as TOML, YAML or HCL and
// read from a file or from standard input. Values are layered with koanf in
// this order, later layers winning:
//
//  1. Embedded defaults (embedded/defaults.toml)
//  2. The configuration source
//  3. DOTFILES_SHELL, DOTFILES_STEP_TIMEOUT, DOTFILES_BACKUP_DIR, DOTFILES_ROOT
//  4. Command-line overrides
//
// Only the source layer may declare links, and it must: a source without a
// links list is rejected even when the list would be empty.
package config
