// Package types defines the core data types shared across simple-dotfiles:
// the declared links and steps, the loaded configuration, and the
// filesystem interface the reconciler and backup manager operate through.
package types
