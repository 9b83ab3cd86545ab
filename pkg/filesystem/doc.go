// Package filesystem provides filesystem implementations for simple-dotfiles.
//
// This package contains the OS-backed implementation of the types.FS
// interface used by the link reconciler and the backup manager.
package filesystem
