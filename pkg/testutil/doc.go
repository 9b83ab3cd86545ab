// Package testutil provides utilities for testing simple-dotfiles components.
//
// Key components:
//   - TestEnvironment: an isolated repository and home directory under
//     t.TempDir(), with HOME and the DOTFILES_* variables pointed at it
//   - FaultFS: a types.FS wrapper whose operations can be made to fail
//   - Reporter: a types.Reporter that records lines for assertions
//
// Tests use the real filesystem. Symlink, lstat and mkdir semantics are the
// behavior under test, so they are never simulated.
package testutil
