// Package backup copies paths that are about to be replaced into a per-run
// backup directory.
//
// A run's backup root is named .dotfiles-backup-YYYYMMDD-HHMMSS and is only
// created when the first path is backed up. Inside it every path keeps its
// absolute location, so ~/.zshrc of user alice is found at
// <root>/home/alice/.zshrc. Symlinks are copied as symlinks, never through.
package backup
