// Package paths provides centralized path handling for simple-dotfiles.
//
// It covers:
//
//   - Resolve, the single path canonicalization contract used to compare
//     symlink targets regardless of how they were spelled
//   - Home directory detection and placeholder expansion (~, $HOME)
//   - Repository root discovery (DOTFILES_ROOT, git toplevel, fallback)
//   - Well-known locations: the run lock, backup roots, default config files
//
// # Environment Variables
//
//   - DOTFILES_ROOT: repository root override
//   - DOTFILES_CONFIG: configuration file used when no -c flag is given
//   - DOTFILES_LOCK: run lock location (default: ~/.dotfiles-install.lock)
//
// # Usage
//
//	p, err := paths.New("") // detect the home directory
//	if err != nil {
//	    return err
//	}
//
//	dest := p.ExpandHome("~/.gitconfig")       // /home/user/.gitconfig
//	src, _ := paths.Resolve("git/gitconfig", repoRoot)
//	lock := p.LockPath()                        // /home/user/.dotfiles-install.lock
package paths
