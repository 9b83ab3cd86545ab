// Package linker reconciles declared symlinks with the filesystem.
//
// Each declaration is handled on its own: the destination is inspected,
// classified and only changed when it does not already point at the source.
// Whatever is displaced is backed up first; when the backup fails the
// destination is left as it was.
package linker

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/gapurov/simple-dotfiles/pkg/backup"
	"github.com/gapurov/simple-dotfiles/pkg/errors"
	"github.com/gapurov/simple-dotfiles/pkg/internal/hashutil"
	"github.com/gapurov/simple-dotfiles/pkg/logging"
	"github.com/gapurov/simple-dotfiles/pkg/paths"
	"github.com/gapurov/simple-dotfiles/pkg/types"
)

// Options configure a Reconciler
type Options struct {
	// RepoRoot anchors relative sources
	RepoRoot string
	// Home expands ~ and anchors relative destinations
	Home string
	// DryRun reports without touching the filesystem
	DryRun bool
}

// Reconciler applies link declarations
type Reconciler struct {
	fs       types.FS
	backups  *backup.Manager
	reporter types.Reporter
	opts     Options
	logger   zerolog.Logger
}

// New creates a Reconciler. backups must share the reconciler's dry-run mode.
func New(fsys types.FS, backups *backup.Manager, reporter types.Reporter, opts Options) *Reconciler {
	return &Reconciler{
		fs:       fsys,
		backups:  backups,
		reporter: reporter,
		opts:     opts,
		logger:   logging.GetLogger("linker"),
	}
}

// Reconcile makes spec.Destination a symlink to spec.Source
func (r *Reconciler) Reconcile(spec types.LinkSpec) Result {
	result := Result{Spec: spec, Action: ActionNone}

	source, err := paths.Resolve(spec.Source, r.opts.RepoRoot)
	if err != nil {
		return r.fail(result, errors.Wrapf(err, errors.ErrInvalidInput, "invalid link source %s", spec.Source))
	}
	result.Source = source

	dest, err := paths.Resolve(paths.ExpandHomeWith(spec.Destination, r.opts.Home), r.opts.Home)
	if err != nil {
		return r.fail(result, errors.Wrapf(err, errors.ErrInvalidInput, "invalid link destination %s", spec.Destination))
	}
	result.Destination = dest

	logger := r.logger.With().Str("source", source).Str("destination", dest).Logger()
	logger.Debug().Msg("Reconciling link")

	if _, err := r.fs.Stat(source); err != nil {
		r.reporter.Warning("Source %s does not exist, skipping %s", source, dest)
		return r.fail(result, errors.Wrapf(err, errors.ErrSourceMissing, "source %s does not exist", source).
			WithDetail("source", source))
	}

	if paths.Within(dest, source) || paths.Within(source, dest) {
		r.reporter.Error("%s overlaps its source %s, leaving both in place", dest, source)
		return r.fail(result, errors.Newf(errors.ErrLinkSelf, "destination %s overlaps source %s", dest, source).
			WithDetail("source", source).
			WithDetail("destination", dest))
	}

	if err := r.ensureParent(dest); err != nil {
		return r.fail(result, err)
	}

	info, err := r.fs.Lstat(dest)
	switch {
	case os.IsNotExist(err):
		result.Action = ActionCreate
	case err != nil:
		return r.fail(result, errors.Wrapf(err, errors.ErrFileAccess, "failed to inspect %s", dest).
			WithDetail("destination", dest))
	case info.Mode()&os.ModeSymlink != 0:
		correct, err := r.pointsAt(dest, source)
		if err != nil {
			return r.fail(result, err)
		}
		if correct {
			logger.Debug().Msg("Link already correct")
			r.reporter.Success("%s already links to %s", dest, source)
			result.Outcome = AlreadyCorrect
			return result
		}
		result.Action = ActionReplaceSymlink
	case info.IsDir():
		result.Action = ActionReplaceDirectory
	default:
		result.Action = ActionReplaceFile
	}

	if result.Action != ActionCreate {
		backupPath, err := r.displace(dest, source, result.Action)
		result.BackupPath = backupPath
		if err != nil {
			return r.fail(result, err)
		}
	}

	r.reporter.Info("Linking %s -> %s", dest, source)
	if !r.opts.DryRun {
		if err := r.fs.Symlink(source, dest); err != nil {
			return r.fail(result, errors.Wrapf(err, errors.ErrSymlinkCreate, "failed to link %s -> %s", dest, source).
				WithDetail("source", source).
				WithDetail("destination", dest))
		}
	}

	logger.Debug().Str("action", result.Action.String()).Bool("dry_run", r.opts.DryRun).Msg("Link created")
	result.Outcome = Created
	return result
}

// ensureParent creates the destination's directory when missing. An
// existing non-directory in its place is an error.
func (r *Reconciler) ensureParent(dest string) error {
	parent := filepath.Dir(dest)

	info, err := r.fs.Stat(parent)
	if err == nil {
		if !info.IsDir() {
			return errors.Newf(errors.ErrDirCreate, "parent %s of %s is not a directory", parent, dest).
				WithDetail("parent", parent)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to inspect %s", parent).
			WithDetail("parent", parent)
	}

	r.reporter.Info("Creating directory %s", parent)
	if r.opts.DryRun {
		return nil
	}
	if err := r.fs.MkdirAll(parent, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", parent).
			WithDetail("parent", parent)
	}
	return nil
}

// pointsAt reports whether the symlink at link resolves to source. Relative
// targets are taken from the link's own directory.
func (r *Reconciler) pointsAt(link, source string) (bool, error) {
	target, err := r.fs.Readlink(link)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrFileAccess, "failed to read symlink %s", link).
			WithDetail("destination", link)
	}

	resolved, err := paths.Resolve(target, filepath.Dir(link))
	if err != nil {
		return false, nil
	}
	return resolved == source, nil
}

// displace backs up and removes whatever is at dest. Regular files identical
// to the source are removed without a backup.
func (r *Reconciler) displace(dest, source string, action Action) (string, error) {
	skipBackup := false
	if action == ActionReplaceFile {
		equal, err := hashutil.FilesEqual(r.fs, source, dest)
		if err != nil {
			r.logger.Debug().Err(err).Str("destination", dest).Msg("Content comparison failed, backing up")
		}
		skipBackup = err == nil && equal
	}

	backupPath := ""
	if skipBackup {
		r.reporter.Info("Replacing %s, identical to %s", dest, source)
	} else {
		var err error
		backupPath, err = r.backups.Backup(dest)
		if err != nil {
			r.reporter.Error("Could not back up %s, leaving it in place", dest)
			return "", err
		}
		r.reporter.Info("Replacing %s (%s), backed up to %s", dest, action, backupPath)
	}

	if r.opts.DryRun {
		return backupPath, nil
	}

	remove := r.fs.Remove
	if action == ActionReplaceDirectory {
		remove = r.fs.RemoveAll
	}
	if err := remove(dest); err != nil {
		return backupPath, errors.Wrapf(err, errors.ErrFileRemove, "failed to remove %s", dest).
			WithDetail("destination", dest)
	}
	return backupPath, nil
}

func (r *Reconciler) fail(result Result, err error) Result {
	result.Outcome = Error
	result.Err = err
	r.logger.Debug().Err(err).Str("link", result.Spec.String()).Msg("Link failed")
	return result
}
