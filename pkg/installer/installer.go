// Package installer drives one run: lock, configuration, init commands,
// links and steps, in that order, producing a Summary.
package installer

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/gapurov/simple-dotfiles/pkg/backup"
	"github.com/gapurov/simple-dotfiles/pkg/config"
	"github.com/gapurov/simple-dotfiles/pkg/errors"
	"github.com/gapurov/simple-dotfiles/pkg/filesystem"
	"github.com/gapurov/simple-dotfiles/pkg/linker"
	"github.com/gapurov/simple-dotfiles/pkg/lock"
	"github.com/gapurov/simple-dotfiles/pkg/logging"
	"github.com/gapurov/simple-dotfiles/pkg/paths"
	"github.com/gapurov/simple-dotfiles/pkg/steps"
	"github.com/gapurov/simple-dotfiles/pkg/types"
	"github.com/gapurov/simple-dotfiles/pkg/ui"
)

// Phase restricts which parts of a run execute
type Phase int

const (
	// PhaseAll runs init, links and steps
	PhaseAll Phase = iota
	// PhaseLinks runs only links
	PhaseLinks
	// PhaseSteps runs only init and steps
	PhaseSteps
)

func (p Phase) links() bool { return p != PhaseSteps }
func (p Phase) steps() bool { return p != PhaseLinks }

// Options configure a run
type Options struct {
	// Source is the configuration to apply
	Source *config.Source
	// Config carries command-line overrides for the configuration
	Config config.Options

	DryRun bool
	// Trace runs shells with -x
	Trace bool
	Phase Phase

	// Home defaults to the user's home directory
	Home string
	// FS defaults to the OS filesystem
	FS types.FS
	// Reporter defaults to a ui.Reporter on stdout
	Reporter types.Reporter
	// Stdout and Stderr receive step output; default to the process streams
	Stdout io.Writer
	Stderr io.Writer
	// Now names the backup root; defaults to time.Now
	Now func() time.Time
}

// Installer runs configurations
type Installer struct {
	opts   Options
	logger zerolog.Logger
}

// New creates an Installer, filling in defaults
func New(opts Options) *Installer {
	if opts.FS == nil {
		opts.FS = filesystem.NewOS()
	}
	if opts.Reporter == nil {
		opts.Reporter = ui.NewReporter(os.Stdout, ui.FormatAuto, opts.DryRun)
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Installer{
		opts:   opts,
		logger: logging.GetLogger("installer"),
	}
}

// Run performs one run. The returned Summary is never nil, so it can be
// reported whatever happened. The error is LOCK_HELD, a configuration error,
// INTERRUPTED, or RUN_FAILED when any item failed.
func (in *Installer) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{DryRun: in.opts.DryRun}
	report := in.opts.Reporter

	defer logging.LogOperationStart(in.logger, "run")()

	p, err := paths.New(in.opts.Home)
	if err != nil {
		return summary, err
	}

	runLock, err := lock.Acquire(p.LockPath())
	if err != nil {
		return summary, err
	}
	defer func() {
		if err := runLock.Release(); err != nil {
			in.logger.Error().Err(err).Str("path", runLock.Path()).Msg("Failed to release lock")
			report.Error("Could not remove lock %s: %v", runLock.Path(), err)
		}
	}()

	if in.opts.Source == nil {
		return summary, errors.New(errors.ErrConfigLoad, "no configuration source")
	}
	cfgOpts := in.opts.Config
	cfgOpts.Home = p.Home()
	cfg, err := config.Load(in.opts.Source, cfgOpts)
	if err != nil {
		return summary, err
	}

	summary.Warnings = append(summary.Warnings, cfg.Warnings...)
	for _, w := range cfg.Warnings {
		report.Warning("%s", w)
	}
	if in.opts.Phase.steps() && len(cfg.Steps) == 0 {
		summary.Warnings = append(summary.Warnings, "No steps declared")
		report.Warning("No steps declared")
	}
	if in.opts.Phase.links() {
		summary.LinksTotal = len(cfg.Links)
	}
	if in.opts.Phase.steps() {
		summary.StepsTotal = len(cfg.Steps)
	}

	in.logger.Info().
		Str("source", cfg.Source).
		Str("repo_root", cfg.RepoRoot).
		Bool("dry_run", in.opts.DryRun).
		Msg("Starting run")

	runner := steps.New(steps.Options{
		Shell:   cfg.Settings.Shell,
		Timeout: cfg.Settings.StepTimeout,
		Dir:     cfg.RepoRoot,
		Trace:   in.opts.Trace,
		DryRun:  in.opts.DryRun,
		Stdout:  in.opts.Stdout,
		Stderr:  in.opts.Stderr,
	})

	if in.opts.Phase.steps() {
		if err := in.runInit(ctx, runner, cfg, summary); err != nil {
			return summary, err
		}
	}

	if in.opts.Phase.links() {
		backups := backup.NewManager(in.opts.FS, p.BackupRoot(cfg.Settings.BackupDir, in.opts.Now()), in.opts.DryRun)
		err := in.runLinks(ctx, backups, p, cfg, summary)
		if backups.Used() {
			summary.BackupRoot = backups.Root()
		}
		if err != nil {
			return summary, err
		}
	}

	if in.opts.Phase.steps() {
		if err := in.runSteps(ctx, runner, cfg, summary); err != nil {
			return summary, err
		}
	}

	if summary.Errors > 0 {
		return summary, errors.Newf(errors.ErrRunFailed, "run finished with %d error(s)", summary.Errors).
			WithDetail("errors", summary.Errors)
	}
	return summary, nil
}

func (in *Installer) runInit(ctx context.Context, runner *steps.Runner, cfg *types.Configuration, summary *Summary) error {
	report := in.opts.Reporter

	for i, spec := range cfg.Init {
		if err := interrupted(ctx); err != nil {
			return err
		}

		report.Info("Running init %d/%d: %s", i+1, len(cfg.Init), spec.Command)
		res, changes := runner.RunInit(ctx, steps.RawCommand{Command: spec.Command})
		if res.Outcome == steps.Interrupted {
			summary.addInit(res)
			return res.Err
		}
		if res.OK() {
			if err := steps.ApplyEnv(changes); err != nil {
				res.Outcome = steps.Failure
				res.Err = err
			} else if len(changes) > 0 {
				in.logger.Debug().Int("changes", len(changes)).Msg("Applied init environment")
			}
		}
		summary.addInit(res)
		if !res.OK() {
			report.Error("Init %d/%d failed: %v", i+1, len(cfg.Init), res.Err)
		}
	}
	return nil
}

func (in *Installer) runLinks(ctx context.Context, backups *backup.Manager, p *paths.Paths, cfg *types.Configuration, summary *Summary) error {
	report := in.opts.Reporter
	rec := linker.New(in.opts.FS, backups, report, linker.Options{
		RepoRoot: cfg.RepoRoot,
		Home:     p.Home(),
		DryRun:   in.opts.DryRun,
	})

	for _, spec := range cfg.Links {
		if err := interrupted(ctx); err != nil {
			return err
		}

		res := rec.Reconcile(spec)
		summary.addLink(res)
		if !res.OK() {
			report.Error("Link %s failed: %v", spec, res.Err)
		}
	}
	return nil
}

func (in *Installer) runSteps(ctx context.Context, runner *steps.Runner, cfg *types.Configuration, summary *Summary) error {
	report := in.opts.Reporter

	for i, spec := range cfg.Steps {
		if err := interrupted(ctx); err != nil {
			return err
		}

		report.Info("Running step %d/%d: %s", i+1, len(cfg.Steps), spec.Command)
		res := runner.Run(ctx, steps.RawCommand{Command: spec.Command})
		summary.addStep(res)

		switch res.Outcome {
		case steps.Success:
			report.Success("Step %d/%d finished in %s", i+1, len(cfg.Steps), res.Duration.Round(time.Millisecond))
		case steps.Interrupted:
			return res.Err
		case steps.Failure, steps.TimedOut:
			report.Error("Step %d/%d failed: %v", i+1, len(cfg.Steps), res.Err)
		}
	}
	return nil
}

func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrInterrupted, "run interrupted")
	}
	return nil
}
