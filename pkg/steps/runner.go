package steps

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	dferrors "github.com/gapurov/simple-dotfiles/pkg/errors"
	"github.com/gapurov/simple-dotfiles/pkg/logging"
	"github.com/gapurov/simple-dotfiles/pkg/types"
)

// waitDelay bounds how long output pipes are drained after the process group is gone
const waitDelay = 2 * time.Second

// Options configure a Runner
type Options struct {
	// Shell runs each command; defaults to bash
	Shell string
	// Timeout bounds each command; defaults to five minutes
	Timeout time.Duration
	// Dir is the working directory, normally the repository root
	Dir string
	// Trace adds -x so the shell echoes what it runs
	Trace bool
	// DryRun skips execution
	DryRun bool
	// Stdout and Stderr receive the command's output; nil discards it
	Stdout io.Writer
	Stderr io.Writer
}

// Runner executes actions one at a time
type Runner struct {
	opts   Options
	logger zerolog.Logger
}

// New creates a Runner, filling in defaults
func New(opts Options) *Runner {
	if opts.Shell == "" {
		opts.Shell = types.DefaultShell
	}
	if opts.Timeout <= 0 {
		opts.Timeout = types.DefaultStepTimeout
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	return &Runner{
		opts:   opts,
		logger: logging.GetLogger("steps"),
	}
}

// Args returns the argument vector used to run command
func (r *Runner) Args(command string) []string {
	args := []string{r.opts.Shell, "-e", "-u", "-o", "pipefail"}
	if r.opts.Trace {
		args = append(args, "-x")
	}
	return append(args, "-c", command)
}

// Run executes action. Its exit status decides the outcome.
func (r *Runner) Run(ctx context.Context, action Action) Result {
	return r.run(ctx, action, nil)
}

func (r *Runner) run(ctx context.Context, action Action, extraEnv []string) Result {
	result := Result{Action: action, ExitCode: -1}

	raw, ok := action.(RawCommand)
	if !ok {
		result.Outcome = Failure
		result.Err = dferrors.Newf(dferrors.ErrStepInvalid, "unsupported action type %T", action)
		return result
	}

	logger := r.logger.With().Str("command", raw.Command).Logger()

	if r.opts.DryRun {
		logger.Debug().Msg("Dry run, not executing")
		result.Outcome = Skipped
		result.ExitCode = 0
		return result
	}

	if err := ctx.Err(); err != nil {
		result.Outcome = Interrupted
		result.Err = dferrors.Wrap(err, dferrors.ErrInterrupted, "run interrupted before step started")
		return result
	}

	stepCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	args := r.Args(raw.Command)
	cmd := exec.CommandContext(stepCtx, args[0], args[1:]...)
	cmd.Dir = r.opts.Dir
	cmd.Stdout = r.opts.Stdout
	cmd.Stderr = r.opts.Stderr
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	cmd.WaitDelay = waitDelay
	isolate(cmd)

	logger.Debug().Str("dir", cmd.Dir).Strs("args", args).Dur("timeout", r.opts.Timeout).Msg("Executing step")

	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
		// A background child kept the output open past the shell's exit
		if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState.Success() {
			err = nil
		}
	}

	switch {
	case err == nil:
		result.Outcome = Success
	case ctx.Err() != nil:
		result.Outcome = Interrupted
		result.Err = dferrors.Wrapf(ctx.Err(), dferrors.ErrInterrupted, "step interrupted: %s", raw.Command)
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
		result.Outcome = TimedOut
		result.Err = dferrors.Newf(dferrors.ErrStepTimeout, "step timed out after %s: %s", r.opts.Timeout, raw.Command).
			WithDetail("timeout", r.opts.Timeout.String())
	default:
		result.Outcome = Failure
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Err = dferrors.Wrapf(err, dferrors.ErrStepFailed, "step exited with status %d: %s", result.ExitCode, raw.Command).
				WithDetail("exit_code", result.ExitCode)
		} else {
			result.Err = dferrors.Wrapf(err, dferrors.ErrStepFailed, "failed to start step: %s", raw.Command)
		}
	}

	logger.Debug().
		Str("outcome", result.Outcome.String()).
		Int("exit_code", result.ExitCode).
		Dur("duration", result.Duration).
		Msg("Step finished")

	return result
}
