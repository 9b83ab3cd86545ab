// Package cli builds the dotfiles command tree. The binaries under cmd/ are
// thin wrappers around NewRootCmd.
package cli

import (
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gapurov/simple-dotfiles/internal/version"
	"github.com/gapurov/simple-dotfiles/pkg/cobrax/topics"
	"github.com/gapurov/simple-dotfiles/pkg/config"
	"github.com/gapurov/simple-dotfiles/pkg/errors"
	"github.com/gapurov/simple-dotfiles/pkg/installer"
	"github.com/gapurov/simple-dotfiles/pkg/logging"
	"github.com/gapurov/simple-dotfiles/pkg/style"
	"github.com/gapurov/simple-dotfiles/pkg/ui"
)

//go:embed topics
var topicsFS embed.FS

// rootOptions hold the parsed flags
type rootOptions struct {
	configPath string
	repo       string
	timeout    string
	verbosity  int

	dryRun    bool
	linksOnly bool
	stepsOnly bool
}

func (o *rootOptions) phase() (installer.Phase, error) {
	switch {
	case o.linksOnly && o.stepsOnly:
		return installer.PhaseAll, errors.New(errors.ErrUsage, MsgErrPhaseConflict)
	case o.linksOnly:
		return installer.PhaseLinks, nil
	case o.stepsOnly:
		return installer.PhaseSteps, nil
	}
	return installer.PhaseAll, nil
}

// configOptions turns --repo and --timeout into loader overrides.
// A bare number of seconds is accepted, as in settings.step_timeout.
func (o *rootOptions) configOptions() (config.Options, error) {
	opts := config.Options{RepoRoot: o.repo}
	if o.timeout == "" {
		return opts, nil
	}

	var timeout time.Duration
	if secs, err := strconv.ParseFloat(o.timeout, 64); err == nil {
		timeout = time.Duration(secs * float64(time.Second))
	} else if d, err := time.ParseDuration(o.timeout); err == nil {
		timeout = d
	} else {
		return opts, errors.Wrapf(err, errors.ErrUsage, "invalid --timeout %q", o.timeout)
	}
	if timeout <= 0 {
		return opts, errors.Newf(errors.ErrUsage, MsgErrTimeout, o.timeout)
	}
	opts.StepTimeout = timeout
	return opts, nil
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	initTemplateFormatting()

	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "dotfiles",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Example: MsgRootExample,
		Version: version.Version,
		Args:    noArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(opts.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	// Flags shared with the config command
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", MsgFlagConfig)
	pf.StringVarP(&opts.repo, "repo", "r", "", MsgFlagRepo)
	pf.StringVar(&opts.timeout, "timeout", "", MsgFlagTimeout)
	pf.CountVarP(&opts.verbosity, "verbose", "v", MsgFlagVerbose)

	f := rootCmd.Flags()
	f.BoolVarP(&opts.dryRun, "dry-run", "d", false, MsgFlagDryRun)
	f.BoolVar(&opts.linksOnly, "links-only", false, MsgFlagLinksOnly)
	f.BoolVar(&opts.stepsOnly, "steps-only", false, MsgFlagStepsOnly)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})
	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newCompletionCmd())

	sub, err := fs.Sub(topicsFS, "topics")
	if err == nil {
		_, err = topics.Install(rootCmd, sub, topics.Options{
			Extensions: []string{".md"},
			Renderer:   topics.NewGlamourRenderer(),
		})
	}
	if err != nil {
		log.Warn().Err(err).Msg("Help topics unavailable")
	}

	return rootCmd
}

func runInstall(cmd *cobra.Command, opts *rootOptions) error {
	phase, err := opts.phase()
	if err != nil {
		return err
	}
	cfgOpts, err := opts.configOptions()
	if err != nil {
		return err
	}
	src, err := resolveSource(cmd.InOrStdin(), opts.configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	reporter := ui.NewReporter(out, ui.FormatAuto, opts.dryRun)

	inst := installer.New(installer.Options{
		Source:   src,
		Config:   cfgOpts,
		DryRun:   opts.dryRun,
		Trace:    opts.verbosity > 0,
		Phase:    phase,
		Reporter: reporter,
		Stdout:   out,
		Stderr:   cmd.ErrOrStderr(),
	})

	summary, runErr := inst.Run(cmd.Context())
	if !errors.IsErrorCode(runErr, errors.ErrLockHeld) {
		fmt.Fprint(out, "\n"+style.RenderSummary(summary.View(), reporter.Format() == ui.FormatTerminal))
	}
	return runErr
}

// noArgs rejects positional arguments as a usage error
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return errors.Newf(errors.ErrUsage, MsgErrArgs, strings.Join(args, " "))
	}
	return nil
}

func usageError(err error) error {
	if err == nil || errors.IsErrorCode(err, errors.ErrUsage) {
		return err
	}
	return errors.Wrap(err, errors.ErrUsage, "invalid usage")
}
