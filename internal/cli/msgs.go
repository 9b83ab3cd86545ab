package cli

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Link dotfiles into place and run setup steps"
	MsgVersionShort    = "Print version information"
	MsgConfigShort     = "Print the effective configuration"
	MsgCompletionShort = "Generate shell completion script"

	// Flag descriptions
	MsgFlagConfig    = "Configuration file, '-' reads standard input"
	MsgFlagDryRun    = "Report what would change without changing anything"
	MsgFlagVerbose   = "Increase verbosity (-v debug, -vv trace) and trace step shells"
	MsgFlagLinksOnly = "Only reconcile links"
	MsgFlagStepsOnly = "Only run init commands and steps"
	MsgFlagRepo      = "Repository root, overrides settings.root and discovery"
	MsgFlagTimeout   = "Per-step timeout, overrides settings.step_timeout"
	MsgFlagFormat    = "Output format: toml or yaml"

	// Status messages
	MsgVersionFormat = "dotfiles version %s\n  commit: %s\n  built:  %s\n"
	MsgErrorPrefix   = "Error: "
	MsgUsageHint     = "Run 'dotfiles --help' for usage."

	// Error messages
	MsgErrPhaseConflict = "--links-only and --steps-only cannot be combined"
	MsgErrArgs          = "unexpected argument %q"
	MsgErrTimeout       = "--timeout must be positive, got %s"
	MsgErrStdinTerminal = "'-c -' reads the configuration from standard input, which is a terminal"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/root-example.txt
	msgRootExampleRaw string
	MsgRootExample    = strings.TrimRight(msgRootExampleRaw, "\n")

	//go:embed msgs/config-long.txt
	msgConfigLongRaw string
	MsgConfigLong    = strings.TrimSpace(msgConfigLongRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw) + "\n"
)
