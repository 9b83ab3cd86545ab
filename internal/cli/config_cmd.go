package cli

import (
	"github.com/spf13/cobra"

	"github.com/gapurov/simple-dotfiles/pkg/config"
	"github.com/gapurov/simple-dotfiles/pkg/errors"
	"github.com/gapurov/simple-dotfiles/pkg/ui"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: MsgConfigShort,
		Long:  MsgConfigLong,
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.ParseFormat(format)
			if err != nil || f == config.FormatHCL {
				return errors.Newf(errors.ErrUsage, "--format must be toml or yaml, got %q", format)
			}

			cfgOpts, err := opts.configOptions()
			if err != nil {
				return err
			}
			src, err := resolveSource(cmd.InOrStdin(), opts.configPath)
			if err != nil {
				return err
			}
			cfg, err := config.Load(src, cfgOpts)
			if err != nil {
				return err
			}

			warnings := ui.NewReporter(cmd.ErrOrStderr(), ui.FormatAuto, false)
			for _, w := range cfg.Warnings {
				warnings.Warning("%s", w)
			}
			return config.Encode(cmd.OutOrStdout(), cfg, f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(config.FormatTOML), MsgFlagFormat)
	return cmd
}
