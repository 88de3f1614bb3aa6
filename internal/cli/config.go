package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumipallolabs/fontdrop/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration fontdrop would run with, as TOML.

Values are built from defaults, the config file, FONTDROP_* environment
variables and flags. The output can be saved as a starting config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := opts.configPath
			if source == "" {
				source = config.Path()
			}
			if source == "" {
				fmt.Fprintln(out, "# no config file, using defaults")
			} else {
				fmt.Fprintf(out, "# config file: %s\n", source)
			}
			return cfg.Write(out)
		},
	}
}
