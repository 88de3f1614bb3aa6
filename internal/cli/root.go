// Package cli wires fontdrop's commands together.
package cli

import (
	"github.com/spf13/cobra"
)

// rootOptions holds flags shared by every command
type rootOptions struct {
	configPath string
	fontDir    string
	logLevel   string
	logFile    string

	zips  bool
	noTUI bool
}

// NewRootCmd creates the fontdrop command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "fontdrop [paths...]",
		Short: "Install fonts from folders and zip archives",
		Long: `Install every .ttf and .otf font found in the given folders, zip archives
or font files into your font directory.

Folders are searched recursively. Zip archives given directly are always
extracted, archives inside folders only with --zips. Nested archives are
followed to any depth. Fonts already installed under the same name are kept.

Without paths the previous selection is used again.

Examples:
  # Install fonts from a folder
  fontdrop ~/Downloads/fonts

  # Include zip archives found inside the folder
  fontdrop --zips ~/Downloads

  # Plain output for scripts
  fontdrop --no-tui Inter.zip`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, opts, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/fontdrop/config.toml)")
	pf.StringVar(&opts.fontDir, "font-dir", "", "directory fonts are installed into")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFile, "log-file", "", "append logs to this file")

	f := cmd.Flags()
	f.BoolVar(&opts.zips, "zips", false, "also extract zip archives found inside folders")
	f.BoolVar(&opts.noTUI, "no-tui", false, "print plain progress lines instead of the interactive view")

	cmd.AddCommand(
		newWatchCmd(opts),
		newConfigCmd(opts),
	)

	return cmd
}
