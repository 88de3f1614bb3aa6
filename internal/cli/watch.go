package cli

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lumipallolabs/fontdrop/internal/logging"
	"github.com/lumipallolabs/fontdrop/internal/model"
	"github.com/lumipallolabs/fontdrop/internal/watcher"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch DIR",
		Short: "Install fonts dropped into a folder",
		Long: `Watch a folder and install fonts and zip archives as they appear.

Files are collected until the folder has been quiet for watch.debounce_ms,
then installed as one run. Runs never overlap. Stop with Ctrl+C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, args[0])
		},
	}
}

func runWatch(cmd *cobra.Command, opts *rootOptions, dir string) error {
	var console io.Writer
	if cmd.Flags().Changed("log-level") {
		console = os.Stderr
	}

	a, err := setup(cmd, opts, console)
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := watcher.New(a.cfg.Debounce(), logging.Component(a.log, "watcher"))
	if err != nil {
		return err
	}
	if err := w.AddRecursive(dir); err != nil {
		w.Stop()
		return err
	}
	w.Start()
	defer w.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPrinter(cmd.OutOrStdout())
	p.notice("Watching %s, press Ctrl+C to stop", dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case batch, ok := <-w.Batches():
			if !ok {
				return nil
			}
			run, err := a.coord.Start(model.Targets(batch, true))
			if err != nil {
				a.log.Error().Err(err).Msg("failed to start run")
				continue
			}
			if err := followRun(ctx, run, a.cfg.PollInterval(), p); err != nil {
				a.log.Warn().Err(err).Str("run", run.ID).Msg("run finished with errors")
			}
		}
	}
}
