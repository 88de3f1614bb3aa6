package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lumipallolabs/fontdrop/internal/core"
	"github.com/lumipallolabs/fontdrop/internal/model"
	"github.com/lumipallolabs/fontdrop/internal/ui"
)

// quitGrace bounds how long quitting waits for a canceled run to stop
const quitGrace = 10 * time.Second

// ErrNoSelection is returned when no paths are given and none were saved
var ErrNoSelection = errors.New("no paths given and no previous selection to reuse")

func runInstall(cmd *cobra.Command, opts *rootOptions, args []string) error {
	interactive := !opts.noTUI && term.IsTerminal(int(os.Stdout.Fd()))

	var console io.Writer
	if !interactive && cmd.Flags().Changed("log-level") {
		console = os.Stderr
	}

	a, err := setup(cmd, opts, console)
	if err != nil {
		return err
	}
	defer a.Close()

	targets, err := selectTargets(cmd, a, args)
	if err != nil {
		return err
	}

	if interactive {
		return runTUI(cmd.Context(), a, targets)
	}

	run, err := a.coord.Start(targets)
	if err != nil {
		return err
	}
	return followRun(cmd.Context(), run, a.cfg.PollInterval(), newPrinter(cmd.OutOrStdout()))
}

// selectTargets turns args into targets, falling back to the saved selection
func selectTargets(cmd *cobra.Command, a *app, args []string) ([]model.ScanTarget, error) {
	include := a.cfg.IncludeArchives
	paths := args

	if len(paths) == 0 {
		var saved bool
		paths, saved = a.stats.LastSelection()
		if len(paths) == 0 {
			return nil, ErrNoSelection
		}
		if !cmd.Flags().Changed("zips") {
			include = saved
		}
		a.log.Info().Strs("paths", paths).Msg("reusing previous selection")
	}

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		path, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve %s", p)
		}
		abs = append(abs, path)
	}

	a.stats.SetLastSelection(abs, include)
	return model.Targets(abs, include), nil
}

// runTUI runs the interactive view until the user quits
func runTUI(ctx context.Context, a *app, targets []model.ScanTarget) error {
	start := func(targets []model.ScanTarget) (ui.Run, error) {
		run, err := a.coord.Start(targets)
		if err != nil {
			return nil, err
		}
		return run, nil
	}

	view := ui.NewApp(start, ui.Options{
		Targets:      targets,
		FontDir:      a.cfg.FontDir,
		PollInterval: a.cfg.PollInterval(),
		Stats:        a.stats,
	}, a.log)

	p := tea.NewProgram(view, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return err
	}

	// Quitting cancels an active run, give it time to reach a cancellation point
	if last, ok := final.(ui.App); ok {
		if run, ok := last.Run().(*core.Run); ok {
			select {
			case <-run.Done():
			case <-time.After(quitGrace):
				a.log.Warn().Str("run", run.ID).Msg("run still active at exit")
			}
		}
	}
	return nil
}

// followRun prints a run's events until its terminal event. An interrupt
// cancels the run, which still reports how it ended.
func followRun(ctx context.Context, run *core.Run, poll time.Duration, p *printer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	interrupt := ctx.Done()
	for {
		select {
		case <-interrupt:
			interrupt = nil
			p.notice("Canceling, finishing the current step...")
			run.Cancel()

		case <-ticker.C:
			for _, e := range run.Events().Drain() {
				p.event(e)
				if core.IsTerminal(e) {
					return runResult(e)
				}
			}
		}
	}
}

// runResult maps a terminal event to the command's error
func runResult(e core.Event) error {
	switch e := e.(type) {
	case core.FaultedEvent:
		return e.Err
	case core.DoneEvent:
		if e.Failed > 0 {
			return errors.Errorf("%d font(s) could not be installed", e.Failed)
		}
	}
	return nil
}
