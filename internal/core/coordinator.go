// Package core runs font discovery and installation off the caller's
// goroutine and reports progress as events.
package core

import (
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lumipallolabs/fontdrop/internal/installer"
	"github.com/lumipallolabs/fontdrop/internal/model"
	"github.com/lumipallolabs/fontdrop/internal/scanner"
	"github.com/lumipallolabs/fontdrop/internal/tasks"
)

// DefaultScanConcurrency is how many targets are scanned at once by default
const DefaultScanConcurrency = 4

// ErrNoTargets is returned when a run is started without targets
var ErrNoTargets = errors.New("no targets selected")

// Tally records fonts installed by finished runs
type Tally interface {
	AddInstalled(n int64)
}

// Options configures a Coordinator
type Options struct {
	// TempDir is the parent of staging directories ("" = os.TempDir)
	TempDir string
	// ScanConcurrency bounds targets scanned in parallel
	ScanConcurrency int
	// Tally is optional
	Tally Tally
}

// Coordinator drives runs through scanning and installing on a task pool.
// It is the only producer of events on a run's channel.
type Coordinator struct {
	scanner   *scanner.Scanner
	installer *installer.Installer
	pool      *tasks.Pool
	opts      Options
	log       zerolog.Logger
}

// NewCoordinator creates a coordinator
func NewCoordinator(sc *scanner.Scanner, inst *installer.Installer, pool *tasks.Pool, opts Options, log zerolog.Logger) *Coordinator {
	if opts.ScanConcurrency <= 0 {
		opts.ScanConcurrency = DefaultScanConcurrency
	}
	return &Coordinator{
		scanner:   sc,
		installer: inst,
		pool:      pool,
		opts:      opts,
		log:       log,
	}
}

// Start begins a run over targets and returns immediately
func (c *Coordinator) Start(targets []model.ScanTarget) (*Run, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	id := uuid.NewString()
	stage, err := scanner.NewStage(c.opts.TempDir, id[:8])
	if err != nil {
		return nil, err
	}

	run := newRun(id, targets, stage)
	run.setPhase(PhaseScanning)
	run.events.Send(ScanStartedEvent{RunID: id, Targets: len(targets)})

	c.log.Info().Str("run", id).Int("targets", len(targets)).Msg("run started")

	if err := c.pool.Submit("scan", func() { c.scanStage(run) }); err != nil {
		_ = stage.Release()
		return nil, errors.Wrap(err, "submit scan task")
	}
	return run, nil
}

// scanStage scans every target and hands the result to the install stage
func (c *Coordinator) scanStage(run *Run) {
	defer c.recoverRun(run)

	reports, err := c.scanAll(run)
	if err != nil {
		c.fail(run, err)
		return
	}

	var fonts []model.FontFile
	faults := 0
	for _, r := range reports {
		fonts = append(fonts, r.Fonts...)
		faults += len(r.Faults)
	}
	run.update(func(s *RunState) {
		s.Discovered = len(fonts)
		s.Faults = faults
	})

	log := c.log.With().Str("run", run.ID).Logger()
	switch {
	case run.signal.IsSet():
		log.Info().Int("found", len(fonts)).Msg("run canceled during scan")
		c.finish(run, PhaseCanceled, CanceledEvent{Stage: PhaseScanning})

	case len(fonts) == 0:
		log.Info().Int("faults", faults).Msg("no fonts found")
		c.finish(run, PhaseNoFontsFound, NoFontsFoundEvent{Faults: faults})

	default:
		log.Info().Int("fonts", len(fonts)).Int("faults", faults).Msg("scan complete")
		run.events.Send(TotalDiscoveredEvent{Count: len(fonts), Faults: faults})
		run.setPhase(PhaseInstalling)
		if err := c.pool.Submit("install", func() { c.installStage(run, fonts) }); err != nil {
			c.fail(run, errors.Wrap(err, "submit install task"))
		}
	}
}

// scanAll scans targets concurrently. Reports keep the targets' order.
func (c *Coordinator) scanAll(run *Run) ([]scanner.Report, error) {
	reports := make([]scanner.Report, len(run.Targets))

	var g errgroup.Group
	g.SetLimit(c.opts.ScanConcurrency)
	for i, target := range run.Targets {
		i, target := i, target
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errors.Errorf("scanning %s panicked: %v", target.Path, r)
				}
			}()
			reports[i] = c.scanner.Scan(target, run.stage, run.signal)
			return nil
		})
	}
	return reports, g.Wait()
}

// installStage installs fonts in order, checking for cancellation before each
func (c *Coordinator) installStage(run *Run, fonts []model.FontFile) {
	defer c.recoverRun(run)

	total := len(fonts)
	installed, failed := 0, 0
	canceled := func(remaining int) bool {
		if !run.signal.IsSet() {
			return false
		}
		c.log.Info().Str("run", run.ID).Int("installed", installed).Int("remaining", remaining).Msg("run canceled during install")
		c.tally(installed)
		c.finish(run, PhaseCanceled, CanceledEvent{Stage: PhaseInstalling, Installed: installed})
		return true
	}

	for i, font := range fonts {
		if canceled(total - i) {
			return
		}

		run.update(func(s *RunState) { s.Current = font.Name })
		out := c.installer.Install(font)
		if out.OK() {
			installed++
		} else {
			failed++
		}
		run.update(func(s *RunState) {
			s.Processed = i + 1
			s.Installed = installed
			s.Failed = failed
		})
		run.events.Send(InstallProgressEvent{Index: i + 1, Total: total, FontName: font.Name, OK: out.OK()})
	}

	// a cancel raised during the last install still ends the run as canceled
	if canceled(0) {
		return
	}

	c.installer.NotifyFontsChanged()
	c.tally(installed)
	c.log.Info().Str("run", run.ID).Int("installed", installed).Int("failed", failed).Msg("run done")
	c.finish(run, PhaseDone, DoneEvent{Installed: installed, Failed: failed})
}

func (c *Coordinator) tally(installed int) {
	if c.opts.Tally != nil && installed > 0 {
		c.opts.Tally.AddInstalled(int64(installed))
	}
}

// finish releases the stage, emits the terminal event and closes Done.
// Only the first call has any effect.
func (c *Coordinator) finish(run *Run, phase Phase, e Event) {
	run.finishOnce.Do(func() {
		if err := run.stage.Release(); err != nil {
			c.log.Warn().Err(err).Str("dir", run.stage.Dir()).Msg("failed to remove staging dir")
		}
		run.update(func(s *RunState) {
			s.Phase = phase
			s.Current = ""
		})
		run.events.Send(e)
		close(run.done)
	})
}

func (c *Coordinator) fail(run *Run, err error) {
	c.log.Error().Err(err).Str("run", run.ID).Msg("run faulted")
	c.finish(run, PhaseFaulted, FaultedEvent{Err: err})
}

// recoverRun turns a panic in a stage task into a Faulted run
func (c *Coordinator) recoverRun(run *Run) {
	if r := recover(); r != nil {
		c.log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("stage task panicked")
		c.fail(run, errors.Errorf("unexpected fault: %v", r))
	}
}
