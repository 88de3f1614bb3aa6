package cli

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lumipallolabs/fontdrop/internal/config"
	"github.com/lumipallolabs/fontdrop/internal/core"
	"github.com/lumipallolabs/fontdrop/internal/installer"
	"github.com/lumipallolabs/fontdrop/internal/logging"
	"github.com/lumipallolabs/fontdrop/internal/scanner"
	"github.com/lumipallolabs/fontdrop/internal/stats"
	"github.com/lumipallolabs/fontdrop/internal/tasks"
)

// app holds the services a command runs with
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	stats *stats.Manager
	pool  *tasks.Pool
	coord *core.Coordinator

	closeLog func() error
}

// loadConfig resolves the effective configuration, flags win over everything
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("font-dir") {
		cfg.FontDir = opts.fontDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}
	if flags.Changed("zips") {
		cfg.IncludeArchives = opts.zips
	}
	return cfg, cfg.Validate()
}

// setup builds the logger and the install pipeline. console receives human
// readable log lines, nil keeps the terminal clean.
func setup(cmd *cobra.Command, opts *rootOptions, console io.Writer) (*app, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: console,
	})
	if err != nil {
		return nil, err
	}

	st := stats.NewManager(stats.DefaultPath())
	if err := st.Load(); err != nil {
		log.Warn().Err(err).Str("path", st.Path()).Msg("failed to load stats")
	}

	sc := scanner.New(scanner.Options{
		MaxDepth:        cfg.Archive.MaxDepth,
		MaxExtractBytes: cfg.MaxExtractBytes(),
	}, logging.Component(log, "scanner"))

	instLog := logging.Component(log, "installer")
	inst := installer.New(cfg.FontDir, installer.NewRegistrar(cfg.FontDir, instLog), instLog)

	pool := tasks.NewPool(cfg.Workers, logging.Component(log, "tasks"))

	coord := core.NewCoordinator(sc, inst, pool, core.Options{
		ScanConcurrency: cfg.ScanConcurrency,
		Tally:           st,
	}, logging.Component(log, "core"))

	log.Debug().
		Str("font_dir", cfg.FontDir).
		Int("workers", cfg.Workers).
		Bool("include_archives", cfg.IncludeArchives).
		Msg("fontdrop ready")

	return &app{
		cfg:      cfg,
		log:      log,
		stats:    st,
		pool:     pool,
		coord:    coord,
		closeLog: closeLog,
	}, nil
}

// Close waits for background tasks and flushes stats and logs
func (a *app) Close() error {
	a.pool.Stop()
	return errors.Join(a.stats.Close(), a.closeLog())
}
