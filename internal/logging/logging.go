package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DebugEnv enables debug logging to debug.log when set
const DebugEnv = "FONTDROP_DEBUG"

// LevelEnv overrides the configured log level
const LevelEnv = "FONTDROP_LOG_LEVEL"

// Options controls where log lines go
type Options struct {
	Level   string    // zerolog level name, "info" if empty
	File    string    // log file, appended to
	Console io.Writer // optional human readable output (stderr in headless mode)
}

// New builds the application logger. Without a file, a console or the debug
// env var, everything is discarded so the TUI owns the terminal.
// The returned func closes the log file.
func New(opts Options) (zerolog.Logger, func() error, error) {
	noop := func() error { return nil }

	if opts.File == "" && os.Getenv(DebugEnv) != "" {
		opts.File = "debug.log"
		if opts.Level == "" {
			opts.Level = "debug"
		}
	}

	level, err := parseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), noop, err
	}

	var writers []io.Writer
	closeFn := noop

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return zerolog.Nop(), noop, errors.Wrap(err, "open log file")
		}
		writers = append(writers, f)
		closeFn = f.Close
	}

	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        opts.Console,
			TimeFormat: time.TimeOnly,
		})
	}

	if len(writers) == 0 {
		return zerolog.Nop(), noop, nil
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, closeFn, nil
}

// parseLevel resolves the effective level, the env var wins over configuration
func parseLevel(configured string) (zerolog.Level, error) {
	name := configured
	if env := os.Getenv(LevelEnv); env != "" {
		name = env
	}
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, errors.Wrapf(err, "invalid log level %q", name)
	}
	return level, nil
}

// Component returns a child logger tagged with the component name
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
