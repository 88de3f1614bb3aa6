// Package config loads fontdrop settings.
//
// Values come from, in increasing precedence: built-in defaults, the TOML file
// ($XDG_CONFIG_HOME/fontdrop/config.toml or --config), FONTDROP_* environment
// variables and finally command line flags applied by the caller.
package config

import (
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/pkg/errors"
)

// RelPath is the config file location relative to the XDG config dirs
const RelPath = "fontdrop/config.toml"

// Config is the complete fontdrop configuration
type Config struct {
	// FontDir is the system font directory fonts are copied into
	FontDir string `toml:"font_dir"`
	// IncludeArchives recurses into .zip files found inside folders
	IncludeArchives bool `toml:"include_archives"`
	// Workers is the background pool capacity
	Workers int `toml:"workers"`
	// ScanConcurrency limits how many targets are scanned at once
	ScanConcurrency int `toml:"scan_concurrency"`
	// PollIntervalMs is the consumer tick for draining progress events
	PollIntervalMs int `toml:"poll_interval_ms"`

	Archive ArchiveConfig `toml:"archive"`
	Watch   WatchConfig   `toml:"watch"`
	Log     LogConfig     `toml:"log"`
}

// ArchiveConfig bounds archive extraction. Zero disables a bound.
type ArchiveConfig struct {
	MaxDepth     int   `toml:"max_depth"`
	MaxExtractMB int64 `toml:"max_extract_mb"`
}

// WatchConfig configures the drop-folder watcher
type WatchConfig struct {
	DebounceMs int `toml:"debounce_ms"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		FontDir:         DefaultFontDir(),
		IncludeArchives: false,
		Workers:         5,
		ScanConcurrency: 4,
		PollIntervalMs:  100,
		Archive: ArchiveConfig{
			MaxDepth:     16,
			MaxExtractMB: 4096,
		},
		Watch: WatchConfig{
			DebounceMs: 1500,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultFontDir returns the preferred font directory for the current user
func DefaultFontDir() string {
	if len(xdg.FontDirs) > 0 {
		return xdg.FontDirs[0]
	}
	return filepath.Join(xdg.DataHome, "fonts")
}

// Path returns the config file in use, or "" if none exists
func Path() string {
	path, err := xdg.SearchConfigFile(RelPath)
	if err != nil {
		return ""
	}
	return path
}

// Load reads the config at path, or the XDG config file when path is empty.
// A missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = Path()
	}
	if path != "" {
		if err := LoadTOML(cfg, path); err != nil {
			if !explicit && errors.Is(err, os.ErrNotExist) {
				return cfg, nil
			}
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	return cfg, cfg.Validate()
}

// LoadTOML decodes the file at path over cfg
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrapf(err, "load config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return errors.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Write encodes cfg as TOML
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// ApplyEnvOverrides applies FONTDROP_* environment variables
func (c *Config) ApplyEnvOverrides() {
	if dir := os.Getenv("FONTDROP_FONT_DIR"); dir != "" {
		c.FontDir = dir
	}
	if level := os.Getenv("FONTDROP_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if workers := os.Getenv("FONTDROP_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			c.Workers = n
		}
	}
}

// Validate checks the configuration for unusable values
func (c *Config) Validate() error {
	var errs []error
	if c.FontDir == "" {
		errs = append(errs, errors.New("font_dir must be set"))
	}
	if c.Workers < 1 {
		errs = append(errs, errors.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.ScanConcurrency < 1 {
		errs = append(errs, errors.Errorf("scan_concurrency must be at least 1, got %d", c.ScanConcurrency))
	}
	if c.PollIntervalMs < 10 {
		errs = append(errs, errors.Errorf("poll_interval_ms must be at least 10, got %d", c.PollIntervalMs))
	}
	if c.Archive.MaxDepth < 0 {
		errs = append(errs, errors.Errorf("archive.max_depth must not be negative, got %d", c.Archive.MaxDepth))
	}
	if c.Archive.MaxExtractMB < 0 {
		errs = append(errs, errors.Errorf("archive.max_extract_mb must not be negative, got %d", c.Archive.MaxExtractMB))
	}
	if c.Watch.DebounceMs < 0 {
		errs = append(errs, errors.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMs))
	}
	return stderrors.Join(errs...)
}

// PollInterval returns the consumer tick interval
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Debounce returns the watcher settle time
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// MaxExtractBytes returns the extraction budget in bytes, 0 for unlimited
func (c *Config) MaxExtractBytes() int64 {
	return c.Archive.MaxExtractMB * 1024 * 1024
}
