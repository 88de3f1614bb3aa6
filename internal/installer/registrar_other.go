//go:build !windows && !darwin

package installer

import (
	"context"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const fcCacheTimeout = 30 * time.Second

// NewRegistrar returns the registrar for fontconfig based systems
func NewRegistrar(fontDir string, log zerolog.Logger) Registrar {
	return fileRegistrar{
		log: log,
		refresh: func() error {
			return refreshFontconfig(fontDir, log)
		},
	}
}

// refreshFontconfig rebuilds the fontconfig cache for dir if fc-cache exists
func refreshFontconfig(dir string, log zerolog.Logger) error {
	bin, err := exec.LookPath("fc-cache")
	if err != nil {
		log.Debug().Msg("fc-cache not found, skipping font cache refresh")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), fcCacheTimeout)
	defer cancel()

	if out, err := exec.CommandContext(ctx, bin, "-f", dir).CombinedOutput(); err != nil {
		return errors.Wrapf(err, "fc-cache: %s", out)
	}
	return nil
}
