package installer

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/lumipallolabs/fontdrop/internal/model"
)

// ErrNotRegistered is returned when the registrar rejects an installed font
var ErrNotRegistered = errors.New("font registration failed")

// Registrar makes font files in the font directory visible to the system
type Registrar interface {
	// Register registers the font file at path and reports success
	Register(path string) bool
	// NotifyFontsChanged tells running applications that the font set changed
	NotifyFontsChanged()
}

// Outcome describes what Install did with one font
type Outcome struct {
	Font       model.FontFile
	Dest       string
	Copied     bool // false when a file with that name was already installed
	Registered bool
	Err        error
}

// OK reports whether the font is installed and registered
func (o Outcome) OK() bool {
	return o.Err == nil && o.Registered
}

// Installer copies fonts into the font directory and registers them
type Installer struct {
	fontDir   string
	registrar Registrar
	log       zerolog.Logger
}

// New creates an installer writing into fontDir
func New(fontDir string, registrar Registrar, log zerolog.Logger) *Installer {
	return &Installer{
		fontDir:   fontDir,
		registrar: registrar,
		log:       log,
	}
}

// FontDir returns the directory fonts are installed into
func (i *Installer) FontDir() string {
	return i.fontDir
}

// Install copies font into the font directory unless a file with the same
// name is already there, then registers the destination. Failures end up in
// the Outcome.
func (i *Installer) Install(font model.FontFile) (out Outcome) {
	out = Outcome{Font: font, Dest: filepath.Join(i.fontDir, font.Name)}
	defer func() {
		if r := recover(); r != nil {
			out.Err = errors.Errorf("install panicked: %v", r)
			i.log.Error().Str("font", font.Name).Interface("panic", r).Msg("install panicked")
		}
	}()

	copied, err := i.copyIfAbsent(font.Path, out.Dest)
	if err != nil {
		out.Err = err
		i.log.Error().Err(err).Str("font", font.String()).Str("dest", out.Dest).Msg("failed to copy font")
		return out
	}
	out.Copied = copied

	out.Registered = i.registrar.Register(out.Dest)
	if !out.Registered {
		out.Err = errors.Wrap(ErrNotRegistered, out.Dest)
		i.log.Warn().Str("font", font.Name).Str("dest", out.Dest).Msg("font registration failed")
		return out
	}

	i.log.Info().
		Str("font", font.Name).
		Str("dest", out.Dest).
		Bool("copied", copied).
		Msg("font installed")
	return out
}

// NotifyFontsChanged broadcasts that the installed font set changed
func (i *Installer) NotifyFontsChanged() {
	i.registrar.NotifyFontsChanged()
	i.log.Debug().Str("dir", i.fontDir).Msg("fonts changed notification sent")
}

// copyIfAbsent copies src to dst when dst does not exist. An existing file is
// never touched, whatever its contents.
func (i *Installer) copyIfAbsent(src, dst string) (bool, error) {
	if _, err := os.Lstat(dst); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.Wrap(err, "stat destination")
	}

	if err := os.MkdirAll(i.fontDir, 0755); err != nil {
		return false, errors.Wrap(err, "create font dir")
	}

	in, err := os.Open(src)
	if err != nil {
		return false, errors.Wrap(err, "open font")
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if os.IsExist(err) {
		// installed concurrently by someone else
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "create destination")
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return false, errors.Wrap(err, "copy font")
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return false, errors.Wrap(err, "close destination")
	}
	return true, nil
}
