package scanner

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Stage is a run-scoped directory holding copies of fonts found inside
// archives. Extraction directories are removed as soon as their archive has
// been scanned, the stage lives until the run ends.
type Stage struct {
	dir string
	seq atomic.Int64
}

// NewStage creates a staging directory below parent ("" = os.TempDir)
func NewStage(parent, runID string) (*Stage, error) {
	dir, err := os.MkdirTemp(parent, "fontdrop-stage-"+runID+"-")
	if err != nil {
		return nil, errors.Wrap(err, "create staging dir")
	}
	return &Stage{dir: dir}, nil
}

// Dir returns the staging directory
func (s *Stage) Dir() string {
	return s.dir
}

// Keep copies src into the stage and returns the copy's path. The copy keeps
// the source file name, each copy gets its own subdirectory so equal names
// from different archives do not collide.
func (s *Stage) Keep(src string) (string, error) {
	slot := filepath.Join(s.dir, strconv.FormatInt(s.seq.Add(1), 10))
	if err := os.Mkdir(slot, 0755); err != nil {
		return "", errors.Wrap(err, "create stage slot")
	}
	dst := filepath.Join(slot, filepath.Base(src))
	if err := copyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// Release removes the staging directory and everything in it
func (s *Stage) Release() error {
	return os.RemoveAll(s.dir)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "open staged source")
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errors.Wrap(err, "create staged copy")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return errors.Wrap(err, "copy staged font")
	}
	return out.Close()
}
