package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/lumipallolabs/fontdrop/internal/cancel"
	"github.com/lumipallolabs/fontdrop/internal/model"
)

var (
	// ErrNotArchive is returned for .zip files that are not zip containers
	ErrNotArchive = errors.New("not a zip archive")
	// ErrDepthExceeded is returned when archives nest deeper than MaxDepth
	ErrDepthExceeded = errors.New("archive nesting depth exceeded")
	// ErrExtractLimit is returned when extraction exceeds MaxExtractBytes
	ErrExtractLimit = errors.New("archive extraction size limit exceeded")
	// ErrUnsupportedTarget is returned for targets that are neither folder, archive nor font
	ErrUnsupportedTarget = errors.New("not a folder, zip archive or font file")
)

// Options configures a Scanner
type Options struct {
	// MaxDepth bounds archive nesting, a top-level archive is depth 1 (0 = unlimited)
	MaxDepth int
	// MaxExtractBytes bounds bytes extracted per top-level target (0 = unlimited)
	MaxExtractBytes int64
	// TempDir is where extraction directories are created ("" = os.TempDir)
	TempDir string
	// Workers is the fastwalk worker count (0 = fastwalk default)
	Workers int
}

// Fault is a contained scan failure for one target or archive
type Fault struct {
	Path string
	Op   string
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Op, f.Path, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Report is the outcome of scanning one target
type Report struct {
	Target   model.ScanTarget
	Fonts    []model.FontFile
	Faults   []*Fault
	Archives int  // archives opened, including nested ones
	Canceled bool // the cancel flag stopped the scan early
}

// Scanner discovers fonts in folders and zip archives
type Scanner struct {
	opts   Options
	walker *Walker
	log    zerolog.Logger
}

// New creates a scanner
func New(opts Options, log zerolog.Logger) *Scanner {
	return &Scanner{
		opts:   opts,
		walker: NewWalker(opts.Workers),
		log:    log,
	}
}

// scan holds the per-target state shared by nested archive scans.
// A single target is scanned sequentially so it needs no locking.
type scan struct {
	report *Report
	stage  *Stage
	cancel *cancel.Flag
	budget *budget
}

// Scan finds every font reachable from target. Fonts from archives are copied
// into stage before their extraction directory is removed. Failures are
// recorded in the report, never returned.
func (s *Scanner) Scan(target model.ScanTarget, stage *Stage, flag *cancel.Flag) Report {
	report := Report{Target: target}
	st := &scan{
		report: &report,
		stage:  stage,
		cancel: flag,
		budget: newBudget(s.opts.MaxExtractBytes),
	}

	if flag.IsSet() {
		report.Canceled = true
		return report
	}

	s.log.Info().Str("target", target.Path).Bool("archives", target.IncludeArchives).Msg("scan started")

	path, err := filepath.Abs(target.Path)
	if err != nil {
		s.fault(st, target.Path, "resolve", err)
		return report
	}

	info, err := os.Stat(path)
	switch {
	case err != nil:
		s.fault(st, path, "stat", err)
	case info.IsDir():
		report.Fonts = s.scanDir(st, path, "", target.IncludeArchives, 0)
	case model.IsArchiveName(path):
		report.Fonts = s.scanArchive(st, path, "", 1)
	case model.IsFontName(path):
		report.Fonts = []model.FontFile{model.NewFontFile(path, "")}
	default:
		s.fault(st, path, "scan", ErrUnsupportedTarget)
	}

	s.log.Info().
		Str("target", target.Path).
		Int("fonts", len(report.Fonts)).
		Int("archives", report.Archives).
		Int("faults", len(report.Faults)).
		Bool("canceled", report.Canceled).
		Msg("scan finished")
	return report
}

// scanDir walks dir and collects fonts. origin is the archive chain dir was
// extracted from ("" for real folders), depth its nesting level.
func (s *Scanner) scanDir(st *scan, dir, origin string, archives bool, depth int) []model.FontFile {
	entries, err := s.walker.Walk(dir)
	if err != nil {
		s.fault(st, dir, "walk", err)
	}

	var fonts []model.FontFile
	for _, e := range entries {
		// collecting from an extraction dir copies files into the stage
		if origin != "" && st.cancel.IsSet() {
			st.report.Canceled = true
			s.log.Info().Str("archive", origin).Msg("scan canceled inside archive")
			return fonts
		}
		switch {
		case model.IsFontName(e.Name):
			font, ok := s.collect(st, e.Path, origin)
			if ok {
				fonts = append(fonts, font)
			}
		case archives && model.IsArchiveName(e.Name):
			fonts = append(fonts, s.scanArchive(st, e.Path, origin, depth+1)...)
		}
		if st.report.Canceled {
			return fonts
		}
	}
	return fonts
}

// collect turns a discovered font into a FontFile. Fonts inside an extraction
// directory are staged so they survive its removal.
func (s *Scanner) collect(st *scan, path, origin string) (model.FontFile, bool) {
	if origin == "" {
		return model.NewFontFile(path, ""), true
	}
	if st.stage == nil {
		s.fault(st, path, "stage", errors.New("no staging directory for archive font"))
		return model.FontFile{}, false
	}
	staged, err := st.stage.Keep(path)
	if err != nil {
		s.fault(st, path, "stage", err)
		return model.FontFile{}, false
	}
	return model.NewFontFile(staged, origin), true
}

// scanArchive extracts path into a scoped temp directory and scans it.
// The directory is removed before returning on every path.
func (s *Scanner) scanArchive(st *scan, path, origin string, depth int) []model.FontFile {
	if st.cancel.IsSet() {
		st.report.Canceled = true
		s.log.Info().Str("archive", path).Msg("scan canceled before archive")
		return nil
	}

	chain := archiveChain(origin, path)
	if s.opts.MaxDepth > 0 && depth > s.opts.MaxDepth {
		s.fault(st, chain, "extract", errors.Wrapf(ErrDepthExceeded, "depth %d > %d", depth, s.opts.MaxDepth))
		return nil
	}

	st.report.Archives++
	s.log.Debug().Str("archive", chain).Int("depth", depth).Msg("processing zip file")

	tmp, err := os.MkdirTemp(s.opts.TempDir, "fontdrop-x-")
	if err != nil {
		s.fault(st, chain, "extract", errors.Wrap(err, "create extraction dir"))
		return nil
	}
	defer func() {
		if err := os.RemoveAll(tmp); err != nil {
			s.log.Warn().Err(err).Str("dir", tmp).Msg("failed to remove extraction dir")
		}
	}()

	if err := extract(path, tmp, st.budget, s.log); err != nil {
		s.fault(st, chain, "extract", err)
		return nil
	}
	s.log.Debug().Str("archive", chain).Str("dir", tmp).Msg("extracted zip file")

	// nested archives are always followed, whatever the folder flag says
	return s.scanDir(st, tmp, chain, true, depth)
}

func (s *Scanner) fault(st *scan, path, op string, err error) {
	f := &Fault{Path: path, Op: op, Err: err}
	st.report.Faults = append(st.report.Faults, f)
	s.log.Error().Err(err).Str("path", path).Str("op", op).Msg("scan fault")
}

// archiveChain names an archive by the chain of archives it was found in.
// Extraction paths are temporary, so nested archives use their base name.
func archiveChain(origin, path string) string {
	if origin == "" {
		return path
	}
	return strings.Join([]string{origin, filepath.Base(path)}, "!")
}
