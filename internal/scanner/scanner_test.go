package scanner

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumipallolabs/fontdrop/internal/cancel"
	"github.com/lumipallolabs/fontdrop/internal/model"
)

type zipEntry struct {
	name string
	data []byte
}

func zipBytes(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// nestedZip builds an archive nested depth levels deep with one font per level
func nestedZip(t *testing.T, level, depth int) []byte {
	t.Helper()
	entries := []zipEntry{{name: fmt.Sprintf("font%d.ttf", level), data: []byte("font data")}}
	if level < depth {
		entries = append(entries, zipEntry{
			name: fmt.Sprintf("pack/level%d.zip", level+1),
			data: nestedZip(t, level+1, depth),
		})
	}
	return zipBytes(t, entries...)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

type fixture struct {
	scanner *Scanner
	stage   *Stage
	tmp     string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	tmp := t.TempDir()
	opts.TempDir = tmp
	stage, err := NewStage(t.TempDir(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = stage.Release() })
	return &fixture{
		scanner: New(opts, zerolog.Nop()),
		stage:   stage,
		tmp:     tmp,
	}
}

func (f *fixture) scan(path string, archives bool) Report {
	return f.scanner.Scan(model.ScanTarget{Path: path, IncludeArchives: archives}, f.stage, cancel.New())
}

func names(fonts []model.FontFile) []string {
	out := make([]string, 0, len(fonts))
	for _, f := range fonts {
		out = append(out, f.Name)
	}
	return out
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ttf"), []byte("a"))
	writeFile(t, filepath.Join(dir, "B.OTF"), []byte("b"))
	writeFile(t, filepath.Join(dir, "sub", "deeper", "c.ttf"), []byte("c"))
	writeFile(t, filepath.Join(dir, "readme.txt"), []byte("x"))
	writeFile(t, filepath.Join(dir, "sub", "font.ttf.bak"), []byte("x"))
	writeFile(t, filepath.Join(dir, "sub", "image.png"), []byte("x"))

	f := newFixture(t, Options{})
	report := f.scan(dir, false)

	require.Len(t, report.Fonts, 3)
	assert.Empty(t, report.Faults)
	for _, font := range report.Fonts {
		assert.True(t, strings.HasPrefix(font.Path, dir), font.Path)
		assert.False(t, font.FromArchive())
	}
	assert.Equal(t, []string{"B.OTF", "a.ttf", "c.ttf"}, names(report.Fonts))
}

func TestScanDirectoryListsFilesBeforeSubfolders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "b", "x.ttf"), []byte("x"))
	writeFile(t, filepath.Join(dir, "a", "z.ttf"), []byte("z"))
	writeFile(t, filepath.Join(dir, "a-c", "y.otf"), []byte("y"))
	writeFile(t, filepath.Join(dir, "top.ttf"), []byte("t"))

	f := newFixture(t, Options{})
	report := f.scan(dir, false)

	assert.Equal(t, []string{"top.ttf", "z.ttf", "x.ttf", "y.otf"}, names(report.Fonts))
}

func TestScanEmptyDirectory(t *testing.T) {
	f := newFixture(t, Options{})
	report := f.scan(t.TempDir(), true)
	assert.Empty(t, report.Fonts)
	assert.Empty(t, report.Faults)
}

func TestScanDirectoryArchiveFlag(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "loose.ttf"), []byte("loose"))
	writeFile(t, filepath.Join(dir, "bundle.zip"), zipBytes(t, zipEntry{"packed.otf", []byte("packed")}))

	f := newFixture(t, Options{})

	without := f.scan(dir, false)
	assert.Equal(t, []string{"loose.ttf"}, names(without.Fonts))
	assert.Equal(t, 0, without.Archives)

	with := f.scan(dir, true)
	assert.Equal(t, []string{"packed.otf", "loose.ttf"}, names(with.Fonts))
	assert.Equal(t, "bundle.zip", filepath.Base(with.Fonts[0].Origin))
	assert.Equal(t, 1, with.Archives)
}

func TestScanZipTargetIgnoresFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fonts.zip")
	writeFile(t, path, zipBytes(t,
		zipEntry{"Regular.ttf", []byte("r")},
		zipEntry{"notes.txt", []byte("n")},
	))

	f := newFixture(t, Options{})
	report := f.scan(path, false)
	assert.Equal(t, []string{"Regular.ttf"}, names(report.Fonts))
}

func TestScanNestedArchives(t *testing.T) {
	for _, depth := range []int{2, 3, 5} {
		t.Run(fmt.Sprintf("depth%d", depth), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "level1.zip")
			writeFile(t, path, nestedZip(t, 1, depth))

			f := newFixture(t, Options{})
			report := f.scan(path, false)

			require.Len(t, report.Fonts, depth)
			assert.Empty(t, report.Faults)
			assert.Equal(t, depth, report.Archives)

			innermost := report.Fonts[len(report.Fonts)-1]
			assert.Equal(t, fmt.Sprintf("font%d.ttf", depth), innermost.Name)
			assert.Equal(t, depth, strings.Count(innermost.Origin, ".zip"))
		})
	}
}

func TestArchiveFontsAreStaged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outer.zip")
	writeFile(t, path, nestedZip(t, 1, 3))

	f := newFixture(t, Options{})
	report := f.scan(path, false)
	require.Len(t, report.Fonts, 3)

	// every extraction dir is gone, staged copies remain readable
	leftovers, err := os.ReadDir(f.tmp)
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	for _, font := range report.Fonts {
		assert.True(t, strings.HasPrefix(font.Path, f.stage.Dir()), font.Path)
		data, err := os.ReadFile(font.Path)
		require.NoError(t, err)
		assert.Equal(t, "font data", string(data))
	}
}

func TestExtractionDirRemovedOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.zip")
	writeFile(t, path, zipBytes(t, zipEntry{"huge.ttf", bytes.Repeat([]byte("x"), 4096)}))

	f := newFixture(t, Options{MaxExtractBytes: 100})
	report := f.scan(path, false)

	assert.Empty(t, report.Fonts)
	require.Len(t, report.Faults, 1)
	assert.ErrorIs(t, report.Faults[0], ErrExtractLimit)

	leftovers, err := os.ReadDir(f.tmp)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCorruptArchiveIsContained(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a-good.ttf"), []byte("good"))
	writeFile(t, filepath.Join(dir, "b-garbage.zip"), []byte("this is not a zip file at all"))
	valid := zipBytes(t, zipEntry{"inside.ttf", []byte("inside")})
	writeFile(t, filepath.Join(dir, "c-truncated.zip"), valid[:len(valid)/2])
	writeFile(t, filepath.Join(dir, "d-valid.zip"), valid)

	f := newFixture(t, Options{})
	report := f.scan(dir, true)

	assert.Equal(t, []string{"a-good.ttf", "inside.ttf"}, names(report.Fonts))
	require.Len(t, report.Faults, 2)
	assert.ErrorIs(t, report.Faults[0], ErrNotArchive)
	assert.Contains(t, report.Faults[1].Path, "c-truncated.zip")
	assert.False(t, report.Canceled)
}

func TestScanMissingTarget(t *testing.T) {
	f := newFixture(t, Options{})
	report := f.scan(filepath.Join(t.TempDir(), "missing"), true)

	assert.Empty(t, report.Fonts)
	require.Len(t, report.Faults, 1)
	assert.ErrorIs(t, report.Faults[0], os.ErrNotExist)
}

func TestScanUnsupportedTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, path, []byte("x"))

	f := newFixture(t, Options{})
	report := f.scan(path, true)
	assert.Empty(t, report.Fonts)
	require.Len(t, report.Faults, 1)
	assert.ErrorIs(t, report.Faults[0], ErrUnsupportedTarget)
}

func TestScanFontFileTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Single.otf")
	writeFile(t, path, []byte("x"))

	f := newFixture(t, Options{})
	report := f.scan(path, false)
	require.Len(t, report.Fonts, 1)
	assert.Equal(t, path, report.Fonts[0].Path)
}

func TestDuplicatesAreKept(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "same.ttf"), []byte("loose"))
	writeFile(t, filepath.Join(dir, "same.zip"), zipBytes(t, zipEntry{"same.ttf", []byte("packed")}))

	f := newFixture(t, Options{})
	report := f.scan(dir, true)
	assert.Equal(t, []string{"same.ttf", "same.ttf"}, names(report.Fonts))
	assert.NotEqual(t, report.Fonts[0].Path, report.Fonts[1].Path)
}

func TestDepthLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level1.zip")
	writeFile(t, path, nestedZip(t, 1, 4))

	f := newFixture(t, Options{MaxDepth: 2})
	report := f.scan(path, false)

	assert.Equal(t, []string{"font1.ttf", "font2.ttf"}, names(report.Fonts))
	require.Len(t, report.Faults, 1)
	assert.ErrorIs(t, report.Faults[0], ErrDepthExceeded)
}

func TestZipEntriesCannotEscape(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "evil.zip")
	writeFile(t, path, zipBytes(t,
		zipEntry{"../../escaped.ttf", []byte("x")},
		zipEntry{"ok.ttf", []byte("y")},
	))

	f := newFixture(t, Options{})
	report := f.scan(path, false)

	assert.Equal(t, []string{"ok.ttf"}, names(report.Fonts))
	_, err := os.Stat(filepath.Join(filepath.Dir(f.tmp), "escaped.ttf"))
	assert.True(t, os.IsNotExist(err))
}

func TestScanCanceledBeforeStart(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ttf"), []byte("a"))

	f := newFixture(t, Options{})
	flag := cancel.New()
	flag.Set()

	report := f.scanner.Scan(model.ScanTarget{Path: dir}, f.stage, flag)
	assert.True(t, report.Canceled)
	assert.Empty(t, report.Fonts)
	assert.Empty(t, report.Faults)
}

func TestScanCanceledKeepsFontsFoundSoFar(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ttf"), []byte("a"))
	writeFile(t, filepath.Join(dir, "b.zip"), zipBytes(t, zipEntry{"packed.ttf", []byte("p")}))
	writeFile(t, filepath.Join(dir, "c.ttf"), []byte("c"))

	f := newFixture(t, Options{})
	flag := cancel.New()
	report := Report{}
	st := &scan{report: &report, stage: f.stage, cancel: flag, budget: newBudget(0)}

	// the flag is raised mid-walk: loose fonts before the archive are kept,
	// the archive is not opened and the walk stops there
	flag.Set()
	fonts := f.scanner.scanDir(st, dir, "", true, 0)

	assert.Equal(t, []string{"a.ttf"}, names(fonts))
	assert.True(t, report.Canceled)
	assert.Equal(t, 0, report.Archives)
}

func TestScanCanceledInsideExtractedArchive(t *testing.T) {
	extracted := t.TempDir()
	writeFile(t, filepath.Join(extracted, "one.ttf"), []byte("1"))
	writeFile(t, filepath.Join(extracted, "two.otf"), []byte("2"))

	f := newFixture(t, Options{})
	flag := cancel.New()
	report := Report{}
	st := &scan{report: &report, stage: f.stage, cancel: flag, budget: newBudget(0)}

	flag.Set()
	fonts := f.scanner.scanDir(st, extracted, "bundle.zip", true, 1)

	assert.Empty(t, fonts)
	assert.True(t, report.Canceled)

	staged, err := os.ReadDir(f.stage.Dir())
	require.NoError(t, err)
	assert.Empty(t, staged, "nothing is copied into the stage after cancel")
}
