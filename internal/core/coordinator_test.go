package core

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumipallolabs/fontdrop/internal/installer"
	"github.com/lumipallolabs/fontdrop/internal/model"
	"github.com/lumipallolabs/fontdrop/internal/scanner"
	"github.com/lumipallolabs/fontdrop/internal/tasks"
)

type fakeRegistrar struct {
	mu            sync.Mutex
	registered    int
	notified      int
	onRegister    func(n int)
	panicOnNotify bool
}

func (r *fakeRegistrar) Register(path string) bool {
	r.mu.Lock()
	r.registered++
	n := r.registered
	r.mu.Unlock()
	if r.onRegister != nil {
		r.onRegister(n)
	}
	return true
}

func (r *fakeRegistrar) NotifyFontsChanged() {
	if r.panicOnNotify {
		panic("broadcast failed")
	}
	r.mu.Lock()
	r.notified++
	r.mu.Unlock()
}

func (r *fakeRegistrar) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered, r.notified
}

type fakeTally struct {
	mu    sync.Mutex
	total int64
}

func (f *fakeTally) AddInstalled(n int64) {
	f.mu.Lock()
	f.total += n
	f.mu.Unlock()
}

type harness struct {
	coord   *Coordinator
	reg     *fakeRegistrar
	tally   *fakeTally
	fontDir string
	tempDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zerolog.Nop()
	h := &harness{
		reg:     &fakeRegistrar{},
		tally:   &fakeTally{},
		fontDir: t.TempDir(),
		tempDir: t.TempDir(),
	}
	sc := scanner.New(scanner.Options{TempDir: h.tempDir}, log)
	inst := installer.New(h.fontDir, h.reg, log)
	pool := tasks.NewPool(tasks.DefaultSize, log)
	t.Cleanup(pool.Stop)

	h.coord = NewCoordinator(sc, inst, pool, Options{TempDir: h.tempDir, Tally: h.tally}, log)
	return h
}

func (h *harness) start(t *testing.T, targets ...model.ScanTarget) (*Run, []Event) {
	t.Helper()
	run, err := h.coord.Start(targets)
	require.NoError(t, err)

	select {
	case <-run.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish")
	}
	return run, run.Events().Drain()
}

func (h *harness) installed(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.fontDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func target(path string, archives bool) model.ScanTarget {
	return model.ScanTarget{Path: path, IncludeArchives: archives}
}

func TestRunInstallsFolderFonts(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x.ttf"), "x")
	writeFile(t, filepath.Join(dir, "y.txt"), "y")

	run, events := h.start(t, target(dir, false))

	assert.Equal(t, []Event{
		ScanStartedEvent{RunID: run.ID, Targets: 1},
		TotalDiscoveredEvent{Count: 1},
		InstallProgressEvent{Index: 1, Total: 1, FontName: "x.ttf", OK: true},
		DoneEvent{Installed: 1},
	}, events)

	assert.Equal(t, []string{"x.ttf"}, h.installed(t))
	registered, notified := h.reg.counts()
	assert.Equal(t, 1, registered)
	assert.Equal(t, 1, notified)
	assert.Equal(t, int64(1), h.tally.total)

	state := run.State()
	assert.Equal(t, PhaseDone, state.Phase)
	assert.Equal(t, 1, state.Discovered)
	assert.Equal(t, 1, state.Installed)
}

func TestRunNoFontsFound(t *testing.T) {
	h := newHarness(t)

	run, events := h.start(t, target(t.TempDir(), true))

	assert.Equal(t, []Event{
		ScanStartedEvent{RunID: run.ID, Targets: 1},
		NoFontsFoundEvent{},
	}, events)
	assert.Equal(t, PhaseNoFontsFound, run.Phase())
	_, notified := h.reg.counts()
	assert.Zero(t, notified)
}

func TestRunContainsCorruptArchive(t *testing.T) {
	h := newHarness(t)
	root := t.TempDir()
	dir := filepath.Join(root, "loose")
	writeFile(t, filepath.Join(dir, "a.ttf"), "a")
	bad := filepath.Join(root, "bad.zip")
	writeFile(t, bad, "definitely not a zip")
	good := filepath.Join(root, "good.zip")
	writeZip(t, good, map[string]string{"b.otf": "b"})

	_, events := h.start(t, target(dir, false), target(bad, false), target(good, false))

	require.Len(t, events, 5)
	assert.Equal(t, TotalDiscoveredEvent{Count: 2, Faults: 1}, events[1])
	// results follow target order even though targets scan concurrently
	assert.Equal(t, "a.ttf", events[2].(InstallProgressEvent).FontName)
	assert.Equal(t, "b.otf", events[3].(InstallProgressEvent).FontName)
	assert.Equal(t, DoneEvent{Installed: 2}, events[4])
	assert.ElementsMatch(t, []string{"a.ttf", "b.otf"}, h.installed(t))
}

func TestRunInstallsArchiveFontsAndCleansUp(t *testing.T) {
	h := newHarness(t)
	root := t.TempDir()
	inner := filepath.Join(root, "inner.zip")
	writeZip(t, inner, map[string]string{"Deep.ttf": "deep"})
	innerData, err := os.ReadFile(inner)
	require.NoError(t, err)
	outer := filepath.Join(root, "outer.zip")
	writeZip(t, outer, map[string]string{"Top.otf": "top", "nested/inner.zip": string(innerData)})

	_, events := h.start(t, target(outer, false))

	require.NotEmpty(t, events)
	assert.Equal(t, DoneEvent{Installed: 2}, events[len(events)-1])
	assert.ElementsMatch(t, []string{"Deep.ttf", "Top.otf"}, h.installed(t))

	data, err := os.ReadFile(filepath.Join(h.fontDir, "Deep.ttf"))
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))

	// extraction and staging directories are gone
	leftovers, err := os.ReadDir(h.tempDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRunKeepsDuplicates(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ttf"), "loose")
	writeZip(t, filepath.Join(dir, "b.zip"), map[string]string{"a.ttf": "packed"})

	_, events := h.start(t, target(dir, true))

	assert.Equal(t, TotalDiscoveredEvent{Count: 2}, events[1])
	assert.Equal(t, DoneEvent{Installed: 2}, events[len(events)-1])
	assert.Equal(t, []string{"a.ttf"}, h.installed(t))

	data, err := os.ReadFile(filepath.Join(h.fontDir, "a.ttf"))
	require.NoError(t, err)
	assert.Equal(t, "loose", string(data))
}

func TestRunFaultsOnUnexpectedPanic(t *testing.T) {
	h := newHarness(t)
	h.reg.panicOnNotify = true
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "p.ttf"), "p")

	run, events := h.start(t, target(dir, false))

	last := events[len(events)-1]
	require.IsType(t, FaultedEvent{}, last)
	assert.Contains(t, last.(FaultedEvent).Err.Error(), "broadcast failed")
	assert.Equal(t, PhaseFaulted, run.Phase())
	assert.True(t, IsTerminal(last))
}

func TestStartWithoutTargets(t *testing.T) {
	h := newHarness(t)
	_, err := h.coord.Start(nil)
	assert.ErrorIs(t, err, ErrNoTargets)
}

func TestCancelDuringScan(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ttf"), "a")

	stage, err := scanner.NewStage(h.tempDir, "scan")
	require.NoError(t, err)
	run := newRun("scan-cancel", []model.ScanTarget{target(dir, false)}, stage)
	run.Cancel()

	h.coord.scanStage(run)

	assert.Equal(t, []Event{CanceledEvent{Stage: PhaseScanning}}, run.Events().Drain())
	assert.Empty(t, h.installed(t))
	assert.NoDirExists(t, stage.Dir())
	<-run.Done()
}

func TestCancelDuringInstall(t *testing.T) {
	const n = 4
	for k := 0; k <= n; k++ {
		t.Run(fmt.Sprintf("after%d", k), func(t *testing.T) {
			h := newHarness(t)
			src := t.TempDir()
			var fonts []model.FontFile
			for i := 0; i < n; i++ {
				path := filepath.Join(src, fmt.Sprintf("font%d.ttf", i))
				writeFile(t, path, "f")
				fonts = append(fonts, model.NewFontFile(path, ""))
			}

			stage, err := scanner.NewStage(h.tempDir, "install")
			require.NoError(t, err)
			run := newRun("install-cancel", nil, stage)
			if k == 0 {
				run.Cancel()
			}
			h.reg.onRegister = func(count int) {
				if count == k {
					run.Cancel()
				}
			}

			h.coord.installStage(run, fonts)
			events := run.Events().Drain()

			for i := 0; i < k; i++ {
				assert.Equal(t, InstallProgressEvent{Index: i + 1, Total: n, FontName: fonts[i].Name, OK: true}, events[i])
			}
			_, notified := h.reg.counts()
			require.Len(t, events, k+1)
			assert.Equal(t, CanceledEvent{Stage: PhaseInstalling, Installed: k}, events[k])
			for _, e := range events {
				assert.NotEqual(t, PhaseDone, terminalPhase(e))
			}
			assert.Len(t, h.installed(t), k)
			assert.Zero(t, notified)
			assert.Equal(t, PhaseCanceled, run.Phase())
			assert.Equal(t, int64(k), h.tally.total)
		})
	}
}

func TestFinishIsOnce(t *testing.T) {
	h := newHarness(t)
	stage, err := scanner.NewStage(h.tempDir, "once")
	require.NoError(t, err)
	run := newRun("once", nil, stage)

	h.coord.finish(run, PhaseDone, DoneEvent{})
	h.coord.finish(run, PhaseCanceled, CanceledEvent{Stage: PhaseInstalling})

	assert.Equal(t, []Event{DoneEvent{}}, run.Events().Drain())
	assert.Equal(t, PhaseDone, run.Phase())
}

// terminalPhase maps a terminal event to the phase it ends the run in
func terminalPhase(e Event) Phase {
	switch e.(type) {
	case DoneEvent:
		return PhaseDone
	case CanceledEvent:
		return PhaseCanceled
	case NoFontsFoundEvent:
		return PhaseNoFontsFound
	case FaultedEvent:
		return PhaseFaulted
	}
	return PhaseIdle
}
