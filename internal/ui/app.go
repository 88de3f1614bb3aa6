package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/lumipallolabs/fontdrop/internal/core"
	"github.com/lumipallolabs/fontdrop/internal/model"
	"github.com/lumipallolabs/fontdrop/internal/stats"
)

// startRunMsg starts a run after the UI has rendered
type startRunMsg struct{}

// pollTickMsg drains the run's event channel
type pollTickMsg struct{}

// Timing and layout constants
const (
	defaultPollInterval = 100 * time.Millisecond
	maxLogLines         = 8
	maxPanelWidth       = 72
)

// Run is a started install run
type Run interface {
	Events() *core.Channel
	Cancel()
}

// StartFunc starts a run over targets
type StartFunc func(targets []model.ScanTarget) (Run, error)

// Options configures the App
type Options struct {
	Targets      []model.ScanTarget
	FontDir      string
	PollInterval time.Duration
	Stats        *stats.Manager // optional, for the lifetime counter
}

type lineStatus int

const (
	lineActive lineStatus = iota
	lineDone
	lineFailed
	lineInfo
)

// logLine is one entry of the boot-style phase log
type logLine struct {
	text   string
	status lineStatus
}

// App is the main application model
type App struct {
	// Components
	header   Header
	help     HelpOverlay
	progress progress.Model
	spinner  spinner.Model
	keys     KeyMap

	start StartFunc
	opts  Options
	log   zerolog.Logger

	// Run state, rebuilt from events
	run        Run
	phase      core.Phase
	discovered int
	processed  int
	installed  int
	failed     int
	faults     int
	current    string
	lines      []logLine
	err        error
	confirming bool

	// Dimensions
	width  int
	height int
}

// NewApp creates a new application instance
func NewApp(start StartFunc, opts Options, log zerolog.Logger) App {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	keys := DefaultKeyMap()
	app := App{
		header: NewHeader(opts.Targets, opts.FontDir),
		help:   NewHelpOverlay(keys),
		progress: progress.New(
			progress.WithGradient(string(ColorPrimary), string(ColorSuccess)),
			progress.WithWidth(40),
		),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(ActiveStyle),
		),
		keys:  keys,
		start: start,
		opts:  opts,
		log:   log,
	}
	app.header.SetLifetime(app.lifetime())
	return app
}

// Init implements tea.Model
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("FONTDROP"),
		a.spinner.Tick,
		func() tea.Msg { return startRunMsg{} },
		a.pollCmd(),
	)
}

// Run returns the current run, nil before the first start
func (a App) Run() Run {
	return a.run
}

// Phase returns the phase of the current run as last seen by the UI
func (a App) Phase() core.Phase {
	return a.phase
}

func (a App) pollCmd() tea.Cmd {
	return tea.Tick(a.opts.PollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

// Update implements tea.Model
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateLayout()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case startRunMsg:
		a.startRun()
		return a, nil

	case pollTickMsg:
		a.poll()
		// Always reschedule, the tick outlives individual runs
		return a, a.pollCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// active reports whether a run is in progress
func (a App) active() bool {
	return a.run != nil && !a.phase.Terminal()
}

// startRun resets the view and starts a new run
func (a *App) startRun() {
	a.run = nil
	a.phase = core.PhaseIdle
	a.discovered, a.processed, a.installed, a.failed, a.faults = 0, 0, 0, 0, 0
	a.current = ""
	a.lines = nil
	a.err = nil
	a.confirming = false

	run, err := a.start(a.opts.Targets)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to start run")
		a.err = err
		a.phase = core.PhaseFaulted
		a.push(lineFailed, fmt.Sprintf("Could not start: %v", err))
		return
	}
	a.run = run
}

// poll applies every queued event without waiting for more
func (a *App) poll() {
	if a.run == nil {
		return
	}
	for _, e := range a.run.Events().Drain() {
		a.apply(e)
	}
}

func (a *App) apply(e core.Event) {
	switch e := e.(type) {
	case core.ScanStartedEvent:
		a.phase = core.PhaseScanning
		a.push(lineActive, e.String())

	case core.TotalDiscoveredEvent:
		a.discovered = e.Count
		a.faults = e.Faults
		a.settle(lineDone)
		a.push(lineDone, e.String())
		a.phase = core.PhaseInstalling
		a.push(lineActive, "Installing fonts")

	case core.InstallProgressEvent:
		a.processed = e.Index
		a.current = e.FontName
		if e.OK {
			a.installed++
		} else {
			a.failed++
			a.push(lineFailed, e.FontName+" failed")
		}

	case core.NoFontsFoundEvent:
		a.phase = core.PhaseNoFontsFound
		a.settle(lineDone)
		a.push(lineInfo, e.String())

	case core.CanceledEvent:
		a.phase = core.PhaseCanceled
		a.settle(lineFailed)
		a.push(lineInfo, e.String())

	case core.DoneEvent:
		a.phase = core.PhaseDone
		a.installed = e.Installed
		a.failed = e.Failed
		a.settle(lineDone)
		a.push(lineDone, e.String())

	case core.FaultedEvent:
		a.phase = core.PhaseFaulted
		a.err = e.Err
		a.settle(lineFailed)
		a.push(lineFailed, e.String())
	}

	if core.IsTerminal(e) {
		a.current = ""
		a.confirming = false
		a.header.SetLifetime(a.lifetime())
	}
}

func (a *App) push(status lineStatus, text string) {
	a.lines = append(a.lines, logLine{text: text, status: status})
}

// settle marks the running log line as finished
func (a *App) settle(status lineStatus) {
	for i := len(a.lines) - 1; i >= 0; i-- {
		if a.lines[i].status == lineActive {
			a.lines[i].status = status
			return
		}
	}
}

func (a App) lifetime() int64 {
	if a.opts.Stats == nil {
		return 0
	}
	return a.opts.Stats.InstalledLifetime()
}

// handleKey handles keyboard input
func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Help overlay takes precedence
	if a.help.IsVisible() {
		if key.Matches(msg, a.keys.Help) || key.Matches(msg, a.keys.Back) {
			a.help.SetVisible(false)
		}
		return a, nil
	}

	// Cancel confirmation
	if a.confirming {
		switch {
		case key.Matches(msg, a.keys.Confirm):
			a.confirming = false
			if a.active() {
				a.run.Cancel()
				a.push(lineInfo, "Cancel requested")
			}
		case key.Matches(msg, a.keys.Deny):
			a.confirming = false
		}
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		if a.active() {
			a.run.Cancel()
		}
		return a, tea.Quit

	case key.Matches(msg, a.keys.Help):
		a.help.Toggle()
		return a, nil

	case key.Matches(msg, a.keys.Cancel):
		if a.active() {
			a.confirming = true
		}
		return a, nil

	case key.Matches(msg, a.keys.Retry):
		if !a.active() {
			a.startRun()
		}
		return a, nil

	case key.Matches(msg, a.keys.OpenFonts):
		return a, a.openFontDir()
	}

	return a, nil
}

// openFontDir opens the font directory in the system file manager
func (a App) openFontDir() tea.Cmd {
	dir := a.opts.FontDir
	log := a.log
	return func() tea.Msg {
		if err := openFolder(dir); err != nil {
			log.Debug().Err(err).Str("dir", dir).Msg("failed to open font dir")
		}
		return nil
	}
}

// updateLayout calculates component sizes based on window dimensions
func (a *App) updateLayout() {
	a.header.SetWidth(a.width)
	a.help.SetSize(a.width, a.height)

	barWidth := a.width - 12
	if barWidth > maxPanelWidth-8 {
		barWidth = maxPanelWidth - 8
	}
	if barWidth < 10 {
		barWidth = 10
	}
	a.progress.Width = barWidth
}

func (a App) renderLine(l logLine) string {
	switch l.status {
	case lineActive:
		dots := strings.Repeat(".", int(time.Now().UnixMilli()/400)%3+1)
		return a.spinner.View() + " " + ActiveStyle.Render(l.text+dots)
	case lineDone:
		return DoneStyle.Render("✓ " + l.text)
	case lineFailed:
		return FailedStyle.Render("✗ " + l.text)
	default:
		return MutedStyle.Render("• " + l.text)
	}
}

// panelView renders the phase log and install progress
func (a App) panelView() string {
	var b strings.Builder

	lines := a.lines
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(a.renderLine(l))
	}
	if len(lines) == 0 {
		b.WriteString(MutedStyle.Render("Starting..."))
	}

	if a.discovered > 0 {
		percent := float64(a.processed) / float64(a.discovered)
		b.WriteString("\n\n")
		b.WriteString(a.progress.ViewAs(percent))
		b.WriteString("\n")
		b.WriteString(StatsStyle.Render(fmt.Sprintf("%d of %d fonts installed", a.processed, a.discovered)))
		if a.failed > 0 {
			b.WriteString(FailedStyle.Render(fmt.Sprintf(" · %d failed", a.failed)))
		}
		if a.faults > 0 {
			b.WriteString(MutedStyle.Render(fmt.Sprintf(" · %d unreadable", a.faults)))
		}
		if a.current != "" {
			b.WriteString("\n")
			b.WriteString(MutedStyle.Render(a.current))
		}
	}

	switch {
	case a.confirming:
		b.WriteString("\n\n")
		b.WriteString(WarningStyle.Render("Cancel installation? (y/n)"))
	case a.phase.Terminal():
		b.WriteString("\n\n")
		b.WriteString(MutedStyle.Render("Press r to run again or q to quit"))
	}

	style := PanelStyle
	if a.active() {
		style = PanelActiveStyle
	}
	width := a.width - 4
	if width > maxPanelWidth {
		width = maxPanelWidth
	}
	return style.Width(width).Render(b.String())
}

// View implements tea.Model
func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Loading..."
	}

	// Help overlay on top if visible
	if a.help.IsVisible() {
		return a.help.View()
	}

	panelHeight := a.height - 2 // header + help bar
	if panelHeight < 1 {
		panelHeight = 1
	}

	panel := lipgloss.Place(
		a.width, panelHeight,
		lipgloss.Center, lipgloss.Center,
		a.panelView(),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		a.header.View(),
		panel,
		HelpBar(a.width, a.keys.ShortHelp()),
	)
}
