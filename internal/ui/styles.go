package ui

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	ColorPrimary    = lipgloss.Color("#7D56F4")
	ColorSuccess    = lipgloss.Color("#73F59F")
	ColorWarning    = lipgloss.Color("#F5A623")
	ColorDanger     = lipgloss.Color("#F56565")
	ColorMuted      = lipgloss.Color("#6B7280")
	ColorBorder     = lipgloss.Color("#3F3F46")
	ColorCyan       = lipgloss.Color("#00D4FF")
	ColorText       = lipgloss.Color("#E4E4E7")
	ColorBackground = lipgloss.Color("#1F1F23")
)

// Styles
var (
	// Header
	HeaderStyle = lipgloss.NewStyle().
			Background(ColorBackground).
			Padding(0, 1)

	StatsStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	// Progress panel
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 3)

	PanelActiveStyle = PanelStyle.
				BorderForeground(ColorPrimary)

	// Log lines
	DoneStyle    = lipgloss.NewStyle().Foreground(ColorSuccess)
	ActiveStyle  = lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)
	FailedStyle  = lipgloss.NewStyle().Foreground(ColorDanger)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)

	// Help bar
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)

	HelpKey = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
)
