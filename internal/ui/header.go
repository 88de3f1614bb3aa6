package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lumipallolabs/fontdrop/internal/model"
)

// Header displays the selection and install stats
type Header struct {
	targets  []model.ScanTarget
	fontDir  string
	lifetime int64
	width    int
}

// NewHeader creates a new header component
func NewHeader(targets []model.ScanTarget, fontDir string) Header {
	return Header{
		targets: targets,
		fontDir: fontDir,
	}
}

// SetLifetime sets the number of fonts installed across all runs
func (h *Header) SetLifetime(n int64) {
	h.lifetime = n
}

// SetWidth sets the header width
func (h *Header) SetWidth(w int) {
	h.width = w
}

// selection summarizes the targets
func (h Header) selection() string {
	switch len(h.targets) {
	case 0:
		return "nothing selected"
	case 1:
		label := filepath.Base(h.targets[0].Path)
		if h.targets[0].IncludeArchives {
			label += " +zips"
		}
		return label
	default:
		return fmt.Sprintf("%d targets", len(h.targets))
	}
}

// View renders the header
func (h Header) View() string {
	appName := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#C084FC")). // soft violet
		Bold(true).
		Render("FONTDROP")

	selection := StatsStyle.Render(h.selection())

	fontDir := MutedStyle.Render("→ ") + StatsStyle.Render(h.fontDir)

	var lifetime string
	if h.lifetime > 0 {
		lifetime = MutedStyle.Render("Installed: ") +
			lipgloss.NewStyle().Foreground(lipgloss.Color("#34D399")).Render(fmt.Sprintf("%d all time", h.lifetime))
	}

	sep := lipgloss.NewStyle().Foreground(ColorBorder).Render(" │ ")

	// Layout: app name and selection on the left, font dir and stats on the right
	left := appName + sep + selection
	right := fontDir
	if lifetime != "" {
		right += sep + lifetime
	}

	// For narrow terminals, progressively hide elements
	if h.width < lipgloss.Width(left)+lipgloss.Width(right)+2 {
		right = lifetime
	}
	if h.width < lipgloss.Width(left)+lipgloss.Width(right)+2 {
		right = ""
	}

	gap := h.width - lipgloss.Width(left) - lipgloss.Width(right) - 2 // padding
	if gap < 1 {
		gap = 1
	}

	line := left + strings.Repeat(" ", gap) + right

	return HeaderStyle.MaxHeight(1).Render(line)
}
