package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

const helpKeyColumnWidth = 12

// helpSections titles the groups returned by KeyMap.FullHelp
var helpSections = []string{"WHILE RUNNING", "WHEN FINISHED", "OTHER"}

// HelpOverlay lists every key binding in a centered box
type HelpOverlay struct {
	groups  [][]key.Binding
	visible bool
	width   int
	height  int
}

// NewHelpOverlay creates a help overlay for keys
func NewHelpOverlay(keys KeyMap) HelpOverlay {
	return HelpOverlay{groups: keys.FullHelp()}
}

func (h *HelpOverlay) Toggle() {
	h.visible = !h.visible
}

func (h *HelpOverlay) SetVisible(visible bool) {
	h.visible = visible
}

func (h HelpOverlay) IsVisible() bool {
	return h.visible
}

// SetSize sets the area the box is centered in
func (h *HelpOverlay) SetSize(width, height int) {
	h.width = width
	h.height = height
}

// View renders the overlay, empty when hidden
func (h HelpOverlay) View() string {
	if !h.visible {
		return ""
	}

	title := lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	section := lipgloss.NewStyle().Foreground(ColorMuted).Bold(true)
	desc := lipgloss.NewStyle().Foreground(ColorText)
	keyCol := HelpKey.Width(helpKeyColumnWidth)

	lines := []string{title.Render("Keyboard Shortcuts")}
	for i, group := range h.groups {
		name := "KEYS"
		if i < len(helpSections) {
			name = helpSections[i]
		}
		lines = append(lines, "", section.Render(name))
		for _, b := range group {
			hb := b.Help()
			lines = append(lines, keyCol.Render(hb.Key)+desc.Render(hb.Desc))
		}
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(h.width, h.height, lipgloss.Center, lipgloss.Center, box)
}

// HelpBar renders the bottom line of key hints
func HelpBar(width int, bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		hb := b.Help()
		parts = append(parts, HelpKey.Render(hb.Key)+HelpStyle.Render(" "+hb.Desc))
	}
	return HelpStyle.Width(width).Render(strings.Join(parts, HelpStyle.Render("  ·  ")))
}
