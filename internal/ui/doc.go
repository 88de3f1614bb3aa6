// Package ui implements the interactive progress view for fontdrop using
// Bubbletea. The view polls a run's event channel on a fixed tick.
package ui
