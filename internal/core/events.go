package core

import (
	"fmt"
)

// Event is a progress message from a run to its consumer
type Event interface {
	isEvent()
	String() string
}

// ScanStartedEvent is emitted when a run begins scanning
type ScanStartedEvent struct {
	RunID   string
	Targets int
}

func (ScanStartedEvent) isEvent() {}

func (e ScanStartedEvent) String() string {
	return fmt.Sprintf("Scanning %d target(s) for fonts", e.Targets)
}

// TotalDiscoveredEvent is emitted once scanning found at least one font
type TotalDiscoveredEvent struct {
	Count  int
	Faults int // targets or archives that could not be scanned
}

func (TotalDiscoveredEvent) isEvent() {}

func (e TotalDiscoveredEvent) String() string {
	return fmt.Sprintf("Found %d font(s)", e.Count)
}

// InstallProgressEvent is emitted after each font install attempt, whatever
// its outcome
type InstallProgressEvent struct {
	Index    int // 1-based
	Total    int
	FontName string
	OK       bool
}

func (InstallProgressEvent) isEvent() {}

func (e InstallProgressEvent) String() string {
	if !e.OK {
		return fmt.Sprintf("[%d/%d] %s failed", e.Index, e.Total, e.FontName)
	}
	return fmt.Sprintf("[%d/%d] %s", e.Index, e.Total, e.FontName)
}

// NoFontsFoundEvent is terminal, scanning finished without results
type NoFontsFoundEvent struct {
	Faults int
}

func (NoFontsFoundEvent) isEvent() {}

func (NoFontsFoundEvent) String() string {
	return "No fonts found"
}

// CanceledEvent is terminal, the run stopped at a cancellation point
type CanceledEvent struct {
	Stage     Phase // PhaseScanning or PhaseInstalling
	Installed int   // fonts installed before the cancel was observed
}

func (CanceledEvent) isEvent() {}

func (e CanceledEvent) String() string {
	if e.Stage == PhaseInstalling {
		return fmt.Sprintf("Canceled during install, %d font(s) installed", e.Installed)
	}
	return "Canceled during scan"
}

// DoneEvent is terminal, every discovered font was processed
type DoneEvent struct {
	Installed int
	Failed    int
}

func (DoneEvent) isEvent() {}

func (e DoneEvent) String() string {
	if e.Failed > 0 {
		return fmt.Sprintf("Done, %d installed, %d failed", e.Installed, e.Failed)
	}
	return fmt.Sprintf("Done, %d installed", e.Installed)
}

// FaultedEvent is terminal, a stage task failed unexpectedly
type FaultedEvent struct {
	Err error
}

func (FaultedEvent) isEvent() {}

func (e FaultedEvent) String() string {
	return fmt.Sprintf("Unexpected error: %v", e.Err)
}

// IsTerminal reports whether e ends its run
func IsTerminal(e Event) bool {
	switch e.(type) {
	case NoFontsFoundEvent, CanceledEvent, DoneEvent, FaultedEvent:
		return true
	}
	return false
}
