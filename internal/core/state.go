package core

import "time"

// Phase is the state of a run
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseScanning
	PhaseInstalling
	PhaseNoFontsFound
	PhaseCanceled
	PhaseDone
	PhaseFaulted
)

// String returns a human-readable phase name
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseScanning:
		return "Scanning"
	case PhaseInstalling:
		return "Installing"
	case PhaseNoFontsFound:
		return "No fonts found"
	case PhaseCanceled:
		return "Canceled"
	case PhaseDone:
		return "Done"
	case PhaseFaulted:
		return "Faulted"
	default:
		return ""
	}
}

// Terminal returns true for phases a run never leaves
func (p Phase) Terminal() bool {
	return p >= PhaseNoFontsFound
}

// RunState holds a run's progress (read-only view)
type RunState struct {
	Phase      Phase
	StartTime  time.Time
	Discovered int
	Processed  int
	Installed  int
	Failed     int
	Faults     int // contained scan faults
	Current    string
}

// Active returns true while the run is scanning or installing
func (s RunState) Active() bool {
	return s.Phase == PhaseScanning || s.Phase == PhaseInstalling
}

// Elapsed returns time since the run started
func (s RunState) Elapsed() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime).Truncate(time.Second)
}
