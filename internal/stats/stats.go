package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/adrg/xdg"
)

// Stats holds persistent statistics
type Stats struct {
	InstalledLifetime int64    `json:"installed_lifetime"`
	LastTargets       []string `json:"last_targets,omitempty"` // Paths of the last run, reused when none are given
	IncludeArchives   bool     `json:"include_archives,omitempty"`
}

// Manager handles loading and saving stats
type Manager struct {
	path         string
	stats        Stats
	mu           sync.RWMutex
	dirty        bool
	saveTimer    *time.Timer
	saveDuration time.Duration
}

// NewManager creates a new stats manager persisting to path
func NewManager(path string) *Manager {
	return &Manager{
		path:         path,
		saveDuration: 2 * time.Second, // Debounce saves
	}
}

// DefaultPath returns the stats file path under the XDG data directory
func DefaultPath() string {
	path, err := xdg.DataFile(filepath.Join("fontdrop", "stats.json"))
	if err != nil {
		return filepath.Join(xdg.DataHome, "fontdrop", "stats.json")
	}
	return path
}

// Path returns the stats file path
func (m *Manager) Path() string {
	return m.path
}

// Load loads stats from disk
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			// No stats file yet, start fresh
			m.stats = Stats{}
			return nil
		}
		return err
	}

	return json.Unmarshal(data, &m.stats)
}

// Save saves stats to disk immediately
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saveLocked()
}

// saveLocked saves stats without acquiring the lock (caller must hold lock)
func (m *Manager) saveLocked() error {
	// Ensure directory exists
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m.stats, "", "  ")
	if err != nil {
		return err
	}

	m.dirty = false
	return os.WriteFile(m.path, data, 0644)
}

// scheduleSaveLocked marks stats dirty and debounces a background save
func (m *Manager) scheduleSaveLocked() {
	m.dirty = true

	// Cancel any pending save timer
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(m.saveDuration, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.dirty {
			_ = m.saveLocked() // Ignore errors for background save
		}
	})
}

// InstalledLifetime returns the number of fonts installed across all runs
func (m *Manager) InstalledLifetime() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats.InstalledLifetime
}

// AddInstalled adds to the lifetime install counter and schedules a debounced save
func (m *Manager) AddInstalled(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.InstalledLifetime += n
	m.scheduleSaveLocked()
}

// LastSelection returns the targets of the previous run
func (m *Manager) LastSelection() ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.stats.LastTargets...), m.stats.IncludeArchives
}

// SetLastSelection remembers the targets of the current run
func (m *Manager) SetLastSelection(paths []string, includeArchives bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slices.Equal(m.stats.LastTargets, paths) && m.stats.IncludeArchives == includeArchives {
		return
	}

	m.stats.LastTargets = append([]string(nil), paths...)
	m.stats.IncludeArchives = includeArchives
	m.scheduleSaveLocked()
}

// Close ensures any pending saves are written
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}

	if m.dirty {
		return m.saveLocked()
	}
	return nil
}
