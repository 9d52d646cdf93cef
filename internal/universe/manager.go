package universe

import (
	"fmt"
	"sort"
	"sync"

	"FragilityLab/internal/model"
)

// Manager holds the current firm universe with concurrency safety and
// JSON persistence. The market-cap benchmark and the simulator read firm
// metadata from here.
type Manager struct {
	mu       sync.Mutex
	state    *State
	filePath string
}

// NewManager creates a Manager, loading state from disk if present.
func NewManager(filePath string) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, fmt.Errorf("load universe state: %w", err)
	}
	return &Manager{state: state, filePath: filePath}, nil
}

// Sync replaces the universe with the given firms and persists it. Firms
// are kept sorted by ID so downstream ordering is stable.
func (m *Manager) Sync(firms []model.Firm) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sorted := append([]model.Firm(nil), firms...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	m.state.Firms = sorted
	return SaveState(m.filePath, m.state)
}

// Firms returns a copy of the current universe.
func (m *Manager) Firms() []model.Firm {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Firm(nil), m.state.Firms...)
}

// Get returns the firm with the given ID.
func (m *Manager) Get(id string) (model.Firm, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.state.Firms {
		if f.ID == id {
			return f, true
		}
	}
	return model.Firm{}, false
}

// Size returns the number of firms in the universe.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.Firms)
}
