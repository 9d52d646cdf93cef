package universe

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"FragilityLab/internal/model"
)

// State is the persisted firm universe.
type State struct {
	Firms     []model.Firm `json:"firms"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// LoadState reads the universe from a JSON file. Returns an empty state
// if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveState writes the universe to a JSON file, creating the parent
// directory if needed.
func SaveState(filePath string, state *State) error {
	state.UpdatedAt = time.Now()
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
