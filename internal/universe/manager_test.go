package universe

import (
	"path/filepath"
	"testing"

	"FragilityLab/internal/model"
)

func TestManager_SyncPersistsAndSorts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.json")
	m, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	firms := []model.Firm{
		{ID: "MSFT", Sector: "Technology", MarketCap: 3e12},
		{ID: "AAPL", Sector: "Technology", MarketCap: 2.8e12},
	}
	if err := m.Sync(firms); err != nil {
		t.Fatal(err)
	}
	got := m.Firms()
	if len(got) != 2 || got[0].ID != "AAPL" {
		t.Errorf("expected sorted universe, got %+v", got)
	}

	// Reload from disk.
	m2, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	if m2.Size() != 2 {
		t.Errorf("reloaded universe has %d firms", m2.Size())
	}
	if f, ok := m2.Get("MSFT"); !ok || f.MarketCap != 3e12 {
		t.Errorf("MSFT not round-tripped: %+v", f)
	}
}

func TestManager_MissingFileIsEmpty(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Size() != 0 {
		t.Errorf("expected empty universe, got %d firms", m.Size())
	}
}
