package loader

import (
	"fmt"
	"sort"

	"FragilityLab/internal/model"
)

// Loader orchestrates panel retrieval and validation.
type Loader struct {
	Source Source
}

// NewLoader creates a new Loader.
func NewLoader(source Source) *Loader {
	return &Loader{Source: source}
}

// Load fetches the panel for a year range, rejects duplicate
// (firm, fiscal_year) pairs and returns records sorted by firm then year.
func (l *Loader) Load(fromYear, toYear int) ([]model.FirmYearRecord, error) {
	records, err := l.Source.FetchPanel(fromYear, toYear)
	if err != nil {
		return nil, fmt.Errorf("fetch panel: %w", err)
	}

	type key struct {
		firm string
		fy   int
	}
	seen := make(map[key]bool, len(records))
	for _, r := range records {
		k := key{r.FirmID, r.FiscalYear}
		if seen[k] {
			return nil, fmt.Errorf("duplicate record for firm %s fiscal year %d", r.FirmID, r.FiscalYear)
		}
		seen[k] = true
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].FirmID != records[j].FirmID {
			return records[i].FirmID < records[j].FirmID
		}
		return records[i].FiscalYear < records[j].FiscalYear
	})
	return records, nil
}

func sortedSectorNames(m map[string]MockSector) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys(m map[string]model.Firm) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
