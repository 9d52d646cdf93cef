package loader

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// UnclassifiedSector is assigned to SIC codes no bucket covers.
const UnclassifiedSector = "Unclassified"

// SectorBucket maps an inclusive SIC code range to a consolidated sector
// label, following the SEC's office groupings.
type SectorBucket struct {
	From   int    `yaml:"from"`
	To     int    `yaml:"to"`
	Sector string `yaml:"sector"`
}

// SectorMap resolves raw SIC codes to sector labels. It is injected
// configuration, not hardcoded branching.
type SectorMap struct {
	Buckets []SectorBucket `yaml:"buckets"`
}

// LoadSectorMap reads a bucket list from a YAML file.
func LoadSectorMap(path string) (*SectorMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sector map: %w", err)
	}
	var m SectorMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse sector map: %w", err)
	}
	sort.Slice(m.Buckets, func(i, j int) bool { return m.Buckets[i].From < m.Buckets[j].From })
	return &m, nil
}

// Lookup returns the sector for a SIC code, or UnclassifiedSector.
func (m *SectorMap) Lookup(sic int) string {
	for _, b := range m.Buckets {
		if sic >= b.From && sic <= b.To {
			return b.Sector
		}
	}
	return UnclassifiedSector
}

// DefaultSectorMap is a coarse division-level SIC bucketing, usable when
// no mapping file is configured.
func DefaultSectorMap() *SectorMap {
	return &SectorMap{Buckets: []SectorBucket{
		{From: 100, To: 999, Sector: "Agriculture"},
		{From: 1000, To: 1499, Sector: "Mining"},
		{From: 1500, To: 1799, Sector: "Construction"},
		{From: 2000, To: 3999, Sector: "Manufacturing"},
		{From: 4000, To: 4999, Sector: "Transportation"},
		{From: 5000, To: 5199, Sector: "Wholesale"},
		{From: 5200, To: 5999, Sector: "Retail"},
		{From: 6000, To: 6799, Sector: "Finance"},
		{From: 7000, To: 8999, Sector: "Services"},
		{From: 9100, To: 9999, Sector: "PublicAdmin"},
	}}
}
