package loader

import (
	"golang.org/x/exp/rand"

	"FragilityLab/internal/model"
)

// MockSource generates a synthetic fundamentals panel for development and
// testing. Each sector's growth follows a fixed AR(1) recursion so the
// estimator recovers known parameters.
type MockSource struct {
	Seed    uint64
	Sectors map[string]MockSector
	Firms   int // firms per sector
}

// MockSector parameterizes one synthetic sector.
type MockSector struct {
	Alpha float64
	Phi   float64
	Noise float64 // residual std dev
}

func (m *MockSource) Name() string { return "mock" }

// DefaultMockSource covers three sectors with distinct persistence.
func DefaultMockSource(seed uint64) *MockSource {
	return &MockSource{
		Seed:  seed,
		Firms: 5,
		Sectors: map[string]MockSector{
			"Technology":  {Alpha: 0.032, Phi: 0.60, Noise: 0.04},
			"Industrials": {Alpha: 0.015, Phi: 0.75, Noise: 0.03},
			"Energy":      {Alpha: 0.010, Phi: 0.40, Noise: 0.06},
		},
	}
}

func (m *MockSource) FetchPanel(fromYear, toYear int) ([]model.FirmYearRecord, error) {
	rng := rand.New(rand.NewSource(m.Seed))
	var records []model.FirmYearRecord

	for _, sector := range sortedSectorNames(m.Sectors) {
		spec := m.Sectors[sector]
		for f := 0; f < m.Firms; f++ {
			id := mockFirmID(sector, f)
			g := spec.Alpha / (1 - spec.Phi) // start at the long-run mean
			for fy := fromYear; fy <= toYear; fy++ {
				g = spec.Alpha + spec.Phi*g + spec.Noise*rng.NormFloat64()
				records = append(records, model.FirmYearRecord{
					FirmID:         id,
					Sector:         sector,
					FiscalYear:     fy,
					LogGrowth:      g,
					Profitability:  0.10 + 0.02*rng.NormFloat64(),
					Leverage:       0.30 + 0.05*rng.NormFloat64(),
					Valuation:      2.0 + 0.5*rng.NormFloat64(),
					NextYearReturn: 0.06 + 0.5*g + 0.15*rng.NormFloat64(),
				})
			}
		}
	}
	return records, nil
}

func (m *MockSource) FetchFirms() ([]model.Firm, error) {
	rng := rand.New(rand.NewSource(m.Seed + 1))
	var firms []model.Firm
	for _, sector := range sortedSectorNames(m.Sectors) {
		for f := 0; f < m.Firms; f++ {
			firms = append(firms, model.Firm{
				ID:            mockFirmID(sector, f),
				Sector:        sector,
				MarketCap:     1e9 * (1 + 9*rng.Float64()),
				Valuation:     2.0,
				Profitability: 0.10,
				LatestGrowth:  m.Sectors[sector].Alpha / (1 - m.Sectors[sector].Phi),
			})
		}
	}
	return firms, nil
}

func mockFirmID(sector string, i int) string {
	return sector[:3] + string(rune('A'+i))
}
