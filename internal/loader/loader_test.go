package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"FragilityLab/internal/model"
)

type stubSource struct {
	records []model.FirmYearRecord
}

func (s *stubSource) FetchPanel(_, _ int) ([]model.FirmYearRecord, error) { return s.records, nil }
func (s *stubSource) FetchFirms() ([]model.Firm, error)                   { return nil, nil }
func (s *stubSource) Name() string                                        { return "stub" }

func TestLoad_RejectsDuplicates(t *testing.T) {
	src := &stubSource{records: []model.FirmYearRecord{
		{FirmID: "AAPL", FiscalYear: 2020},
		{FirmID: "AAPL", FiscalYear: 2020},
	}}
	_, err := NewLoader(src).Load(2019, 2021)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestLoad_SortsByFirmThenYear(t *testing.T) {
	src := &stubSource{records: []model.FirmYearRecord{
		{FirmID: "MSFT", FiscalYear: 2021},
		{FirmID: "AAPL", FiscalYear: 2021},
		{FirmID: "AAPL", FiscalYear: 2020},
	}}
	records, err := NewLoader(src).Load(2019, 2022)
	if err != nil {
		t.Fatal(err)
	}
	if records[0].FirmID != "AAPL" || records[0].FiscalYear != 2020 {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[2].FirmID != "MSFT" {
		t.Errorf("unexpected last record: %+v", records[2])
	}
}

func TestSectorMap_Lookup(t *testing.T) {
	m := DefaultSectorMap()
	tests := []struct {
		sic  int
		want string
	}{
		{3571, "Manufacturing"},
		{6022, "Finance"},
		{7372, "Services"},
		{50, UnclassifiedSector},
	}
	for _, tt := range tests {
		if got := m.Lookup(tt.sic); got != tt.want {
			t.Errorf("sic %d: expected %s, got %s", tt.sic, tt.want, got)
		}
	}
}

func TestCSVSource_PanelAndFirms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "panel.csv")
	csvData := "firm_id,sic,fiscal_year,log_growth,profitability,valuation,next_year_return,market_cap\n" +
		"AAPL,3571,2020,0.08,0.21,6.5,0.12,2.0e12\n" +
		"AAPL,3571,2021,0.10,0.23,7.0,0.05,2.4e12\n" +
		"JPM,6022,2021,0.03,0.30,3.1,0.08,4.0e11\n"
	if err := os.WriteFile(path, []byte(csvData), 0644); err != nil {
		t.Fatal(err)
	}

	src := NewCSVSource(path, nil)
	records, err := src.FetchPanel(2020, 2021)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Sector != "Manufacturing" {
		t.Errorf("sic mapping failed: %s", records[0].Sector)
	}

	firms, err := src.FetchFirms()
	if err != nil {
		t.Fatal(err)
	}
	if len(firms) != 2 {
		t.Fatalf("expected 2 firms, got %d", len(firms))
	}
	for _, f := range firms {
		if f.ID == "AAPL" && f.Valuation != 7.0 {
			t.Errorf("expected latest-year valuation 7.0, got %.1f", f.Valuation)
		}
	}
}

func TestMockSource_Deterministic(t *testing.T) {
	a, _ := DefaultMockSource(42).FetchPanel(2010, 2020)
	b, _ := DefaultMockSource(42).FetchPanel(2010, 2020)
	if len(a) != len(b) {
		t.Fatal("panel sizes differ")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("record %d differs between identically seeded sources", i)
		}
	}
}
