package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"FragilityLab/internal/model"
)

// CSVSource reads a fundamentals panel from a CSV export, one row per
// firm-year. Required columns: firm_id, fiscal_year, log_growth. A sector
// column is used directly; otherwise a sic column is resolved through the
// injected SectorMap. Optional columns: profitability, leverage,
// valuation, next_year_return, market_cap.
type CSVSource struct {
	Path    string
	Sectors *SectorMap
}

// NewCSVSource creates a CSVSource; a nil sector map falls back to the
// default SIC bucketing.
func NewCSVSource(path string, sectors *SectorMap) *CSVSource {
	if sectors == nil {
		sectors = DefaultSectorMap()
	}
	return &CSVSource{Path: path, Sectors: sectors}
}

func (s *CSVSource) Name() string { return "csv:" + s.Path }

func (s *CSVSource) FetchPanel(fromYear, toYear int) ([]model.FirmYearRecord, error) {
	rows, idx, err := s.read()
	if err != nil {
		return nil, err
	}

	var records []model.FirmYearRecord
	for i, row := range rows {
		fy, err := strconv.Atoi(row[idx["fiscal_year"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: fiscal_year: %w", i+2, err)
		}
		if fy < fromYear || fy > toYear {
			continue
		}

		rec := model.FirmYearRecord{
			FirmID:     row[idx["firm_id"]],
			FiscalYear: fy,
		}
		if rec.LogGrowth, err = parseFloat(row, idx, "log_growth", i); err != nil {
			return nil, err
		}
		rec.Profitability, _ = parseFloat(row, idx, "profitability", i)
		rec.Leverage, _ = parseFloat(row, idx, "leverage", i)
		rec.Valuation, _ = parseFloat(row, idx, "valuation", i)
		rec.NextYearReturn, _ = parseFloat(row, idx, "next_year_return", i)

		if col, ok := idx["sector"]; ok && row[col] != "" {
			rec.Sector = row[col]
		} else if col, ok := idx["sic"]; ok {
			sic, err := strconv.Atoi(row[col])
			if err != nil {
				return nil, fmt.Errorf("row %d: sic: %w", i+2, err)
			}
			rec.Sector = s.Sectors.Lookup(sic)
		} else {
			return nil, fmt.Errorf("row %d: neither sector nor sic column present", i+2)
		}

		records = append(records, rec)
	}
	return records, nil
}

func (s *CSVSource) FetchFirms() ([]model.Firm, error) {
	rows, idx, err := s.read()
	if err != nil {
		return nil, err
	}

	// Latest fiscal year wins per firm.
	latest := make(map[string]int)
	firms := make(map[string]model.Firm)
	for i, row := range rows {
		fy, err := strconv.Atoi(row[idx["fiscal_year"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: fiscal_year: %w", i+2, err)
		}
		id := row[idx["firm_id"]]
		if prev, ok := latest[id]; ok && prev >= fy {
			continue
		}
		latest[id] = fy

		f := model.Firm{ID: id}
		if col, ok := idx["sector"]; ok && row[col] != "" {
			f.Sector = row[col]
		} else if col, ok := idx["sic"]; ok {
			if sic, err := strconv.Atoi(row[col]); err == nil {
				f.Sector = s.Sectors.Lookup(sic)
			}
		}
		f.MarketCap, _ = parseFloat(row, idx, "market_cap", i)
		f.Valuation, _ = parseFloat(row, idx, "valuation", i)
		f.Profitability, _ = parseFloat(row, idx, "profitability", i)
		f.LatestGrowth, _ = parseFloat(row, idx, "log_growth", i)
		firms[id] = f
	}

	out := make([]model.Firm, 0, len(firms))
	for _, id := range sortedKeys(firms) {
		out = append(out, firms[id])
	}
	return out, nil
}

func (s *CSVSource) read() ([][]string, map[string]int, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open panel csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read panel csv: %w", err)
	}
	if len(all) < 1 {
		return nil, nil, fmt.Errorf("panel csv %s is empty", s.Path)
	}

	idx := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		idx[name] = i
	}
	for _, required := range []string{"firm_id", "fiscal_year", "log_growth"} {
		if _, ok := idx[required]; !ok {
			return nil, nil, fmt.Errorf("panel csv missing column %q", required)
		}
	}
	return all[1:], idx, nil
}

func parseFloat(row []string, idx map[string]int, col string, rowNum int) (float64, error) {
	c, ok := idx[col]
	if !ok || row[c] == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(row[c], 64)
	if err != nil {
		return 0, fmt.Errorf("row %d: %s: %w", rowNum+2, col, err)
	}
	return v, nil
}
