package loader

import "FragilityLab/internal/model"

// Source supplies cleaned firm-year fundamentals. Implementations must
// return at most one record per (firm, fiscal year).
type Source interface {
	FetchPanel(fromYear, toYear int) ([]model.FirmYearRecord, error)
	FetchFirms() ([]model.Firm, error)
	Name() string
}
