package estimator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"FragilityLab/internal/model"
)

// DefaultMinObservations is the shortest growth series the estimator will
// accept, in fiscal years.
const DefaultMinObservations = 8

// Estimator fits per-sector AR(1) models and maps them to continuous-time
// OU parameters. It carries no mutable state between calls.
type Estimator struct {
	MinObservations int
}

// New returns an Estimator with the given minimum observation count;
// values below 3 fall back to the default.
func New(minObs int) *Estimator {
	if minObs < 3 {
		minObs = DefaultMinObservations
	}
	return &Estimator{MinObservations: minObs}
}

// Estimate fits the sector's annual log growth series. The series must be
// ordered by fiscal year. On a phi outside (0,1) the returned params carry
// the raw AR(1) fit with Unstable set, alongside an *UnstableSectorError.
func (e *Estimator) Estimate(sector string, growth []float64) (*model.SectorOUParams, error) {
	if len(growth) < e.MinObservations {
		return nil, &InsufficientDataError{Sector: sector, Have: len(growth), Need: e.MinObservations}
	}

	fit, err := fitAR1(growth)
	if err != nil {
		return nil, fmt.Errorf("sector %q: %w", sector, err)
	}

	p := &model.SectorOUParams{
		Sector:       sector,
		Alpha:        fit.Alpha,
		Phi:          fit.Phi,
		ResidVar:     fit.ResidVar,
		R2:           fit.R2,
		Lag1Autocorr: lag1Autocorr(growth),
		Obs:          len(growth),
		EstimatedAt:  time.Now(),
	}

	if fit.Phi <= 0 || fit.Phi >= 1 {
		p.Unstable = true
		return p, &UnstableSectorError{Sector: sector, Phi: fit.Phi}
	}

	// Discretized OU mapping with dt = 1 year:
	//   kappa = -ln(phi), mu = alpha/(1-phi), sigma^2 = 2*kappa*residvar/(1-phi^2)
	p.Kappa = -math.Log(fit.Phi)
	p.Mu = fit.Alpha / (1 - fit.Phi)
	p.Sigma = math.Sqrt(2 * p.Kappa * fit.ResidVar / (1 - fit.Phi*fit.Phi))

	return p, nil
}

// EstimateRecords groups the records by sector, builds each sector's
// ordered growth series and fits it. Gaps in a firm's series are not
// interpolated: the sector series is the per-year mean of log growth over
// the firms that reported that year. Unstable sectors are returned in the
// result map flagged; hard failures go into errs keyed by sector.
func (e *Estimator) EstimateRecords(records []model.FirmYearRecord) (map[string]*model.SectorOUParams, map[string]error) {
	type yearAgg struct {
		sum float64
		n   int
	}
	bySector := make(map[string]map[int]*yearAgg)
	for _, r := range records {
		years := bySector[r.Sector]
		if years == nil {
			years = make(map[int]*yearAgg)
			bySector[r.Sector] = years
		}
		a := years[r.FiscalYear]
		if a == nil {
			a = &yearAgg{}
			years[r.FiscalYear] = a
		}
		a.sum += r.LogGrowth
		a.n++
	}

	params := make(map[string]*model.SectorOUParams)
	errs := make(map[string]error)

	for sector, years := range bySector {
		fys := make([]int, 0, len(years))
		for fy := range years {
			fys = append(fys, fy)
		}
		sort.Ints(fys)

		series := make([]float64, len(fys))
		for i, fy := range fys {
			a := years[fy]
			series[i] = a.sum / float64(a.n)
		}

		p, err := e.Estimate(sector, series)
		if p != nil {
			p.WindowStart = fys[0]
			p.WindowEnd = fys[len(fys)-1]
			params[sector] = p
		}
		if err != nil {
			errs[sector] = err
		}
	}
	return params, errs
}
