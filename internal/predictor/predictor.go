package predictor

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"FragilityLab/internal/model"
)

// EmptyPanelError reports a join that produced no usable rows, typically
// because no sector parameters aligned with the requested window.
type EmptyPanelError struct {
	FromYear int
	ToYear   int
}

func (e *EmptyPanelError) Error() string {
	return fmt.Sprintf("no joinable firm-year rows in window %d-%d", e.FromYear, e.ToYear)
}

// Predictor fits the panel regression predicting next-year return from
// firm fundamentals and sector OU parameters. Each Fit call produces a
// fresh immutable ReturnModel; the Predictor itself holds no fit state.
type Predictor struct {
	Ridge float64 // 0 means plain OLS
}

// New returns a Predictor with the given ridge strength.
func New(ridge float64) *Predictor {
	return &Predictor{Ridge: ridge}
}

// Fit joins the records with their sector parameters over [fromYear,
// toYear] and fits beta_0..beta_5 by least squares.
func (p *Predictor) Fit(records []model.FirmYearRecord, params map[string]*model.SectorOUParams, fromYear, toYear int) (*model.ReturnModel, error) {
	X, y := joinPanel(records, params, fromYear, toYear)
	if len(y) == 0 {
		return nil, &EmptyPanelError{FromYear: fromYear, ToYear: toYear}
	}
	if len(y) < model.ReturnModelCoeffs {
		return nil, fmt.Errorf("panel window %d-%d: %d rows cannot identify %d coefficients",
			fromYear, toYear, len(y), model.ReturnModelCoeffs)
	}

	coeffs, err := p.solve(X, y)
	if err != nil {
		return nil, fmt.Errorf("fit panel regression: %w", err)
	}

	m := &model.ReturnModel{
		Coeffs:     coeffs,
		Ridge:      p.Ridge,
		TrainStart: fromYear,
		TrainEnd:   toYear,
		TrainObs:   len(y),
		FittedAt:   time.Now(),
	}
	m.TrainR2, m.TrainRMSE = score(m, X, y)
	return m, nil
}

// Evaluate scores a fitted model on a disjoint validation window and
// records the held-out diagnostics on the returned copy.
func (p *Predictor) Evaluate(m *model.ReturnModel, records []model.FirmYearRecord, params map[string]*model.SectorOUParams, fromYear, toYear int) (*model.ReturnModel, error) {
	X, y := joinPanel(records, params, fromYear, toYear)
	if len(y) == 0 {
		return nil, &EmptyPanelError{FromYear: fromYear, ToYear: toYear}
	}

	out := *m
	out.ValidationObs = len(y)
	out.ValidationR2, out.ValidationRMSE = score(&out, X, y)
	return &out, nil
}

// joinPanel aligns firm-year rows with their sector's OU parameters.
// Rows whose sector has no stable parameters are dropped.
func joinPanel(records []model.FirmYearRecord, params map[string]*model.SectorOUParams, fromYear, toYear int) (X [][model.ReturnModelCoeffs]float64, y []float64) {
	for _, r := range records {
		if r.FiscalYear < fromYear || r.FiscalYear > toYear {
			continue
		}
		sp, ok := params[r.Sector]
		if !ok || sp.Unstable {
			continue
		}
		X = append(X, [model.ReturnModelCoeffs]float64{
			1, r.Valuation, r.Profitability, sp.Mu, sp.Kappa, sp.Sigma,
		})
		y = append(y, r.NextYearReturn)
	}
	return X, y
}

func (p *Predictor) solve(X [][model.ReturnModelCoeffs]float64, y []float64) ([model.ReturnModelCoeffs]float64, error) {
	var coeffs [model.ReturnModelCoeffs]float64
	n := len(y)
	k := model.ReturnModelCoeffs

	A := mat.NewDense(n, k, nil)
	for i, row := range X {
		A.SetRow(i, row[:])
	}
	b := mat.NewVecDense(n, y)

	var sol mat.VecDense
	if p.Ridge == 0 {
		// QR least squares. A Condition error signals a poorly
		// conditioned panel but still carries a usable solution.
		if err := sol.SolveVec(A, b); err != nil {
			if _, ok := err.(mat.Condition); !ok {
				return coeffs, fmt.Errorf("ols solve: %w", err)
			}
		}
	} else {
		// Normal equations with a ridge penalty, intercept excluded.
		var ata mat.Dense
		ata.Mul(A.T(), A)
		for j := 1; j < k; j++ {
			ata.Set(j, j, ata.At(j, j)+p.Ridge)
		}
		var atb mat.VecDense
		atb.MulVec(A.T(), b)
		if err := sol.SolveVec(&ata, &atb); err != nil {
			return coeffs, fmt.Errorf("ridge solve: %w", err)
		}
	}

	for j := 0; j < k; j++ {
		coeffs[j] = sol.AtVec(j)
	}
	return coeffs, nil
}

// score returns R-squared and RMSE of the model over the given rows.
func score(m *model.ReturnModel, X [][model.ReturnModelCoeffs]float64, y []float64) (r2, rmse float64) {
	n := len(y)
	mean := stat.Mean(y, nil)
	var rss, tss float64
	for i, row := range X {
		pred := m.Predict(row[1], row[2], row[3], row[4], row[5])
		d := y[i] - pred
		rss += d * d
		t := y[i] - mean
		tss += t * t
	}
	rmse = math.Sqrt(rss / float64(n))
	if tss > 0 {
		r2 = 1 - rss/tss
	}
	return r2, rmse
}
