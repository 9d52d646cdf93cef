package predictor

import (
	"errors"
	"math"
	"testing"

	"FragilityLab/internal/model"
)

// Four sectors with generic parameter values keep the sector-level
// features linearly independent of the intercept.
func sectorParams() map[string]*model.SectorOUParams {
	return map[string]*model.SectorOUParams{
		"Technology":  {Sector: "Technology", Mu: 0.08, Kappa: 0.51, Sigma: 0.05},
		"Energy":      {Sector: "Energy", Mu: 0.02, Kappa: 0.92, Sigma: 0.08},
		"Finance":     {Sector: "Finance", Mu: 0.05, Kappa: 0.30, Sigma: 0.03},
		"Health":      {Sector: "Health", Mu: 0.07, Kappa: 0.65, Sigma: 0.04},
		"Industrials": {Sector: "Industrials", Mu: 0.04, Kappa: 0.44, Sigma: 0.07},
	}
}

// syntheticPanel builds rows whose next-year return is an exact linear
// function of the features, so least squares must recover the fit.
func syntheticPanel(beta [model.ReturnModelCoeffs]float64, params map[string]*model.SectorOUParams, years int) []model.FirmYearRecord {
	sectors := []string{"Technology", "Energy", "Finance", "Health", "Industrials"}
	var records []model.FirmYearRecord
	for fy := 0; fy < years; fy++ {
		for i, sector := range sectors {
			sp := params[sector]
			for f := 0; f < 3; f++ {
				val := 1.5 + 0.5*float64(f) + 0.1*float64(fy) + 0.2*float64(i)
				prof := 0.05 + 0.03*float64(f) + 0.01*float64(i)
				ret := beta[0] + beta[1]*val + beta[2]*prof + beta[3]*sp.Mu + beta[4]*sp.Kappa + beta[5]*sp.Sigma
				records = append(records, model.FirmYearRecord{
					FirmID:         sector[:1] + string(rune('A'+f)),
					Sector:         sector,
					FiscalYear:     2010 + fy,
					Valuation:      val,
					Profitability:  prof,
					NextYearReturn: ret,
				})
			}
		}
	}
	return records
}

func TestFit_RecoversLinearModel(t *testing.T) {
	beta := [model.ReturnModelCoeffs]float64{0.02, 0.01, 0.5, 0.8, -0.05, -0.3}
	params := sectorParams()
	records := syntheticPanel(beta, params, 8)

	m, err := New(0).Fit(records, params, 2010, 2017)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range records[:15] {
		sp := params[r.Sector]
		got := m.Predict(r.Valuation, r.Profitability, sp.Mu, sp.Kappa, sp.Sigma)
		if math.Abs(got-r.NextYearReturn) > 1e-6 {
			t.Errorf("firm %s: predicted %.8f, want %.8f", r.FirmID, got, r.NextYearReturn)
		}
	}
	if m.TrainR2 < 0.999 {
		t.Errorf("expected near-perfect train R2, got %.4f", m.TrainR2)
	}
	if m.TrainRMSE > 1e-6 {
		t.Errorf("expected near-zero train RMSE, got %.8f", m.TrainRMSE)
	}
}

func TestFit_EmptyPanel(t *testing.T) {
	params := sectorParams()
	records := syntheticPanel([model.ReturnModelCoeffs]float64{}, params, 4)

	// Window with no rows at all.
	_, err := New(0).Fit(records, params, 1990, 1995)
	var epe *EmptyPanelError
	if !errors.As(err, &epe) {
		t.Fatalf("expected EmptyPanelError, got %v", err)
	}
	if epe.FromYear != 1990 || epe.ToYear != 1995 {
		t.Errorf("error window wrong: %+v", epe)
	}

	// Rows exist but no sector has parameters.
	_, err = New(0).Fit(records, map[string]*model.SectorOUParams{}, 2010, 2013)
	if !errors.As(err, &epe) {
		t.Fatalf("expected EmptyPanelError for unmatched sectors, got %v", err)
	}
}

func TestFit_SkipsUnstableSectors(t *testing.T) {
	beta := [model.ReturnModelCoeffs]float64{0.02, 0.01, 0.5, 0.8, -0.05, -0.3}
	params := sectorParams()
	params["Industrials"].Unstable = true
	records := syntheticPanel(beta, params, 8)

	m, err := New(0).Fit(records, params, 2010, 2017)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One of five sectors is unstable and its rows must be dropped.
	if m.TrainObs != len(records)*4/5 {
		t.Errorf("expected %d train rows, got %d", len(records)*4/5, m.TrainObs)
	}
}

func TestEvaluate_HeldOutWindow(t *testing.T) {
	beta := [model.ReturnModelCoeffs]float64{0.02, 0.01, 0.5, 0.8, -0.05, -0.3}
	params := sectorParams()
	records := syntheticPanel(beta, params, 10)

	p := New(0)
	m, err := p.Fit(records, params, 2010, 2016)
	if err != nil {
		t.Fatal(err)
	}
	scored, err := p.Evaluate(m, records, params, 2017, 2019)
	if err != nil {
		t.Fatal(err)
	}
	if scored.ValidationObs == 0 {
		t.Fatal("no validation rows scored")
	}
	if scored.ValidationRMSE > 1e-6 {
		t.Errorf("noise-free panel should validate exactly, RMSE=%.8f", scored.ValidationRMSE)
	}
	// Original model must stay untouched.
	if m.ValidationObs != 0 {
		t.Error("Evaluate mutated the input model")
	}
}

func TestFit_RidgeShrinksCoefficients(t *testing.T) {
	beta := [model.ReturnModelCoeffs]float64{0.02, 0.01, 0.5, 0.8, -0.05, -0.3}
	params := sectorParams()
	records := syntheticPanel(beta, params, 8)

	ols, err := New(0).Fit(records, params, 2010, 2017)
	if err != nil {
		t.Fatal(err)
	}
	ridge, err := New(10).Fit(records, params, 2010, 2017)
	if err != nil {
		t.Fatal(err)
	}

	var olsNorm, ridgeNorm float64
	for j := 1; j < model.ReturnModelCoeffs; j++ {
		olsNorm += ols.Coeffs[j] * ols.Coeffs[j]
		ridgeNorm += ridge.Coeffs[j] * ridge.Coeffs[j]
	}
	if ridgeNorm >= olsNorm {
		t.Errorf("ridge norm %.6f not smaller than OLS norm %.6f", ridgeNorm, olsNorm)
	}
}
