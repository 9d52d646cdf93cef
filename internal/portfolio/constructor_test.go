package portfolio

import (
	"errors"
	"math"
	"testing"

	"FragilityLab/internal/model"
)

func testInputs() Inputs {
	return Inputs{
		Firms:           []string{"AAPL", "JPM", "XOM", "JNJ"},
		ExpectedReturns: []float64{0.10, 0.06, 0.04, 0.07},
		Covariance: [][]float64{
			{0.040, 0.006, 0.004, 0.002},
			{0.006, 0.030, 0.005, 0.003},
			{0.004, 0.005, 0.050, 0.001},
			{0.002, 0.003, 0.001, 0.020},
		},
		MarketCaps: []float64{3.0e12, 5.0e11, 4.5e11, 4.0e11},
	}
}

func weightSum(w []float64) float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

func TestMarketCap_ProportionalWeights(t *testing.T) {
	in := testInputs()
	p, err := NewConstructor(1).Construct(model.StrategyMarketCap, in, model.Constraints{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(weightSum(p.Weights)-1) > 1e-9 {
		t.Errorf("weights sum to %.9f", weightSum(p.Weights))
	}
	// Largest cap gets the largest weight.
	if p.Weights[0] <= p.Weights[1] {
		t.Errorf("expected AAPL weight > JPM weight: %v", p.Weights)
	}
	totalCap := 3.0e12 + 5.0e11 + 4.5e11 + 4.0e11
	if math.Abs(p.Weights[0]-3.0e12/totalCap) > 1e-12 {
		t.Errorf("AAPL weight %.6f not proportional to cap", p.Weights[0])
	}
}

func TestMinVariance_ClosedForm(t *testing.T) {
	in := testInputs()
	p, err := NewConstructor(1).Construct(model.StrategyMinVariance, in, model.Constraints{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(weightSum(p.Weights)-1) > 1e-6 {
		t.Errorf("weights sum to %.9f, want 1", weightSum(p.Weights))
	}
	// Minimum variance cannot exceed the variance of any single name.
	for i, row := range in.Covariance {
		if p.Variance > row[i]+1e-9 {
			t.Errorf("portfolio variance %.6f above single-name variance %.6f", p.Variance, row[i])
		}
	}
}

func TestMinVariance_NoShort(t *testing.T) {
	in := testInputs()
	p, err := NewConstructor(1).Construct(model.StrategyMinVariance, in, model.Constraints{NoShort: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(weightSum(p.Weights)-1) > 1e-6 {
		t.Errorf("weights sum to %.9f, want 1", weightSum(p.Weights))
	}
	for i, w := range p.Weights {
		if w < 0 {
			t.Errorf("firm %s has negative weight %.6f under no-short", p.Firms[i], w)
		}
	}
}

func TestModelInformed_TiltsTowardReturn(t *testing.T) {
	in := testInputs()
	mv, err := NewConstructor(1).Construct(model.StrategyMinVariance, in, model.Constraints{NoShort: true})
	if err != nil {
		t.Fatal(err)
	}
	mi, err := NewConstructor(1).Construct(model.StrategyModelInformed, in, model.Constraints{NoShort: true})
	if err != nil {
		t.Fatal(err)
	}
	if mi.ExpectedReturn < mv.ExpectedReturn-1e-6 {
		t.Errorf("model-informed expected return %.6f below min-variance %.6f",
			mi.ExpectedReturn, mv.ExpectedReturn)
	}
}

func TestConstruct_MaxWeightCap(t *testing.T) {
	in := testInputs()
	p, err := NewConstructor(1).Construct(model.StrategyModelInformed, in,
		model.Constraints{NoShort: true, MaxWeight: 0.40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, w := range p.Weights {
		if w > 0.40+1e-6 {
			t.Errorf("firm %s weight %.6f exceeds cap", p.Firms[i], w)
		}
	}
	if math.Abs(weightSum(p.Weights)-1) > 1e-6 {
		t.Errorf("weights sum to %.9f", weightSum(p.Weights))
	}
}

func TestConstruct_InfeasibleCap(t *testing.T) {
	in := testInputs()
	_, err := NewConstructor(1).Construct(model.StrategyMinVariance, in,
		model.Constraints{NoShort: true, MaxWeight: 0.20})
	var ife *InfeasibleError
	if !errors.As(err, &ife) {
		t.Fatalf("expected InfeasibleError for cap 0.20 over 4 names, got %v", err)
	}
}

func TestValidateCovariance(t *testing.T) {
	tests := []struct {
		name    string
		cov     [][]float64
		wantErr bool
	}{
		{"valid", [][]float64{{0.04, 0.01}, {0.01, 0.02}}, false},
		{"asymmetric", [][]float64{{0.04, 0.02}, {0.01, 0.02}}, true},
		{"negative eigenvalue", [][]float64{{1, 2}, {2, 1}}, true},
		{"ragged", [][]float64{{0.04}, {0.01, 0.02}}, true},
		{"empty", nil, true},
	}
	for _, tt := range tests {
		err := ValidateCovariance(tt.cov)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: got err=%v, wantErr=%v", tt.name, err, tt.wantErr)
		}
		if err != nil {
			var ice *InvalidCovarianceError
			if !errors.As(err, &ice) {
				t.Errorf("%s: expected InvalidCovarianceError, got %T", tt.name, err)
			}
		}
	}
}

func TestEstimateCovariance_Shrinkage(t *testing.T) {
	returns := [][]float64{
		{0.10, -0.05, 0.08, 0.02, -0.01},
		{0.04, -0.02, 0.06, 0.01, 0.00},
	}
	sample, err := EstimateCovariance(returns, 0)
	if err != nil {
		t.Fatal(err)
	}
	shrunk, err := EstimateCovariance(returns, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	// Diagonal is preserved, off-diagonal shrinks toward zero.
	if sample[0][0] != shrunk[0][0] {
		t.Error("shrinkage changed the diagonal")
	}
	if math.Abs(shrunk[0][1]) >= math.Abs(sample[0][1]) {
		t.Errorf("off-diagonal not shrunk: %.6f vs %.6f", shrunk[0][1], sample[0][1])
	}
	if math.Abs(shrunk[0][1]-0.5*sample[0][1]) > 1e-12 {
		t.Errorf("expected half the sample covariance, got %.6f", shrunk[0][1])
	}
}

func TestConstruct_SingularCovariance(t *testing.T) {
	in := testInputs()
	// Perfectly correlated pair makes the matrix singular.
	in.Covariance = [][]float64{
		{0.04, 0.04, 0.00, 0.00},
		{0.04, 0.04, 0.00, 0.00},
		{0.00, 0.00, 0.05, 0.00},
		{0.00, 0.00, 0.00, 0.02},
	}
	_, err := NewConstructor(1).Construct(model.StrategyMinVariance, in, model.Constraints{})
	var ife *InfeasibleError
	if !errors.As(err, &ife) {
		t.Fatalf("expected InfeasibleError for singular covariance, got %v", err)
	}
}
