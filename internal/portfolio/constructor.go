package portfolio

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"FragilityLab/internal/model"
)

// Inputs collects everything the constructor needs over a fixed firm
// universe at a point in time. All slices are aligned with Firms.
type Inputs struct {
	Firms           []string
	ExpectedReturns []float64
	Covariance      [][]float64
	MarketCaps      []float64 // used by the market-cap benchmark only
}

// Constructor builds portfolio weight vectors under the named strategies.
type Constructor struct {
	RiskAversion float64 // lambda in the model-informed objective
}

// NewConstructor returns a Constructor; non-positive risk aversion falls
// back to 1.
func NewConstructor(riskAversion float64) *Constructor {
	if riskAversion <= 0 {
		riskAversion = 1
	}
	return &Constructor{RiskAversion: riskAversion}
}

// Construct validates the inputs and dispatches on the strategy name.
func (c *Constructor) Construct(strategy string, in Inputs, cons model.Constraints) (*model.PortfolioStrategy, error) {
	n := len(in.Firms)
	if n == 0 {
		return nil, &InfeasibleError{Strategy: strategy, Reason: "empty firm universe"}
	}
	if strategy != model.StrategyMarketCap {
		if len(in.ExpectedReturns) != n {
			return nil, fmt.Errorf("expected returns length %d, want %d", len(in.ExpectedReturns), n)
		}
		if err := ValidateCovariance(in.Covariance); err != nil {
			return nil, err
		}
		if len(in.Covariance) != n {
			return nil, &InvalidCovarianceError{Reason: fmt.Sprintf("size %d does not match %d firms", len(in.Covariance), n)}
		}
	}
	if cons.NoShort && cons.MaxWeight > 0 && cons.MaxWeight*float64(n) < 1 {
		return nil, &InfeasibleError{Strategy: strategy,
			Reason: fmt.Sprintf("cap %.3f over %d names cannot reach full investment", cons.MaxWeight, n)}
	}

	var weights []float64
	var err error
	switch strategy {
	case model.StrategyMarketCap:
		weights, err = marketCapWeights(in)
	case model.StrategyMinVariance:
		weights, err = c.minVarianceWeights(in, cons)
	case model.StrategyModelInformed:
		weights, err = c.modelInformedWeights(in, cons)
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
	if err != nil {
		return nil, err
	}

	p := &model.PortfolioStrategy{
		Name:        strategy,
		Firms:       append([]string(nil), in.Firms...),
		Weights:     weights,
		Constraints: cons,
		BuiltAt:     time.Now(),
	}
	if strategy != model.StrategyMarketCap {
		p.ExpectedReturn = dot(in.ExpectedReturns, weights)
		p.Variance = quadForm(in.Covariance, weights)
	}
	return p, nil
}

// marketCapWeights returns weights proportional to market capitalization.
func marketCapWeights(in Inputs) ([]float64, error) {
	if len(in.MarketCaps) != len(in.Firms) {
		return nil, fmt.Errorf("market caps length %d, want %d", len(in.MarketCaps), len(in.Firms))
	}
	total := 0.0
	for i, cap := range in.MarketCaps {
		if cap < 0 {
			return nil, fmt.Errorf("firm %s has negative market cap", in.Firms[i])
		}
		total += cap
	}
	if total == 0 {
		return nil, &InfeasibleError{Strategy: model.StrategyMarketCap, Reason: "zero total market cap"}
	}
	weights := make([]float64, len(in.MarketCaps))
	for i, cap := range in.MarketCaps {
		weights[i] = cap / total
	}
	return weights, nil
}

// minVarianceWeights minimizes w'Sigma w subject to full investment.
// Without a no-short constraint the closed form Sigma^-1 1 / (1' Sigma^-1 1)
// applies; with bounds the penalty-method optimizer takes over.
func (c *Constructor) minVarianceWeights(in Inputs, cons model.Constraints) ([]float64, error) {
	if !cons.NoShort && cons.MaxWeight == 0 {
		return closedFormMinVariance(in.Covariance)
	}
	obj := func(w []float64) float64 { return quadForm(in.Covariance, w) }
	grad := func(grad, w []float64) {
		n := len(w)
		for i := 0; i < n; i++ {
			grad[i] = 0
			for j := 0; j < n; j++ {
				grad[i] += 2 * in.Covariance[i][j] * w[j]
			}
		}
	}
	return solveConstrained(model.StrategyMinVariance, len(in.Firms), cons, obj, grad)
}

// modelInformedWeights maximizes mu'w - lambda * w'Sigma w, the
// risk-adjusted objective using the predictor's expected returns.
func (c *Constructor) modelInformedWeights(in Inputs, cons model.Constraints) ([]float64, error) {
	lambda := c.RiskAversion
	obj := func(w []float64) float64 {
		return -(dot(in.ExpectedReturns, w) - lambda*quadForm(in.Covariance, w))
	}
	grad := func(grad, w []float64) {
		n := len(w)
		for i := 0; i < n; i++ {
			grad[i] = -in.ExpectedReturns[i]
			for j := 0; j < n; j++ {
				grad[i] += 2 * lambda * in.Covariance[i][j] * w[j]
			}
		}
	}
	return solveConstrained(model.StrategyModelInformed, len(in.Firms), cons, obj, grad)
}

// closedFormMinVariance solves Sigma x = 1 by Cholesky and normalizes.
func closedFormMinVariance(cov [][]float64) ([]float64, error) {
	n := len(cov)
	var chol mat.Cholesky
	if ok := chol.Factorize(toSym(cov)); !ok {
		return nil, &InfeasibleError{Strategy: model.StrategyMinVariance, Reason: "covariance is singular"}
	}
	ones := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		ones.SetVec(i, 1)
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, ones); err != nil {
		return nil, &InfeasibleError{Strategy: model.StrategyMinVariance, Reason: err.Error()}
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += x.AtVec(i)
	}
	if sum == 0 {
		return nil, &InfeasibleError{Strategy: model.StrategyMinVariance, Reason: "degenerate solution"}
	}
	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[i] = x.AtVec(i) / sum
	}
	return weights, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func quadForm(cov [][]float64, w []float64) float64 {
	var v float64
	for i := range w {
		for j := range w {
			v += w[i] * w[j] * cov[i][j]
		}
	}
	return v
}
