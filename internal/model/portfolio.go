package model

import "time"

// Strategy names accepted by the portfolio constructor.
const (
	StrategyMarketCap     = "market_cap"
	StrategyMinVariance   = "min_variance"
	StrategyModelInformed = "model_informed"
)

// Constraints bound the weight vector produced by the optimizer.
type Constraints struct {
	NoShort   bool    // w_i >= 0 for all i
	MaxWeight float64 // cap per name, 0 means uncapped
}

// PortfolioStrategy is an immutable weight vector over a fixed firm
// universe at a point in time.
type PortfolioStrategy struct {
	Name        string
	Firms       []string
	Weights     []float64
	Constraints Constraints

	ExpectedReturn float64
	Variance       float64

	BuiltAt time.Time
}

// Weight returns the weight for a firm ID, 0 if absent.
func (p *PortfolioStrategy) Weight(firmID string) float64 {
	for i, f := range p.Firms {
		if f == firmID {
			return p.Weights[i]
		}
	}
	return 0
}
