package estimator

import (
	"errors"

	"gonum.org/v1/gonum/stat"
)

// ar1Fit holds the OLS fit of g_{t+1} = alpha + phi*g_t + eps.
type ar1Fit struct {
	Alpha    float64
	Phi      float64
	ResidVar float64
	R2       float64
	Pairs    int
}

// fitAR1 regresses the series on its own lag using ordinary least squares.
// The caller guarantees len(growth) >= 2.
func fitAR1(growth []float64) (ar1Fit, error) {
	n := len(growth) - 1
	lagged := growth[:n]
	next := growth[1:]

	phi, alpha := slope(lagged, next)
	if phi != phi || alpha != alpha { // NaN guard for degenerate series
		return ar1Fit{}, errors.New("degenerate growth series, zero lag variance")
	}

	// Residual variance with ddof=2 (two fitted parameters).
	var rss, tss float64
	mean := stat.Mean(next, nil)
	for i := 0; i < n; i++ {
		r := next[i] - (alpha + phi*lagged[i])
		rss += r * r
		d := next[i] - mean
		tss += d * d
	}

	fit := ar1Fit{Alpha: alpha, Phi: phi, Pairs: n}
	if n > 2 {
		fit.ResidVar = rss / float64(n-2)
	}
	if tss > 0 {
		fit.R2 = 1 - rss/tss
	}
	return fit, nil
}

// slope returns the OLS slope and intercept of y on x. gonum's
// stat.LinearRegression, split out so the NaN guard reads cleanly.
func slope(x, y []float64) (beta, alpha float64) {
	alpha, beta = stat.LinearRegression(x, y, nil, false)
	return beta, alpha
}

// lag1Autocorr is the sample lag-1 autocorrelation, reported as a fit
// diagnostic alongside phi.
func lag1Autocorr(series []float64) float64 {
	n := len(series)
	if n < 2 {
		return 0
	}
	mean := stat.Mean(series, nil)
	var num, den float64
	for i := 0; i < n; i++ {
		d := series[i] - mean
		den += d * d
		if i > 0 {
			num += d * (series[i-1] - mean)
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}
