package portfolio

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	symmetryTol = 1e-9
	psdTol      = -1e-10
)

// ValidateCovariance checks that cov is square, symmetric and positive
// semi-definite within tolerance.
func ValidateCovariance(cov [][]float64) error {
	n := len(cov)
	if n == 0 {
		return &InvalidCovarianceError{Reason: "empty matrix"}
	}
	for i := range cov {
		if len(cov[i]) != n {
			return &InvalidCovarianceError{Reason: fmt.Sprintf("row %d has %d columns, expected %d", i, len(cov[i]), n)}
		}
	}

	scale := 0.0
	for i := 0; i < n; i++ {
		scale = math.Max(scale, math.Abs(cov[i][i]))
	}
	if scale == 0 {
		scale = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.Abs(cov[i][j]-cov[j][i]) > symmetryTol*scale {
				return &InvalidCovarianceError{Reason: fmt.Sprintf("asymmetric at (%d,%d)", i, j)}
			}
		}
	}

	sym := toSym(cov)
	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		return &InvalidCovarianceError{Reason: "eigendecomposition failed"}
	}
	values := eig.Values(nil)
	for _, v := range values {
		if v < psdTol*scale {
			return &InvalidCovarianceError{Reason: fmt.Sprintf("negative eigenvalue %.3e", v)}
		}
	}
	return nil
}

// EstimateCovariance computes a sample covariance over aligned per-firm
// return series and shrinks it toward its diagonal. shrink=0 is the plain
// sample estimate, shrink=1 the diagonal-only target.
func EstimateCovariance(returns [][]float64, shrink float64) ([][]float64, error) {
	n := len(returns)
	if n == 0 {
		return nil, fmt.Errorf("no return series provided")
	}
	obs := len(returns[0])
	for i, series := range returns {
		if len(series) != obs {
			return nil, fmt.Errorf("series %d has %d observations, expected %d", i, len(series), obs)
		}
	}
	if obs < 2 {
		return nil, fmt.Errorf("need at least 2 observations per series, got %d", obs)
	}
	if shrink < 0 || shrink > 1 {
		return nil, fmt.Errorf("shrinkage %.2f outside [0,1]", shrink)
	}

	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
		for j := 0; j <= i; j++ {
			c := stat.Covariance(returns[i], returns[j], nil)
			if i != j {
				c *= 1 - shrink
			}
			cov[i][j] = c
			cov[j][i] = c
		}
	}
	return cov, nil
}

func toSym(cov [][]float64) *mat.SymDense {
	n := len(cov)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			// Average out any sub-tolerance asymmetry.
			sym.SetSym(i, j, 0.5*(cov[i][j]+cov[j][i]))
		}
	}
	return sym
}
