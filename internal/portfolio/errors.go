package portfolio

import "fmt"

// InvalidCovarianceError reports a malformed risk input: wrong shape,
// asymmetry, or a negative eigenvalue beyond tolerance.
type InvalidCovarianceError struct {
	Reason string
}

func (e *InvalidCovarianceError) Error() string {
	return "invalid covariance matrix: " + e.Reason
}

// InfeasibleError reports that no weight vector satisfies the requested
// constraints for the named strategy.
type InfeasibleError struct {
	Strategy string
	Reason   string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("strategy %q infeasible: %s", e.Strategy, e.Reason)
}
