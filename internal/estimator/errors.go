package estimator

import "fmt"

// InsufficientDataError reports a sector whose growth series is too short
// to fit an AR(1) model.
type InsufficientDataError struct {
	Sector string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("sector %q: %d observations, need at least %d", e.Sector, e.Have, e.Need)
}

// UnstableSectorError flags a fit whose persistence fell outside (0,1).
// It is a labeled result, not a hard failure: the AR(1) fit is attached so
// callers can still inspect it.
type UnstableSectorError struct {
	Sector string
	Phi    float64
}

func (e *UnstableSectorError) Error() string {
	return fmt.Sprintf("sector %q: phi=%.4f outside (0,1), OU mapping inapplicable", e.Sector, e.Phi)
}
