package model

import "time"

// ReturnModelCoeffs is the number of fitted coefficients: intercept,
// valuation, profitability, mu, kappa, sigma.
const ReturnModelCoeffs = 6

// ReturnModel is a fitted panel regression predicting next-year return.
// Immutable once fit; downstream stages read it only.
type ReturnModel struct {
	Coeffs [ReturnModelCoeffs]float64

	Ridge float64 // regularization strength, 0 means plain OLS

	TrainStart int
	TrainEnd   int
	TrainObs   int

	TrainR2   float64
	TrainRMSE float64

	// Held-out diagnostics; zero-valued until Evaluate has run.
	ValidationObs  int
	ValidationR2   float64
	ValidationRMSE float64

	FittedAt time.Time
}

// Predict returns the model's expected next-year return for one firm-year
// joined with its sector parameters.
func (m *ReturnModel) Predict(valuation, profitability, mu, kappa, sigma float64) float64 {
	return m.Coeffs[0] +
		m.Coeffs[1]*valuation +
		m.Coeffs[2]*profitability +
		m.Coeffs[3]*mu +
		m.Coeffs[4]*kappa +
		m.Coeffs[5]*sigma
}
