package model

import "time"

// SectorOUParams holds the discretized Ornstein-Uhlenbeck fit for one
// sector's annual log revenue growth. A re-estimation run produces a new
// value; earlier runs are superseded, never mutated.
type SectorOUParams struct {
	Sector string

	// AR(1) form: g_{t+1} = Alpha + Phi*g_t + eps, eps ~ N(0, ResidVar)
	Alpha    float64
	Phi      float64
	ResidVar float64

	// Continuous-time form, valid only when 0 < Phi < 1.
	Kappa float64 // mean-reversion speed, -ln(Phi)
	Mu    float64 // long-run growth, Alpha/(1-Phi)
	Sigma float64 // OU volatility

	// Fit diagnostics.
	R2           float64
	Lag1Autocorr float64
	Obs          int
	WindowStart  int // first fiscal year in the estimation window
	WindowEnd    int // last fiscal year in the estimation window

	// Unstable marks a fit whose Phi fell outside (0,1); the AR(1) fields
	// are still populated but the OU mapping is inapplicable.
	Unstable bool

	EstimatedAt time.Time
}
