package model

import "time"

// RebalancePolicy controls how portfolio weights evolve during a
// multi-year simulation.
type RebalancePolicy string

const (
	RebalanceNone   RebalancePolicy = "buy_and_hold" // holdings drift with returns
	RebalanceAnnual RebalancePolicy = "annual"       // reset to target weights each year
)

// PathStats summarizes the simulated paths of one run.
type PathStats struct {
	MinDrawdownMean   float64
	MinDrawdownWorst  float64
	TerminalValueMean float64
	TerminalValueStd  float64
}

// SimulationRun is the result of one fragility simulation. Invariant:
// EscapeProbability is in [0,1]. A cancelled run reports the paths that
// finished as a lower-confidence partial estimate.
type SimulationRun struct {
	ID       string
	Strategy string

	Horizon        int
	RequestedPaths int
	CompletedPaths int
	Threshold      float64 // drawdown threshold, e.g. -0.30
	Seed           uint64
	Rebalance      RebalancePolicy

	EscapeProbability float64
	Partial           bool
	Stats             PathStats

	StartedAt  time.Time
	FinishedAt time.Time
}
