package recorder

import "FragilityLab/internal/model"

// Recorder persists pipeline outputs for later analysis. Estimation runs
// append new rows; earlier rows are superseded, never updated.
type Recorder interface {
	RecordSectorParams(p *model.SectorOUParams) error
	RecordReturnModel(m *model.ReturnModel) error
	RecordPortfolio(p *model.PortfolioStrategy) error
	RecordSimulation(run *model.SimulationRun) error
	Close() error
}
