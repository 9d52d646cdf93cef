package recorder

import "FragilityLab/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSectorParams(_ *model.SectorOUParams) error { return nil }
func (n *NoopRecorder) RecordReturnModel(_ *model.ReturnModel) error     { return nil }
func (n *NoopRecorder) RecordPortfolio(_ *model.PortfolioStrategy) error { return nil }
func (n *NoopRecorder) RecordSimulation(_ *model.SimulationRun) error    { return nil }
func (n *NoopRecorder) Close() error                                     { return nil }
