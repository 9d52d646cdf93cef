package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/robfig/cron/v3"

	"FragilityLab/internal/config"
	"FragilityLab/internal/estimator"
	"FragilityLab/internal/loader"
	"FragilityLab/internal/model"
	"FragilityLab/internal/portfolio"
	"FragilityLab/internal/predictor"
	"FragilityLab/internal/recorder"
	"FragilityLab/internal/report"
	"FragilityLab/internal/simulator"
	"FragilityLab/internal/universe"
)

// Scheduler runs the full estimation pipeline on a cron schedule:
// load panel, estimate sector parameters, fit the return model, build the
// three portfolios and simulate each one.
type Scheduler struct {
	Cron        *cron.Cron
	Loader      *loader.Loader
	Universe    *universe.Manager
	Estimator   *estimator.Estimator
	Predictor   *predictor.Predictor
	Constructor *portfolio.Constructor
	Simulator   *simulator.Simulator
	Recorder    recorder.Recorder
	Cfg         *config.Config
	Ctx         context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, cfg *config.Config, ld *loader.Loader, um *universe.Manager, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Loader:      ld,
		Universe:    um,
		Estimator:   estimator.New(cfg.Estimation.MinObservations),
		Predictor:   predictor.New(cfg.Regression.Ridge),
		Constructor: portfolio.NewConstructor(cfg.Portfolio.RiskAversion),
		Simulator:   simulator.New(cfg.Simulation.Workers),
		Recorder:    rec,
		Cfg:         cfg,
		Ctx:         ctx,
	}
}

// Register registers the pipeline cron task.
func (s *Scheduler) Register(pipelineCron string) error {
	if _, err := s.Cron.AddFunc(pipelineCron, s.pipelineTask); err != nil {
		return fmt.Errorf("register pipeline task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the pipeline immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.pipelineTask()
}

func (s *Scheduler) pipelineTask() {
	log.Println("[INFO] running pipeline")
	if err := s.runPipeline(s.Ctx); err != nil {
		log.Printf("[ERROR] pipeline: %v", err)
	}
}

func (s *Scheduler) runPipeline(ctx context.Context) error {
	cfg := s.Cfg

	// Load and validate the panel.
	records, err := s.Loader.Load(cfg.Data.FromYear, cfg.Data.ToYear)
	if err != nil {
		return fmt.Errorf("load panel: %w", err)
	}
	log.Printf("[INFO] loaded %d firm-year records (%d-%d)", len(records), cfg.Data.FromYear, cfg.Data.ToYear)

	// Refresh the firm universe.
	firms, err := s.Loader.Source.FetchFirms()
	if err != nil {
		return fmt.Errorf("fetch firms: %w", err)
	}
	if err := s.Universe.Sync(firms); err != nil {
		return fmt.Errorf("sync universe: %w", err)
	}
	log.Printf("[INFO] universe synced: %d firms", s.Universe.Size())

	// Sector OU estimation.
	params, estErrs := s.Estimator.EstimateRecords(records)
	for sector, err := range estErrs {
		var unstable *estimator.UnstableSectorError
		if errors.As(err, &unstable) {
			log.Printf("[WARN] sector %s: phi=%.4f outside (0,1), excluded from OU mapping", sector, unstable.Phi)
		} else {
			log.Printf("[WARN] sector %s: %v", sector, err)
		}
	}
	if len(params) == 0 {
		return fmt.Errorf("no sector produced usable parameters")
	}
	log.Printf("[INFO] estimated %d sectors\n%s", len(params), report.FormatSectorParams(params))
	for _, p := range params {
		if err := s.Recorder.RecordSectorParams(p); err != nil {
			log.Printf("[ERROR] record sector params: %v", err)
		}
	}

	// Return model fit plus held-out evaluation.
	rm, err := s.Predictor.Fit(records, params, cfg.Regression.TrainStart, cfg.Regression.TrainEnd)
	if err != nil {
		return fmt.Errorf("fit return model: %w", err)
	}
	evaluated, err := s.Predictor.Evaluate(rm, records, params, cfg.Regression.ValidationStart, cfg.Regression.ValidationEnd)
	if err != nil {
		var empty *predictor.EmptyPanelError
		if !errors.As(err, &empty) {
			return fmt.Errorf("evaluate return model: %w", err)
		}
		log.Printf("[WARN] validation window %d-%d is empty, skipping held-out evaluation",
			cfg.Regression.ValidationStart, cfg.Regression.ValidationEnd)
	} else {
		rm = evaluated
	}
	log.Printf("[INFO] %s", report.FormatReturnModel(rm))
	if err := s.Recorder.RecordReturnModel(rm); err != nil {
		log.Printf("[ERROR] record return model: %v", err)
	}

	// Investable universe: firms whose sector has a stable fit.
	investable := investableFirms(s.Universe.Firms(), params)
	if len(investable) == 0 {
		return fmt.Errorf("no investable firms after sector filtering")
	}

	in, err := buildInputs(investable, records, params, rm, cfg.Portfolio.Shrinkage,
		cfg.Regression.TrainStart, cfg.Regression.TrainEnd)
	if err != nil {
		return fmt.Errorf("build portfolio inputs: %w", err)
	}

	cons := model.Constraints{NoShort: cfg.Portfolio.NoShort, MaxWeight: cfg.Portfolio.MaxWeight}
	simCfg := simulator.Config{
		Horizon:   cfg.Simulation.Horizon,
		Paths:     cfg.Simulation.Paths,
		Threshold: cfg.Simulation.Threshold,
		Seed:      cfg.Simulation.Seed,
		Workers:   cfg.Simulation.Workers,
		Rebalance: model.RebalancePolicy(cfg.Simulation.Rebalance),
	}

	for _, strategy := range []string{model.StrategyMarketCap, model.StrategyMinVariance, model.StrategyModelInformed} {
		p, err := s.Constructor.Construct(strategy, in, cons)
		if err != nil {
			log.Printf("[ERROR] construct %s: %v", strategy, err)
			continue
		}
		log.Printf("[INFO] %s", report.FormatPortfolio(p))
		if err := s.Recorder.RecordPortfolio(p); err != nil {
			log.Printf("[ERROR] record portfolio %s: %v", strategy, err)
		}

		run, err := s.Simulator.Run(ctx, p, params, rm, investable, simCfg)
		if err != nil {
			log.Printf("[ERROR] simulate %s: %v", strategy, err)
			continue
		}
		log.Printf("[INFO] %s", report.FormatSimulation(run))
		if err := s.Recorder.RecordSimulation(run); err != nil {
			log.Printf("[ERROR] record simulation %s: %v", strategy, err)
		}
	}

	log.Println("[INFO] pipeline finished")
	return nil
}

// investableFirms keeps firms whose sector has stable OU parameters.
func investableFirms(firms []model.Firm, params map[string]*model.SectorOUParams) []model.Firm {
	var out []model.Firm
	for _, f := range firms {
		sp, ok := params[f.Sector]
		if !ok || sp.Unstable {
			continue
		}
		out = append(out, f)
	}
	return out
}

// buildInputs assembles the constructor's inputs: model-expected returns,
// a shrunk covariance estimated from historical firm returns, and market
// caps. Firms without full return history over the window are dropped so
// the covariance series stay aligned.
func buildInputs(firms []model.Firm, records []model.FirmYearRecord, params map[string]*model.SectorOUParams, rm *model.ReturnModel, shrink float64, fromYear, toYear int) (portfolio.Inputs, error) {
	returnsByFirm := make(map[string]map[int]float64)
	for _, r := range records {
		if r.FiscalYear < fromYear || r.FiscalYear > toYear {
			continue
		}
		m := returnsByFirm[r.FirmID]
		if m == nil {
			m = make(map[int]float64)
			returnsByFirm[r.FirmID] = m
		}
		m[r.FiscalYear] = r.NextYearReturn
	}

	years := make([]int, 0, toYear-fromYear+1)
	for fy := fromYear; fy <= toYear; fy++ {
		years = append(years, fy)
	}

	type firmSeries struct {
		firm   model.Firm
		series []float64
	}
	var (
		kept    []firmSeries
		dropped int
	)
	for _, f := range firms {
		byYear := returnsByFirm[f.ID]
		row := make([]float64, 0, len(years))
		complete := true
		for _, fy := range years {
			v, ok := byYear[fy]
			if !ok {
				complete = false
				break
			}
			row = append(row, v)
		}
		if !complete {
			dropped++
			continue
		}
		kept = append(kept, firmSeries{firm: f, series: row})
	}
	if dropped > 0 {
		log.Printf("[WARN] dropped %d firms with incomplete return history %d-%d", dropped, fromYear, toYear)
	}
	if len(kept) == 0 {
		return portfolio.Inputs{}, fmt.Errorf("no firm has a complete return history over %d-%d", fromYear, toYear)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].firm.ID < kept[j].firm.ID })

	in := portfolio.Inputs{
		Firms:           make([]string, len(kept)),
		ExpectedReturns: make([]float64, len(kept)),
		MarketCaps:      make([]float64, len(kept)),
	}
	aligned := make([][]float64, len(kept))
	for i, fs := range kept {
		sp := params[fs.firm.Sector]
		in.Firms[i] = fs.firm.ID
		in.ExpectedReturns[i] = rm.Predict(fs.firm.Valuation, fs.firm.Profitability, sp.Mu, sp.Kappa, sp.Sigma)
		in.MarketCaps[i] = fs.firm.MarketCap
		aligned[i] = fs.series
	}

	cov, err := portfolio.EstimateCovariance(aligned, shrink)
	if err != nil {
		return portfolio.Inputs{}, fmt.Errorf("estimate covariance: %w", err)
	}
	in.Covariance = cov
	return in, nil
}
