package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"FragilityLab/internal/model"
)

// Config controls one fragility simulation run.
type Config struct {
	Horizon   int     // years to simulate
	Paths     int     // Monte Carlo path count
	Threshold float64 // drawdown threshold, e.g. -0.30
	Seed      uint64
	Workers   int // 0 means GOMAXPROCS
	Rebalance model.RebalancePolicy
}

// Validate checks the run configuration.
func (c *Config) Validate() error {
	if c.Horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %d", c.Horizon)
	}
	if c.Paths <= 0 {
		return fmt.Errorf("paths must be positive, got %d", c.Paths)
	}
	if c.Threshold >= 0 {
		return fmt.Errorf("drawdown threshold must be negative, got %.2f", c.Threshold)
	}
	switch c.Rebalance {
	case model.RebalanceNone, model.RebalanceAnnual, "":
	default:
		return fmt.Errorf("unknown rebalance policy %q", c.Rebalance)
	}
	return nil
}

// firmInput is the precomputed per-firm state shared read-only by all
// paths.
type firmInput struct {
	weight   float64
	alpha    float64
	phi      float64
	sigmaEps float64 // residual std dev of the sector AR(1)
	mu       float64 // sector long-run growth
	growth0  float64 // starting growth level
	baseRet  float64 // model-expected next-year return
}

// pathResult is one path's summary. Paths are pure functions of
// (seed, inputs); there is no shared mutable state between them.
type pathResult struct {
	minDrawdown float64
	terminal    float64
	done        bool
}

// Simulator runs the escape-probability Monte Carlo.
type Simulator struct {
	Workers int
}

// New returns a Simulator using the given worker count, 0 for GOMAXPROCS.
func New(workers int) *Simulator {
	return &Simulator{Workers: workers}
}

// Run simulates the strategy forward and estimates the probability that
// the portfolio's drawdown breaches cfg.Threshold within cfg.Horizon
// years. The run is bit-identical for a fixed seed regardless of worker
// count. On cancellation the completed paths form a partial estimate.
func (s *Simulator) Run(ctx context.Context, strategy *model.PortfolioStrategy, params map[string]*model.SectorOUParams, rm *model.ReturnModel, firms []model.Firm, cfg Config) (*model.SimulationRun, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("simulation config: %w", err)
	}
	if cfg.Rebalance == "" {
		cfg.Rebalance = model.RebalanceNone
	}
	inputs, err := buildFirmInputs(strategy, params, rm, firms)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = s.Workers
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	started := time.Now()
	results := make([]pathResult, cfg.Paths)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			// Strided assignment keeps the per-path seeds tied to the
			// path index, not the worker.
			for p := w; p < cfg.Paths; p += workers {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				results[p] = simulatePath(inputs, cfg, pathSeed(cfg.Seed, p))
			}
			return nil
		})
	}
	runErr := g.Wait()
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return nil, runErr
	}

	run := &model.SimulationRun{
		ID:             uuid.NewString(),
		Strategy:       strategy.Name,
		Horizon:        cfg.Horizon,
		RequestedPaths: cfg.Paths,
		Threshold:      cfg.Threshold,
		Seed:           cfg.Seed,
		Rebalance:      cfg.Rebalance,
		StartedAt:      started,
		FinishedAt:     time.Now(),
	}
	summarize(run, results)
	return run, nil
}

// buildFirmInputs aligns the strategy's firms with their metadata and
// sector parameters, precomputing each firm's model-expected return.
func buildFirmInputs(strategy *model.PortfolioStrategy, params map[string]*model.SectorOUParams, rm *model.ReturnModel, firms []model.Firm) ([]firmInput, error) {
	if len(strategy.Firms) == 0 {
		return nil, fmt.Errorf("strategy %q has no firms", strategy.Name)
	}
	byID := make(map[string]model.Firm, len(firms))
	for _, f := range firms {
		byID[f.ID] = f
	}

	inputs := make([]firmInput, len(strategy.Firms))
	for i, id := range strategy.Firms {
		f, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("firm %s in strategy %q has no universe metadata", id, strategy.Name)
		}
		sp, ok := params[f.Sector]
		if !ok {
			return nil, fmt.Errorf("firm %s: no OU parameters for sector %q", id, f.Sector)
		}
		if sp.Unstable {
			return nil, fmt.Errorf("firm %s: sector %q is flagged unstable", id, f.Sector)
		}
		inputs[i] = firmInput{
			weight:   strategy.Weights[i],
			alpha:    sp.Alpha,
			phi:      sp.Phi,
			sigmaEps: math.Sqrt(sp.ResidVar),
			mu:       sp.Mu,
			growth0:  f.LatestGrowth,
			baseRet:  rm.Predict(f.Valuation, f.Profitability, sp.Mu, sp.Kappa, sp.Sigma),
		}
	}
	return inputs, nil
}

// simulatePath propagates every firm's growth through the AR(1) recursion
// and accumulates portfolio value year by year. The simulated firm return
// is the model-expected return plus the growth surprise against the
// sector's long-run mean.
func simulatePath(inputs []firmInput, cfg Config, seed uint64) pathResult {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)}

	growth := make([]float64, len(inputs))
	holdings := make([]float64, len(inputs))
	for i, in := range inputs {
		growth[i] = in.growth0
		holdings[i] = in.weight
	}

	value, peak := 1.0, 1.0
	minDD := 0.0
	for t := 0; t < cfg.Horizon; t++ {
		if cfg.Rebalance == model.RebalanceAnnual {
			for i, in := range inputs {
				holdings[i] = in.weight * value
			}
		}
		value = 0
		for i, in := range inputs {
			growth[i] = in.alpha + in.phi*growth[i] + in.sigmaEps*normal.Rand()
			ret := in.baseRet + (growth[i] - in.mu)
			holdings[i] *= 1 + ret
			value += holdings[i]
		}
		if value > peak {
			peak = value
		}
		if dd := value/peak - 1; dd < minDD {
			minDD = dd
		}
	}
	return pathResult{minDrawdown: minDD, terminal: value, done: true}
}

// summarize computes the escape probability and path statistics over the
// completed paths only.
func summarize(run *model.SimulationRun, results []pathResult) {
	var (
		breaches  int
		drawdowns []float64
		terminals []float64
	)
	worst := 0.0
	for _, r := range results {
		if !r.done {
			continue
		}
		drawdowns = append(drawdowns, r.minDrawdown)
		terminals = append(terminals, r.terminal)
		if r.minDrawdown <= run.Threshold {
			breaches++
		}
		if r.minDrawdown < worst {
			worst = r.minDrawdown
		}
	}

	run.CompletedPaths = len(drawdowns)
	run.Partial = run.CompletedPaths < run.RequestedPaths
	if run.CompletedPaths == 0 {
		return
	}
	run.EscapeProbability = float64(breaches) / float64(run.CompletedPaths)
	run.Stats = model.PathStats{
		MinDrawdownMean:   stat.Mean(drawdowns, nil),
		MinDrawdownWorst:  worst,
		TerminalValueMean: stat.Mean(terminals, nil),
	}
	if len(terminals) > 1 {
		run.Stats.TerminalValueStd = stat.StdDev(terminals, nil)
	}
}
