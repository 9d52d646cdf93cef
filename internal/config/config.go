package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"FragilityLab/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Data struct {
		PanelCSV      string `yaml:"panel_csv"`
		SectorMapPath string `yaml:"sector_map_path"`
		FromYear      int    `yaml:"from_year"`
		ToYear        int    `yaml:"to_year"`
	} `yaml:"data"`
	Estimation struct {
		MinObservations int `yaml:"min_observations"`
	} `yaml:"estimation"`
	Regression struct {
		Ridge           float64 `yaml:"ridge"`
		TrainStart      int     `yaml:"train_start"`
		TrainEnd        int     `yaml:"train_end"`
		ValidationStart int     `yaml:"validation_start"`
		ValidationEnd   int     `yaml:"validation_end"`
	} `yaml:"regression"`
	Portfolio struct {
		RiskAversion float64 `yaml:"risk_aversion"`
		Shrinkage    float64 `yaml:"shrinkage"`
		NoShort      bool    `yaml:"no_short"`
		MaxWeight    float64 `yaml:"max_weight"`
	} `yaml:"portfolio"`
	Simulation struct {
		Horizon   int     `yaml:"horizon"`
		Paths     int     `yaml:"paths"`
		Threshold float64 `yaml:"threshold"`
		Seed      uint64  `yaml:"seed"`
		Workers   int     `yaml:"workers"`
		Rebalance string  `yaml:"rebalance"`
	} `yaml:"simulation"`
	Schedule struct {
		PipelineCron string `yaml:"pipeline_cron"`
	} `yaml:"schedule"`
	Universe struct {
		StateFile string `yaml:"state_file"`
	} `yaml:"universe"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PANEL_CSV"); v != "" {
		cfg.Data.PanelCSV = v
	}
	if v := os.Getenv("SECTOR_MAP_PATH"); v != "" {
		cfg.Data.SectorMapPath = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("PIPELINE_CRON"); v != "" {
		cfg.Schedule.PipelineCron = v
	}
	if v := os.Getenv("SIM_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Simulation.Seed = seed
		}
	}
	if v := os.Getenv("SIM_PATHS"); v != "" {
		if paths, err := strconv.Atoi(v); err == nil {
			cfg.Simulation.Paths = paths
		}
	}

	// Defaults
	if cfg.Data.FromYear == 0 {
		cfg.Data.FromYear = 2009
	}
	if cfg.Data.ToYear == 0 {
		cfg.Data.ToYear = 2024
	}
	if cfg.Estimation.MinObservations == 0 {
		cfg.Estimation.MinObservations = 8
	}
	if cfg.Regression.TrainStart == 0 {
		cfg.Regression.TrainStart = cfg.Data.FromYear
	}
	if cfg.Regression.TrainEnd == 0 {
		cfg.Regression.TrainEnd = cfg.Data.ToYear - 3
	}
	if cfg.Regression.ValidationStart == 0 {
		cfg.Regression.ValidationStart = cfg.Regression.TrainEnd + 1
	}
	if cfg.Regression.ValidationEnd == 0 {
		cfg.Regression.ValidationEnd = cfg.Data.ToYear
	}
	if cfg.Portfolio.RiskAversion == 0 {
		cfg.Portfolio.RiskAversion = 2.0
	}
	if cfg.Portfolio.Shrinkage == 0 {
		cfg.Portfolio.Shrinkage = 0.2
	}
	if cfg.Simulation.Horizon == 0 {
		cfg.Simulation.Horizon = 5
	}
	if cfg.Simulation.Paths == 0 {
		cfg.Simulation.Paths = 10000
	}
	if cfg.Simulation.Threshold == 0 {
		cfg.Simulation.Threshold = -0.30
	}
	if cfg.Simulation.Seed == 0 {
		cfg.Simulation.Seed = 42
	}
	if cfg.Simulation.Rebalance == "" {
		cfg.Simulation.Rebalance = string(model.RebalanceNone)
	}
	if cfg.Schedule.PipelineCron == "" {
		cfg.Schedule.PipelineCron = "0 0 6 * * 1" // Monday 06:00
	}
	if cfg.Universe.StateFile == "" {
		cfg.Universe.StateFile = "data/universe.json"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/fragility_lab.db"
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Data.FromYear >= c.Data.ToYear {
		return fmt.Errorf("data.from_year %d must precede data.to_year %d", c.Data.FromYear, c.Data.ToYear)
	}
	if c.Regression.TrainEnd < c.Regression.TrainStart {
		return fmt.Errorf("regression train window %d-%d is inverted", c.Regression.TrainStart, c.Regression.TrainEnd)
	}
	if c.Regression.ValidationStart <= c.Regression.TrainEnd {
		return fmt.Errorf("validation window must be disjoint from the train window")
	}
	if c.Portfolio.Shrinkage < 0 || c.Portfolio.Shrinkage > 1 {
		return fmt.Errorf("portfolio.shrinkage %.2f outside [0,1]", c.Portfolio.Shrinkage)
	}
	if c.Simulation.Threshold >= 0 {
		return fmt.Errorf("simulation.threshold must be negative, got %.2f", c.Simulation.Threshold)
	}
	if c.Simulation.Paths <= 0 {
		return fmt.Errorf("simulation.paths must be positive")
	}
	switch model.RebalancePolicy(c.Simulation.Rebalance) {
	case model.RebalanceNone, model.RebalanceAnnual:
	default:
		return fmt.Errorf("simulation.rebalance %q is not a known policy", c.Simulation.Rebalance)
	}
	return nil
}
