package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"FragilityLab/internal/model"
)

// SQLiteRecorder persists pipeline outputs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance (a dashboard may
	// read while the pipeline writes).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sector_params (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			sector        TEXT NOT NULL,
			alpha         REAL,
			phi           REAL,
			resid_var     REAL,
			kappa         REAL,
			mu            REAL,
			sigma         REAL,
			r2            REAL,
			lag1_autocorr REAL,
			obs           INTEGER,
			window_start  INTEGER,
			window_end    INTEGER,
			unstable      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sector_params_ts ON sector_params(timestamp)`,

		`CREATE TABLE IF NOT EXISTS return_models (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			coeffs          TEXT,
			ridge           REAL,
			train_start     INTEGER,
			train_end       INTEGER,
			train_obs       INTEGER,
			train_r2        REAL,
			train_rmse      REAL,
			validation_obs  INTEGER,
			validation_r2   REAL,
			validation_rmse REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_return_models_ts ON return_models(timestamp)`,

		`CREATE TABLE IF NOT EXISTS portfolios (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			strategy        TEXT NOT NULL,
			firms           TEXT,
			weights         TEXT,
			no_short        INTEGER,
			max_weight      REAL,
			expected_return REAL,
			variance        REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_portfolios_ts ON portfolios(timestamp)`,

		`CREATE TABLE IF NOT EXISTS simulation_runs (
			id                 TEXT PRIMARY KEY,
			timestamp          INTEGER NOT NULL,
			strategy           TEXT NOT NULL,
			horizon            INTEGER,
			requested_paths    INTEGER,
			completed_paths    INTEGER,
			threshold          REAL,
			seed               INTEGER,
			rebalance          TEXT,
			escape_probability REAL,
			partial            INTEGER,
			min_dd_mean        REAL,
			min_dd_worst       REAL,
			terminal_mean      REAL,
			terminal_std       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_simulation_runs_ts ON simulation_runs(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSectorParams(p *model.SectorOUParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO sector_params
		(timestamp, sector, alpha, phi, resid_var, kappa, mu, sigma,
		 r2, lag1_autocorr, obs, window_start, window_end, unstable)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), p.Sector, p.Alpha, p.Phi, p.ResidVar,
		p.Kappa, p.Mu, p.Sigma, p.R2, p.Lag1Autocorr,
		p.Obs, p.WindowStart, p.WindowEnd, boolToInt(p.Unstable),
	)
	return err
}

func (r *SQLiteRecorder) RecordReturnModel(m *model.ReturnModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	coeffs, err := json.Marshal(m.Coeffs)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`INSERT INTO return_models
		(timestamp, coeffs, ridge, train_start, train_end, train_obs,
		 train_r2, train_rmse, validation_obs, validation_r2, validation_rmse)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), string(coeffs), m.Ridge,
		m.TrainStart, m.TrainEnd, m.TrainObs, m.TrainR2, m.TrainRMSE,
		m.ValidationObs, m.ValidationR2, m.ValidationRMSE,
	)
	return err
}

func (r *SQLiteRecorder) RecordPortfolio(p *model.PortfolioStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	firms, err := json.Marshal(p.Firms)
	if err != nil {
		return err
	}
	weights, err := json.Marshal(p.Weights)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`INSERT INTO portfolios
		(timestamp, strategy, firms, weights, no_short, max_weight, expected_return, variance)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), p.Name, string(firms), string(weights),
		boolToInt(p.Constraints.NoShort), p.Constraints.MaxWeight,
		p.ExpectedReturn, p.Variance,
	)
	return err
}

func (r *SQLiteRecorder) RecordSimulation(run *model.SimulationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO simulation_runs
		(id, timestamp, strategy, horizon, requested_paths, completed_paths,
		 threshold, seed, rebalance, escape_probability, partial,
		 min_dd_mean, min_dd_worst, terminal_mean, terminal_std)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.Unix(), run.Strategy, run.Horizon,
		run.RequestedPaths, run.CompletedPaths, run.Threshold,
		int64(run.Seed), string(run.Rebalance), run.EscapeProbability,
		boolToInt(run.Partial),
		run.Stats.MinDrawdownMean, run.Stats.MinDrawdownWorst,
		run.Stats.TerminalValueMean, run.Stats.TerminalValueStd,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
