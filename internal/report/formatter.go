package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"FragilityLab/internal/model"
)

// FormatSectorParams formats the estimated sector parameters as a
// plain-text table for the run log.
func FormatSectorParams(params map[string]*model.SectorOUParams) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Sector OU parameters | %s\n", time.Now().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("%-16s %8s %8s %8s %8s %8s %5s\n",
		"sector", "phi", "kappa", "mu", "sigma", "r2", "obs"))

	sectors := make([]string, 0, len(params))
	for s := range params {
		sectors = append(sectors, s)
	}
	sort.Strings(sectors)

	for _, s := range sectors {
		p := params[s]
		if p.Unstable {
			b.WriteString(fmt.Sprintf("%-16s %8.4f %8s %8s %8s %8.4f %5d  UNSTABLE\n",
				p.Sector, p.Phi, "-", "-", "-", p.R2, p.Obs))
			continue
		}
		b.WriteString(fmt.Sprintf("%-16s %8.4f %8.4f %8.4f %8.4f %8.4f %5d\n",
			p.Sector, p.Phi, p.Kappa, p.Mu, p.Sigma, p.R2, p.Obs))
	}
	return b.String()
}

// FormatReturnModel formats a fitted return model with its diagnostics.
func FormatReturnModel(m *model.ReturnModel) string {
	var b strings.Builder

	b.WriteString("Return model\n")
	labels := []string{"intercept", "valuation", "profitability", "mu", "kappa", "sigma"}
	for i, l := range labels {
		b.WriteString(fmt.Sprintf("  %-14s %+.6f\n", l, m.Coeffs[i]))
	}
	b.WriteString(fmt.Sprintf("  train: %d-%d, %d obs, R2=%.4f, RMSE=%.4f\n",
		m.TrainStart, m.TrainEnd, m.TrainObs, m.TrainR2, m.TrainRMSE))
	if m.ValidationObs > 0 {
		b.WriteString(fmt.Sprintf("  validation: %d obs, R2=%.4f, RMSE=%.4f\n",
			m.ValidationObs, m.ValidationR2, m.ValidationRMSE))
	}
	if m.Ridge > 0 {
		b.WriteString(fmt.Sprintf("  ridge: %.4g\n", m.Ridge))
	}
	return b.String()
}

// FormatPortfolio formats one constructed portfolio, largest weights first.
func FormatPortfolio(p *model.PortfolioStrategy) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Portfolio [%s]  E[r]=%+.4f  var=%.6f\n",
		p.Name, p.ExpectedReturn, p.Variance))

	type entry struct {
		firm   string
		weight float64
	}
	entries := make([]entry, len(p.Firms))
	for i, f := range p.Firms {
		entries[i] = entry{f, p.Weights[i]}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].weight != entries[j].weight {
			return entries[i].weight > entries[j].weight
		}
		return entries[i].firm < entries[j].firm
	})

	for _, e := range entries {
		b.WriteString(fmt.Sprintf("  %-10s %7.2f%%\n", e.firm, e.weight*100))
	}
	return b.String()
}

// FormatSimulation formats the outcome of one fragility simulation.
func FormatSimulation(run *model.SimulationRun) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Simulation %s [%s]\n", run.ID, run.Strategy))
	b.WriteString(fmt.Sprintf("  horizon: %dy, paths: %d/%d, threshold: %.0f%%, rebalance: %s\n",
		run.Horizon, run.CompletedPaths, run.RequestedPaths,
		run.Threshold*100, run.Rebalance))
	b.WriteString(fmt.Sprintf("  escape probability: %.4f", run.EscapeProbability))
	if run.Partial {
		b.WriteString("  (PARTIAL)")
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  drawdown: mean %.2f%%, worst %.2f%%\n",
		run.Stats.MinDrawdownMean*100, run.Stats.MinDrawdownWorst*100))
	b.WriteString(fmt.Sprintf("  terminal value: mean %.4f, std %.4f\n",
		run.Stats.TerminalValueMean, run.Stats.TerminalValueStd))
	b.WriteString(fmt.Sprintf("  elapsed: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)))
	return b.String()
}
