package portfolio

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"FragilityLab/internal/model"
)

const (
	penaltyWeight = 1000.0
	objectiveTol  = 1e-9
)

// solveConstrained minimizes obj over the simplex-like feasible set using
// a penalty on the full-investment constraint and projection onto the
// per-name bounds. BFGS and NelderMead both run; among converged
// candidates whose objectives tie within tolerance the one with lower
// concentration (smaller max weight) wins.
func solveConstrained(strategy string, n int, cons model.Constraints, obj func([]float64) float64, gradFn func(grad, w []float64)) ([]float64, error) {
	lo, hi := bounds(n, cons)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w := project(x, lo, hi)
			sum := 0.0
			for _, v := range w {
				sum += v
			}
			return obj(w) + penaltyWeight*(sum-1)*(sum-1)
		},
		Grad: func(grad, x []float64) {
			w := project(x, lo, hi)
			gradFn(grad, w)
			sum := 0.0
			for _, v := range w {
				sum += v
			}
			for i := range grad {
				grad[i] += 2 * penaltyWeight * (sum - 1)
			}
		},
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1 / float64(n)
	}

	var candidates [][]float64
	for _, method := range []optimize.Method{&optimize.BFGS{}, &optimize.NelderMead{}} {
		result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, method)
		if err != nil || !converged(result.Status) {
			continue
		}
		w, ok := finalize(result.X, lo, hi, cons)
		if ok {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return nil, &InfeasibleError{Strategy: strategy, Reason: "optimizer did not converge to a feasible solution"}
	}

	best := candidates[0]
	for _, cand := range candidates[1:] {
		switch {
		case obj(cand) < obj(best)-objectiveTol:
			best = cand
		case obj(cand) <= obj(best)+objectiveTol && maxAbs(cand) < maxAbs(best):
			// Objective tie: prefer the less concentrated solution.
			best = cand
		}
	}
	return best, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence, optimize.FunctionThreshold:
		return true
	}
	return false
}

func bounds(n int, cons model.Constraints) (lo, hi float64) {
	lo = -1.0
	if cons.NoShort {
		lo = 0
	}
	hi = 2.0
	if cons.MaxWeight > 0 {
		hi = cons.MaxWeight
	} else if cons.NoShort {
		hi = 1
	}
	return lo, hi
}

func project(x []float64, lo, hi float64) []float64 {
	w := make([]float64, len(x))
	for i, v := range x {
		w[i] = math.Max(lo, math.Min(hi, v))
	}
	return w
}

// finalize projects the raw solution onto the bounds and renormalizes it
// onto the full-investment constraint, redistributing any excess above a
// per-name cap. Returns false if the result still violates a constraint.
func finalize(x []float64, lo, hi float64, cons model.Constraints) ([]float64, bool) {
	w := project(x, lo, hi)
	if !normalize(w) {
		return nil, false
	}
	if cons.NoShort {
		for i, v := range w {
			if v < 0 {
				w[i] = 0
			}
		}
		if !normalize(w) {
			return nil, false
		}
	}
	if cons.MaxWeight > 0 {
		if !redistributeCapped(w, cons.MaxWeight) {
			return nil, false
		}
	}
	return w, true
}

func normalize(w []float64) bool {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if math.Abs(sum) < 1e-12 {
		return false
	}
	for i := range w {
		w[i] /= sum
	}
	return true
}

// redistributeCapped clips weights above the cap and spreads the excess
// across uncapped names until the cap holds everywhere. Terminates because
// the pre-checked cap*n >= 1 guarantees capacity.
func redistributeCapped(w []float64, capWeight float64) bool {
	for iter := 0; iter < len(w)+1; iter++ {
		excess := 0.0
		var open int
		for _, v := range w {
			if v > capWeight {
				excess += v - capWeight
			} else if v < capWeight-1e-12 {
				open++
			}
		}
		if excess <= 1e-12 {
			return true
		}
		if open == 0 {
			return false
		}
		share := excess / float64(open)
		for i, v := range w {
			if v > capWeight {
				w[i] = capWeight
			} else if v < capWeight-1e-12 {
				w[i] = v + share
			}
		}
	}
	return false
}

func maxAbs(w []float64) float64 {
	m := 0.0
	for _, v := range w {
		m = math.Max(m, math.Abs(v))
	}
	return m
}
