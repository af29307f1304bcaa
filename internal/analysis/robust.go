package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// percentiles returns the empirical quantiles of xs at each p in ps.
// xs is not modified.
func percentiles(xs []float64, ps ...float64) []float64 {
	out := make([]float64, len(ps))
	if len(xs) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	cp := append([]float64(nil), xs...)
	sort.Float64s(cp)
	for i, p := range ps {
		out[i] = stat.Quantile(clip(p, 0, 1), stat.Empirical, cp, nil)
	}
	return out
}

// interval95 is the central 95% percentile interval.
func interval95(xs []float64) [2]float64 {
	q := percentiles(xs, 0.025, 0.975)
	return [2]float64{q[0], q[1]}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
