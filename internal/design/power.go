// Package design sizes experiments before they run. Effects are measured with
// Cohen's h and power uses the two-sided normal approximation with equal
// allocation between the arms.
package design

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
)

// maxSampleSize caps the search in RequiredSampleSize.
const maxSampleSize = 1 << 40

// PowerPoint is the power at one per-group sample size
type PowerPoint struct {
	SampleSize int     `json:"sample_size" yaml:"sample_size"`
	Power      float64 `json:"power" yaml:"power"`
}

// EffectSize returns Cohen's h between the baseline rate and the rate after a
// relative lift of mde.
func EffectSize(baselineRate, mde float64) float64 {
	target := baselineRate * (1 + mde)
	return math.Abs(2*math.Asin(math.Sqrt(target)) - 2*math.Asin(math.Sqrt(baselineRate)))
}

func validateEffect(op string, baselineRate, mde, alpha float64) error {
	if !(baselineRate > 0 && baselineRate < 1) {
		return staterr.InvalidInput(op, "baseline rate must be in (0, 1)", "baseline_rate", baselineRate)
	}
	if !(mde > 0) || math.IsInf(mde, 0) {
		return staterr.InvalidInput(op, "minimum detectable effect must be positive", "mde", mde)
	}
	if target := baselineRate * (1 + mde); target >= 1 {
		return staterr.InvalidInput(op, "lifted rate must stay below 1", "baseline_rate", baselineRate, "mde", mde, "target_rate", target)
	}
	if !(alpha > 0 && alpha < 1) {
		return staterr.InvalidInput(op, "alpha must be in (0, 1)", "alpha", alpha)
	}
	return nil
}

// power evaluates the two-sided power for n observations per arm, with n
// allowed to be fractional.
func power(n, h, alpha float64) float64 {
	crit := distuv.UnitNormal.Quantile(1 - alpha/2)
	shift := h * math.Sqrt(n/2)
	return distuv.UnitNormal.CDF(shift-crit) + distuv.UnitNormal.CDF(-shift-crit)
}

// PowerAt is the probability of detecting a relative lift of mde with n
// observations per arm at significance alpha.
func PowerAt(n int, baselineRate, mde, alpha float64) (float64, error) {
	const op = "power_at"
	if n < 1 {
		return 0, staterr.InvalidInput(op, "sample size must be at least 1", "n", n)
	}
	if err := validateEffect(op, baselineRate, mde, alpha); err != nil {
		return 0, err
	}
	return power(float64(n), EffectSize(baselineRate, mde), alpha), nil
}

// RequiredSampleSize returns the smallest per-arm sample size whose power
// reaches the target.
func RequiredSampleSize(mde, baselineRate, alpha, targetPower float64) (int, error) {
	const op = "required_sample_size"
	if err := validateEffect(op, baselineRate, mde, alpha); err != nil {
		return 0, err
	}
	if !(targetPower > alpha && targetPower < 1) {
		return 0, staterr.InvalidInput(op, "power must be in (alpha, 1)", "power", targetPower, "alpha", alpha)
	}

	h := EffectSize(baselineRate, mde)
	lo, hi := 0.0, 1.0
	for power(hi, h, alpha) < targetPower {
		if hi >= maxSampleSize {
			return 0, staterr.Degenerate(op, "effect too small to reach the requested power",
				"mde", mde, "baseline_rate", baselineRate, "power", targetPower)
		}
		lo, hi = hi, hi*2
	}
	for i := 0; i < 200 && hi-lo > 1e-9; i++ {
		mid := (lo + hi) / 2
		if power(mid, h, alpha) < targetPower {
			lo = mid
		} else {
			hi = mid
		}
	}

	n := int(math.Ceil(hi))
	for n > 1 && power(float64(n-1), h, alpha) >= targetPower {
		n--
	}
	return max(n, 1), nil
}

// DefaultCurveSizes is 100, 200, ..., 4900.
func DefaultCurveSizes() []int {
	sizes := make([]int, 0, 49)
	for n := 100; n < 5000; n += 100 {
		sizes = append(sizes, n)
	}
	return sizes
}

// PowerCurve evaluates PowerAt over sizes, or DefaultCurveSizes when sizes is empty.
func PowerCurve(baselineRate, mde, alpha float64, sizes []int) ([]PowerPoint, error) {
	if len(sizes) == 0 {
		sizes = DefaultCurveSizes()
	}
	out := make([]PowerPoint, 0, len(sizes))
	for _, n := range sizes {
		p, err := PowerAt(n, baselineRate, mde, alpha)
		if err != nil {
			return nil, err
		}
		out = append(out, PowerPoint{SampleSize: n, Power: p})
	}
	return out, nil
}
