// Package frequentist implements the classical two-proportion tests reported
// alongside the Bayesian results.
package frequentist

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
)

const (
	SignificanceLevel = 0.05
	waldZ             = 1.96
)

// ChiSquaredResult reports the 2x2 test of independence.
type ChiSquaredResult struct {
	Chi2             float64       `json:"chi2_statistic" yaml:"chi2_statistic"`
	PValue           float64       `json:"p_value" yaml:"p_value"`
	DegreesOfFreedom int           `json:"degrees_of_freedom" yaml:"degrees_of_freedom"`
	SignificantAt05  bool          `json:"significant_at_0_05" yaml:"significant_at_0_05"`
	YatesCorrected   bool          `json:"yates_corrected" yaml:"yates_corrected"`
	Expected         [2][2]float64 `json:"expected" yaml:"expected"`
}

// ProportionResult reports the z test. ZStatistic is (RateA - RateB) /
// StandardError while Difference is RateB - RateA.
type ProportionResult struct {
	ZStatistic      float64    `json:"z_statistic" yaml:"z_statistic"`
	PValue          float64    `json:"p_value" yaml:"p_value"`
	RateA           float64    `json:"rate_a" yaml:"rate_a"`
	RateB           float64    `json:"rate_b" yaml:"rate_b"`
	Difference      float64    `json:"difference" yaml:"difference"`
	CIDifference    [2]float64 `json:"ci_difference" yaml:"ci_difference"`
	StandardError   float64    `json:"standard_error" yaml:"standard_error"`
	SignificantAt05 bool       `json:"significant_at_0_05" yaml:"significant_at_0_05"`
}

func validate(op string, successesA, trialsA, successesB, trialsB int) error {
	if successesA < 0 || successesB < 0 || trialsA < 0 || trialsB < 0 {
		return staterr.InvalidInput(op, "counts must be non-negative",
			"successes_a", successesA, "trials_a", trialsA, "successes_b", successesB, "trials_b", trialsB)
	}
	if successesA > trialsA || successesB > trialsB {
		return staterr.InvalidInput(op, "successes exceed trials",
			"successes_a", successesA, "trials_a", trialsA, "successes_b", successesB, "trials_b", trialsB)
	}
	return nil
}

// ChiSquaredTest runs Pearson's test of independence on the 2x2 table
// [[sA, tA-sA], [sB, tB-sB]] without continuity correction.
func ChiSquaredTest(successesA, trialsA, successesB, trialsB int) (ChiSquaredResult, error) {
	return chiSquared("chi_squared_test", successesA, trialsA, successesB, trialsB, false)
}

// ChiSquaredTestYates applies Yates' continuity correction, which is more
// conservative on small tables.
func ChiSquaredTestYates(successesA, trialsA, successesB, trialsB int) (ChiSquaredResult, error) {
	return chiSquared("chi_squared_test_yates", successesA, trialsA, successesB, trialsB, true)
}

func chiSquared(op string, successesA, trialsA, successesB, trialsB int, yates bool) (ChiSquaredResult, error) {
	if err := validate(op, successesA, trialsA, successesB, trialsB); err != nil {
		return ChiSquaredResult{}, err
	}

	observed := [2][2]float64{
		{float64(successesA), float64(trialsA - successesA)},
		{float64(successesB), float64(trialsB - successesB)},
	}
	rows := [2]float64{float64(trialsA), float64(trialsB)}
	cols := [2]float64{observed[0][0] + observed[1][0], observed[0][1] + observed[1][1]}
	total := rows[0] + rows[1]

	if rows[0] == 0 || rows[1] == 0 || cols[0] == 0 || cols[1] == 0 {
		return ChiSquaredResult{}, staterr.Degenerate(op, "contingency table has a zero margin",
			"successes_a", successesA, "trials_a", trialsA, "successes_b", successesB, "trials_b", trialsB)
	}

	var res ChiSquaredResult
	var chi2 float64
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			e := rows[i] * cols[j] / total
			res.Expected[i][j] = e
			d := math.Abs(observed[i][j] - e)
			if yates {
				d -= math.Min(0.5, d)
			}
			chi2 += d * d / e
		}
	}

	res.Chi2 = chi2
	res.DegreesOfFreedom = 1
	res.PValue = distuv.ChiSquared{K: 1}.Survival(chi2)
	res.SignificantAt05 = res.PValue < SignificanceLevel
	res.YatesCorrected = yates
	return res, nil
}

// ProportionTest is the two-sided two-proportion z test with a pooled
// standard error. The statistic is (RateA - RateB) / SE, the usual sign for
// counts given in [A, B] order, so it is opposite in sign to Difference.
func ProportionTest(successesA, trialsA, successesB, trialsB int) (ProportionResult, error) {
	const op = "proportion_test"
	if err := validate(op, successesA, trialsA, successesB, trialsB); err != nil {
		return ProportionResult{}, err
	}
	if trialsA == 0 || trialsB == 0 {
		return ProportionResult{}, staterr.InvalidInput(op, "each group needs at least one trial",
			"trials_a", trialsA, "trials_b", trialsB)
	}

	nA, nB := float64(trialsA), float64(trialsB)
	pA := float64(successesA) / nA
	pB := float64(successesB) / nB
	pooled := float64(successesA+successesB) / (nA + nB)
	se := math.Sqrt(pooled * (1 - pooled) * (1/nA + 1/nB))
	if se == 0 {
		return ProportionResult{}, staterr.Degenerate(op, "pooled proportion is 0 or 1",
			"successes_a", successesA, "trials_a", trialsA, "successes_b", successesB, "trials_b", trialsB)
	}

	diff := pB - pA
	z := (pA - pB) / se
	p := 2 * distuv.UnitNormal.CDF(-math.Abs(z))
	return ProportionResult{
		ZStatistic:      z,
		PValue:          p,
		RateA:           pA,
		RateB:           pB,
		Difference:      diff,
		CIDifference:    [2]float64{diff - waldZ*se, diff + waldZ*se},
		StandardError:   se,
		SignificantAt05: p < SignificanceLevel,
	}, nil
}
