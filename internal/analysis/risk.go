package analysis

import (
	"math"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
)

// DefaultMinUplift is the relative uplift, in percent, treated as a
// meaningful effect when the caller does not choose one.
const DefaultMinUplift = 5.0

// ProbabilityBBeatsA estimates P(rate_B > rate_A) from the posteriors.
func (t *BayesianTest) ProbabilityBBeatsA() (float64, error) {
	a, b, err := t.draws("probability_b_beats_a")
	if err != nil {
		return 0, err
	}
	return fractionGreater(a, b), nil
}

// ExpectedLoss estimates the regret of choosing each arm.
func (t *BayesianTest) ExpectedLoss() (ExpectedLoss, error) {
	a, b, err := t.draws("expected_loss")
	if err != nil {
		return ExpectedLoss{}, err
	}
	return expectedLoss(a, b), nil
}

// Uplift summarises the posterior distribution of B - A.
func (t *BayesianTest) Uplift() (UpliftDistribution, error) {
	a, b, err := t.draws("uplift")
	if err != nil {
		return UpliftDistribution{}, err
	}
	return uplift(a, b), nil
}

// ProbabilityUpliftAbove estimates the probability that B's relative uplift
// over A exceeds minPct percent. Draws where A is zero are excluded as in
// Uplift; when every draw is excluded the result is NaN.
func (t *BayesianTest) ProbabilityUpliftAbove(minPct float64) (float64, error) {
	const op = "probability_uplift_above"
	if math.IsNaN(minPct) || math.IsInf(minPct, 0) {
		return 0, staterr.InvalidInput(op, "minimum uplift must be finite", "min_uplift", minPct)
	}
	a, b, err := t.draws(op)
	if err != nil {
		return 0, err
	}
	return probabilityUpliftAbove(a, b, minPct), nil
}

// RiskMetrics computes every risk figure from a single draw of both arms.
func (t *BayesianTest) RiskMetrics() (RiskMetrics, error) {
	a, b, err := t.draws("risk_metrics")
	if err != nil {
		return RiskMetrics{}, err
	}
	return riskFromDraws(a, b), nil
}

func riskFromDraws(a, b []float64) RiskMetrics {
	pB := fractionGreater(a, b)
	loss := expectedLoss(a, b)
	up := uplift(a, b)
	return RiskMetrics{
		ProbabilityBBeatsA:  pB,
		ProbabilityABeatsB:  1 - pB,
		ExpectedUplift:      up.RelativeMean,
		UpliftCI:            up.RelativeCI,
		AbsoluteUplift:      up.AbsoluteMean,
		AbsoluteUpliftCI:    up.AbsoluteCI,
		ExpectedLossChooseA: loss.ChooseA,
		ExpectedLossChooseB: loss.ChooseB,
		RecommendedChoice:   loss.Recommended,
		Samples:             len(a),
		ExcludedUpliftDraws: up.ExcludedDraws,
	}
}

// expectedLoss computes the regret of each choice. Ties go to A: keeping the
// control is the default when the evidence does not favour either arm.
func expectedLoss(a, b []float64) ExpectedLoss {
	var lossA, lossB float64
	for i := range a {
		lossA += math.Max(0, b[i]-a[i])
		lossB += math.Max(0, a[i]-b[i])
	}
	n := float64(len(a))
	if n > 0 {
		lossA /= n
		lossB /= n
	}
	rec := GroupA
	if lossB < lossA {
		rec = GroupB
	}
	return ExpectedLoss{ChooseA: lossA, ChooseB: lossB, Recommended: rec}
}

// uplift summarises B - A. Draws where A is exactly zero have no relative
// uplift; they are dropped from the relative figures and counted.
func uplift(a, b []float64) UpliftDistribution {
	abs := make([]float64, len(a))
	rel := make([]float64, 0, len(a))
	excluded := 0
	for i := range a {
		abs[i] = b[i] - a[i]
		if a[i] == 0 {
			excluded++
			continue
		}
		rel = append(rel, abs[i]/a[i]*100)
	}
	return UpliftDistribution{
		AbsoluteMean:  mean(abs),
		AbsoluteCI:    interval95(abs),
		RelativeMean:  mean(rel),
		RelativeCI:    interval95(rel),
		ExcludedDraws: excluded,
	}
}

func probabilityUpliftAbove(a, b []float64, minPct float64) float64 {
	above, usable := 0, 0
	for i := range a {
		if a[i] == 0 {
			continue
		}
		usable++
		if (b[i]-a[i])/a[i]*100 > minPct {
			above++
		}
	}
	if usable == 0 {
		return math.NaN()
	}
	return float64(above) / float64(usable)
}
