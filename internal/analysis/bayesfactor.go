package analysis

import "math"

// Interpretation tiers for Interpret. Each bound is exclusive.
const (
	InterpretationDecisive    = "Decisive evidence for H1"
	InterpretationVeryStrong  = "Very strong evidence for H1"
	InterpretationStrong      = "Strong evidence for H1"
	InterpretationSubstantial = "Substantial evidence for H1"
	InterpretationAnecdotal   = "Anecdotal evidence for H1"
	InterpretationSupportsH0  = "Evidence supports H0"
)

// BayesFactor runs the equivalence-threshold approximation: the odds that the
// arms differ by more than the threshold against the odds they do not. It is
// not a ratio of marginal likelihoods.
func (t *BayesianTest) BayesFactor() (BayesFactor, error) {
	a, b, err := t.draws("bayes_factor")
	if err != nil {
		return BayesFactor{}, err
	}
	return EquivalenceBayesFactor(a, b, t.opts.threshold), nil
}

// EquivalenceBayesFactor computes the heuristic from paired draws.
func EquivalenceBayesFactor(a, b []float64, threshold float64) BayesFactor {
	diff := 0
	for i := range a {
		if math.Abs(b[i]-a[i]) > threshold {
			diff++
		}
	}
	probDiff := 0.0
	if len(a) > 0 {
		probDiff = float64(diff) / float64(len(a))
	}
	probSame := 1 - probDiff

	bf := math.Inf(1)
	if probSame > 0 {
		bf = probDiff / probSame
	}
	return BayesFactor{
		BayesFactor:    bf,
		Interpretation: Interpret(bf),
		Threshold:      threshold,
		ProbDifferent:  probDiff,
		ProbSame:       probSame,
	}
}

// Interpret maps a Bayes factor onto the Jeffreys-style evidence scale.
func Interpret(bf float64) string {
	switch {
	case bf > 100:
		return InterpretationDecisive
	case bf > 30:
		return InterpretationVeryStrong
	case bf > 10:
		return InterpretationStrong
	case bf > 3:
		return InterpretationSubstantial
	case bf > 1:
		return InterpretationAnecdotal
	default:
		return InterpretationSupportsH0
	}
}
