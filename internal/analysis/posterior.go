package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
)

const (
	DefaultSamples              = 100_000
	DefaultEquivalenceThreshold = 0.01
)

type options struct {
	seed      uint64
	seeded    bool
	samples   int
	threshold float64
}

// Option configures a BayesianTest or SequentialTest.
type Option func(*options)

// WithSeed makes every Monte Carlo result reproducible for the given seed.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithSamples sets the Monte Carlo draw count per group.
func WithSamples(n int) Option {
	return func(o *options) { o.samples = n }
}

// WithEquivalenceThreshold sets the absolute rate difference treated as
// "practically the same" by BayesFactor.
func WithEquivalenceThreshold(t float64) Option {
	return func(o *options) { o.threshold = t }
}

func buildOptions(op string, opts []Option) (options, error) {
	o := options{samples: DefaultSamples, threshold: DefaultEquivalenceThreshold}
	for _, fn := range opts {
		fn(&o)
	}
	if o.samples <= 0 {
		return o, staterr.InvalidInput(op, "sample count must be positive", "samples", o.samples)
	}
	if !(o.threshold >= 0 && o.threshold < 1) {
		return o, staterr.InvalidInput(op, "equivalence threshold must be in [0, 1)", "threshold", o.threshold)
	}
	return o, nil
}

func validatePrior(op string, p Prior) error {
	if !(p.Alpha > 0) || !(p.Beta > 0) || math.IsInf(p.Alpha, 0) || math.IsInf(p.Beta, 0) {
		return staterr.InvalidInput(op, "prior parameters must be positive and finite", "alpha0", p.Alpha, "beta0", p.Beta)
	}
	return nil
}

func validateCounts(op, group string, successes, trials int) error {
	if group == "" {
		return staterr.InvalidInput(op, "group name is required")
	}
	if trials < 0 || successes < 0 {
		return staterr.InvalidInput(op, "counts must be non-negative", "group", group, "successes", successes, "trials", trials)
	}
	if successes > trials {
		return staterr.InvalidInput(op, "successes exceed trials", "group", group, "successes", successes, "trials", trials)
	}
	return nil
}

// Posterior applies the conjugate Beta-Binomial update to a prior.
func (p Prior) Posterior(group string, successes, trials int) GroupPosterior {
	alpha := p.Alpha + float64(successes)
	beta := p.Beta + float64(trials-successes)
	rate := 0.0
	if trials > 0 {
		rate = float64(successes) / float64(trials)
	}
	return GroupPosterior{
		Group:          group,
		Alpha:          alpha,
		Beta:           beta,
		Successes:      successes,
		Trials:         trials,
		ConversionRate: rate,
		PosteriorMean:  alpha / (alpha + beta),
	}
}

// BayesianTest is a one-shot batch comparison. Each group holds at most one
// posterior and Observe replaces it. Not safe for concurrent mutation.
type BayesianTest struct {
	prior      Prior
	opts       options
	posteriors map[string]GroupPosterior
	streams    streams
}

// NewBayesianTest validates prior and options and returns an empty test.
func NewBayesianTest(prior Prior, opts ...Option) (*BayesianTest, error) {
	const op = "new_bayesian_test"
	if err := validatePrior(op, prior); err != nil {
		return nil, err
	}
	o, err := buildOptions(op, opts)
	if err != nil {
		return nil, err
	}
	return &BayesianTest{
		prior:      prior,
		opts:       o,
		posteriors: make(map[string]GroupPosterior),
		streams:    newStreams(o.seed, o.seeded),
	}, nil
}

// Prior returns the prior shared by every group.
func (t *BayesianTest) Prior() Prior { return t.prior }

// Samples is the Monte Carlo draw count used by the risk and Bayes factor estimators.
func (t *BayesianTest) Samples() int { return t.opts.samples }

// Threshold is the Bayes factor equivalence threshold.
func (t *BayesianTest) Threshold() float64 { return t.opts.threshold }

// Seed reports the configured seed, if any.
func (t *BayesianTest) Seed() (uint64, bool) { return t.opts.seed, t.opts.seeded }

// Observe stores the posterior for group, replacing any earlier one. On
// error nothing is stored.
func (t *BayesianTest) Observe(group string, successes, trials int) (GroupPosterior, error) {
	if err := validateCounts("observe", group, successes, trials); err != nil {
		return GroupPosterior{}, err
	}
	gp := t.prior.Posterior(group, successes, trials)
	t.posteriors[group] = gp
	return gp, nil
}

// Posterior returns the stored posterior for group, if observed.
func (t *BayesianTest) Posterior(group string) (GroupPosterior, bool) {
	gp, ok := t.posteriors[group]
	return gp, ok
}

// Groups returns the observed group names in sorted order.
func (t *BayesianTest) Groups() []string {
	out := make([]string, 0, len(t.posteriors))
	for g := range t.posteriors {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Sample draws n values from the group's posterior.
func (t *BayesianTest) Sample(group string, n int) ([]float64, error) {
	const op = "sample"
	if n <= 0 {
		return nil, staterr.InvalidInput(op, "sample count must be positive", "n", n)
	}
	gp, ok := t.posteriors[group]
	if !ok {
		return nil, staterr.InvalidState(op, "group has not been observed", "group", group)
	}
	return drawBeta(gp.Alpha, gp.Beta, n, t.streams.source(group)), nil
}

// pair returns the A and B posteriors or a MissingGroup error.
func (t *BayesianTest) pair(op string) (GroupPosterior, GroupPosterior, error) {
	a, okA := t.posteriors[GroupA]
	b, okB := t.posteriors[GroupB]
	if !okA || !okB {
		var missing []string
		if !okA {
			missing = append(missing, GroupA)
		}
		if !okB {
			missing = append(missing, GroupB)
		}
		return a, b, staterr.MissingGroup(op, missing...)
	}
	return a, b, nil
}

// draws samples both arms with independent streams.
func (t *BayesianTest) draws(op string) ([]float64, []float64, error) {
	a, b, err := t.pair(op)
	if err != nil {
		return nil, nil, err
	}
	n := t.opts.samples
	return drawBeta(a.Alpha, a.Beta, n, t.streams.source(GroupA)),
		drawBeta(b.Alpha, b.Beta, n, t.streams.source(GroupB)),
		nil
}

// CredibleInterval returns the equal-tailed interval from the Beta quantile
// function. level is in (0, 1).
func (t *BayesianTest) CredibleInterval(group string, level float64) (CredibleInterval, error) {
	const op = "credible_interval"
	if !(level > 0 && level < 1) {
		return CredibleInterval{}, staterr.InvalidInput(op, "level must be in (0, 1)", "level", level)
	}
	gp, ok := t.posteriors[group]
	if !ok {
		return CredibleInterval{}, staterr.InvalidState(op, "group has not been observed", "group", group)
	}
	dist := distuv.Beta{Alpha: gp.Alpha, Beta: gp.Beta}
	tail := (1 - level) / 2
	return CredibleInterval{
		Group: group,
		Level: level,
		Lower: dist.Quantile(tail),
		Upper: dist.Quantile(1 - tail),
	}, nil
}

// DensityCurve evaluates the posterior pdf on an even grid covering the
// central 99.9% of its mass.
func (t *BayesianTest) DensityCurve(group string, points int) ([]DensityPoint, error) {
	const op = "density_curve"
	if points < 2 {
		return nil, staterr.InvalidInput(op, "need at least two points", "points", points)
	}
	gp, ok := t.posteriors[group]
	if !ok {
		return nil, staterr.InvalidState(op, "group has not been observed", "group", group)
	}
	dist := distuv.Beta{Alpha: gp.Alpha, Beta: gp.Beta}
	lo, hi := dist.Quantile(0.0005), dist.Quantile(0.9995)
	step := (hi - lo) / float64(points-1)
	out := make([]DensityPoint, points)
	for i := range out {
		x := lo + float64(i)*step
		out[i] = DensityPoint{X: x, PDF: dist.Prob(x)}
	}
	return out, nil
}
