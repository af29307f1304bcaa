package analysis

import (
	"sort"
	"strconv"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
)

// NoInformationProbability is returned by CurrentProbability while either arm
// has no observations. Check Ready to tell it apart from a computed value.
const NoInformationProbability = 0.5

// SequentialTest accumulates batches per group. The append-only history is
// the only state; the current posterior of a group is its last observation.
type SequentialTest struct {
	prior   Prior
	opts    options
	history map[string][]SequentialObservation
	streams streams
}

// NewSequentialTest validates prior and options and returns a test with no
// history.
func NewSequentialTest(prior Prior, opts ...Option) (*SequentialTest, error) {
	const op = "new_sequential_test"
	if err := validatePrior(op, prior); err != nil {
		return nil, err
	}
	o, err := buildOptions(op, opts)
	if err != nil {
		return nil, err
	}
	return &SequentialTest{
		prior:   prior,
		opts:    o,
		history: make(map[string][]SequentialObservation),
		streams: newStreams(o.seed, o.seeded),
	}, nil
}

// Prior returns the prior every group starts from.
func (s *SequentialTest) Prior() Prior { return s.prior }

// Samples is the Monte Carlo draw count used by CurrentProbability.
func (s *SequentialTest) Samples() int { return s.opts.samples }

// AddObservation folds one batch into the group's posterior and appends the
// result. On error the history is unchanged.
func (s *SequentialTest) AddObservation(group string, batchSuccesses, batchTrials int) (SequentialObservation, error) {
	if err := validateCounts("add_observation", group, batchSuccesses, batchTrials); err != nil {
		return SequentialObservation{}, err
	}

	alpha, beta := s.prior.Alpha, s.prior.Beta
	cumS, cumT := 0, 0
	hist := s.history[group]
	if n := len(hist); n > 0 {
		last := hist[n-1]
		alpha, beta = last.PosteriorAlpha, last.PosteriorBeta
		cumS, cumT = last.CumulativeSuccesses, last.CumulativeTrials
	}

	alpha += float64(batchSuccesses)
	beta += float64(batchTrials - batchSuccesses)
	obs := SequentialObservation{
		Step:                len(hist) + 1,
		BatchSuccesses:      batchSuccesses,
		BatchTrials:         batchTrials,
		CumulativeSuccesses: cumS + batchSuccesses,
		CumulativeTrials:    cumT + batchTrials,
		PosteriorAlpha:      alpha,
		PosteriorBeta:       beta,
		PosteriorMean:       alpha / (alpha + beta),
	}
	s.history[group] = append(hist, obs)
	return obs, nil
}

// Current returns the group's latest posterior, or the prior when the group
// has no observations.
func (s *SequentialTest) Current(group string) GroupPosterior {
	hist := s.history[group]
	if len(hist) == 0 {
		return s.prior.Posterior(group, 0, 0)
	}
	last := hist[len(hist)-1]
	gp := s.prior.Posterior(group, last.CumulativeSuccesses, last.CumulativeTrials)
	gp.Alpha, gp.Beta, gp.PosteriorMean = last.PosteriorAlpha, last.PosteriorBeta, last.PosteriorMean
	return gp
}

// Ready reports whether both arms have at least one observation.
func (s *SequentialTest) Ready() bool {
	return len(s.history[GroupA]) > 0 && len(s.history[GroupB]) > 0
}

// CurrentProbability estimates P(rate_B > rate_A) from the latest posteriors
// with nSamples draws per arm; zero means the configured default. While
// either arm is empty it returns NoInformationProbability without error.
func (s *SequentialTest) CurrentProbability(nSamples int) (float64, error) {
	n, err := s.sampleCount("current_probability", nSamples)
	if err != nil {
		return 0, err
	}
	if !s.Ready() {
		return NoInformationProbability, nil
	}
	a := s.history[GroupA]
	b := s.history[GroupB]
	return s.probabilityAt(a[len(a)-1], b[len(b)-1], n), nil
}

// History returns a copy of the group's observations in step order.
func (s *SequentialTest) History(group string) []SequentialObservation {
	hist := s.history[group]
	out := make([]SequentialObservation, len(hist))
	copy(out, hist)
	return out
}

// Groups returns the groups with observations, A and B first.
func (s *SequentialTest) Groups() []string {
	out := make([]string, 0, len(s.history))
	for g := range s.history {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := groupRank(out[i]), groupRank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

func groupRank(g string) int {
	switch g {
	case GroupA:
		return 0
	case GroupB:
		return 1
	}
	return 2
}

// HistoryTable flattens the history of every group into rows, grouped by
// group and ordered by step.
func (s *SequentialTest) HistoryTable() []HistoryRow {
	var rows []HistoryRow
	for _, g := range s.Groups() {
		for _, obs := range s.history[g] {
			rows = append(rows, HistoryRow{Group: g, SequentialObservation: obs})
		}
	}
	return rows
}

// ProbabilityCurve evaluates P(B > A) after each step both arms have reached.
func (s *SequentialTest) ProbabilityCurve(nSamples int) ([]ProbabilityPoint, error) {
	n, err := s.sampleCount("probability_curve", nSamples)
	if err != nil {
		return nil, err
	}
	a := s.history[GroupA]
	b := s.history[GroupB]
	steps := min(len(a), len(b))
	out := make([]ProbabilityPoint, steps)
	for i := 0; i < steps; i++ {
		out[i] = ProbabilityPoint{Step: i + 1, ProbabilityBBeatsA: s.probabilityAt(a[i], b[i], n)}
	}
	return out, nil
}

// StepsToThreshold returns the first step whose probability reaches threshold.
func StepsToThreshold(curve []ProbabilityPoint, threshold float64) (int, bool) {
	for _, p := range curve {
		if p.ProbabilityBBeatsA >= threshold {
			return p.Step, true
		}
	}
	return 0, false
}

func (s *SequentialTest) sampleCount(op string, n int) (int, error) {
	switch {
	case n == 0:
		return s.opts.samples, nil
	case n < 0:
		return 0, staterr.InvalidInput(op, "sample count must be positive", "samples", n)
	}
	return n, nil
}

// probabilityAt draws from the posteriors at two observations. Streams are
// keyed by group and step so the last curve point equals CurrentProbability.
func (s *SequentialTest) probabilityAt(a, b SequentialObservation, n int) float64 {
	da := drawBeta(a.PosteriorAlpha, a.PosteriorBeta, n, s.streams.source(GroupA+"@"+strconv.Itoa(a.Step)))
	db := drawBeta(b.PosteriorAlpha, b.PosteriorBeta, n, s.streams.source(GroupB+"@"+strconv.Itoa(b.Step)))
	return fractionGreater(da, db)
}
