package simulation

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/analysis"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/frequentist"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
)

// ScenarioConfig describes a repeated experiment at known true rates.
type ScenarioConfig struct {
	RateA          float64 `json:"rate_a" yaml:"rate_a"`
	RateB          float64 `json:"rate_b" yaml:"rate_b"`
	TrialsPerGroup int     `json:"trials_per_group" yaml:"trials_per_group"`
	Runs           int     `json:"runs" yaml:"runs"`
	Samples        int     `json:"samples" yaml:"samples"`
	// DecisionThreshold is the P(B > A) needed to declare B the winner; A wins
	// below 1 - DecisionThreshold.
	DecisionThreshold float64 `json:"decision_threshold" yaml:"decision_threshold"`
	Alpha             float64 `json:"alpha" yaml:"alpha"`
	Seed              uint64  `json:"seed" yaml:"seed"`
	Concurrency       int     `json:"concurrency" yaml:"concurrency"`
}

// DefaultScenario matches the dashboard defaults: 100 runs of 1000 trials.
func DefaultScenario() ScenarioConfig {
	return ScenarioConfig{
		RateA:             0.10,
		RateB:             0.12,
		TrialsPerGroup:    1000,
		Runs:              100,
		Samples:           20_000,
		DecisionThreshold: 0.95,
		Alpha:             frequentist.SignificanceLevel,
		Concurrency:       4,
	}
}

// RunOutcome is one simulated experiment and both decisions on it.
type RunOutcome struct {
	Run                 int     `json:"run" yaml:"run"`
	Data                Dataset `json:"data" yaml:"data"`
	ProbabilityBBeatsA  float64 `json:"probability_b_beats_a" yaml:"probability_b_beats_a"`
	PValue              float64 `json:"p_value" yaml:"p_value"`
	BayesianDecision    string  `json:"bayesian_decision" yaml:"bayesian_decision"`
	FrequentistDecision string  `json:"frequentist_decision" yaml:"frequentist_decision"`
}

// ScenarioResult aggregates the runs of a scenario.
type ScenarioResult struct {
	Config              ScenarioConfig `json:"config" yaml:"config"`
	Truth               string         `json:"truth" yaml:"truth"`
	BayesianCorrect     int            `json:"bayesian_correct" yaml:"bayesian_correct"`
	FrequentistCorrect  int            `json:"frequentist_correct" yaml:"frequentist_correct"`
	BayesianAccuracy    float64        `json:"bayesian_accuracy" yaml:"bayesian_accuracy"`
	FrequentistAccuracy float64        `json:"frequentist_accuracy" yaml:"frequentist_accuracy"`
	Runs                []RunOutcome   `json:"runs,omitempty" yaml:"runs,omitempty"`
}

// DecisionNone means no arm was declared the winner.
const DecisionNone = "none"

func (c ScenarioConfig) validate(maxRuns int) error {
	const op = "run_scenario"
	switch {
	case !(c.RateA >= 0 && c.RateA <= 1) || !(c.RateB >= 0 && c.RateB <= 1):
		return staterr.InvalidInput(op, "rates must be in [0, 1]", "rate_a", c.RateA, "rate_b", c.RateB)
	case c.TrialsPerGroup < 1:
		return staterr.InvalidInput(op, "trials per group must be positive", "trials_per_group", c.TrialsPerGroup)
	case c.Runs < 1 || (maxRuns > 0 && c.Runs > maxRuns):
		return staterr.InvalidInput(op, "run count out of range", "runs", c.Runs, "max", maxRuns)
	case c.Samples < 1:
		return staterr.InvalidInput(op, "sample count must be positive", "samples", c.Samples)
	case !(c.DecisionThreshold > 0.5 && c.DecisionThreshold < 1):
		return staterr.InvalidInput(op, "decision threshold must be in (0.5, 1)", "decision_threshold", c.DecisionThreshold)
	case !(c.Alpha > 0 && c.Alpha < 1):
		return staterr.InvalidInput(op, "alpha must be in (0, 1)", "alpha", c.Alpha)
	}
	return nil
}

func truth(rateA, rateB float64) string {
	switch {
	case rateB > rateA:
		return analysis.GroupB
	case rateA > rateB:
		return analysis.GroupA
	}
	return DecisionNone
}

// RunScenario repeats the experiment Runs times, run i seeded with Seed+i, and
// counts how often each method reaches the correct decision. When the true
// rates are equal the correct decision is to declare no winner. Results do
// not depend on Concurrency. maxRuns of zero means unbounded.
func RunScenario(ctx context.Context, cfg ScenarioConfig, maxRuns int) (ScenarioResult, error) {
	if err := cfg.validate(maxRuns); err != nil {
		return ScenarioResult{}, err
	}

	outcomes := make([]RunOutcome, cfg.Runs)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Concurrency, 1))
	for i := 0; i < cfg.Runs; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := runOnce(cfg, i)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScenarioResult{}, err
	}

	res := ScenarioResult{Config: cfg, Truth: truth(cfg.RateA, cfg.RateB), Runs: outcomes}
	for _, o := range outcomes {
		if o.BayesianDecision == res.Truth {
			res.BayesianCorrect++
		}
		if o.FrequentistDecision == res.Truth {
			res.FrequentistCorrect++
		}
	}
	res.BayesianAccuracy = float64(res.BayesianCorrect) / float64(cfg.Runs)
	res.FrequentistAccuracy = float64(res.FrequentistCorrect) / float64(cfg.Runs)
	return res, nil
}

func runOnce(cfg ScenarioConfig, i int) (RunOutcome, error) {
	seed := cfg.Seed + uint64(i)
	data, err := GenerateData(cfg.RateA, cfg.RateB, cfg.TrialsPerGroup, cfg.TrialsPerGroup, seed)
	if err != nil {
		return RunOutcome{}, err
	}
	out := RunOutcome{Run: i, Data: data, BayesianDecision: DecisionNone, FrequentistDecision: DecisionNone}

	bt, err := analysis.NewBayesianTest(analysis.DefaultPrior(), analysis.WithSeed(seed), analysis.WithSamples(cfg.Samples))
	if err != nil {
		return RunOutcome{}, err
	}
	if _, err := bt.Observe(analysis.GroupA, data.A.Successes, data.A.Trials); err != nil {
		return RunOutcome{}, err
	}
	if _, err := bt.Observe(analysis.GroupB, data.B.Successes, data.B.Trials); err != nil {
		return RunOutcome{}, err
	}
	p, err := bt.ProbabilityBBeatsA()
	if err != nil {
		return RunOutcome{}, err
	}
	out.ProbabilityBBeatsA = p
	switch {
	case p > cfg.DecisionThreshold:
		out.BayesianDecision = analysis.GroupB
	case p < 1-cfg.DecisionThreshold:
		out.BayesianDecision = analysis.GroupA
	}

	zt, err := frequentist.ProportionTest(data.A.Successes, data.A.Trials, data.B.Successes, data.B.Trials)
	switch {
	case errors.Is(err, staterr.ErrDegenerateStatistic):
		out.PValue = 1
	case err != nil:
		return RunOutcome{}, err
	default:
		out.PValue = zt.PValue
		if zt.PValue < cfg.Alpha {
			out.FrequentistDecision = analysis.GroupB
			if zt.Difference < 0 {
				out.FrequentistDecision = analysis.GroupA
			}
		}
	}
	return out, nil
}
