// Package simulation generates synthetic experiment data and drives the
// sequential engine with it.
package simulation

import (
	"math/rand/v2"

	"github.com/spaolacci/murmur3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/analysis"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
)

// GroupCounts is an observed (successes, trials) pair.
type GroupCounts struct {
	Successes int `json:"successes" yaml:"successes"`
	Trials    int `json:"trials" yaml:"trials"`
}

// Dataset holds the totals of both arms.
type Dataset struct {
	A GroupCounts `json:"A" yaml:"A"`
	B GroupCounts `json:"B" yaml:"B"`
}

// source returns the PCG stream for label. Labels are namespaced so data,
// hypergeometric and posterior draws under one seed never share a stream.
func source(seed uint64, label string) *rand.Rand {
	return rand.New(rand.NewPCG(seed, murmur3.Sum64([]byte(label))))
}

// GenerateData draws binomial successes for each arm at the given true rates.
// The same seed always yields the same dataset.
func GenerateData(rateA, rateB float64, trialsA, trialsB int, seed uint64) (Dataset, error) {
	const op = "generate_data"
	if !(rateA >= 0 && rateA <= 1) || !(rateB >= 0 && rateB <= 1) {
		return Dataset{}, staterr.InvalidInput(op, "rates must be in [0, 1]", "rate_a", rateA, "rate_b", rateB)
	}
	if trialsA < 0 || trialsB < 0 {
		return Dataset{}, staterr.InvalidInput(op, "trials must be non-negative", "trials_a", trialsA, "trials_b", trialsB)
	}
	return Dataset{
		A: GroupCounts{Successes: binomial(trialsA, rateA, source(seed, "data/"+analysis.GroupA)), Trials: trialsA},
		B: GroupCounts{Successes: binomial(trialsB, rateB, source(seed, "data/"+analysis.GroupB)), Trials: trialsB},
	}, nil
}

func binomial(n int, p float64, src rand.Source) int {
	if n == 0 {
		return 0
	}
	return int(distuv.Binomial{N: float64(n), P: p, Src: src}.Rand())
}
