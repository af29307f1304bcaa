package simulation

import (
	"context"
	"math/rand/v2"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/analysis"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
)

const (
	DefaultBatches = 20
	MaxBatches     = 1000
	// DefaultMaxTrials bounds each group's totals in RunSequential.
	DefaultMaxTrials = 10_000_000
)

// BatchRecord is one synthetic batch fed to the sequential engine.
type BatchRecord struct {
	Batch       int                            `json:"batch" yaml:"batch"`
	Group       string                         `json:"group" yaml:"group"`
	Observation analysis.SequentialObservation `json:"observation" yaml:"observation"`
}

// SplitTrials divides total into batches near-equal parts. The first
// total%batches parts get one extra trial so the parts sum to total.
func SplitTrials(total, batches int) []int {
	sizes := make([]int, batches)
	if batches == 0 {
		return sizes
	}
	base, extra := total/batches, total%batches
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes
}

// hypergeometric draws k items without replacement from a pool of good
// successes and bad failures and returns how many successes were drawn.
// When k exceeds half the pool it draws the items left behind instead, so at
// most min(k, good+bad-k) uniforms are consumed.
func hypergeometric(r *rand.Rand, good, bad, k int) int {
	if n := good + bad; k > n-k {
		return good - hypergeometric(r, good, bad, n-k)
	}
	drawn := 0
	for i := 0; i < k && good > 0; i++ {
		if r.IntN(good+bad) < good {
			good--
			drawn++
		} else {
			bad--
		}
	}
	return drawn
}

type pool struct {
	group     string
	successes int
	trials    int
	sizes     []int
	rng       *rand.Rand
}

// next draws the batch of the given size and shrinks the pool.
func (p *pool) next(size int) (int, int) {
	size = min(size, p.trials)
	s := hypergeometric(p.rng, p.successes, p.trials-p.successes, size)
	p.successes -= s
	p.trials -= size
	return s, size
}

type plannedBatch struct {
	batch     int
	group     string
	successes int
	trials    int
}

// RunSequential replays the totals as a stream of batches into test. Each
// batch's successes are drawn without replacement from what remains, so the
// batches of each group sum exactly to its totals. Batches with no trials are
// skipped. maxTrials caps each group's total trials; zero means unbounded.
//
// Every batch is drawn before the test is touched and ctx is checked between
// batches, so a rejected or cancelled run leaves test unchanged.
func RunSequential(ctx context.Context, test *analysis.SequentialTest, data Dataset, batches int, seed uint64, maxTrials int) ([]BatchRecord, error) {
	const op = "run_sequential"
	if batches < 1 || batches > MaxBatches {
		return nil, staterr.InvalidInput(op, "batch count out of range", "batches", batches, "max", MaxBatches)
	}
	for _, g := range []struct {
		name string
		c    GroupCounts
	}{{analysis.GroupA, data.A}, {analysis.GroupB, data.B}} {
		if g.c.Trials < 0 || g.c.Successes < 0 || g.c.Successes > g.c.Trials {
			return nil, staterr.InvalidInput(op, "invalid totals", "group", g.name, "successes", g.c.Successes, "trials", g.c.Trials)
		}
		if maxTrials > 0 && g.c.Trials > maxTrials {
			return nil, staterr.InvalidInput(op, "trials exceed the simulation limit", "group", g.name, "trials", g.c.Trials, "max", maxTrials)
		}
	}

	pools := []*pool{
		{group: analysis.GroupA, successes: data.A.Successes, trials: data.A.Trials, sizes: SplitTrials(data.A.Trials, batches), rng: source(seed, "hypergeometric/A")},
		{group: analysis.GroupB, successes: data.B.Successes, trials: data.B.Trials, sizes: SplitTrials(data.B.Trials, batches), rng: source(seed, "hypergeometric/B")},
	}

	var plan []plannedBatch
	for i := 0; i < batches; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, p := range pools {
			if p.sizes[i] == 0 {
				continue
			}
			s, n := p.next(p.sizes[i])
			plan = append(plan, plannedBatch{batch: i + 1, group: p.group, successes: s, trials: n})
		}
	}

	records := make([]BatchRecord, 0, len(plan))
	for _, b := range plan {
		obs, err := test.AddObservation(b.group, b.successes, b.trials)
		if err != nil {
			return records, err
		}
		records = append(records, BatchRecord{Batch: b.batch, Group: b.group, Observation: obs})
	}
	return records, nil
}
