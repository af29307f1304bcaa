package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
)

func TestNewBayesianTestValidation(t *testing.T) {
	tests := []struct {
		name    string
		prior   Prior
		opts    []Option
		wantErr bool
	}{
		{name: "uniform prior", prior: DefaultPrior()},
		{name: "informative prior", prior: Prior{Alpha: 0.5, Beta: 20}},
		{name: "zero alpha", prior: Prior{Alpha: 0, Beta: 1}, wantErr: true},
		{name: "negative beta", prior: Prior{Alpha: 1, Beta: -2}, wantErr: true},
		{name: "NaN alpha", prior: Prior{Alpha: math.NaN(), Beta: 1}, wantErr: true},
		{name: "infinite beta", prior: Prior{Alpha: 1, Beta: math.Inf(1)}, wantErr: true},
		{name: "zero samples", prior: DefaultPrior(), opts: []Option{WithSamples(0)}, wantErr: true},
		{name: "threshold out of range", prior: DefaultPrior(), opts: []Option{WithEquivalenceThreshold(1.5)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bt, err := NewBayesianTest(tt.prior, tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, staterr.ErrInvalidInput))
				assert.Nil(t, bt)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.prior, bt.Prior())
		})
	}
}

func TestObserve(t *testing.T) {
	tests := []struct {
		name      string
		successes int
		trials    int
		wantErr   bool
		wantRate  float64
		wantAlpha float64
		wantBeta  float64
	}{
		{name: "typical counts", successes: 100, trials: 1000, wantRate: 0.1, wantAlpha: 101, wantBeta: 901},
		{name: "no trials", successes: 0, trials: 0, wantRate: 0, wantAlpha: 1, wantBeta: 1},
		{name: "all successes", successes: 10, trials: 10, wantRate: 1, wantAlpha: 11, wantBeta: 1},
		{name: "successes exceed trials", successes: 11, trials: 10, wantErr: true},
		{name: "negative successes", successes: -1, trials: 10, wantErr: true},
		{name: "negative trials", successes: 0, trials: -5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bt, err := NewBayesianTest(DefaultPrior())
			require.NoError(t, err)

			gp, err := bt.Observe(GroupA, tt.successes, tt.trials)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, staterr.ErrInvalidInput))
				_, ok := bt.Posterior(GroupA)
				assert.False(t, ok, "failed observe must not store a posterior")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRate, gp.ConversionRate)
			assert.Equal(t, tt.wantAlpha, gp.Alpha)
			assert.Equal(t, tt.wantBeta, gp.Beta)
			assert.InDelta(t, tt.wantAlpha/(tt.wantAlpha+tt.wantBeta), gp.PosteriorMean, 1e-12)
		})
	}
}

func TestObserveRejectsEmptyGroup(t *testing.T) {
	bt, err := NewBayesianTest(DefaultPrior())
	require.NoError(t, err)
	_, err = bt.Observe("", 1, 2)
	assert.True(t, errors.Is(err, staterr.ErrInvalidInput))
}

func TestObserveOverwrites(t *testing.T) {
	bt, err := NewBayesianTest(DefaultPrior())
	require.NoError(t, err)

	_, err = bt.Observe(GroupA, 50, 100)
	require.NoError(t, err)
	_, err = bt.Observe(GroupA, 5, 200)
	require.NoError(t, err)

	gp, ok := bt.Posterior(GroupA)
	require.True(t, ok)
	assert.Equal(t, 5, gp.Successes)
	assert.Equal(t, 200, gp.Trials)
	assert.Equal(t, 6.0, gp.Alpha)
	assert.Equal(t, 196.0, gp.Beta)
	assert.Equal(t, []string{GroupA}, bt.Groups())
}

func TestFailedObserveKeepsPreviousPosterior(t *testing.T) {
	bt, err := NewBayesianTest(DefaultPrior())
	require.NoError(t, err)
	_, err = bt.Observe(GroupB, 3, 30)
	require.NoError(t, err)

	_, err = bt.Observe(GroupB, 40, 30)
	require.Error(t, err)

	gp, ok := bt.Posterior(GroupB)
	require.True(t, ok)
	assert.Equal(t, 3, gp.Successes)
}

func TestObserveConjugateUpdateProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		alpha0 := rapid.Float64Range(0.01, 50).Draw(rt, "alpha0")
		beta0 := rapid.Float64Range(0.01, 50).Draw(rt, "beta0")
		trials := rapid.IntRange(0, 1_000_000).Draw(rt, "trials")
		successes := rapid.IntRange(0, trials).Draw(rt, "successes")

		bt, err := NewBayesianTest(Prior{Alpha: alpha0, Beta: beta0})
		require.NoError(rt, err)
		gp, err := bt.Observe(GroupA, successes, trials)
		require.NoError(rt, err)

		assert.Equal(rt, alpha0+float64(successes), gp.Alpha)
		assert.Equal(rt, beta0+float64(trials-successes), gp.Beta)
		assert.Greater(rt, gp.PosteriorMean, 0.0)
		assert.Less(rt, gp.PosteriorMean, 1.0)
	})
}

func TestSample(t *testing.T) {
	bt, err := NewBayesianTest(DefaultPrior(), WithSeed(7))
	require.NoError(t, err)

	_, err = bt.Sample(GroupA, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, staterr.ErrInvalidState))

	_, err = bt.Observe(GroupA, 30, 100)
	require.NoError(t, err)

	_, err = bt.Sample(GroupA, 0)
	assert.True(t, errors.Is(err, staterr.ErrInvalidInput))

	draws, err := bt.Sample(GroupA, 5000)
	require.NoError(t, err)
	require.Len(t, draws, 5000)
	for _, d := range draws {
		assert.True(t, d >= 0 && d <= 1)
	}
	assert.InDelta(t, 31.0/102.0, mean(draws), 0.01)

	again, err := bt.Sample(GroupA, 5000)
	require.NoError(t, err)
	assert.Equal(t, draws, again, "seeded draws must repeat")
}

func TestScenarioPosteriorMeans(t *testing.T) {
	bt, err := NewBayesianTest(DefaultPrior())
	require.NoError(t, err)

	a, err := bt.Observe(GroupA, 100, 1000)
	require.NoError(t, err)
	b, err := bt.Observe(GroupB, 120, 1000)
	require.NoError(t, err)

	assert.InDelta(t, 101.0/1002.0, a.PosteriorMean, 1e-12)
	assert.InDelta(t, 121.0/1002.0, b.PosteriorMean, 1e-12)
	assert.InDelta(t, 0.0992, a.PosteriorMean, 0.0025)
	assert.InDelta(t, 0.1188, b.PosteriorMean, 0.0025)
}

func TestCredibleInterval(t *testing.T) {
	bt, err := NewBayesianTest(DefaultPrior())
	require.NoError(t, err)
	_, err = bt.Observe(GroupA, 0, 0)
	require.NoError(t, err)

	ci, err := bt.CredibleInterval(GroupA, 0.9)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, ci.Lower, 1e-6)
	assert.InDelta(t, 0.95, ci.Upper, 1e-6)

	_, err = bt.CredibleInterval(GroupA, 1)
	assert.True(t, errors.Is(err, staterr.ErrInvalidInput))
	_, err = bt.CredibleInterval(GroupB, 0.95)
	assert.True(t, errors.Is(err, staterr.ErrInvalidState))
}

func TestDensityCurve(t *testing.T) {
	bt, err := NewBayesianTest(DefaultPrior())
	require.NoError(t, err)
	_, err = bt.Observe(GroupA, 0, 0)
	require.NoError(t, err)

	curve, err := bt.DensityCurve(GroupA, 11)
	require.NoError(t, err)
	require.Len(t, curve, 11)
	for _, p := range curve {
		assert.InDelta(t, 1.0, p.PDF, 1e-6)
	}
	assert.Less(t, curve[0].X, curve[10].X)

	_, err = bt.DensityCurve(GroupA, 1)
	assert.True(t, errors.Is(err, staterr.ErrInvalidInput))
}
