package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
)

func newObservedTest(t *testing.T, sA, tA, sB, tB int, opts ...Option) *BayesianTest {
	t.Helper()
	bt, err := NewBayesianTest(DefaultPrior(), opts...)
	require.NoError(t, err)
	_, err = bt.Observe(GroupA, sA, tA)
	require.NoError(t, err)
	_, err = bt.Observe(GroupB, sB, tB)
	require.NoError(t, err)
	return bt
}

func TestRiskMetricsRequireBothGroups(t *testing.T) {
	bt, err := NewBayesianTest(DefaultPrior())
	require.NoError(t, err)
	_, err = bt.Observe(GroupA, 10, 100)
	require.NoError(t, err)

	_, err = bt.RiskMetrics()
	require.Error(t, err)
	assert.True(t, errors.Is(err, staterr.ErrMissingGroup))

	var se *staterr.Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{GroupB}, se.Fields["missing"])

	_, err = bt.ProbabilityBBeatsA()
	assert.True(t, errors.Is(err, staterr.ErrMissingGroup))
	_, err = bt.ExpectedLoss()
	assert.True(t, errors.Is(err, staterr.ErrMissingGroup))
	_, err = bt.Uplift()
	assert.True(t, errors.Is(err, staterr.ErrMissingGroup))
}

func TestRiskMetricsClearWinner(t *testing.T) {
	bt := newObservedTest(t, 100, 1000, 120, 1000, WithSeed(42))

	rm, err := bt.RiskMetrics()
	require.NoError(t, err)

	assert.Equal(t, DefaultSamples, rm.Samples)
	assert.GreaterOrEqual(t, rm.ProbabilityBBeatsA, 0.85)
	assert.LessOrEqual(t, rm.ProbabilityBBeatsA, 0.97)
	assert.InDelta(t, 1.0, rm.ProbabilityBBeatsA+rm.ProbabilityABeatsB, 1e-12)
	assert.Less(t, rm.ExpectedLossChooseB, rm.ExpectedLossChooseA)
	assert.Equal(t, GroupB, rm.RecommendedChoice)
	assert.InDelta(t, 20.0, rm.ExpectedUplift, 5)
	assert.Less(t, rm.UpliftCI[0], rm.ExpectedUplift)
	assert.Greater(t, rm.UpliftCI[1], rm.ExpectedUplift)
	assert.InDelta(t, 0.02, rm.AbsoluteUplift, 0.003)
	assert.Zero(t, rm.ExcludedUpliftDraws)
}

func TestRiskMetricsIdenticalData(t *testing.T) {
	bt := newObservedTest(t, 100, 1000, 100, 1000, WithSeed(1))

	rm, err := bt.RiskMetrics()
	require.NoError(t, err)

	assert.InDelta(t, 0.5, rm.ProbabilityBBeatsA, 0.02)
	assert.InDelta(t, rm.ExpectedLossChooseA, rm.ExpectedLossChooseB, 0.001)
}

func TestRiskMetricsDeterministicWithSeed(t *testing.T) {
	bt := newObservedTest(t, 37, 400, 52, 410, WithSeed(2024), WithSamples(20_000))

	first, err := bt.RiskMetrics()
	require.NoError(t, err)
	second, err := bt.RiskMetrics()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other := newObservedTest(t, 37, 400, 52, 410, WithSeed(2024), WithSamples(20_000))
	third, err := other.RiskMetrics()
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestProbabilityMatchesRiskMetrics(t *testing.T) {
	bt := newObservedTest(t, 20, 200, 30, 200, WithSeed(9), WithSamples(10_000))

	p, err := bt.ProbabilityBBeatsA()
	require.NoError(t, err)
	rm, err := bt.RiskMetrics()
	require.NoError(t, err)
	assert.Equal(t, p, rm.ProbabilityBBeatsA)

	loss, err := bt.ExpectedLoss()
	require.NoError(t, err)
	assert.Equal(t, loss.ChooseA, rm.ExpectedLossChooseA)
	assert.Equal(t, loss.Recommended, rm.RecommendedChoice)
}

func TestExpectedLossTieGoesToA(t *testing.T) {
	draws := []float64{0.1, 0.2, 0.3}
	loss := expectedLoss(draws, draws)
	assert.Equal(t, 0.0, loss.ChooseA)
	assert.Equal(t, 0.0, loss.ChooseB)
	assert.Equal(t, GroupA, loss.Recommended)
}

func TestExpectedLoss(t *testing.T) {
	a := []float64{0.25, 0.75}
	b := []float64{0.5, 0.5}
	loss := expectedLoss(a, b)
	assert.Equal(t, 0.125, loss.ChooseA)
	assert.Equal(t, 0.125, loss.ChooseB)
	assert.Equal(t, GroupA, loss.Recommended)

	loss = expectedLoss([]float64{0.1, 0.1}, []float64{0.3, 0.2})
	assert.InDelta(t, 0.15, loss.ChooseA, 1e-12)
	assert.Equal(t, 0.0, loss.ChooseB)
	assert.Equal(t, GroupB, loss.Recommended)
}

func TestUpliftExcludesZeroDraws(t *testing.T) {
	a := []float64{0, 0.1, 0.2}
	b := []float64{0.05, 0.15, 0.2}

	up := uplift(a, b)
	assert.Equal(t, 1, up.ExcludedDraws)
	assert.InDelta(t, 25.0, up.RelativeMean, 1e-9)
	assert.InDelta(t, (0.05+0.05+0)/3, up.AbsoluteMean, 1e-12)
	assert.True(t, isFinite(up.RelativeCI[0]))
	assert.True(t, isFinite(up.RelativeCI[1]))
}

func TestUpliftAllDrawsExcluded(t *testing.T) {
	up := uplift([]float64{0, 0}, []float64{0.1, 0.2})
	assert.Equal(t, 2, up.ExcludedDraws)
	assert.True(t, math.IsNaN(up.RelativeMean))
	assert.True(t, math.IsNaN(up.RelativeCI[0]))
}

func TestProbabilityUpliftAboveFromDraws(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []float64
		minPct float64
		want   float64
	}{
		{"all above", []float64{0.1, 0.2}, []float64{0.2, 0.3}, 5, 1},
		{"half above", []float64{0.1, 0.1}, []float64{0.104, 0.12}, 5, 0.5},
		{"strictly greater", []float64{0.5}, []float64{0.625}, 25, 0},
		{"negative threshold", []float64{0.1, 0.1}, []float64{0.099, 0.05}, -5, 0.5},
		{"zero A excluded", []float64{0, 0.1, 0.1}, []float64{0.5, 0.2, 0.1}, 5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, probabilityUpliftAbove(tt.a, tt.b, tt.minPct), 1e-12)
		})
	}
	assert.True(t, math.IsNaN(probabilityUpliftAbove([]float64{0}, []float64{0.1}, 5)))
}

func TestProbabilityUpliftAbove(t *testing.T) {
	bt := newObservedTest(t, 100, 1000, 120, 1000, WithSeed(42), WithSamples(20_000))

	loose, err := bt.ProbabilityUpliftAbove(0)
	require.NoError(t, err)
	p, err := bt.ProbabilityBBeatsA()
	require.NoError(t, err)
	assert.InDelta(t, p, loose, 1e-12, "zero uplift threshold is P(B > A)")

	meaningful, err := bt.ProbabilityUpliftAbove(DefaultMinUplift)
	require.NoError(t, err)
	strict, err := bt.ProbabilityUpliftAbove(50)
	require.NoError(t, err)
	assert.Less(t, meaningful, loose)
	assert.Less(t, strict, meaningful)
	assert.Greater(t, meaningful, 0.7)

	_, err = bt.ProbabilityUpliftAbove(math.Inf(1))
	assert.True(t, errors.Is(err, staterr.ErrInvalidInput))

	partial, err := NewBayesianTest(DefaultPrior())
	require.NoError(t, err)
	_, err = partial.ProbabilityUpliftAbove(5)
	assert.True(t, errors.Is(err, staterr.ErrMissingGroup))
}

func TestPercentiles(t *testing.T) {
	xs := []float64{5, 1, 4, 2, 3}
	q := percentiles(xs, 0, 0.5, 1)
	assert.Equal(t, []float64{1, 3, 5}, q)
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, xs, "input must not be reordered")
}

func BenchmarkRiskMetrics(b *testing.B) {
	bt, err := NewBayesianTest(DefaultPrior(), WithSeed(1))
	if err != nil {
		b.Fatal(err)
	}
	if _, err := bt.Observe(GroupA, 100, 1000); err != nil {
		b.Fatal(err)
	}
	if _, err := bt.Observe(GroupB, 120, 1000); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := bt.RiskMetrics(); err != nil {
			b.Fatalf("risk metrics failed: %v", err)
		}
	}
}
