package frequentist

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
)

func TestChiSquaredTest(t *testing.T) {
	res, err := ChiSquaredTest(10, 100, 20, 100)
	require.NoError(t, err)

	// chi2 = z^2 for the 2x2 table; 200*(10*80-90*20)^2 / (100*100*30*170)
	assert.InDelta(t, 3.9216, res.Chi2, 1e-4)
	assert.InDelta(t, 0.0477, res.PValue, 1e-3)
	assert.Equal(t, 1, res.DegreesOfFreedom)
	assert.True(t, res.SignificantAt05)
	assert.False(t, res.YatesCorrected)
	assert.Equal(t, [2][2]float64{{15, 85}, {15, 85}}, res.Expected)
}

func TestChiSquaredTestYates(t *testing.T) {
	res, err := ChiSquaredTestYates(10, 100, 20, 100)
	require.NoError(t, err)

	assert.InDelta(t, 3.1765, res.Chi2, 1e-4)
	assert.InDelta(t, 0.0747, res.PValue, 1e-3)
	assert.False(t, res.SignificantAt05)
	assert.True(t, res.YatesCorrected)

	plain, err := ChiSquaredTest(10, 100, 20, 100)
	require.NoError(t, err)
	assert.Less(t, res.Chi2, plain.Chi2)
}

func TestChiSquaredTestErrors(t *testing.T) {
	tests := []struct {
		name       string
		sA, tA     int
		sB, tB     int
		wantKind   error
	}{
		{"zero successes everywhere", 0, 100, 0, 100, staterr.ErrDegenerateStatistic},
		{"all successes", 50, 50, 60, 60, staterr.ErrDegenerateStatistic},
		{"empty group", 0, 0, 5, 10, staterr.ErrDegenerateStatistic},
		{"successes exceed trials", 11, 10, 5, 10, staterr.ErrInvalidInput},
		{"negative counts", -1, 10, 5, 10, staterr.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ChiSquaredTest(tt.sA, tt.tA, tt.sB, tt.tB)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind))
		})
	}
}

func TestProportionTest(t *testing.T) {
	res, err := ProportionTest(10, 100, 20, 100)
	require.NoError(t, err)

	assert.InDelta(t, 0.1, res.Difference, 1e-12)
	assert.InDelta(t, -1.9803, res.ZStatistic, 1e-4)
	assert.InDelta(t, 0.0477, res.PValue, 1e-3)
	assert.True(t, res.SignificantAt05)
	assert.InDelta(t, 0.0505, res.StandardError, 1e-4)
	assert.InDelta(t, 0.1-1.96*res.StandardError, res.CIDifference[0], 1e-12)
	assert.InDelta(t, 0.1+1.96*res.StandardError, res.CIDifference[1], 1e-12)
}

func TestProportionTestSignConvention(t *testing.T) {
	tests := []struct {
		name   string
		sA, sB int
	}{
		{"A ahead", 20, 10},
		{"B ahead", 10, 20},
		{"B far ahead", 5, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ProportionTest(tt.sA, 100, tt.sB, 100)
			require.NoError(t, err)
			assert.InDelta(t, (res.RateA-res.RateB)/res.StandardError, res.ZStatistic, 1e-12)
			assert.Equal(t, res.Difference > 0, res.ZStatistic < 0)
		})
	}
}

func TestTestsAgreeOnDirectionAndSignificance(t *testing.T) {
	chi, err := ChiSquaredTest(10, 100, 20, 100)
	require.NoError(t, err)
	z, err := ProportionTest(10, 100, 20, 100)
	require.NoError(t, err)

	assert.Less(t, chi.PValue, 0.05)
	assert.Less(t, z.PValue, 0.05)
	assert.Greater(t, z.Difference, 0.0)
	assert.InDelta(t, chi.Chi2, z.ZStatistic*z.ZStatistic, 1e-9)
	assert.InDelta(t, chi.PValue, z.PValue, 1e-9)
}

func TestProportionTestErrors(t *testing.T) {
	tests := []struct {
		name     string
		sA, tA   int
		sB, tB   int
		wantKind error
	}{
		{"no trials in A", 0, 0, 5, 10, staterr.ErrInvalidInput},
		{"successes exceed trials", 5, 4, 5, 10, staterr.ErrInvalidInput},
		{"pooled rate zero", 0, 10, 0, 20, staterr.ErrDegenerateStatistic},
		{"pooled rate one", 10, 10, 20, 20, staterr.ErrDegenerateStatistic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ProportionTest(tt.sA, tt.tA, tt.sB, tt.tB)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind))
		})
	}
}
