package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/analysis"
)

func TestFormatRisk(t *testing.T) {
	got := FormatRisk(analysis.RiskMetrics{
		ProbabilityBBeatsA:  0.91234,
		ProbabilityABeatsB:  0.08766,
		ExpectedUplift:      19.876,
		UpliftCI:            [2]float64{-5.5, 48.123},
		ExpectedLossChooseA: 0.0201234,
		ExpectedLossChooseB: 0.0005,
		RecommendedChoice:   analysis.GroupB,
	})

	assert.Equal(t, map[string]string{
		"Probability B > A":        "0.912",
		"Probability A > B":        "0.088",
		"Expected Uplift":          "19.88%",
		"Uplift 95% CI":            "[-5.50%, 48.12%]",
		"Expected Loss (Choose A)": "0.0201",
		"Expected Loss (Choose B)": "0.0005",
		"Recommended Choice":       "B",
	}, got)
	assert.Len(t, RiskLabels, len(got))
}

func TestAnalyzeRequestDecoding(t *testing.T) {
	var req AnalyzeRequest
	body := `{"A":{"successes":100,"trials":1000},"B":{"successes":120,"trials":1000},"seed":0,"samples":5000}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, GroupInput{Successes: 100, Trials: 1000}, req.A)
	assert.Equal(t, 5000, req.Samples)
	require.NotNil(t, req.Seed, "an explicit zero seed is still a seed")
	assert.Equal(t, uint64(0), *req.Seed)
	assert.Nil(t, req.Prior)
}

func TestCompareMethods(t *testing.T) {
	tests := []struct {
		name        string
		probability float64
		pValue      float64
		verdict     string
		agree       bool
	}{
		{"both significant", 0.99, 0.01, VerdictBothSignificant, true},
		{"bayesian only", 0.97, 0.08, VerdictBayesianOnly, false},
		{"frequentist only", 0.90, 0.03, VerdictFrequentistOnly, false},
		{"neither", 0.60, 0.40, VerdictNeitherSignificant, true},
		{"boundaries are not significant", 0.95, 0.05, VerdictNeitherSignificant, true},
		{"A ahead is not Bayesian evidence for B", 0.01, 0.01, VerdictFrequentistOnly, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareMethods(tt.probability, tt.pValue)
			assert.Equal(t, tt.verdict, got.Verdict)
			assert.Equal(t, tt.agree, got.Agree)
			assert.NotEmpty(t, got.Interpretation)
		})
	}
}
