// Package types holds the request and response shapes shared by the HTTP
// API and the CLI.
package types

import (
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/analysis"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/design"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/frequentist"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/simulation"
)

// GroupInput is one arm's observed counts.
type GroupInput struct {
	Successes int `json:"successes" yaml:"successes" binding:"gte=0" example:"100"`
	Trials    int `json:"trials" yaml:"trials" binding:"gte=0" example:"1000"`
}

// InferenceOptions are the Monte Carlo knobs shared by several requests.
type InferenceOptions struct {
	Prior                *analysis.Prior `json:"prior,omitempty" yaml:"prior,omitempty"`
	Samples              int             `json:"samples,omitempty" yaml:"samples,omitempty" binding:"gte=0" example:"100000"`
	Seed                 *uint64         `json:"seed,omitempty" yaml:"seed,omitempty" example:"42"`
	EquivalenceThreshold *float64        `json:"equivalence_threshold,omitempty" yaml:"equivalence_threshold,omitempty" example:"0.01"`
}

// AnalyzeRequest runs the whole Bayesian and frequentist battery on two arms.
type AnalyzeRequest struct {
	A GroupInput `json:"A" yaml:"A"`
	B GroupInput `json:"B" yaml:"B"`
	InferenceOptions `yaml:",inline"`
	CredibleLevel float64 `json:"credible_level,omitempty" yaml:"credible_level,omitempty" example:"0.95"`
	Yates         bool    `json:"yates,omitempty" yaml:"yates,omitempty"`
	// MinUplift is the relative uplift, in percent, that counts as a
	// meaningful effect. Defaults to 5.
	MinUplift *float64 `json:"min_uplift,omitempty" yaml:"min_uplift,omitempty" example:"5"`
}

// AnalyzeResponse is the result of RunAnalysis.
type AnalyzeResponse struct {
	Posteriors        []analysis.GroupPosterior     `json:"posteriors" yaml:"posteriors"`
	Risk              analysis.RiskMetrics          `json:"risk" yaml:"risk"`
	MeaningfulEffect  *MeaningfulEffect             `json:"meaningful_effect,omitempty" yaml:"meaningful_effect,omitempty"`
	BayesFactor       analysis.BayesFactor          `json:"bayes_factor" yaml:"bayes_factor"`
	CredibleIntervals []analysis.CredibleInterval   `json:"credible_intervals" yaml:"credible_intervals"`
	ChiSquared        *frequentist.ChiSquaredResult `json:"chi_squared,omitempty" yaml:"chi_squared,omitempty"`
	Proportion        *frequentist.ProportionResult `json:"proportion_test,omitempty" yaml:"proportion_test,omitempty"`
	// Agreement is omitted when the z test is undefined.
	Agreement *MethodAgreement `json:"agreement,omitempty" yaml:"agreement,omitempty"`
	// Warnings lists frequentist statistics that were undefined for this table.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Seed     *uint64  `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// CreateTestRequest configures a new batch test
type CreateTestRequest struct {
	InferenceOptions `yaml:",inline"`
}

// TestResponse describes a batch test and its posteriors
type TestResponse struct {
	ID         string                    `json:"id"`
	Prior      analysis.Prior            `json:"prior"`
	Samples    int                       `json:"samples"`
	Seed       *uint64                   `json:"seed,omitempty"`
	Threshold  float64                   `json:"equivalence_threshold"`
	Posteriors []analysis.GroupPosterior `json:"posteriors"`
	CreatedAt  time.Time                 `json:"created_at"`
}

// ObserveRequest replaces one group's counts in a batch test
type ObserveRequest = GroupInput

// SamplesResponse carries raw posterior draws for one group
type SamplesResponse struct {
	Group   string    `json:"group"`
	Samples []float64 `json:"samples"`
}

// DensityResponse is a posterior density curve for one group
type DensityResponse struct {
	Group            string                    `json:"group"`
	Points           []analysis.DensityPoint   `json:"points"`
	CredibleInterval analysis.CredibleInterval `json:"credible_interval"`
}

// CreateSequentialRequest configures a new sequential test
type CreateSequentialRequest struct {
	Prior   *analysis.Prior `json:"prior,omitempty"`
	Samples int             `json:"samples,omitempty" binding:"gte=0"`
	Seed    *uint64         `json:"seed,omitempty"`
}

// SequentialResponse describes a sequential test and its current posteriors
type SequentialResponse struct {
	ID        string                             `json:"id"`
	Prior     analysis.Prior                     `json:"prior"`
	Samples   int                                `json:"samples"`
	Seed      *uint64                            `json:"seed,omitempty"`
	Current   map[string]analysis.GroupPosterior `json:"current"`
	Ready     bool                               `json:"ready"`
	CreatedAt time.Time                          `json:"created_at"`
}

// ObservationRequest adds one batch to a group
type ObservationRequest struct {
	Group     string `json:"group" binding:"required" example:"A"`
	Successes int    `json:"successes" binding:"gte=0" example:"10"`
	Trials    int    `json:"trials" binding:"gte=0" example:"100"`
}

// ObservationResponse is the history entry created by an observation
type ObservationResponse struct {
	Group       string                         `json:"group"`
	Observation analysis.SequentialObservation `json:"observation"`
}

// ProbabilityResponse reports P(B > A) and whether both groups have data
type ProbabilityResponse struct {
	ProbabilityBBeatsA float64 `json:"probability_b_beats_a" yaml:"probability_b_beats_a"`
	// Ready is false while either arm is unobserved; the probability is then
	// the no-information value 0.5.
	Ready   bool `json:"ready" yaml:"ready"`
	Samples int  `json:"samples" yaml:"samples"`
}

// CurveResponse is P(B > A) after each step plus the first step past the threshold
type CurveResponse struct {
	Curve            []analysis.ProbabilityPoint `json:"curve" yaml:"curve"`
	Threshold        float64                     `json:"threshold" yaml:"threshold"`
	StepsToThreshold *int                        `json:"steps_to_threshold,omitempty" yaml:"steps_to_threshold,omitempty"`
}

// SimulateSequentialRequest splits totals into batches for a sequential test
type SimulateSequentialRequest struct {
	A       GroupInput `json:"A"`
	B       GroupInput `json:"B"`
	Batches int        `json:"batches,omitempty" binding:"gte=0" example:"20"`
	Seed    *uint64    `json:"seed,omitempty"`
}

// SimulateSequentialResponse lists the simulated batches and the final probability
type SimulateSequentialResponse struct {
	Records []simulation.BatchRecord `json:"records" yaml:"records"`
	ProbabilityResponse `yaml:",inline"`
}

// FrequentistRequest is a 2x2 table given as counts per group
type FrequentistRequest struct {
	A     GroupInput `json:"A"`
	B     GroupInput `json:"B"`
	Yates bool       `json:"yates,omitempty"`
}

// SampleSizeRequest asks for the per-group size that detects an effect
type SampleSizeRequest struct {
	MDE          float64 `json:"mde" binding:"required" example:"0.1"`
	BaselineRate float64 `json:"baseline_rate" binding:"required" example:"0.1"`
	Alpha        float64 `json:"alpha,omitempty" example:"0.05"`
	Power        float64 `json:"power,omitempty" example:"0.8"`
}

// SampleSizeResponse holds per-group and total sample sizes
type SampleSizeResponse struct {
	SampleSizePerGroup int     `json:"sample_size_per_group" yaml:"sample_size_per_group"`
	TotalSampleSize    int     `json:"total_sample_size" yaml:"total_sample_size"`
	EffectSize         float64 `json:"effect_size" yaml:"effect_size"`
}

// PowerRequest asks for the power of a fixed per-group size
type PowerRequest struct {
	SampleSize   int     `json:"sample_size" binding:"required" example:"1000"`
	BaselineRate float64 `json:"baseline_rate" binding:"required" example:"0.1"`
	MDE          float64 `json:"mde" binding:"required" example:"0.1"`
	Alpha        float64 `json:"alpha,omitempty" example:"0.05"`
}

// PowerResponse holds the power of a two-sided test
type PowerResponse struct {
	Power      float64 `json:"power" yaml:"power"`
	EffectSize float64 `json:"effect_size" yaml:"effect_size"`
}

// PowerCurveRequest asks for power across several per-group sizes
type PowerCurveRequest struct {
	BaselineRate float64 `json:"baseline_rate" binding:"required"`
	MDE          float64 `json:"mde" binding:"required"`
	Alpha        float64 `json:"alpha,omitempty"`
	SampleSizes  []int   `json:"sample_sizes,omitempty"`
}

// PowerCurveResponse holds power per sample size
type PowerCurveResponse struct {
	Points []design.PowerPoint `json:"points"`
}

// GenerateDataRequest sets true rates and trials for a synthetic dataset
type GenerateDataRequest struct {
	RateA   float64 `json:"rate_a" example:"0.1"`
	RateB   float64 `json:"rate_b" example:"0.12"`
	TrialsA int     `json:"trials_a" binding:"gte=0" example:"1000"`
	TrialsB int     `json:"trials_b" binding:"gte=0" example:"1000"`
	Seed    *uint64 `json:"seed,omitempty"`
}

// GenerateDataResponse is a synthetic dataset and the seed that produced it
type GenerateDataResponse struct {
	Data simulation.Dataset `json:"data"`
	Seed uint64             `json:"seed"`
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Stats     map[string]interface{} `json:"stats,omitempty"`
}

// Display labels used by FormatRisk, in presentation order.
var RiskLabels = []string{
	"Probability B > A",
	"Probability A > B",
	"Expected Uplift",
	"Uplift 95% CI",
	"Expected Loss (Choose A)",
	"Expected Loss (Choose B)",
	"Recommended Choice",
}

// FormatRisk renders risk metrics as human-readable strings keyed by
// RiskLabels.
func FormatRisk(r analysis.RiskMetrics) map[string]string {
	return map[string]string{
		RiskLabels[0]: fmt.Sprintf("%.3f", r.ProbabilityBBeatsA),
		RiskLabels[1]: fmt.Sprintf("%.3f", r.ProbabilityABeatsB),
		RiskLabels[2]: fmt.Sprintf("%.2f%%", r.ExpectedUplift),
		RiskLabels[3]: fmt.Sprintf("[%.2f%%, %.2f%%]", r.UpliftCI[0], r.UpliftCI[1]),
		RiskLabels[4]: fmt.Sprintf("%.4f", r.ExpectedLossChooseA),
		RiskLabels[5]: fmt.Sprintf("%.4f", r.ExpectedLossChooseB),
		RiskLabels[6]: r.RecommendedChoice,
	}
}

// MeaningfulEffect is the posterior probability that B's relative uplift over
// A exceeds MinUplift percent.
type MeaningfulEffect struct {
	MinUplift   float64 `json:"min_uplift" yaml:"min_uplift"`
	Probability float64 `json:"probability" yaml:"probability"`
}

// Agreement verdicts.
const (
	VerdictBothSignificant    = "both_significant"
	VerdictBayesianOnly       = "bayesian_only"
	VerdictFrequentistOnly    = "frequentist_only"
	VerdictNeitherSignificant = "neither_significant"
)

const (
	bayesianEvidenceLevel = 0.95
	frequentistAlpha      = 0.05
)

// MethodAgreement crosses P(B > A) > 0.95 with p < 0.05.
type MethodAgreement struct {
	BayesianSignificant    bool   `json:"bayesian_significant" yaml:"bayesian_significant"`
	FrequentistSignificant bool   `json:"frequentist_significant" yaml:"frequentist_significant"`
	Agree                  bool   `json:"agree" yaml:"agree"`
	Verdict                string `json:"verdict" yaml:"verdict"`
	Interpretation         string `json:"interpretation" yaml:"interpretation"`
}

// CompareMethods classifies how the Bayesian and frequentist conclusions
// relate. Only P(B > A) is checked on the Bayesian side.
func CompareMethods(probabilityBBeatsA, pValue float64) MethodAgreement {
	m := MethodAgreement{
		BayesianSignificant:    probabilityBBeatsA > bayesianEvidenceLevel,
		FrequentistSignificant: pValue < frequentistAlpha,
	}
	m.Agree = m.BayesianSignificant == m.FrequentistSignificant
	switch {
	case m.BayesianSignificant && m.FrequentistSignificant:
		m.Verdict = VerdictBothSignificant
		m.Interpretation = "Both methods agree: strong evidence that B differs from A."
	case m.BayesianSignificant:
		m.Verdict = VerdictBayesianOnly
		m.Interpretation = "Bayesian analysis finds strong evidence while the frequentist test does not. Small samples or an informative prior can cause this."
	case m.FrequentistSignificant:
		m.Verdict = VerdictFrequentistOnly
		m.Interpretation = "The frequentist test is significant while the Bayesian analysis is not. This can point to a small effect or to multiple testing."
	default:
		m.Verdict = VerdictNeitherSignificant
		m.Interpretation = "Both methods agree: insufficient evidence that B differs from A."
	}
	return m
}
