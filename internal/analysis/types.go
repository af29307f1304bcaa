package analysis

// Group names used by the two-arm comparisons.
const (
	GroupA = "A"
	GroupB = "B"
)

// Prior holds the Beta pseudo-counts shared by every group in one test.
type Prior struct {
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
}

// DefaultPrior is the uniform Beta(1, 1) prior.
func DefaultPrior() Prior {
	return Prior{Alpha: 1, Beta: 1}
}

// GroupPosterior is the Beta posterior of one group with the counts behind it.
type GroupPosterior struct {
	Group          string  `json:"group" yaml:"group"`
	Alpha          float64 `json:"alpha" yaml:"alpha"`
	Beta           float64 `json:"beta" yaml:"beta"`
	Successes      int     `json:"successes" yaml:"successes"`
	Trials         int     `json:"trials" yaml:"trials"`
	ConversionRate float64 `json:"conversion_rate" yaml:"conversion_rate"`
	PosteriorMean  float64 `json:"posterior_mean" yaml:"posterior_mean"`
}

// ExpectedLoss is the posterior regret of choosing each arm.
type ExpectedLoss struct {
	ChooseA     float64 `json:"expected_loss_choose_a" yaml:"expected_loss_choose_a"`
	ChooseB     float64 `json:"expected_loss_choose_b" yaml:"expected_loss_choose_b"`
	Recommended string  `json:"recommended_choice" yaml:"recommended_choice"`
}

// UpliftDistribution summarises B - A. Relative values are percentages of A.
type UpliftDistribution struct {
	AbsoluteMean  float64    `json:"absolute_mean" yaml:"absolute_mean"`
	AbsoluteCI    [2]float64 `json:"absolute_ci" yaml:"absolute_ci"`
	RelativeMean  float64    `json:"relative_mean" yaml:"relative_mean"`
	RelativeCI    [2]float64 `json:"relative_ci" yaml:"relative_ci"`
	ExcludedDraws int        `json:"excluded_draws" yaml:"excluded_draws"`
}

// RiskMetrics summarises one joint draw of both arms. Uplift figures are
// percentages of A; ExcludedUpliftDraws counts draws where A was zero.
type RiskMetrics struct {
	ProbabilityBBeatsA  float64    `json:"probability_b_beats_a" yaml:"probability_b_beats_a"`
	ProbabilityABeatsB  float64    `json:"probability_a_beats_b" yaml:"probability_a_beats_b"`
	ExpectedUplift      float64    `json:"expected_uplift" yaml:"expected_uplift"`
	UpliftCI            [2]float64 `json:"uplift_ci" yaml:"uplift_ci"`
	AbsoluteUplift      float64    `json:"absolute_uplift" yaml:"absolute_uplift"`
	AbsoluteUpliftCI    [2]float64 `json:"absolute_uplift_ci" yaml:"absolute_uplift_ci"`
	ExpectedLossChooseA float64    `json:"expected_loss_choose_a" yaml:"expected_loss_choose_a"`
	ExpectedLossChooseB float64    `json:"expected_loss_choose_b" yaml:"expected_loss_choose_b"`
	RecommendedChoice   string     `json:"recommended_choice" yaml:"recommended_choice"`
	Samples             int        `json:"samples" yaml:"samples"`
	ExcludedUpliftDraws int        `json:"excluded_uplift_draws" yaml:"excluded_uplift_draws"`
}

// BayesFactor is the equivalence-threshold approximation, not a ratio of
// marginal likelihoods.
type BayesFactor struct {
	BayesFactor    float64 `json:"bayes_factor" yaml:"bayes_factor"`
	Interpretation string  `json:"interpretation" yaml:"interpretation"`
	Threshold      float64 `json:"threshold" yaml:"threshold"`
	ProbDifferent  float64 `json:"prob_different" yaml:"prob_different"`
	ProbSame       float64 `json:"prob_same" yaml:"prob_same"`
}

// CredibleInterval is the equal-tailed posterior interval at Level.
type CredibleInterval struct {
	Group string  `json:"group" yaml:"group"`
	Level float64 `json:"level" yaml:"level"`
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// DensityPoint is one point of a posterior density curve.
type DensityPoint struct {
	X   float64 `json:"x" yaml:"x"`
	PDF float64 `json:"pdf" yaml:"pdf"`
}

// SequentialObservation is one batch and the posterior after adding it.
// Step counts from 1 within a group.
type SequentialObservation struct {
	Step                int     `json:"step" yaml:"step"`
	BatchSuccesses      int     `json:"batch_successes" yaml:"batch_successes"`
	BatchTrials         int     `json:"batch_trials" yaml:"batch_trials"`
	CumulativeSuccesses int     `json:"cumulative_successes" yaml:"cumulative_successes"`
	CumulativeTrials    int     `json:"cumulative_trials" yaml:"cumulative_trials"`
	PosteriorAlpha      float64 `json:"posterior_alpha" yaml:"posterior_alpha"`
	PosteriorBeta       float64 `json:"posterior_beta" yaml:"posterior_beta"`
	PosteriorMean       float64 `json:"posterior_mean" yaml:"posterior_mean"`
}

// HistoryRow is one observation tagged with its group, for tabular display.
type HistoryRow struct {
	Group string `json:"group" yaml:"group"`
	SequentialObservation `yaml:",inline"`
}

// ProbabilityPoint is P(B > A) after a step both groups have reached.
type ProbabilityPoint struct {
	Step               int     `json:"step" yaml:"step"`
	ProbabilityBBeatsA float64 `json:"probability_b_beats_a" yaml:"probability_b_beats_a"`
}
