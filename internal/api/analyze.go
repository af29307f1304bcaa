package api

import (
	"context"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/analysis"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/frequentist"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/types"
)

const defaultCredibleLevel = 0.95

// RunAnalysis observes both arms and computes the full Bayesian and
// frequentist battery. Frequentist statistics can be undefined for a valid
// table, e.g. when both arms have zero successes; those are reported as
// warnings instead of failing the call, and the agreement verdict is omitted.
func RunAnalysis(req types.AnalyzeRequest, opts ...analysis.Option) (types.AnalyzeResponse, error) {
	level := req.CredibleLevel
	if level == 0 {
		level = defaultCredibleLevel
	}
	test, err := analysis.NewBayesianTest(priorOrDefault(req.Prior), opts...)
	if err != nil {
		return types.AnalyzeResponse{}, err
	}

	var resp types.AnalyzeResponse
	for _, g := range []struct {
		name string
		in   types.GroupInput
	}{{analysis.GroupA, req.A}, {analysis.GroupB, req.B}} {
		gp, err := test.Observe(g.name, g.in.Successes, g.in.Trials)
		if err != nil {
			return types.AnalyzeResponse{}, err
		}
		resp.Posteriors = append(resp.Posteriors, gp)
	}

	if resp.Risk, err = test.RiskMetrics(); err != nil {
		return types.AnalyzeResponse{}, err
	}
	minUplift := analysis.DefaultMinUplift
	if req.MinUplift != nil {
		minUplift = *req.MinUplift
	}
	meaningful, err := test.ProbabilityUpliftAbove(minUplift)
	if err != nil {
		return types.AnalyzeResponse{}, err
	}
	if math.IsNaN(meaningful) {
		resp.Warnings = append(resp.Warnings, "meaningful effect: every posterior draw for A was zero")
	} else {
		resp.MeaningfulEffect = &types.MeaningfulEffect{MinUplift: minUplift, Probability: meaningful}
	}
	if resp.BayesFactor, err = test.BayesFactor(); err != nil {
		return types.AnalyzeResponse{}, err
	}
	for _, g := range test.Groups() {
		ci, err := test.CredibleInterval(g, level)
		if err != nil {
			return types.AnalyzeResponse{}, err
		}
		resp.CredibleIntervals = append(resp.CredibleIntervals, ci)
	}

	chi, err := chiSquared(req.A, req.B, req.Yates)
	if err != nil {
		resp.Warnings = append(resp.Warnings, err.Error())
	} else {
		resp.ChiSquared = &chi
	}
	prop, err := frequentist.ProportionTest(req.A.Successes, req.A.Trials, req.B.Successes, req.B.Trials)
	if err != nil {
		resp.Warnings = append(resp.Warnings, err.Error())
	} else {
		resp.Proportion = &prop
		agreement := types.CompareMethods(resp.Risk.ProbabilityBBeatsA, prop.PValue)
		resp.Agreement = &agreement
	}
	return resp, nil
}

// Analyze godoc
// @Summary      Analyze an A/B test
// @Description  Posteriors, Monte Carlo risk, Bayes factor, credible intervals and both frequentist tests for two arms.
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        request  body      types.AnalyzeRequest  true  "Observed counts and inference options"
// @Success      200      {object}  types.AnalyzeResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Router       /v1/analyze [post]
func (h *Handler) Analyze(c *gin.Context) {
	var req types.AnalyzeRequest
	if !h.bind(c, &req) {
		return
	}
	opts, seed, err := h.inferenceOptions(req.InferenceOptions)
	if err != nil {
		h.fail(c, err)
		return
	}
	samples, _ := h.samples(req.Samples)

	var resp types.AnalyzeResponse
	// Risk, meaningful effect and Bayes factor each draw both arms.
	err = h.instrument(c, "analyze", 6*samples, seed != nil, func(context.Context) error {
		var err error
		resp, err = RunAnalysis(req, opts...)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Seed = seed
	c.JSON(http.StatusOK, resp)
}

func chiSquared(a, b types.GroupInput, yates bool) (frequentist.ChiSquaredResult, error) {
	if yates {
		return frequentist.ChiSquaredTestYates(a.Successes, a.Trials, b.Successes, b.Trials)
	}
	return frequentist.ChiSquaredTest(a.Successes, a.Trials, b.Successes, b.Trials)
}

// ChiSquared godoc
// @Summary      Chi-squared test of independence
// @Tags         frequentist
// @Accept       json
// @Produce      json
// @Param        request  body      types.FrequentistRequest  true  "2x2 table"
// @Success      200      {object}  frequentist.ChiSquaredResult
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      422      {object}  errors.ErrorResponse
// @Router       /v1/frequentist/chi-squared [post]
func (h *Handler) ChiSquared(c *gin.Context) {
	var req types.FrequentistRequest
	if !h.bind(c, &req) {
		return
	}
	var res frequentist.ChiSquaredResult
	err := h.instrument(c, "chi_squared", 0, false, func(context.Context) error {
		var err error
		res, err = chiSquared(req.A, req.B, req.Yates)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Proportion godoc
// @Summary      Two-proportion z-test
// @Tags         frequentist
// @Accept       json
// @Produce      json
// @Param        request  body      types.FrequentistRequest  true  "2x2 table"
// @Success      200      {object}  frequentist.ProportionResult
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      422      {object}  errors.ErrorResponse
// @Router       /v1/frequentist/proportion [post]
func (h *Handler) Proportion(c *gin.Context) {
	var req types.FrequentistRequest
	if !h.bind(c, &req) {
		return
	}
	var res frequentist.ProportionResult
	err := h.instrument(c, "proportion_test", 0, false, func(context.Context) error {
		var err error
		res, err = frequentist.ProportionTest(req.A.Successes, req.A.Trials, req.B.Successes, req.B.Trials)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
