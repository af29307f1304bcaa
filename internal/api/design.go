package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/design"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/simulation"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/types"
)

const (
	defaultAlpha = 0.05
	defaultPower = 0.8
)

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// SampleSize godoc
// @Summary      Required sample size per group
// @Tags         design
// @Accept       json
// @Produce      json
// @Param        request  body      types.SampleSizeRequest  true  "Effect and error rates"
// @Success      200      {object}  types.SampleSizeResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Router       /v1/design/sample-size [post]
func (h *Handler) SampleSize(c *gin.Context) {
	var req types.SampleSizeRequest
	if !h.bind(c, &req) {
		return
	}
	alpha, target := orDefault(req.Alpha, defaultAlpha), orDefault(req.Power, defaultPower)

	var n int
	err := h.instrument(c, "sample_size", 0, false, func(context.Context) error {
		var err error
		n, err = design.RequiredSampleSize(req.MDE, req.BaselineRate, alpha, target)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, types.SampleSizeResponse{
		SampleSizePerGroup: n,
		TotalSampleSize:    2 * n,
		EffectSize:         design.EffectSize(req.BaselineRate, req.MDE),
	})
}

// Power godoc
// @Summary      Power at a per-group sample size
// @Tags         design
// @Accept       json
// @Produce      json
// @Param        request  body      types.PowerRequest  true  "Sample size and effect"
// @Success      200      {object}  types.PowerResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Router       /v1/design/power [post]
func (h *Handler) Power(c *gin.Context) {
	var req types.PowerRequest
	if !h.bind(c, &req) {
		return
	}
	var p float64
	err := h.instrument(c, "power", 0, false, func(context.Context) error {
		var err error
		p, err = design.PowerAt(req.SampleSize, req.BaselineRate, req.MDE, orDefault(req.Alpha, defaultAlpha))
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, types.PowerResponse{Power: p, EffectSize: design.EffectSize(req.BaselineRate, req.MDE)})
}

// PowerCurve godoc
// @Summary      Power over a range of sample sizes
// @Tags         design
// @Accept       json
// @Produce      json
// @Param        request  body      types.PowerCurveRequest  true  "Effect and sizes"
// @Success      200      {object}  types.PowerCurveResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Router       /v1/design/power-curve [post]
func (h *Handler) PowerCurve(c *gin.Context) {
	var req types.PowerCurveRequest
	if !h.bind(c, &req) {
		return
	}
	sizes := req.SampleSizes
	if len(sizes) == 0 {
		sizes = design.DefaultCurveSizes()
	}
	var resp types.PowerCurveResponse
	err := h.instrument(c, "power_curve", 0, false, func(context.Context) error {
		var err error
		resp.Points, err = design.PowerCurve(req.BaselineRate, req.MDE, orDefault(req.Alpha, defaultAlpha), sizes)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GenerateData godoc
// @Summary      Draw a synthetic dataset
// @Tags         simulation
// @Accept       json
// @Produce      json
// @Param        request  body      types.GenerateDataRequest  true  "True rates and trial counts"
// @Success      200      {object}  types.GenerateDataResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Router       /v1/simulate/data [post]
func (h *Handler) GenerateData(c *gin.Context) {
	var req types.GenerateDataRequest
	if !h.bind(c, &req) {
		return
	}
	seed := seedOrRandom(h.seed(req.Seed))
	resp := types.GenerateDataResponse{Seed: seed}
	err := h.instrument(c, "generate_data", 0, true, func(context.Context) error {
		var err error
		resp.Data, err = simulation.GenerateData(req.RateA, req.RateB, req.TrialsA, req.TrialsB, seed)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Scenario godoc
// @Summary      Compare Bayesian and frequentist decision accuracy
// @Description  Repeats seeded experiments at known true rates. Omitted fields take the defaults 0.10/0.12, 1000 trials, 100 runs.
// @Tags         simulation
// @Accept       json
// @Produce      json
// @Param        request  body      simulation.ScenarioConfig  false  "Scenario parameters"
// @Param        runs     query     bool                       false  "Include per-run outcomes"  default(false)
// @Success      200      {object}  simulation.ScenarioResult
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      429      {object}  errors.ErrorResponse
// @Router       /v1/simulate/scenario [post]
func (h *Handler) Scenario(c *gin.Context) {
	cfg := simulation.DefaultScenario()
	if !h.bindOptional(c, &cfg) {
		return
	}
	if _, err := h.samples(cfg.Samples); err != nil {
		h.fail(c, err)
		return
	}

	var res simulation.ScenarioResult
	err := h.instrument(c, "scenario", 2*cfg.Samples*cfg.Runs, true, func(ctx context.Context) error {
		var err error
		res, err = simulation.RunScenario(ctx, cfg, h.cfg.ScenarioMaxRuns)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if c.Query("runs") != "true" {
		res.Runs = nil
	}
	c.JSON(http.StatusOK, res)
}
