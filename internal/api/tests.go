package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/bayesian-ab/internal/errors"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/session"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/types"
)

const (
	defaultSamplePreview = 1000
	defaultDensityPoints = 200
)

func testResponse(e *session.Entry[*analysis.BayesianTest]) types.TestResponse {
	t := e.Value
	resp := types.TestResponse{
		ID:         e.ID,
		Prior:      t.Prior(),
		Samples:    t.Samples(),
		Threshold:  t.Threshold(),
		Posteriors: []analysis.GroupPosterior{},
		CreatedAt:  e.CreatedAt,
	}
	if seed, ok := t.Seed(); ok {
		resp.Seed = &seed
	}
	for _, g := range t.Groups() {
		gp, _ := t.Posterior(g)
		resp.Posteriors = append(resp.Posteriors, gp)
	}
	return resp
}

// lockTest finds the test named by :id and locks it; the caller unlocks.
func (h *Handler) lockTest(c *gin.Context) (*session.Entry[*analysis.BayesianTest], bool) {
	id := c.Param("id")
	e, ok := h.tests.Get(id)
	if !ok {
		h.fail(c, apperrors.NewNotFoundError("test", id))
		return nil, false
	}
	e.Lock()
	return e, true
}

// CreateTest godoc
// @Summary      Create a batch Bayesian test
// @Tags         tests
// @Accept       json
// @Produce      json
// @Param        request  body      types.CreateTestRequest  false  "Prior and Monte Carlo options"
// @Success      201      {object}  types.TestResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Router       /v1/tests [post]
func (h *Handler) CreateTest(c *gin.Context) {
	var req types.CreateTestRequest
	if !h.bindOptional(c, &req) {
		return
	}
	opts, _, err := h.inferenceOptions(req.InferenceOptions)
	if err != nil {
		h.fail(c, err)
		return
	}
	test, err := analysis.NewBayesianTest(priorOrDefault(req.Prior), opts...)
	if err != nil {
		h.fail(c, err)
		return
	}
	e := h.tests.Create(test)
	c.JSON(http.StatusCreated, testResponse(e))
}

// GetTest godoc
// @Summary      Get a batch test and its posteriors
// @Tags         tests
// @Produce      json
// @Param        id   path      string  true  "Test ID"
// @Success      200  {object}  types.TestResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /v1/tests/{id} [get]
func (h *Handler) GetTest(c *gin.Context) {
	e, ok := h.lockTest(c)
	if !ok {
		return
	}
	defer e.Unlock()
	c.JSON(http.StatusOK, testResponse(e))
}

// DeleteTest godoc
// @Summary      Drop a batch test
// @Tags         tests
// @Param        id   path  string  true  "Test ID"
// @Success      204
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /v1/tests/{id} [delete]
func (h *Handler) DeleteTest(c *gin.Context) {
	id := c.Param("id")
	if !h.tests.Delete(id) {
		h.fail(c, apperrors.NewNotFoundError("test", id))
		return
	}
	c.Status(http.StatusNoContent)
}

// ObserveGroup godoc
// @Summary      Record a group's cumulative counts
// @Description  Replaces any earlier observation of the group.
// @Tags         tests
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Test ID"
// @Param        group    path      string              true  "Group name"
// @Param        request  body      types.ObserveRequest  true  "Counts"
// @Success      200      {object}  analysis.GroupPosterior
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Router       /v1/tests/{id}/groups/{group} [put]
func (h *Handler) ObserveGroup(c *gin.Context) {
	var req types.ObserveRequest
	if !h.bind(c, &req) {
		return
	}
	e, ok := h.lockTest(c)
	if !ok {
		return
	}
	defer e.Unlock()

	gp, err := e.Value.Observe(c.Param("group"), req.Successes, req.Trials)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gp)
}

// TestRisk godoc
// @Summary      Monte Carlo risk metrics
// @Tags         tests
// @Produce      json
// @Param        id   path      string  true  "Test ID"
// @Success      200  {object}  analysis.RiskMetrics
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Router       /v1/tests/{id}/risk [get]
func (h *Handler) TestRisk(c *gin.Context) {
	e, ok := h.lockTest(c)
	if !ok {
		return
	}
	defer e.Unlock()

	_, seeded := e.Value.Seed()
	var risk analysis.RiskMetrics
	err := h.instrument(c, "risk_metrics", 2*e.Value.Samples(), seeded, func(context.Context) error {
		var err error
		risk, err = e.Value.RiskMetrics()
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, risk)
}

// TestBayesFactor godoc
// @Summary      Equivalence-threshold Bayes factor
// @Tags         tests
// @Produce      json
// @Param        id   path      string  true  "Test ID"
// @Success      200  {object}  analysis.BayesFactor
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Router       /v1/tests/{id}/bayes-factor [get]
func (h *Handler) TestBayesFactor(c *gin.Context) {
	e, ok := h.lockTest(c)
	if !ok {
		return
	}
	defer e.Unlock()

	_, seeded := e.Value.Seed()
	var bf analysis.BayesFactor
	err := h.instrument(c, "bayes_factor", 2*e.Value.Samples(), seeded, func(context.Context) error {
		var err error
		bf, err = e.Value.BayesFactor()
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bf)
}

// GroupSamples godoc
// @Summary      Raw posterior draws for one group
// @Tags         tests
// @Produce      json
// @Param        id     path      string  true   "Test ID"
// @Param        group  path      string  true   "Group name"
// @Param        n      query     int     false  "Number of draws"  default(1000)
// @Success      200    {object}  types.SamplesResponse
// @Failure      404    {object}  errors.ErrorResponse
// @Failure      409    {object}  errors.ErrorResponse
// @Router       /v1/tests/{id}/groups/{group}/samples [get]
func (h *Handler) GroupSamples(c *gin.Context) {
	n, err := intQuery(c, "n", defaultSamplePreview)
	if err == nil {
		_, err = h.samples(n)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	e, ok := h.lockTest(c)
	if !ok {
		return
	}
	defer e.Unlock()

	group := c.Param("group")
	_, seeded := e.Value.Seed()
	var draws []float64
	err = h.instrument(c, "sample", n, seeded, func(context.Context) error {
		var err error
		draws, err = e.Value.Sample(group, n)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, types.SamplesResponse{Group: group, Samples: draws})
}

// GroupDensity godoc
// @Summary      Posterior density curve and credible interval
// @Tags         tests
// @Produce      json
// @Param        id      path      string   true   "Test ID"
// @Param        group   path      string   true   "Group name"
// @Param        points  query     int      false  "Grid points"       default(200)
// @Param        level   query     number   false  "Credible level"    default(0.95)
// @Success      200     {object}  types.DensityResponse
// @Failure      404     {object}  errors.ErrorResponse
// @Failure      409     {object}  errors.ErrorResponse
// @Router       /v1/tests/{id}/groups/{group}/density [get]
func (h *Handler) GroupDensity(c *gin.Context) {
	points, err := intQuery(c, "points", defaultDensityPoints)
	if err != nil {
		h.fail(c, err)
		return
	}
	level, err := floatQuery(c, "level", defaultCredibleLevel)
	if err != nil {
		h.fail(c, err)
		return
	}
	e, ok := h.lockTest(c)
	if !ok {
		return
	}
	defer e.Unlock()

	group := c.Param("group")
	resp := types.DensityResponse{Group: group}
	err = h.instrument(c, "density_curve", 0, false, func(context.Context) error {
		var err error
		if resp.Points, err = e.Value.DensityCurve(group, points); err != nil {
			return err
		}
		resp.CredibleInterval, err = e.Value.CredibleInterval(group, level)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
