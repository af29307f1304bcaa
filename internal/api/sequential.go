package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/bayesian-ab/internal/errors"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/session"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/simulation"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/types"
)

const defaultDecisionThreshold = 0.95

func sequentialResponse(e *session.Entry[*sequentialSession]) types.SequentialResponse {
	t := e.Value.test
	resp := types.SequentialResponse{
		ID:        e.ID,
		Prior:     t.Prior(),
		Samples:   t.Samples(),
		Seed:      e.Value.seed,
		Current:   map[string]analysis.GroupPosterior{},
		Ready:     t.Ready(),
		CreatedAt: e.CreatedAt,
	}
	for _, g := range []string{analysis.GroupA, analysis.GroupB} {
		resp.Current[g] = t.Current(g)
	}
	for _, g := range t.Groups() {
		resp.Current[g] = t.Current(g)
	}
	return resp
}

func (h *Handler) lockSequential(c *gin.Context) (*session.Entry[*sequentialSession], bool) {
	id := c.Param("id")
	e, ok := h.sequential.Get(id)
	if !ok {
		h.fail(c, apperrors.NewNotFoundError("sequential test", id))
		return nil, false
	}
	e.Lock()
	return e, true
}

// CreateSequential godoc
// @Summary      Create a sequential test
// @Tags         sequential
// @Accept       json
// @Produce      json
// @Param        request  body      types.CreateSequentialRequest  false  "Prior and Monte Carlo options"
// @Success      201      {object}  types.SequentialResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Router       /v1/sequential [post]
func (h *Handler) CreateSequential(c *gin.Context) {
	var req types.CreateSequentialRequest
	if !h.bindOptional(c, &req) {
		return
	}
	opts, seed, err := h.inferenceOptions(types.InferenceOptions{Samples: req.Samples, Seed: req.Seed})
	if err != nil {
		h.fail(c, err)
		return
	}
	test, err := analysis.NewSequentialTest(priorOrDefault(req.Prior), opts...)
	if err != nil {
		h.fail(c, err)
		return
	}
	e := h.sequential.Create(&sequentialSession{test: test, seed: seed})
	c.JSON(http.StatusCreated, sequentialResponse(e))
}

// GetSequential godoc
// @Summary      Get a sequential test's current posteriors
// @Tags         sequential
// @Produce      json
// @Param        id   path      string  true  "Sequential test ID"
// @Success      200  {object}  types.SequentialResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /v1/sequential/{id} [get]
func (h *Handler) GetSequential(c *gin.Context) {
	e, ok := h.lockSequential(c)
	if !ok {
		return
	}
	defer e.Unlock()
	c.JSON(http.StatusOK, sequentialResponse(e))
}

// DeleteSequential godoc
// @Summary      Drop a sequential test
// @Tags         sequential
// @Param        id   path  string  true  "Sequential test ID"
// @Success      204
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /v1/sequential/{id} [delete]
func (h *Handler) DeleteSequential(c *gin.Context) {
	id := c.Param("id")
	if !h.sequential.Delete(id) {
		h.fail(c, apperrors.NewNotFoundError("sequential test", id))
		return
	}
	c.Status(http.StatusNoContent)
}

// AddObservation godoc
// @Summary      Add a batch to a group
// @Description  Batch counts accumulate onto the group's running posterior.
// @Tags         sequential
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Sequential test ID"
// @Param        request  body      types.ObservationRequest  true  "Batch counts"
// @Success      201      {object}  types.ObservationResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Router       /v1/sequential/{id}/observations [post]
func (h *Handler) AddObservation(c *gin.Context) {
	var req types.ObservationRequest
	if !h.bind(c, &req) {
		return
	}
	e, ok := h.lockSequential(c)
	if !ok {
		return
	}
	defer e.Unlock()

	obs, err := e.Value.test.AddObservation(req.Group, req.Successes, req.Trials)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, types.ObservationResponse{Group: req.Group, Observation: obs})
}

// History godoc
// @Summary      Observation history
// @Description  Every group's history as flat rows, or one group's when group is given.
// @Tags         sequential
// @Produce      json
// @Param        id     path      string  true   "Sequential test ID"
// @Param        group  query     string  false  "Restrict to one group"
// @Success      200    {array}   analysis.HistoryRow
// @Failure      404    {object}  errors.ErrorResponse
// @Router       /v1/sequential/{id}/history [get]
func (h *Handler) History(c *gin.Context) {
	e, ok := h.lockSequential(c)
	if !ok {
		return
	}
	defer e.Unlock()

	rows := []analysis.HistoryRow{}
	if group := c.Query("group"); group != "" {
		for _, obs := range e.Value.test.History(group) {
			rows = append(rows, analysis.HistoryRow{Group: group, SequentialObservation: obs})
		}
	} else {
		rows = append(rows, e.Value.test.HistoryTable()...)
	}
	c.JSON(http.StatusOK, rows)
}

// Probability godoc
// @Summary      Current P(B > A)
// @Description  Returns 0.5 with ready=false until both groups have observations.
// @Tags         sequential
// @Produce      json
// @Param        id       path      string  true   "Sequential test ID"
// @Param        samples  query     int     false  "Draws per group"
// @Success      200      {object}  types.ProbabilityResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Router       /v1/sequential/{id}/probability [get]
func (h *Handler) Probability(c *gin.Context) {
	n, err := intQuery(c, "samples", 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	e, ok := h.lockSequential(c)
	if !ok {
		return
	}
	defer e.Unlock()

	resp, err := h.currentProbability(c, e.Value, n)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) currentProbability(c *gin.Context, s *sequentialSession, n int) (types.ProbabilityResponse, error) {
	if n == 0 {
		n = s.test.Samples()
	}
	if _, err := h.samples(n); err != nil {
		return types.ProbabilityResponse{}, err
	}
	resp := types.ProbabilityResponse{Ready: s.test.Ready(), Samples: n}
	err := h.instrument(c, "current_probability", 2*n, s.seed != nil, func(context.Context) error {
		var err error
		resp.ProbabilityBBeatsA, err = s.test.CurrentProbability(n)
		return err
	})
	return resp, err
}

// Curve godoc
// @Summary      P(B > A) after each step
// @Tags         sequential
// @Produce      json
// @Param        id         path      string  true   "Sequential test ID"
// @Param        samples    query     int     false  "Draws per group per step"
// @Param        threshold  query     number  false  "Decision threshold"  default(0.95)
// @Success      200        {object}  types.CurveResponse
// @Failure      404        {object}  errors.ErrorResponse
// @Router       /v1/sequential/{id}/curve [get]
func (h *Handler) Curve(c *gin.Context) {
	n, err := intQuery(c, "samples", 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	threshold, err := floatQuery(c, "threshold", defaultDecisionThreshold)
	if err != nil {
		h.fail(c, err)
		return
	}
	e, ok := h.lockSequential(c)
	if !ok {
		return
	}
	defer e.Unlock()

	test := e.Value.test
	if n == 0 {
		n = test.Samples()
	}
	if _, err := h.samples(n); err != nil {
		h.fail(c, err)
		return
	}
	resp := types.CurveResponse{Threshold: threshold}
	steps := min(len(test.History(analysis.GroupA)), len(test.History(analysis.GroupB)))
	err = h.instrument(c, "probability_curve", 2*n*steps, e.Value.seed != nil, func(context.Context) error {
		var err error
		resp.Curve, err = test.ProbabilityCurve(n)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if step, ok := analysis.StepsToThreshold(resp.Curve, threshold); ok {
		resp.StepsToThreshold = &step
	}
	c.JSON(http.StatusOK, resp)
}

// SimulateSequential godoc
// @Summary      Replay totals as hypergeometric batches
// @Description  Splits each group's totals into batches drawn without replacement and adds them to the test.
// @Tags         sequential
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Sequential test ID"
// @Param        request  body      types.SimulateSequentialRequest  true  "Totals and batch count"
// @Success      200      {object}  types.SimulateSequentialResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Router       /v1/sequential/{id}/simulate [post]
func (h *Handler) SimulateSequential(c *gin.Context) {
	var req types.SimulateSequentialRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Batches == 0 {
		req.Batches = simulation.DefaultBatches
	}
	e, ok := h.lockSequential(c)
	if !ok {
		return
	}
	defer e.Unlock()

	seed := req.Seed
	if seed == nil {
		seed = e.Value.seed
	}
	data := simulation.Dataset{
		A: simulation.GroupCounts{Successes: req.A.Successes, Trials: req.A.Trials},
		B: simulation.GroupCounts{Successes: req.B.Successes, Trials: req.B.Trials},
	}

	var resp types.SimulateSequentialResponse
	err := h.instrument(c, "simulate_sequential", 0, seed != nil, func(ctx context.Context) error {
		var err error
		resp.Records, err = simulation.RunSequential(ctx, e.Value.test, data, req.Batches, seedOrRandom(seed), h.cfg.MaxTrials)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if resp.ProbabilityResponse, err = h.currentProbability(c, e.Value, 0); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
