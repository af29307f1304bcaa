// Package api exposes the inference engine over HTTP.
package api

import (
	"context"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/analysis"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/cache"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/config"
	apperrors "github.com/ZanzyTHEbar/bayesian-ab/internal/errors"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/monitoring"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/session"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/types"
)

// Session kinds, also used as metric labels.
const (
	KindBatch      = "batch"
	KindSequential = "sequential"
)

// sequentialSession keeps the seed next to the test so the batch driver can
// replay deterministically.
type sequentialSession struct {
	test *analysis.SequentialTest
	seed *uint64
}

// Handler carries the dependencies of every route.
type Handler struct {
	cfg     config.Config
	version string
	logger  *monitoring.Logger
	metrics *monitoring.Metrics
	cache   *cache.Cache

	tests      *session.Store[*analysis.BayesianTest]
	sequential *session.Store[*sequentialSession]
}

// NewHandler creates the handlers and their session stores
func NewHandler(cfg config.Config, version string, logger *monitoring.Logger, metrics *monitoring.Metrics, respCache *cache.Cache) *Handler {
	return &Handler{
		cfg:        cfg,
		version:    version,
		logger:     logger,
		metrics:    metrics,
		cache:      respCache,
		tests:      session.NewStore[*analysis.BayesianTest](KindBatch, cfg.SessionTTL, metrics, logger),
		sequential: session.NewStore[*sequentialSession](KindSequential, cfg.SessionTTL, metrics, logger),
	}
}

// Close stops the session sweepers.
func (h *Handler) Close() {
	h.tests.Close()
	h.sequential.Close()
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.fail(c, apperrors.NewValidationError("invalid request body", map[string]any{"binding": err.Error()}))
		return false
	}
	return true
}

// bindOptional binds a body when one was sent; an empty body keeps defaults.
func (h *Handler) bindOptional(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.bind(c, req)
}

func (h *Handler) fail(c *gin.Context, err error) {
	if kind, ok := staterr.KindOf(err); ok {
		h.metrics.RecordStatError(string(kind))
	}
	apperrors.Abort(c, err)
}

// instrument runs fn inside a span and records latency and draw counts.
func (h *Handler) instrument(c *gin.Context, op string, draws int, seeded bool, fn func(ctx context.Context) error) error {
	ctx, span := monitoring.StartSpan(c.Request.Context(), op, map[string]int{"draws": draws})
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	h.metrics.RecordInference(op, draws, elapsed)
	h.logger.InferenceLogger(op, draws, seeded, elapsed)
	return nil
}

// seed resolves a request seed against the configured default.
func (h *Handler) seed(requested *uint64) *uint64 {
	if requested != nil {
		return requested
	}
	return h.cfg.Seed()
}

// seedOrRandom is for drivers that always need a concrete seed.
func seedOrRandom(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return rand.Uint64()
}

func (h *Handler) samples(n int) (int, error) {
	switch {
	case n == 0:
		return h.cfg.DefaultSamples, nil
	case n < 0 || n > h.cfg.MaxSamples:
		return 0, staterr.InvalidInput("samples", "sample count out of range", "samples", n, "max", h.cfg.MaxSamples)
	}
	return n, nil
}

func (h *Handler) inferenceOptions(in types.InferenceOptions) ([]analysis.Option, *uint64, error) {
	n, err := h.samples(in.Samples)
	if err != nil {
		return nil, nil, err
	}
	opts := []analysis.Option{analysis.WithSamples(n)}
	seed := h.seed(in.Seed)
	if seed != nil {
		opts = append(opts, analysis.WithSeed(*seed))
	}
	if in.EquivalenceThreshold != nil {
		opts = append(opts, analysis.WithEquivalenceThreshold(*in.EquivalenceThreshold))
	}
	return opts, seed, nil
}

func priorOrDefault(p *analysis.Prior) analysis.Prior {
	if p == nil {
		return analysis.DefaultPrior()
	}
	return *p
}

// intQuery reads an integer query parameter, falling back to def when absent.
func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, staterr.InvalidInput("query", "not an integer", "parameter", key, "value", raw)
	}
	return v, nil
}

func floatQuery(c *gin.Context, key string, def float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, staterr.InvalidInput("query", "not a number", "parameter", key, "value", raw)
	}
	return v, nil
}
