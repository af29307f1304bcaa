package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/cache"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/ratelimit"
)

const scenarioRoute = "/v1/simulate/scenario"

// CacheRules lists the routes whose responses are a pure function of the
// request body. Monte Carlo routes qualify only when seeded.
func CacheRules() map[string]cache.Rule {
	return map[string]cache.Rule{
		"/v1/analyze":                 cache.Seeded,
		"/v1/frequentist/chi-squared": cache.Always,
		"/v1/frequentist/proportion":  cache.Always,
		"/v1/design/sample-size":      cache.Always,
		"/v1/design/power":            cache.Always,
		"/v1/design/power-curve":      cache.Always,
		"/v1/simulate/data":           cache.Seeded,
		scenarioRoute:                 cache.Always,
	}
}

// RegisterRoutes mounts the ops and v1 routes. rl may be nil to disable the
// per-endpoint budget on scenario runs.
func RegisterRoutes(r *gin.Engine, h *Handler, rl *ratelimit.RateLimiter) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	r.GET("/cache/stats", h.CacheStats)
	r.GET("/sessions/stats", h.SessionStats)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/v1")
	if h.cache != nil {
		v1.Use(h.cache.Middleware(h.metrics, h.logger, CacheRules()))
	}

	v1.POST("/analyze", h.Analyze)

	tests := v1.Group("/tests")
	tests.POST("", h.CreateTest)
	tests.GET("/:id", h.GetTest)
	tests.DELETE("/:id", h.DeleteTest)
	tests.GET("/:id/risk", h.TestRisk)
	tests.GET("/:id/bayes-factor", h.TestBayesFactor)
	tests.PUT("/:id/groups/:group", h.ObserveGroup)
	tests.GET("/:id/groups/:group/samples", h.GroupSamples)
	tests.GET("/:id/groups/:group/density", h.GroupDensity)

	seq := v1.Group("/sequential")
	seq.POST("", h.CreateSequential)
	seq.GET("/:id", h.GetSequential)
	seq.DELETE("/:id", h.DeleteSequential)
	seq.POST("/:id/observations", h.AddObservation)
	seq.GET("/:id/history", h.History)
	seq.GET("/:id/probability", h.Probability)
	seq.GET("/:id/curve", h.Curve)
	seq.POST("/:id/simulate", h.SimulateSequential)

	freq := v1.Group("/frequentist")
	freq.POST("/chi-squared", h.ChiSquared)
	freq.POST("/proportion", h.Proportion)

	design := v1.Group("/design")
	design.POST("/sample-size", h.SampleSize)
	design.POST("/power", h.Power)
	design.POST("/power-curve", h.PowerCurve)

	sim := v1.Group("/simulate")
	sim.POST("/data", h.GenerateData)
	if rl != nil {
		sim.POST("/scenario", rl.EndpointRateLimitMiddleware("scenario", h.cfg.ScenarioPerMin), h.Scenario)
	} else {
		sim.POST("/scenario", h.Scenario)
	}
}
