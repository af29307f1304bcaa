// @title        Bayesian A/B API
// @version      1.0.0
// @description  Bayesian and frequentist inference for two-proportion experiments.
// @BasePath     /
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/ZanzyTHEbar/bayesian-ab/docs"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/api"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/cache"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/config"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/errors"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/middleware"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/monitoring"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/ratelimit"
)

const (
	serviceName = "bayesian-ab"
	version     = "1.0.0"
)

// server bundles the router with everything that needs stopping on exit.
type server struct {
	router  *gin.Engine
	handler *api.Handler
	limiter *ratelimit.RateLimiter
	cache   *cache.Cache
}

func (s *server) Close() {
	s.handler.Close()
	s.limiter.Close()
	s.cache.Close()
}

func setupRouter(cfg config.Config, logger *monitoring.Logger, metrics *monitoring.Metrics) *server {
	r := gin.New()

	// Monitoring first so every request is counted.
	r.Use(monitoring.MonitoringMiddleware(metrics, logger))
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(serviceName))
	}

	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"X-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	compression := middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig())
	r.Use(compression.Handler())

	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	r.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))
	r.Use(middleware.RequireJSON())

	limiter := ratelimit.NewRateLimiter(ratelimit.Config{
		IPLimitPerMin:   cfg.RateLimitPerMin,
		BurstMultiplier: ratelimit.DefaultConfig().BurstMultiplier,
		IdleTTL:         ratelimit.DefaultConfig().IdleTTL,
	}, metrics)
	r.Use(limiter.IPRateLimitMiddleware())

	respCache := cache.NewCache(cfg.CacheTTL)
	h := api.NewHandler(cfg, version, logger, metrics, respCache)
	api.RegisterRoutes(r, h, limiter)

	r.GET("/compression/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, compression.GetStats())
	})
	r.GET("/ratelimit/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, limiter.GetStats())
	})

	if cfg.EnableProfiling {
		slog.Warn("Profiling endpoints enabled")
		r.GET("/debug/pprof/", gin.WrapF(pprof.Index))
		r.GET("/debug/pprof/:name", gin.WrapF(pprof.Index))
		r.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		r.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		r.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		r.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	}

	return &server{router: r, handler: h, limiter: limiter, cache: respCache}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		appErr := errors.NewConfigurationError("invalid configuration", err)
		slog.Error(appErr.Error(), "category", appErr.Category)
		os.Exit(1)
	}

	logger := monitoring.NewLogger(monitoring.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger.Logger)
	gin.SetMode(gin.ReleaseMode)

	if cfg.TracingEnabled {
		shutdownTracing, err := monitoring.InitTracing(serviceName, version, os.Stderr)
		if err != nil {
			slog.Error("Failed to initialize tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				slog.Error("Failed to flush traces", "error", err)
			}
		}()
	}

	metrics := monitoring.NewMetrics()
	s := setupRouter(cfg, logger, metrics)
	defer s.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.SystemLogger("startup", "listening on :"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return
	}

	slog.Info("Server exited")
}
