// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration.
type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DefaultSamples  int           `env:"DEFAULT_SAMPLES" envDefault:"100000"`
	MaxSamples      int           `env:"MAX_SAMPLES" envDefault:"1000000"`
	DefaultSeed     uint64        `env:"DEFAULT_SEED" envDefault:"0"` // 0 leaves requests unseeded
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"15m"`
	RateLimitPerMin int           `env:"RATE_LIMIT_PER_MIN" envDefault:"120"`
	ScenarioPerMin  int           `env:"SCENARIO_RATE_LIMIT_PER_MIN" envDefault:"10"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	TracingEnabled  bool          `env:"TRACING_ENABLED" envDefault:"false"`
	EnableProfiling bool          `env:"ENABLE_PROFILING" envDefault:"false"`
	EnableHSTS      bool          `env:"ENABLE_HSTS" envDefault:"false"`
	ScenarioMaxRuns int           `env:"SCENARIO_MAX_RUNS" envDefault:"1000"`
	MaxTrials       int           `env:"MAX_TRIALS" envDefault:"10000000"` // per group, simulated sequential runs
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	return LoadFrom(nil)
}

// LoadFrom parses the given variables instead of the process environment
// when environ is non-nil.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.DefaultSamples <= 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_SAMPLES must be positive, got %d", c.DefaultSamples))
	}
	if c.MaxSamples < c.DefaultSamples {
		errs = append(errs, fmt.Errorf("MAX_SAMPLES (%d) must be at least DEFAULT_SAMPLES (%d)", c.MaxSamples, c.DefaultSamples))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	if c.RateLimitPerMin <= 0 || c.ScenarioPerMin <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	if c.ScenarioMaxRuns <= 0 {
		errs = append(errs, fmt.Errorf("SCENARIO_MAX_RUNS must be positive, got %d", c.ScenarioMaxRuns))
	}
	if c.MaxTrials <= 0 {
		errs = append(errs, fmt.Errorf("MAX_TRIALS must be positive, got %d", c.MaxTrials))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Seed returns the configured default seed, or nil when unset.
func (c Config) Seed() *uint64 {
	if c.DefaultSeed == 0 {
		return nil
	}
	s := c.DefaultSeed
	return &s
}
