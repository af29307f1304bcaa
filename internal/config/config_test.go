package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 100_000, cfg.DefaultSamples)
	assert.Equal(t, 1_000_000, cfg.MaxSamples)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, 10_000_000, cfg.MaxTrials)
	assert.False(t, cfg.TracingEnabled)
	assert.Nil(t, cfg.Seed())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"PORT":            "9090",
		"DEFAULT_SAMPLES": "5000",
		"DEFAULT_SEED":    "42",
		"SESSION_TTL":     "30m",
		"ALLOWED_ORIGINS": "https://a.example,https://b.example",
		"TRACING_ENABLED": "true",
		"LOG_LEVEL":       "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5000, cfg.DefaultSamples)
	require.NotNil(t, cfg.Seed())
	assert.Equal(t, uint64(42), *cfg.Seed())
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.TracingEnabled)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unparseable int", map[string]string{"DEFAULT_SAMPLES": "many"}},
		{"zero samples", map[string]string{"DEFAULT_SAMPLES": "0"}},
		{"max below default", map[string]string{"DEFAULT_SAMPLES": "10", "MAX_SAMPLES": "5"}},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}},
		{"zero ttl", map[string]string{"SESSION_TTL": "0s"}},
		{"zero runs", map[string]string{"SCENARIO_MAX_RUNS": "0"}},
		{"zero trial cap", map[string]string{"MAX_TRIALS": "0"}},
		{"negative rate", map[string]string{"RATE_LIMIT_PER_MIN": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.env)
			assert.Error(t, err)
		})
	}
}
