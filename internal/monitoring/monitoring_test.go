package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestLoggerWritesJSONWithTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelInfo)

	logger.InferenceLogger("risk_metrics", 1000, true, 15*time.Millisecond)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Inference Completed", entry["msg"])
	assert.Equal(t, "risk_metrics", entry["operation"])
	assert.Equal(t, float64(1000), entry["samples"])
	assert.Contains(t, entry, "timestamp")
	assert.NotContains(t, entry, "time")
}

func TestLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelInfo)

	logger.SessionLogger("created", "batch", "abc")
	assert.Zero(t, buf.Len(), "debug is filtered at info")

	logger.SetLevel(slog.LevelDebug)
	logger.SessionLogger("created", "batch", "abc")
	assert.Contains(t, buf.String(), "Session Event")
}

func TestMetricsStats(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest(http.MethodGet, "/health", 200, time.Millisecond)
	m.RecordRequest(http.MethodPost, "/v1/analyze", 400, time.Millisecond)
	m.IncrementCacheHit()
	m.IncrementCacheMiss()
	m.IncrementCacheMiss()

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats["request_count"])
	assert.Equal(t, int64(1), stats["error_count"])
	assert.Equal(t, 0.5, stats["error_rate"])
	assert.InDelta(t, 1.0/3.0, stats["cache_hit_rate"], 1e-12)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodPost, "/v1/analyze", "4xx")))
}

func TestMetricsInferenceAndSessions(t *testing.T) {
	m := NewMetrics()
	m.RecordInference("risk_metrics", 200_000, 10*time.Millisecond)
	m.RecordInference("chi_squared", 0, time.Millisecond)
	m.SetActiveSessions("batch", 3)
	m.RecordStatError("missing_group")

	assert.Equal(t, 200_000.0, testutil.ToFloat64(m.drawsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeSessions.WithLabelValues("batch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statErrorsTotal.WithLabelValues("missing_group")))
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := NewMetrics()
	m.RecordInference("bayes_factor", 10, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bayesian_ab_inference_monte_carlo_draws_total 10")
}

func TestMonitoringMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	m := NewMetrics()

	router := gin.New()
	router.Use(MonitoringMiddleware(m, NewLoggerTo(&buf, slog.LevelInfo)))
	router.GET("/v1/tests/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/tests/abc", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "/v1/tests/:id", "4xx")))
	assert.True(t, strings.Contains(buf.String(), `"path":"/v1/tests/abc"`))
}

func TestStartSpanWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "risk_metrics", map[string]int{"samples": 10})
	defer span.End()
	assert.NotNil(t, ctx)
}

func TestInitTracing(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing("bayesian-ab-test", "test", &buf)
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "bayes_factor", map[string]int{"samples": 5})
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "bayes_factor")
}
