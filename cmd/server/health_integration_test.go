package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint_Integration(t *testing.T) {
	s := newTestServer(t, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.Equal(t, version, response["version"])
	assert.NotEmpty(t, response["timestamp"])

	stats, ok := response["stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, stats, "uptime_seconds")
	assert.Contains(t, stats, "sessions")
}

func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)

	for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
		t.Run("method_"+method+"_not_allowed", func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(method, "/health", nil)
			s.router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestHealthEndpoint_CountsRequests(t *testing.T) {
	s := newTestServer(t, nil)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/v1/sequential/missing", nil)
		s.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	s.router.ServeHTTP(w, req)

	var response struct {
		Stats map[string]interface{} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.GreaterOrEqual(t, response.Stats["request_count"], float64(3))
	assert.GreaterOrEqual(t, response.Stats["error_count"], float64(3))
}

func TestHealthEndpoint_ConcurrentRequests(t *testing.T) {
	s := newTestServer(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/health?param=value", nil)
			req.Header.Set("User-Agent", "test-agent")
			s.router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)

			var response map[string]interface{}
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "ok", response["status"])
		}()
	}
	wg.Wait()
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	s.router.ServeHTTP(w, req)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bayesian_ab_http_requests_total")
}
