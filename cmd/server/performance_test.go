package main

import (
	"fmt"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeEndpoint_ResponseTimeDistribution(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping response time distribution test in short mode")
	}
	s := newTestServer(t, nil)

	const numRequests = 50
	durations := make([]time.Duration, numRequests)
	for i := 0; i < numRequests; i++ {
		// Distinct seeds keep every request off the cache.
		body := fmt.Sprintf(`{"A":{"successes":120,"trials":1000},"B":{"successes":140,"trials":1000},"seed":%d}`, i+1)
		start := time.Now()
		w := request(s.router, http.MethodPost, "/v1/analyze", body, nil)
		durations[i] = time.Since(start)
		require.Equal(t, http.StatusOK, w.Code)
	}

	p := calculatePercentiles(durations, 0.5, 0.95, 0.99)
	t.Logf("Response time distribution: P50 %v, P95 %v, P99 %v", p[0], p[1], p[2])

	assert.Less(t, p[1], 2*time.Second, "95th percentile should be under 2 seconds")
}

func TestAnalyzeEndpoint_CachedIsFaster(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping cache timing test in short mode")
	}
	s := newTestServer(t, map[string]string{"DEFAULT_SAMPLES": "200000"})

	start := time.Now()
	w := request(s.router, http.MethodPost, "/v1/analyze", analyzeBody, nil)
	cold := time.Since(start)
	require.Equal(t, http.StatusOK, w.Code)

	start = time.Now()
	w = request(s.router, http.MethodPost, "/v1/analyze", analyzeBody, nil)
	warm := time.Since(start)
	require.Equal(t, "HIT", w.Header().Get("X-Cache"))

	t.Logf("cold %v, cached %v", cold, warm)
	assert.Less(t, warm, cold)
}

func TestScenario_LoadTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping load test in short mode")
	}
	s := newTestServer(t, map[string]string{"SCENARIO_RATE_LIMIT_PER_MIN": "1000"})

	const clients = 8
	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"trials_per_group":500,"runs":10,"samples":5000,"seed":%d}`, i*100)
			w := request(s.router, http.MethodPost, "/v1/simulate/scenario", body, nil)
			if w.Code != http.StatusOK {
				errs <- fmt.Errorf("client %d: status %d: %s", i, w.Code, w.Body.String())
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func calculatePercentiles(durations []time.Duration, percentiles ...float64) []time.Duration {
	sorted := slices.Clone(durations)
	slices.Sort(sorted)

	results := make([]time.Duration, len(percentiles))
	for i, p := range percentiles {
		index := int(float64(len(sorted)-1) * p)
		results[i] = sorted[index]
	}
	return results
}
