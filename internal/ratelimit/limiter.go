package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	IPLimitPerMin   int // per-client budget for all routes
	BurstMultiplier int
	IdleTTL         time.Duration // limiters unused this long are dropped
}

// DefaultConfig returns the limits used when none are configured
func DefaultConfig() Config {
	return Config{
		IPLimitPerMin:   120,
		BurstMultiplier: 2,
		IdleTTL:         10 * time.Minute,
	}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	limit    int
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key in memory.
type RateLimiter struct {
	config  Config
	metrics *monitoring.Metrics

	mu      sync.Mutex
	buckets map[string]*bucket

	done chan struct{}
	once sync.Once
	now  func() time.Time
}

// NewRateLimiter creates a limiter and starts its idle sweep
func NewRateLimiter(config Config, metrics *monitoring.Metrics) *RateLimiter {
	if config.BurstMultiplier < 1 {
		config.BurstMultiplier = 1
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultConfig().IdleTTL
	}
	rl := &RateLimiter{
		config:  config,
		metrics: metrics,
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go rl.cleanup()
	return rl
}

// AllowIP checks the per-minute budget for a client address.
func (rl *RateLimiter) AllowIP(ip string) Result {
	return rl.Allow("ip:"+ip, rl.config.IPLimitPerMin, time.Minute)
}

// Allow takes one token from the bucket for key, creating it on first use
// with limit tokens per period.
func (rl *RateLimiter) Allow(key string, limit int, period time.Duration) Result {
	now := rl.now()

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		burst := limit * rl.config.BurstMultiplier
		if burst < 1 {
			burst = 1
		}
		b = &bucket{
			limiter: rate.NewLimiter(rate.Limit(float64(limit)/period.Seconds()), burst),
			limit:   limit,
		}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	allowed := b.limiter.AllowN(now, 1)
	remaining := int(b.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	perToken := time.Duration(float64(period) / float64(limit))
	result := Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(perToken),
	}
	if !allowed {
		result.RetryAfter = perToken
		if rl.metrics != nil {
			rl.metrics.IncrementRateLimited()
		}
	}
	return result
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.IdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			if n := rl.evictIdle(rl.now()); n > 0 {
				slog.Debug("Evicted idle rate limiters", "count", n)
			}
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	n := 0
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.config.IdleTTL {
			delete(rl.buckets, key)
			n++
		}
	}
	return n
}

// Close stops the idle sweep
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}

// GetStats returns limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"limiters":         len(rl.buckets),
		"ip_limit_per_min": rl.config.IPLimitPerMin,
		"burst_multiplier": rl.config.BurstMultiplier,
	}
}
