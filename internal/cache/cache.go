package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spaolacci/murmur3"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/monitoring"
)

// CacheItem represents a cached response with expiration
type CacheItem struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the cache item has expired
func (c *CacheItem) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Cache is a thread-safe TTL store for serialized responses.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*CacheItem
	ttl   time.Duration
	done  chan struct{}
	once  sync.Once
}

// NewCache creates a cache and starts its cleanup loop; Close stops it.
func NewCache(ttl time.Duration) *Cache {
	return newCache(ttl, 5*time.Minute)
}

func newCache(ttl, sweep time.Duration) *Cache {
	cache := &Cache{
		items: make(map[string]*CacheItem),
		ttl:   ttl,
		done:  make(chan struct{}),
	}
	go cache.cleanup(sweep)
	return cache
}

func (c *Cache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			for key, item := range c.items {
				if item.IsExpired() {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Close stops the cleanup loop
func (c *Cache) Close() {
	c.once.Do(func() { close(c.done) })
}

// Key hashes a method, route and body into a cache key.
func Key(method, path string, body []byte) string {
	h := murmur3.New128()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	hi, lo := h.Sum128()
	return fmt.Sprintf("%016x%016x", hi, lo)
}

// Get retrieves an item from the cache
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if item.IsExpired() {
		c.Delete(key)
		return nil, false
	}
	return item.Data, true
}

// Set stores an item in the cache
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes an item from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*CacheItem)
}

// Size returns the number of items in the cache
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stats returns cache statistics
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	totalItems := len(c.items)
	expiredItems := 0
	for _, item := range c.items {
		if item.IsExpired() {
			expiredItems++
		}
	}

	return map[string]interface{}{
		"total_items":   totalItems,
		"expired_items": expiredItems,
		"active_items":  totalItems - expiredItems,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

// Rule decides whether a POST body on a route may be served from cache.
type Rule func(body []byte) bool

// Always caches every body; use it for closed-form endpoints.
func Always(body []byte) bool { return true }

// Seeded caches only bodies that pin a random seed, so Monte Carlo results
// are reproducible and safe to replay.
func Seeded(body []byte) bool {
	var req struct {
		Seed *uint64 `json:"seed"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return false
	}
	return req.Seed != nil
}

// Middleware caches successful POST responses for the routes in rules,
// keyed by the matched route, its query string and the raw request body.
// logger may be nil.
func (c *Cache) Middleware(metrics *monitoring.Metrics, logger *monitoring.Logger, rules map[string]Rule) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rule, ok := rules[ctx.FullPath()]
		if ctx.Request.Method != http.MethodPost || !ok {
			ctx.Next()
			return
		}

		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.Next()
			return
		}
		ctx.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		if !rule(body) {
			ctx.Next()
			return
		}

		path := ctx.FullPath()
		if q := ctx.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}
		cacheKey := Key(ctx.Request.Method, path, body)
		if cachedData, found := c.Get(cacheKey); found {
			if logger != nil {
				logger.CacheLogger("get", cacheKey, true, c.Size())
			}
			metrics.IncrementCacheHit()
			ctx.Header("X-Cache", "HIT")
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", cachedData)
			ctx.Abort()
			return
		}

		if logger != nil {
			logger.CacheLogger("get", cacheKey, false, c.Size())
		}
		metrics.IncrementCacheMiss()
		ctx.Header("X-Cache", "MISS")

		wrapper := &responseWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = wrapper
		ctx.Next()

		if wrapper.Status() == http.StatusOK {
			c.Set(cacheKey, wrapper.body.Bytes())
		}
	}
}

// responseWriter tees the response body so it can be cached.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
