package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/types"
)

// Health godoc
// @Summary      Liveness and request statistics
// @Tags         ops
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	stats := h.metrics.GetStats()
	stats["sessions"] = gin.H{
		KindBatch:      h.tests.Len(),
		KindSequential: h.sequential.Len(),
	}
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Timestamp: time.Now().Format(time.RFC3339),
		Stats:     stats,
	})
}

// CacheStats godoc
// @Summary      Response cache statistics
// @Tags         ops
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /cache/stats [get]
func (h *Handler) CacheStats(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	stats := h.cache.Stats()
	stats["enabled"] = true
	c.JSON(http.StatusOK, stats)
}

// SessionStats godoc
// @Summary      Live session counts
// @Tags         ops
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /sessions/stats [get]
func (h *Handler) SessionStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		KindBatch:      h.tests.Stats(),
		KindSequential: h.sequential.Stats(),
	})
}
