package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/jelli-fit/internal/dto"
	"github.com/prohmpiriya/jelli-fit/internal/service"
	"github.com/prohmpiriya/jelli-fit/pkg/logger"
	"github.com/prohmpiriya/jelli-fit/pkg/response"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// InfoHandler serves the root, health and stats endpoints
type InfoHandler struct {
	statsService service.StatsService
	name         string
	version      string
	checks       map[string]HealthCheck
}

// NewInfoHandler creates a new InfoHandler
func NewInfoHandler(statsService service.StatsService, name, version string, checks map[string]HealthCheck) *InfoHandler {
	return &InfoHandler{
		statsService: statsService,
		name:         name,
		version:      version,
		checks:       checks,
	}
}

// Root handles GET /
func (h *InfoHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(gin.H{
		"name":    h.name,
		"version": h.version,
	}))
}

// Health handles GET /health
func (h *InfoHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.Get().WarnContext(ctx, "health check failed", zap.String("dependency", name), zap.Error(err))
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "up"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.ErrorWithDetails(
			response.ErrCodeServiceUnavailable, "Service unhealthy", status))
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"status": "ok", "checks": status}))
}

// Stats handles GET /stats
func (h *InfoHandler) Stats(c *gin.Context) {
	stats, err := h.statsService.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, "get_stats", err)
		return
	}

	c.JSON(http.StatusOK, response.Success(&dto.StatsResponse{
		EventCount:  stats.EventCount,
		PersonCount: stats.PersonCount,
		Version:     h.version,
	}))
}
