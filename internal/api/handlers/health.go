package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/feature-engine/internal/services"
	"github.com/stitts-dev/feature-engine/pkg/database"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db     *database.DB
	cache  *services.CacheService
	logger *logrus.Logger
}

func NewHealthHandler(db *database.DB, cache *services.CacheService, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// GetHealth reports process liveness.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "feature-engine",
	})
}

// GetReady reports readiness: database and redis must both answer.
func (h *HealthHandler) GetReady(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if err := h.db.HealthCheck(); err != nil {
		h.logger.WithError(err).Warn("Database health check failed")
		checks["database"] = "unhealthy"
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if err := h.cache.HealthCheck(c.Request.Context()); err != nil {
		h.logger.WithError(err).Warn("Redis health check failed")
		checks["redis"] = "unhealthy"
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status": checks,
	})
}
