package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/gridiron-projections/internal/services"
	"github.com/jstittsworth/gridiron-projections/pkg/database"
)

type HealthHandler struct {
	db        *database.DB
	cache     *services.CacheService
	refresher *services.Refresher
}

func NewHealthHandler(db *database.DB, cache *services.CacheService, refresher *services.Refresher) *HealthHandler {
	return &HealthHandler{
		db:        db,
		cache:     cache,
		refresher: refresher,
	}
}

// GetHealth returns basic health status - always returns 200 if server is
// running. This is used for basic liveness probes.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "gridiron-projections",
		"timestamp": time.Now().UTC(),
	})
}

// GetReady reports whether the store is reachable, plus cache and refresher
// state. The store gates readiness; the cache is optional.
func (h *HealthHandler) GetReady(c *gin.Context) {
	status := gin.H{
		"status":        "ready",
		"database":      "ok",
		"cache_enabled": h.cache.Enabled(),
	}
	httpStatus := http.StatusOK

	sqlDB, err := h.db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		status["status"] = "not_ready"
		status["database"] = err.Error()
		httpStatus = http.StatusServiceUnavailable
	}

	if h.refresher != nil {
		status["refresher"] = h.refresher.Status()
	}

	c.JSON(httpStatus, status)
}
