package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/forecast-autoscaler/pkg/database"
)

type HealthHandler struct {
	db      *database.DB
	manager CycleManager
}

// NewHealthHandler reports on db and manager; either may be nil.
func NewHealthHandler(db *database.DB, manager CycleManager) *HealthHandler {
	return &HealthHandler{db: db, manager: manager}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health reports the service and, when configured, the history database.
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse "Database unreachable"
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "healthy"
			if version, err := h.db.GetVersion(ctx); err == nil {
				checks["database_version"] = version
			}
		}
	}

	if h.manager != nil {
		s := h.manager.Status()
		checks["circuit_breaker"] = s.BreakerState
		if s.SchedulerRunning {
			checks["scheduler"] = "running"
		} else {
			checks["scheduler"] = "stopped"
		}
		if s.LastCycle != nil {
			checks["last_cycle"] = string(s.LastCycle.Status)
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: now(),
		Checks:    checks,
	})
}

// @Summary Readiness check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "not ready", Timestamp: now()})
			return
		}
	}

	c.JSON(http.StatusOK, HealthResponse{Status: "ready", Timestamp: now()})
}

// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "alive", Timestamp: now()})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
