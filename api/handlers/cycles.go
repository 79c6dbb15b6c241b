package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/forecast-autoscaler/internal/orchestrator"
	"github.com/OldStager01/forecast-autoscaler/internal/resilience"
	"github.com/OldStager01/forecast-autoscaler/pkg/database/queries"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
	"github.com/OldStager01/forecast-autoscaler/pkg/validation"
)

// CycleManager is the slice of the orchestrator the API drives.
type CycleManager interface {
	ClusterID() string
	Status() orchestrator.Status
	RunOnce(ctx context.Context) (*models.CycleRecord, error)
	SubscribeAllEvents() <-chan *models.Event
}

// CycleHistory reads persisted cycle records.
type CycleHistory interface {
	ByCluster(ctx context.Context, clusterID string, from, to time.Time, limit int) ([]models.CycleRecord, error)
	Get(ctx context.Context, id string) (*models.CycleRecord, error)
	Stats(ctx context.Context, clusterID string, since time.Time) (*queries.CycleStats, error)
}

type CycleHandler struct {
	manager      CycleManager
	history      CycleHistory
	defaultLimit int
	maxLimit     int
}

// NewCycleHandler serves status and triggers. history may be nil, in which
// case the history endpoints answer 503.
func NewCycleHandler(manager CycleManager, history CycleHistory, defaultLimit, maxLimit int) *CycleHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &CycleHandler{
		manager:      manager,
		history:      history,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

type StatusResponse struct {
	orchestrator.Status
	Stats *queries.CycleStats `json:"stats_24h,omitempty"`
}

// @Summary Scheduler status
// @Description Scheduler state, circuit breaker, last cycle and 24h statistics
// @Tags Cycles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatusResponse
// @Failure 401 {object} map[string]string "Missing or invalid token"
// @Router /api/v1/status [get]
func (h *CycleHandler) Status(c *gin.Context) {
	resp := StatusResponse{Status: h.manager.Status()}

	if h.history != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		stats, err := h.history.Stats(ctx, h.manager.ClusterID(), time.Now().Add(-24*time.Hour))
		if err != nil {
			_ = c.Error(err)
		} else {
			resp.Stats = stats
		}
	}

	c.JSON(http.StatusOK, resp)
}

// List returns persisted cycles, newest first.
// @Summary List cycles
// @Tags Cycles
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of cycles"
// @Param from query string false "RFC3339 start, default 24h ago"
// @Param to query string false "RFC3339 end, default now"
// @Success 200 {object} map[string]interface{} "cluster_id, cycles and count"
// @Failure 400 {object} map[string]string "Bad query parameter"
// @Failure 503 {object} map[string]string "History disabled"
// @Router /api/v1/cycles [get]
func (h *CycleHandler) List(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cycle history is not enabled"})
		return
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, h.maxLimit)
	}

	to := time.Now()
	from := to.Add(-24 * time.Hour)
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be an RFC3339 timestamp"})
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be an RFC3339 timestamp"})
			return
		}
	}
	if from.After(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must not be after to"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	records, err := h.history.ByCluster(ctx, h.manager.ClusterID(), from, to, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cycle history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cluster_id": h.manager.ClusterID(),
		"cycles":     records,
		"count":      len(records),
	})
}

// @Summary Get cycle
// @Tags Cycles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Cycle ID (UUID)"
// @Success 200 {object} models.CycleRecord
// @Failure 400 {object} map[string]string "Malformed cycle id"
// @Failure 404 {object} map[string]string "Cycle not found"
// @Failure 503 {object} map[string]string "History disabled"
// @Router /api/v1/cycles/{id} [get]
func (h *CycleHandler) Get(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cycle history is not enabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	id := c.Param("id")
	if err := validation.ValidateCycleID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.history.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "cycle not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cycle"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// Trigger runs one cycle now and waits for it. A failed cycle is still a
// completed request; the record carries the error kind.
// @Summary Trigger a cycle
// @Tags Cycles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.CycleRecord
// @Failure 409 {object} map[string]string "A cycle is already running"
// @Failure 503 {object} map[string]string "Circuit breaker open"
// @Router /api/v1/cycles [post]
func (h *CycleHandler) Trigger(c *gin.Context) {
	record, err := h.manager.RunOnce(c.Request.Context())

	switch {
	case errors.Is(err, orchestrator.ErrCycleInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, resilience.ErrCircuitOpen):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case record == nil && err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, record)
	}
}
