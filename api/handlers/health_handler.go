package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/levtools/mediagrab/internal/app"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	queueMgr  *app.QueueManager
	registry  *app.AdapterRegistry
	startedAt time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(queueMgr *app.QueueManager, registry *app.AdapterRegistry) *HealthHandler {
	return &HealthHandler{
		queueMgr:  queueMgr,
		registry:  registry,
		startedAt: time.Now(),
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Platforms int    `json:"platforms"`
	Queue     struct {
		Running    bool  `json:"running"`
		Queued     int64 `json:"queued"`
		Processing int64 `json:"processing"`
	} `json:"queue"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Version:   Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Platforms: len(h.registry.Keys()),
	}
	stats := h.queueMgr.Stats()
	response.Queue.Running = h.queueMgr.IsRunning()
	response.Queue.Queued = stats.Queued
	response.Queue.Processing = stats.Processing

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.queueMgr.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "queue manager not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
