package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/levtools/mediagrab/internal/app"
)

// BatchHandler handles batch HTTP requests
type BatchHandler struct {
	scheduler *app.BatchScheduler
	logger    *zap.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(scheduler *app.BatchScheduler, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// BatchRequest is the body of POST /api/v1/batches
type BatchRequest struct {
	URLs        []string `json:"urls"`
	Platform    string   `json:"platform"`
	ContentType string   `json:"contentType"`
}

// Start handles POST /api/v1/batches
func (h *BatchHandler) Start(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	report, err := h.scheduler.StartBatch(req.URLs, req.Platform, req.ContentType)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, report)
}

// Get handles GET /api/v1/batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	report, err := h.scheduler.GetBatch(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Cancel handles POST /api/v1/batches/:id/cancel
func (h *BatchHandler) Cancel(c *gin.Context) {
	if err := h.scheduler.CancelBatch(c.Param("id")); err != nil {
		status, body := statusFor(err)
		c.JSON(status, ActionResponse{Success: false, Message: body.Message})
		return
	}
	c.JSON(http.StatusOK, ActionResponse{Success: true, Message: "batch cancellation requested"})
}
