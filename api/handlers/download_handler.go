package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/levtools/mediagrab/internal/app"
	"github.com/levtools/mediagrab/internal/domain"
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	queueMgr    *app.QueueManager
	downloadMgr *app.DownloadManager
	logger      *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(queueMgr *app.QueueManager, downloadMgr *app.DownloadManager, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		queueMgr:    queueMgr,
		downloadMgr: downloadMgr,
		logger:      logger,
	}
}

// SubmitRequest is the body of POST /api/v1/downloads
type SubmitRequest struct {
	URL         string `json:"url"`
	Platform    string `json:"platform"`
	ContentType string `json:"contentType"`
	Priority    string `json:"priority,omitempty"`
}

func (r SubmitRequest) toDomain() domain.DownloadRequest {
	return domain.DownloadRequest{
		URL:         r.URL,
		Platform:    r.Platform,
		ContentType: r.ContentType,
		Priority:    domain.Priority(r.Priority),
	}
}

// ActionResponse is returned by cancel endpoints
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PriorityRequest is the body of PUT /api/v1/downloads/:id/priority
type PriorityRequest struct {
	Priority string `json:"priority"`
}

// Submit handles POST /api/v1/downloads. With ?async=true the request is
// queued and the queue item is returned; otherwise the outcome is returned
// once the provider has answered.
func (h *DownloadHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		item, err := h.queueMgr.Enqueue(req.toDomain())
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusAccepted, item)
		return
	}

	// a dropped connection must not fail the provider call
	outcome, err := h.downloadMgr.Submit(context.WithoutCancel(c.Request.Context()), req.toDomain())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// ListQueue handles GET /api/v1/downloads
func (h *DownloadHandler) ListQueue(c *gin.Context) {
	items := h.queueMgr.ListQueue()
	c.JSON(http.StatusOK, gin.H{
		"count": len(items),
		"items": items,
	})
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.queueMgr.Stats())
}

// GetProgress handles GET /api/v1/downloads/:id/progress
func (h *DownloadHandler) GetProgress(c *gin.Context) {
	item, ok := h.downloadMgr.GetProgress(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "progress": item})
}

// Cancel handles POST /api/v1/downloads/:id/cancel
func (h *DownloadHandler) Cancel(c *gin.Context) {
	id := c.Param("id")

	if err := h.downloadMgr.Cancel(id); err != nil {
		status, body := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to cancel download", zap.String("id", id), zap.Error(err))
		}
		c.JSON(status, ActionResponse{Success: false, Message: body.Message})
		return
	}

	c.JSON(http.StatusOK, ActionResponse{Success: true, Message: "download cancelled"})
}

// Redownload handles POST /api/v1/downloads/:id/redownload
func (h *DownloadHandler) Redownload(c *gin.Context) {
	outcome, err := h.downloadMgr.Redownload(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// SetPriority handles PUT /api/v1/downloads/:id/priority
func (h *DownloadHandler) SetPriority(c *gin.Context) {
	var req PriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Priority == "" {
		badRequest(c, "priority is required")
		return
	}
	priority, err := domain.ParsePriority(req.Priority)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	item, err := h.queueMgr.SetPriority(c.Param("id"), priority)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// ClearFinished handles DELETE /api/v1/downloads/finished
func (h *DownloadHandler) ClearFinished(c *gin.Context) {
	removed := h.queueMgr.ClearFinished()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
