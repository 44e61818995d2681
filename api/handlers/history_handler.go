package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/levtools/mediagrab/internal/app"
)

// HistoryHandler serves the history log and user preferences
type HistoryHandler struct {
	history *app.HistoryService
	logger  *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history *app.HistoryService, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		logger:  logger,
	}
}

// List handles GET /api/v1/history
func (h *HistoryHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		badRequest(c, "limit must be a non-negative integer")
		return
	}

	entries, err := h.history.List(c.Query("platform"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

// Stats handles GET /api/v1/history/stats
func (h *HistoryHandler) Stats(c *gin.Context) {
	stats, err := h.history.Stats()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// QuickAccess handles GET /api/v1/history/quick-access
func (h *HistoryHandler) QuickAccess(c *gin.Context) {
	entries, err := h.history.QuickAccess()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Delete handles DELETE /api/v1/history/:id
func (h *HistoryHandler) Delete(c *gin.Context) {
	if err := h.history.Delete(c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Clear handles DELETE /api/v1/history
func (h *HistoryHandler) Clear(c *gin.Context) {
	if err := h.history.Clear(); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPreferences handles GET /api/v1/preferences
func (h *HistoryHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.history.GetPreferences()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences handles PUT /api/v1/preferences. Fields missing from
// the body keep their current value.
func (h *HistoryHandler) UpdatePreferences(c *gin.Context) {
	prefs, err := h.history.GetPreferences()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var patch struct {
		FavoritePlatforms *[]string `json:"favoritePlatforms"`
		BatchSize         *int      `json:"batchSize"`
		AutoSaveHistory   *bool     `json:"autoSaveHistory"`
		MaxHistoryItems   *int      `json:"maxHistoryItems"`
	}
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if patch.FavoritePlatforms != nil {
		prefs.FavoritePlatforms = *patch.FavoritePlatforms
	}
	if patch.BatchSize != nil {
		prefs.BatchSize = *patch.BatchSize
	}
	if patch.AutoSaveHistory != nil {
		prefs.AutoSaveHistory = *patch.AutoSaveHistory
	}
	if patch.MaxHistoryItems != nil {
		prefs.MaxHistoryItems = *patch.MaxHistoryItems
	}

	saved, err := h.history.SetPreferences(prefs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// PlatformHandler lists the supported (platform, contentType) keys
type PlatformHandler struct {
	registry *app.AdapterRegistry
}

// NewPlatformHandler creates a new platform handler
func NewPlatformHandler(registry *app.AdapterRegistry) *PlatformHandler {
	return &PlatformHandler{registry: registry}
}

// List handles GET /api/v1/platforms
func (h *PlatformHandler) List(c *gin.Context) {
	keys := h.registry.Keys()
	byPlatform := make(map[string][]string)
	for _, k := range keys {
		byPlatform[k.Platform] = append(byPlatform[k.Platform], k.ContentType)
	}
	c.JSON(http.StatusOK, gin.H{
		"keys":      keys,
		"platforms": byPlatform,
	})
}
