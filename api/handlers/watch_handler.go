package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/levtools/mediagrab/internal/app"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins, matching CORS
	},
}

// WatchHandler streams progress snapshots of one download over a WebSocket
type WatchHandler struct {
	downloadMgr  *app.DownloadManager
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewWatchHandler creates a new watch handler
func NewWatchHandler(downloadMgr *app.DownloadManager, pollInterval time.Duration, log *zap.Logger) *WatchHandler {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &WatchHandler{
		downloadMgr:  downloadMgr,
		pollInterval: pollInterval,
		logger:       log,
	}
}

// Watch handles GET /api/v1/downloads/:id/watch. A snapshot is pushed on
// connect and then every poll interval while it changes; the connection is
// closed after the terminal snapshot.
func (h *WatchHandler) Watch(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.downloadMgr.GetProgress(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"found": false})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("Progress watcher connected",
		zap.String("id", id),
		zap.String("remote_addr", c.Request.RemoteAddr))

	// reads only to notice the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	var lastUpdate time.Time
	for {
		item, ok := h.downloadMgr.GetProgress(id)
		if !ok {
			// evicted while watching
			h.close(conn, websocket.CloseNormalClosure, "download no longer tracked")
			return
		}

		if !item.UpdatedAt.Equal(lastUpdate) {
			lastUpdate = item.UpdatedAt
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(item); err != nil {
				h.logger.Debug("Progress watcher write failed", zap.String("id", id), zap.Error(err))
				return
			}
		}
		if item.IsTerminal() {
			h.close(conn, websocket.CloseNormalClosure, string(item.Status))
			return
		}

		select {
		case <-ticker.C:
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *WatchHandler) close(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}
