package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/levtools/mediagrab/api/handlers"
	"github.com/levtools/mediagrab/api/middleware"
	"github.com/levtools/mediagrab/internal/app"
	"github.com/levtools/mediagrab/pkg/logger"
)

// Services groups what the HTTP layer talks to
type Services struct {
	QueueMgr       *app.QueueManager
	DownloadMgr    *app.DownloadManager
	BatchScheduler *app.BatchScheduler
	History        *app.HistoryService
	Registry       *app.AdapterRegistry
	LogReader      *logger.LogReader // optional
	PollInterval   time.Duration
}

// SetupRouter sets up the HTTP router
func SetupRouter(svc Services, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(svc.QueueMgr, svc.Registry)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)
		v1.GET("/ready", healthHandler.Ready)

		downloadHandler := handlers.NewDownloadHandler(svc.QueueMgr, svc.DownloadMgr, log)
		watchHandler := handlers.NewWatchHandler(svc.DownloadMgr, svc.PollInterval, log)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.Submit)
			downloads.GET("", downloadHandler.ListQueue)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.DELETE("/finished", downloadHandler.ClearFinished)
			downloads.GET("/:id/progress", downloadHandler.GetProgress)
			downloads.GET("/:id/watch", watchHandler.Watch)
			downloads.POST("/:id/cancel", downloadHandler.Cancel)
			downloads.POST("/:id/redownload", downloadHandler.Redownload)
			downloads.PUT("/:id/priority", downloadHandler.SetPriority)
		}

		batchHandler := handlers.NewBatchHandler(svc.BatchScheduler, log)
		batches := v1.Group("/batches")
		{
			batches.POST("", batchHandler.Start)
			batches.GET("/:id", batchHandler.Get)
			batches.POST("/:id/cancel", batchHandler.Cancel)
		}

		platformHandler := handlers.NewPlatformHandler(svc.Registry)
		v1.GET("/platforms", platformHandler.List)

		historyHandler := handlers.NewHistoryHandler(svc.History, log)
		history := v1.Group("/history")
		{
			history.GET("", historyHandler.List)
			history.DELETE("", historyHandler.Clear)
			history.GET("/stats", historyHandler.Stats)
			history.GET("/quick-access", historyHandler.QuickAccess)
			history.DELETE("/:id", historyHandler.Delete)
		}
		v1.GET("/preferences", historyHandler.GetPreferences)
		v1.PUT("/preferences", historyHandler.UpdatePreferences)

		if svc.LogReader != nil {
			logHandler := handlers.NewLogHandler(svc.LogReader)
			logs := v1.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
				logs.GET("/:category/search", logHandler.SearchLogs)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Code: "NOT_FOUND", Message: "route not found"})
	})

	return router
}
