package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/levtools/mediagrab/internal/domain"
	"github.com/levtools/mediagrab/pkg/logger"
)

// QueueManager dispatches queued downloads to a bounded set of workers
type QueueManager struct {
	downloadMgr     *DownloadManager
	config          *domain.QueueConfig
	concurrentLimit int
	multiLogger     *logger.MultiLogger
	mu              sync.RWMutex
	running         bool
	stopChan        chan struct{}
	wakeChan        chan struct{}
	slots           chan struct{}
	workerWg        sync.WaitGroup
}

// NewQueueManager creates a new queue manager
func NewQueueManager(
	downloadMgr *DownloadManager,
	config *domain.QueueConfig,
	downloadConfig *domain.DownloadConfig,
	multiLogger *logger.MultiLogger,
) *QueueManager {
	limit := 1
	if downloadConfig != nil && downloadConfig.ConcurrentLimit > 0 {
		limit = downloadConfig.ConcurrentLimit
	}
	return &QueueManager{
		downloadMgr:     downloadMgr,
		config:          config,
		concurrentLimit: limit,
		multiLogger:     multiLogger,
		wakeChan:        make(chan struct{}, 1),
		slots:           make(chan struct{}, limit),
	}
}

// Start starts the queue processor
func (qm *QueueManager) Start(ctx context.Context) error {
	qm.mu.Lock()
	if qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager already running")
	}
	qm.running = true
	qm.stopChan = make(chan struct{})
	stop := qm.stopChan
	qm.mu.Unlock()

	qm.logEvent("queue_started", zap.Int("concurrent_limit", qm.concurrentLimit))

	qm.workerWg.Add(1)
	go qm.processQueue(ctx, stop)
	qm.wake()

	return nil
}

// Stop stops the queue processor and waits for in-flight downloads
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	close(qm.stopChan)
	qm.mu.Unlock()

	qm.logEvent("queue_stopped")
	qm.workerWg.Wait()

	return nil
}

// IsRunning returns whether the queue manager is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

// Enqueue accepts a request for background processing
func (qm *QueueManager) Enqueue(req domain.DownloadRequest) (domain.QueueItem, error) {
	item, err := qm.downloadMgr.Enqueue(req)
	if err != nil {
		return item, err
	}
	qm.wake()
	return item, nil
}

// SetPriority changes the priority of a queued download
func (qm *QueueManager) SetPriority(id string, priority domain.Priority) (domain.QueueItem, error) {
	item, err := qm.downloadMgr.SetPriority(id, priority)
	if err != nil {
		return item, err
	}
	qm.logEvent("priority_changed", zap.String("id", id), zap.String("priority", string(priority)))
	return item, nil
}

// ListQueue returns queued and processing downloads in dequeue order
func (qm *QueueManager) ListQueue() []domain.QueueItem {
	return qm.downloadMgr.Snapshot()
}

// Stats returns queue statistics
func (qm *QueueManager) Stats() domain.QueueStats {
	return qm.downloadMgr.Stats()
}

// ClearFinished removes terminal downloads from the progress store
func (qm *QueueManager) ClearFinished() int {
	removed := qm.downloadMgr.ClearFinished()
	qm.logEvent("finished_cleared", zap.Int("count", removed))
	return removed
}

func (qm *QueueManager) wake() {
	select {
	case qm.wakeChan <- struct{}{}:
	default:
	}
}

// processQueue wakes on enqueue or on every check interval and hands queued
// items to workers while slots are free
func (qm *QueueManager) processQueue(ctx context.Context, stop <-chan struct{}) {
	defer qm.workerWg.Done()

	interval := 5 * time.Second
	if qm.config != nil && qm.config.CheckInterval > 0 {
		interval = qm.config.CheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			qm.logEvent("queue_processor_stopped", zap.String("reason", "context_cancelled"))
			return
		case <-stop:
			qm.logEvent("queue_processor_stopped", zap.String("reason", "stop_signal"))
			return
		case <-ticker.C:
			qm.dispatch(ctx)
		case <-qm.wakeChan:
			qm.dispatch(ctx)
		}
	}
}

func (qm *QueueManager) dispatch(ctx context.Context) {
	for {
		select {
		case qm.slots <- struct{}{}:
		default:
			return
		}

		id, ok := qm.downloadMgr.queue.PopNext()
		if !ok {
			<-qm.slots
			return
		}

		qm.workerWg.Add(1)
		go func(id string) {
			defer qm.workerWg.Done()
			defer func() {
				<-qm.slots
				qm.wake()
			}()

			outcome := qm.downloadMgr.Execute(ctx, id)
			if !outcome.Success && qm.multiLogger != nil {
				reason := ""
				if outcome.ErrorMessage != nil {
					reason = *outcome.ErrorMessage
				}
				qm.multiLogger.LogQueueEvent("worker_finished",
					zap.String("id", id),
					zap.Bool("success", false),
					zap.String("reason", reason))
				return
			}
			qm.logEvent("worker_finished", zap.String("id", id), zap.Bool("success", true))
		}(id)
	}
}

func (qm *QueueManager) logEvent(event string, fields ...zap.Field) {
	if qm.multiLogger != nil {
		qm.multiLogger.LogQueueEvent(event, fields...)
	}
}
