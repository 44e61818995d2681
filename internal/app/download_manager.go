package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/levtools/mediagrab/internal/domain"
	"github.com/levtools/mediagrab/internal/infrastructure"
	"github.com/levtools/mediagrab/pkg/logger"
	"go.uber.org/zap"
)

const (
	msgCancelled      = "download was cancelled"
	msgTimedOut       = "provider request timed out"
	msgProviderFailed = "provider request failed"
)

// HistoryRecorder receives terminal outcomes for the history log
type HistoryRecorder interface {
	Record(item domain.QueueItem, outcome domain.DownloadOutcome)
}

// Notifier sends user-facing notifications
type Notifier interface {
	NotifyDownloadFailed(url, platform, reason string)
	NotifyBatchFinished(report domain.BatchReport)
}

// DownloadManager validates requests, drives the adapter call and keeps the
// progress store in sync with the outcome
type DownloadManager struct {
	registry    *AdapterRegistry
	store       *infrastructure.ProgressStore
	queue       *PriorityQueue
	history     HistoryRecorder
	notifier    Notifier
	config      *domain.DownloadConfig
	logger      *zap.Logger
	multiLogger *logger.MultiLogger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// NewDownloadManager creates a new download manager. history and notifier may be nil.
func NewDownloadManager(
	registry *AdapterRegistry,
	store *infrastructure.ProgressStore,
	queue *PriorityQueue,
	history HistoryRecorder,
	notifier Notifier,
	config *domain.DownloadConfig,
	log *zap.Logger,
	multiLogger *logger.MultiLogger,
) *DownloadManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &DownloadManager{
		registry:    registry,
		store:       store,
		queue:       queue,
		history:     history,
		notifier:    notifier,
		config:      config,
		logger:      log,
		multiLogger: multiLogger,
		inflight:    make(map[string]context.CancelFunc),
	}
}

// Submit accepts a request and resolves it synchronously. A non-nil error
// means the request was rejected before any id was allocated; provider
// failures are reported through the outcome instead.
func (dm *DownloadManager) Submit(ctx context.Context, req domain.DownloadRequest) (domain.DownloadOutcome, error) {
	item, adapter, err := dm.accept(req)
	if err != nil {
		return domain.DownloadOutcome{}, err
	}
	return dm.run(ctx, item, adapter), nil
}

// Enqueue accepts a request and leaves it queued for a worker
func (dm *DownloadManager) Enqueue(req domain.DownloadRequest) (domain.QueueItem, error) {
	item, _, err := dm.accept(req)
	return item, err
}

// Execute resolves an accepted item. Used by queue workers.
func (dm *DownloadManager) Execute(ctx context.Context, id string) domain.DownloadOutcome {
	item, ok := dm.store.Get(id)
	if !ok {
		dm.queue.Remove(id)
		return domain.FailedOutcome(id, "download not found", false)
	}
	adapter, err := dm.registry.Resolve(item.Platform, item.ContentType)
	if err != nil {
		// the registry is fixed at startup, so this only happens for a corrupted item
		dm.queue.Remove(id)
		if _, perr := dm.store.Update(id, func(q *domain.QueueItem) error { return q.MarkProcessing() }); perr != nil {
			return domain.FailedOutcome(id, msgCancelled, false)
		}
		return dm.fail(item, err)
	}
	return dm.run(ctx, item, adapter)
}

// Cancel forces a queued or processing item into cancelled. Any result the
// adapter still returns for it is discarded.
func (dm *DownloadManager) Cancel(id string) error {
	_, err := dm.store.Update(id, func(q *domain.QueueItem) error {
		if q.IsTerminal() {
			return domain.NewCancellationError(q.Status)
		}
		return q.MarkCancelled()
	})
	if err != nil {
		return err
	}

	dm.queue.Remove(id)
	dm.mu.Lock()
	cancel := dm.inflight[id]
	dm.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	dm.logger.Info("Download cancelled", zap.String("id", id))
	dm.logQueueEvent("download_cancelled", zap.String("id", id))
	return nil
}

// Redownload submits the original request of id again under a fresh id
func (dm *DownloadManager) Redownload(ctx context.Context, id string) (domain.DownloadOutcome, error) {
	item, ok := dm.store.Get(id)
	if !ok {
		return domain.DownloadOutcome{}, domain.NewNotFoundError("download", id)
	}
	return dm.Submit(ctx, item.Request())
}

// SetPriority changes the priority of a queued item
func (dm *DownloadManager) SetPriority(id string, priority domain.Priority) (domain.QueueItem, error) {
	return dm.store.Update(id, func(q *domain.QueueItem) error {
		if q.Status != domain.StatusQueued {
			return ErrNotQueued
		}
		if err := dm.queue.SetPriority(id, priority); err != nil {
			return err
		}
		q.Priority = priority
		return nil
	})
}

// GetProgress returns the current snapshot of id
func (dm *DownloadManager) GetProgress(id string) (domain.QueueItem, bool) {
	return dm.store.Get(id)
}

// Snapshot returns the tracked items in dequeue order
func (dm *DownloadManager) Snapshot() []domain.QueueItem {
	entries := dm.queue.Snapshot()
	items := make([]domain.QueueItem, 0, len(entries))
	for _, e := range entries {
		if item, ok := dm.store.Get(e.DownloadID); ok {
			items = append(items, item)
		}
	}
	return items
}

// Stats counts every item in the progress store by status
func (dm *DownloadManager) Stats() domain.QueueStats {
	return dm.store.Stats()
}

// ClearFinished drops terminal items from the progress store
func (dm *DownloadManager) ClearFinished() int {
	return dm.store.DeleteFinished()
}

// accept validates req and registers a queued item
func (dm *DownloadManager) accept(req domain.DownloadRequest) (domain.QueueItem, domain.ProviderAdapter, error) {
	req, err := req.Normalize()
	if err != nil {
		return domain.QueueItem{}, nil, err
	}
	adapter, err := dm.registry.Resolve(req.Platform, req.ContentType)
	if err != nil {
		return domain.QueueItem{}, nil, err
	}

	item := domain.NewQueueItem(domain.NewDownloadID(), req)
	if err := dm.store.Create(item); err != nil {
		return domain.QueueItem{}, nil, fmt.Errorf("failed to track download: %w", err)
	}
	if err := dm.queue.Push(item.DownloadID, item.Priority); err != nil {
		dm.store.Delete(item.DownloadID)
		return domain.QueueItem{}, nil, fmt.Errorf("failed to queue download: %w", err)
	}

	dm.logQueueEvent("download_queued",
		zap.String("id", item.DownloadID),
		zap.String("url", item.URL),
		zap.String("platform", item.Platform),
		zap.String("content_type", item.ContentType),
		zap.String("priority", string(item.Priority)))
	return item, adapter, nil
}

// run performs the processing half of the lifecycle for an accepted item
func (dm *DownloadManager) run(parent context.Context, item domain.QueueItem, adapter domain.ProviderAdapter) domain.DownloadOutcome {
	id := item.DownloadID
	defer dm.queue.Remove(id)

	ctx, cancel := dm.requestContext(parent)
	defer cancel()
	dm.mu.Lock()
	dm.inflight[id] = cancel
	dm.mu.Unlock()
	defer func() {
		dm.mu.Lock()
		delete(dm.inflight, id)
		dm.mu.Unlock()
	}()

	if _, err := dm.store.Update(id, func(q *domain.QueueItem) error { return q.MarkProcessing() }); err != nil {
		if domain.IsNotFound(err) {
			return domain.FailedOutcome(id, "download not found", false)
		}
		return domain.FailedOutcome(id, msgCancelled, false)
	}
	dm.queue.Claim(id)

	dm.logger.Info("Processing download",
		zap.String("id", id),
		zap.String("url", item.URL),
		zap.String("provider", adapter.Provider()))
	dm.logQueueEvent("download_started", zap.String("id", id), zap.String("provider", adapter.Provider()))

	result, err := dm.execute(ctx, item, adapter)
	if err != nil {
		return dm.fail(item, err)
	}
	if result == nil {
		return dm.fail(item, &domain.AdapterError{Kind: domain.AdapterMissingField, Message: "provider returned no result"})
	}

	size, quality := estimateOutcome(item.Platform, item.ContentType, result)
	itemSize := size
	updated, err := dm.store.Update(id, func(q *domain.QueueItem) error {
		return q.MarkCompleted(result.Title, &itemSize, quality)
	})
	if err != nil {
		dm.logger.Info("Discarding result of cancelled download", zap.String("id", id))
		dm.logQueueEvent("download_result_discarded", zap.String("id", id))
		return domain.FailedOutcome(id, msgCancelled, false)
	}

	outcome := domain.DownloadOutcome{
		DownloadID:         id,
		Success:            true,
		CanonicalResult:    result,
		EstimatedSizeBytes: &size,
		Quality:            &quality,
	}
	dm.logger.Info("Download completed",
		zap.String("id", id),
		zap.String("kind", string(result.Kind)),
		zap.Int("items", len(result.Items)))
	dm.logQueueEvent("download_completed",
		zap.String("id", id),
		zap.Int("items", len(result.Items)),
		zap.Int64("estimated_size", size),
		zap.String("quality", quality))

	if dm.history != nil {
		dm.history.Record(updated, outcome)
	}
	return outcome
}

// execute calls the adapter, turning a panic into a provider failure so the
// item still reaches a terminal state
func (dm *DownloadManager) execute(ctx context.Context, item domain.QueueItem, adapter domain.ProviderAdapter) (result *domain.DownloadResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			dm.logger.Error("Provider adapter panicked",
				zap.String("id", item.DownloadID),
				zap.String("provider", adapter.Provider()),
				zap.Any("panic", r),
				zap.Stack("stack"))
			result = nil
			err = &domain.AdapterError{
				Kind:    domain.AdapterProviderError,
				Message: msgProviderFailed,
				Cause:   fmt.Errorf("panic: %v", r),
			}
		}
	}()
	return adapter.Execute(ctx, item.URL)
}

// fail moves the item to failed and builds the outcome. The raw error is
// only logged, callers see the sanitized message.
func (dm *DownloadManager) fail(item domain.QueueItem, cause error) domain.DownloadOutcome {
	id := item.DownloadID
	message, retryable := failureMessage(cause)

	updated, err := dm.store.Update(id, func(q *domain.QueueItem) error { return q.MarkFailed(message) })
	if err != nil {
		return domain.FailedOutcome(id, msgCancelled, false)
	}

	dm.logger.Warn("Download failed",
		zap.String("id", id),
		zap.String("url", item.URL),
		zap.String("reason", message),
		zap.Error(cause))
	dm.logQueueEvent("download_failed", zap.String("id", id), zap.String("reason", message))
	if dm.multiLogger != nil {
		dm.multiLogger.LogAppError("Download failed",
			zap.String("id", id),
			zap.String("platform", item.Platform),
			zap.Error(cause))
	}

	outcome := domain.FailedOutcome(id, message, retryable)
	if dm.history != nil {
		dm.history.Record(updated, outcome)
	}
	if dm.notifier != nil {
		dm.notifier.NotifyDownloadFailed(item.URL, item.Platform, message)
	}
	return outcome
}

func (dm *DownloadManager) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if dm.config != nil && dm.config.RequestTimeout > 0 {
		return context.WithTimeout(parent, dm.config.RequestTimeout)
	}
	return context.WithCancel(parent)
}

func (dm *DownloadManager) logQueueEvent(event string, fields ...zap.Field) {
	if dm.multiLogger != nil {
		dm.multiLogger.LogQueueEvent(event, fields...)
	}
}

// failureMessage maps an adapter failure to a user-facing message
func failureMessage(err error) (string, bool) {
	if ae, ok := domain.AsAdapterError(err); ok {
		return ae.Message, ae.Retryable()
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Message, false
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimedOut, true
	case errors.Is(err, context.Canceled):
		return msgCancelled, false
	}
	return msgProviderFailed, false
}
