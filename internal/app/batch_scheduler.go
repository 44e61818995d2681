package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/levtools/mediagrab/internal/domain"
	"github.com/levtools/mediagrab/pkg/logger"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const defaultMaxBatchSize = 50

// batchRun is one batch in progress or kept for inspection
type batchRun struct {
	mu     sync.Mutex
	report domain.BatchReport
	cancel context.CancelFunc
}

func (r *batchRun) snapshot() domain.BatchReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report.Clone()
}

func (r *batchRun) setItem(i int, fn func(item *domain.BatchItem)) {
	r.mu.Lock()
	fn(&r.report.Items[i])
	r.mu.Unlock()
}

// BatchScheduler submits the URLs of a batch one at a time with a fixed
// delay between items
type BatchScheduler struct {
	downloadMgr *DownloadManager
	notifier    Notifier
	config      *domain.DownloadConfig
	retention   time.Duration
	logger      *zap.Logger
	multiLogger *logger.MultiLogger
	batches     *cache.Cache
	wg          sync.WaitGroup
}

// NewBatchScheduler creates a batch scheduler. Finished batches stay
// readable for retention.
func NewBatchScheduler(
	downloadMgr *DownloadManager,
	notifier Notifier,
	config *domain.DownloadConfig,
	retention time.Duration,
	log *zap.Logger,
	multiLogger *logger.MultiLogger,
) *BatchScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if retention <= 0 {
		retention = time.Hour
	}
	return &BatchScheduler{
		downloadMgr: downloadMgr,
		notifier:    notifier,
		config:      config,
		retention:   retention,
		logger:      log,
		multiLogger: multiLogger,
		batches:     cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

// RunBatch runs a batch to completion and returns its report. Cancelling
// ctx stops scheduling; items not yet started are reported as skipped.
func (bs *BatchScheduler) RunBatch(ctx context.Context, urls []string, platform, contentType string) (domain.BatchReport, error) {
	run, err := bs.newRun(urls, platform, contentType)
	if err != nil {
		return domain.BatchReport{}, err
	}
	bs.execute(ctx, run)
	return run.snapshot(), nil
}

// StartBatch starts a batch in the background and returns its initial report
func (bs *BatchScheduler) StartBatch(urls []string, platform, contentType string) (domain.BatchReport, error) {
	run, err := bs.newRun(urls, platform, contentType)
	if err != nil {
		return domain.BatchReport{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	run.cancel = cancel
	report := run.snapshot()
	bs.batches.Set(report.BatchID, run, cache.NoExpiration)

	bs.wg.Add(1)
	go func() {
		defer bs.wg.Done()
		defer cancel()
		bs.execute(ctx, run)
		bs.batches.Set(report.BatchID, run, bs.retention)
	}()
	return report, nil
}

// GetBatch returns the current report of a background batch
func (bs *BatchScheduler) GetBatch(id string) (domain.BatchReport, error) {
	run, ok := bs.lookup(id)
	if !ok {
		return domain.BatchReport{}, domain.NewNotFoundError("batch", id)
	}
	return run.snapshot(), nil
}

// CancelBatch stops a running background batch
func (bs *BatchScheduler) CancelBatch(id string) error {
	run, ok := bs.lookup(id)
	if !ok {
		return domain.NewNotFoundError("batch", id)
	}
	report := run.snapshot()
	if report.State != domain.BatchRunning {
		return &domain.Error{
			Kind:    domain.KindCancellation,
			Message: fmt.Sprintf("cannot cancel %s batch", report.State),
		}
	}
	run.cancel()
	bs.logBatchEvent("batch_cancel_requested", zap.String("batch_id", id))
	return nil
}

// Wait blocks until every background batch has stopped
func (bs *BatchScheduler) Wait() {
	bs.wg.Wait()
}

func (bs *BatchScheduler) lookup(id string) (*batchRun, bool) {
	v, ok := bs.batches.Get(id)
	if !ok {
		return nil, false
	}
	run, ok := v.(*batchRun)
	return run, ok
}

func (bs *BatchScheduler) newRun(urls []string, platform, contentType string) (*batchRun, error) {
	platform = strings.TrimSpace(platform)
	contentType = strings.TrimSpace(contentType)
	if _, err := bs.downloadMgr.registry.Resolve(platform, contentType); err != nil {
		return nil, err
	}

	var kept []string
	for _, raw := range urls {
		if u := strings.TrimSpace(raw); u != "" {
			kept = append(kept, u)
		}
	}
	if len(kept) == 0 {
		return nil, domain.NewValidationError("batch must contain at least one url")
	}
	maxSize := defaultMaxBatchSize
	if bs.config != nil && bs.config.MaxBatchSize > 0 {
		maxSize = bs.config.MaxBatchSize
	}
	if len(kept) > maxSize {
		return nil, domain.NewValidationError(fmt.Sprintf("batch exceeds the maximum of %d urls", maxSize))
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	report := domain.BatchReport{
		BatchID:     "batch_" + id.String(),
		Platform:    platform,
		ContentType: contentType,
		State:       domain.BatchRunning,
		Items:       make([]domain.BatchItem, len(kept)),
		StartedAt:   time.Now(),
	}
	for i, u := range kept {
		report.Items[i] = domain.BatchItem{Index: i, URL: u, Status: domain.BatchItemPending}
	}
	return &batchRun{report: report}, nil
}

// execute submits the items in order. Items are independent: a failure
// never stops the batch. The item in flight when ctx is cancelled still
// finishes.
func (bs *BatchScheduler) execute(ctx context.Context, run *batchRun) {
	report := run.snapshot()
	bs.logBatchEvent("batch_started",
		zap.String("batch_id", report.BatchID),
		zap.String("platform", report.Platform),
		zap.String("content_type", report.ContentType),
		zap.Int("items", len(report.Items)))

	delay := time.Duration(0)
	if bs.config != nil {
		delay = bs.config.BatchDelay
	}

	cancelled := false
	last := len(report.Items) - 1
	for i, item := range report.Items {
		if ctx.Err() != nil {
			cancelled = true
			bs.skipFrom(run, i)
			break
		}

		run.setItem(i, func(it *domain.BatchItem) { it.Status = domain.BatchItemProcessing })
		req := domain.DownloadRequest{
			URL:         item.URL,
			Platform:    report.Platform,
			ContentType: report.ContentType,
			Priority:    domain.PriorityNormal,
		}
		outcome, err := bs.downloadMgr.Submit(context.WithoutCancel(ctx), req)
		run.setItem(i, func(it *domain.BatchItem) { applyOutcome(it, outcome, err) })

		if i == last {
			break
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
			}
		}
	}

	now := time.Now()
	run.mu.Lock()
	run.report.FinishedAt = &now
	run.report.State = domain.BatchFinished
	if cancelled {
		run.report.State = domain.BatchCancelled
	}
	run.report.Tally()
	final := run.report.Clone()
	run.mu.Unlock()

	bs.logger.Info("Batch finished",
		zap.String("batch_id", final.BatchID),
		zap.String("state", string(final.State)),
		zap.Int("completed", final.CompletedCount),
		zap.Int("failed", final.FailedCount),
		zap.Int("skipped", final.SkippedCount))
	bs.logBatchEvent("batch_finished",
		zap.String("batch_id", final.BatchID),
		zap.String("state", string(final.State)),
		zap.Int("total", len(final.Items)),
		zap.Int("completed", final.CompletedCount),
		zap.Int("failed", final.FailedCount),
		zap.Int("skipped", final.SkippedCount))
	if bs.notifier != nil {
		bs.notifier.NotifyBatchFinished(final)
	}
}

func (bs *BatchScheduler) skipFrom(run *batchRun, start int) {
	run.mu.Lock()
	defer run.mu.Unlock()
	for i := start; i < len(run.report.Items); i++ {
		run.report.Items[i].Status = domain.BatchItemSkipped
	}
}

func (bs *BatchScheduler) logBatchEvent(event string, fields ...zap.Field) {
	if bs.multiLogger != nil {
		bs.multiLogger.LogBatchEvent(event, fields...)
	}
}

func applyOutcome(it *domain.BatchItem, outcome domain.DownloadOutcome, err error) {
	if err != nil {
		it.Status = domain.BatchItemFailed
		it.Error = err.Error()
		var de *domain.Error
		if errors.As(err, &de) {
			it.Error = de.Message
		}
		return
	}
	it.DownloadID = outcome.DownloadID
	it.Outcome = &outcome
	if outcome.Success {
		it.Status = domain.BatchItemCompleted
		return
	}
	it.Status = domain.BatchItemFailed
	if outcome.ErrorMessage != nil {
		it.Error = *outcome.ErrorMessage
	}
}
