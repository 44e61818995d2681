package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levtools/mediagrab/internal/domain"
	"github.com/levtools/mediagrab/internal/infrastructure"
)

const tiktokURL = "https://www.tiktok.com/@user/video/123"

// fakeHistory records everything passed to Record
type fakeHistory struct {
	mu       sync.Mutex
	items    []domain.QueueItem
	outcomes []domain.DownloadOutcome
}

func (f *fakeHistory) Record(item domain.QueueItem, outcome domain.DownloadOutcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
	f.outcomes = append(f.outcomes, outcome)
}

func (f *fakeHistory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// fakeNotifier records notifications
type fakeNotifier struct {
	mu      sync.Mutex
	failed  []string
	batches []domain.BatchReport
}

func (f *fakeNotifier) NotifyDownloadFailed(url, platform, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, reason)
}

func (f *fakeNotifier) NotifyBatchFinished(report domain.BatchReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, report)
}

type testManager struct {
	*DownloadManager
	history  *fakeHistory
	notifier *fakeNotifier
}

func testDownloadConfig() *domain.DownloadConfig {
	return &domain.DownloadConfig{
		RequestTimeout:  5 * time.Second,
		BatchDelay:      time.Millisecond,
		PollInterval:    10 * time.Millisecond,
		ConcurrentLimit: 2,
		MaxBatchSize:    10,
	}
}

func newTestManager(adapters map[domain.AdapterKey]domain.ProviderAdapter) *testManager {
	history := &fakeHistory{}
	notifier := &fakeNotifier{}
	dm := NewDownloadManager(
		NewAdapterRegistry(adapters),
		infrastructure.NewProgressStore(time.Hour, nil),
		NewPriorityQueue(),
		history,
		notifier,
		testDownloadConfig(),
		nil,
		nil,
	)
	return &testManager{DownloadManager: dm, history: history, notifier: notifier}
}

func tiktokVideoResult() *domain.DownloadResult {
	return &domain.DownloadResult{
		Kind:  domain.KindVideo,
		Title: "dance",
		Items: []domain.MediaItem{
			domain.NewMediaItem(domain.KindVideo, "https://cdn.example/v.mp4", "dance.mp4"),
			domain.NewMediaItem(domain.KindAudio, "https://cdn.example/a.mp3", "dance.mp3"),
		},
	}
}

func tiktokAdapters(fn domain.AdapterFunc) map[domain.AdapterKey]domain.ProviderAdapter {
	return map[domain.AdapterKey]domain.ProviderAdapter{
		{Platform: "tiktok", ContentType: "video"}: fn,
	}
}

func okAdapter(result *domain.DownloadResult) domain.AdapterFunc {
	return func(ctx context.Context, url string) (*domain.DownloadResult, error) {
		return result, nil
	}
}

func tiktokRequest() domain.DownloadRequest {
	return domain.DownloadRequest{URL: tiktokURL, Platform: "tiktok", ContentType: "video"}
}

func TestSubmit_TikTokVideoAndAudio(t *testing.T) {
	m := newTestManager(tiktokAdapters(okAdapter(tiktokVideoResult())))

	outcome, err := m.Submit(context.Background(), tiktokRequest())
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Nil(t, outcome.ErrorMessage)
	require.NotNil(t, outcome.CanonicalResult)
	assert.Equal(t, 1, outcome.CanonicalResult.CountKind(domain.KindVideo))
	assert.Equal(t, 1, outcome.CanonicalResult.CountKind(domain.KindAudio))
	require.NotNil(t, outcome.EstimatedSizeBytes)
	assert.Equal(t, int64(5_000_000), *outcome.EstimatedSizeBytes)
	require.NotNil(t, outcome.Quality)
	assert.Equal(t, "SD", *outcome.Quality)

	item, ok := m.GetProgress(outcome.DownloadID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusCompleted, item.Status)
	assert.Equal(t, domain.ProgressCompleted, item.ProgressPct)
	assert.Equal(t, "dance", item.Title)
	assert.Equal(t, 1, m.history.count())
	assert.Empty(t, m.Snapshot())
}

func TestSubmit_ProviderHintsWin(t *testing.T) {
	result := tiktokVideoResult()
	result.SizeHintBytes = 1234
	result.QualityHint = "HD"
	m := newTestManager(tiktokAdapters(okAdapter(result)))

	outcome, err := m.Submit(context.Background(), tiktokRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1234), *outcome.EstimatedSizeBytes)
	assert.Equal(t, "HD", *outcome.Quality)
}

func TestSubmit_MalformedURLCreatesNothing(t *testing.T) {
	called := false
	m := newTestManager(tiktokAdapters(func(ctx context.Context, url string) (*domain.DownloadResult, error) {
		called = true
		return nil, nil
	}))

	for _, raw := range []string{"", "not a url", "ftp://tiktok.com/x", "https://example.com/video"} {
		req := tiktokRequest()
		req.URL = raw
		_, err := m.Submit(context.Background(), req)
		assert.True(t, domain.IsValidation(err), "url %q: %v", raw, err)
	}

	assert.False(t, called)
	assert.Empty(t, m.store.List())
	assert.Equal(t, 0, m.queue.Len())
}

func TestSubmit_UnsupportedCombination(t *testing.T) {
	m := newTestManager(tiktokAdapters(okAdapter(tiktokVideoResult())))

	req := tiktokRequest()
	req.ContentType = "story"
	_, err := m.Submit(context.Background(), req)

	require.Error(t, err)
	assert.True(t, domain.IsNotSupported(err))
	assert.Contains(t, err.Error(), "tiktok-story")
	assert.Empty(t, m.store.List())
}

func TestSubmit_AdapterFailure(t *testing.T) {
	m := newTestManager(tiktokAdapters(func(ctx context.Context, url string) (*domain.DownloadResult, error) {
		return nil, &domain.AdapterError{Kind: domain.AdapterRateLimited, Message: "provider rate limit exceeded", StatusCode: 429}
	}))

	outcome, err := m.Submit(context.Background(), tiktokRequest())
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Nil(t, outcome.CanonicalResult)
	require.NotNil(t, outcome.ErrorMessage)
	assert.Equal(t, "provider rate limit exceeded", *outcome.ErrorMessage)
	assert.True(t, outcome.Retryable)

	item, ok := m.GetProgress(outcome.DownloadID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFailed, item.Status)
	assert.Equal(t, "provider rate limit exceeded", item.Error)
	assert.Equal(t, 0, item.ProgressPct)
	assert.Equal(t, 1, m.history.count())
	assert.Equal(t, []string{"provider rate limit exceeded"}, m.notifier.failed)
}

func panickingAdapter() domain.AdapterFunc {
	return func(ctx context.Context, url string) (*domain.DownloadResult, error) {
		panic("provider parser bug")
	}
}

func TestSubmit_AdapterPanicFailsItem(t *testing.T) {
	m := newTestManager(tiktokAdapters(panickingAdapter()))

	var outcome domain.DownloadOutcome
	require.NotPanics(t, func() {
		var err error
		outcome, err = m.Submit(context.Background(), tiktokRequest())
		require.NoError(t, err)
	})

	assert.False(t, outcome.Success)
	require.NotNil(t, outcome.ErrorMessage)
	assert.Equal(t, msgProviderFailed, *outcome.ErrorMessage)
	assert.NotContains(t, *outcome.ErrorMessage, "parser bug")

	item, ok := m.GetProgress(outcome.DownloadID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFailed, item.Status)
	assert.True(t, item.Status.IsTerminal())
	assert.Empty(t, m.Snapshot())
	assert.Equal(t, 1, m.history.count())
}

func TestSubmit_RawErrorsDoNotLeak(t *testing.T) {
	m := newTestManager(tiktokAdapters(func(ctx context.Context, url string) (*domain.DownloadResult, error) {
		return nil, errors.New("dial tcp 10.0.0.1:443: connection refused")
	}))

	outcome, err := m.Submit(context.Background(), tiktokRequest())
	require.NoError(t, err)
	require.NotNil(t, outcome.ErrorMessage)
	assert.Equal(t, msgProviderFailed, *outcome.ErrorMessage)
}

func TestSubmit_AdapterCalledOnce(t *testing.T) {
	calls := 0
	m := newTestManager(tiktokAdapters(func(ctx context.Context, url string) (*domain.DownloadResult, error) {
		calls++
		return nil, &domain.AdapterError{Kind: domain.AdapterNetwork, Message: "could not reach provider"}
	}))

	_, err := m.Submit(context.Background(), tiktokRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetProgress_Idempotent(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	m := newTestManager(tiktokAdapters(func(ctx context.Context, url string) (*domain.DownloadResult, error) {
		close(started)
		<-release
		return tiktokVideoResult(), nil
	}))

	done := make(chan domain.DownloadOutcome, 1)
	go func() {
		outcome, _ := m.Submit(context.Background(), tiktokRequest())
		done <- outcome
	}()
	<-started

	items := m.store.List()
	require.Len(t, items, 1)
	id := items[0].DownloadID

	first, ok := m.GetProgress(id)
	require.True(t, ok)
	second, ok := m.GetProgress(id)
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, domain.StatusProcessing, first.Status)
	assert.Equal(t, domain.ProgressProcessing, first.ProgressPct)

	close(release)
	<-done

	third, _ := m.GetProgress(id)
	fourth, _ := m.GetProgress(id)
	assert.Equal(t, third, fourth)

	_, ok = m.GetProgress("dl_unknown")
	assert.False(t, ok)
}

func TestCancel_CompletedTwiceIsStable(t *testing.T) {
	m := newTestManager(tiktokAdapters(okAdapter(tiktokVideoResult())))
	outcome, err := m.Submit(context.Background(), tiktokRequest())
	require.NoError(t, err)

	err1 := m.Cancel(outcome.DownloadID)
	err2 := m.Cancel(outcome.DownloadID)

	require.Error(t, err1)
	require.Error(t, err2)
	assert.True(t, domain.IsCancellation(err1))
	assert.Equal(t, err1.Error(), err2.Error())
	assert.Contains(t, err1.Error(), "cannot cancel completed download")

	item, _ := m.GetProgress(outcome.DownloadID)
	assert.Equal(t, domain.StatusCompleted, item.Status)
}

func TestCancel_UnknownID(t *testing.T) {
	m := newTestManager(tiktokAdapters(okAdapter(tiktokVideoResult())))
	err := m.Cancel("dl_missing")
	assert.True(t, domain.IsNotFound(err))
}

func TestCancel_QueuedItem(t *testing.T) {
	m := newTestManager(tiktokAdapters(okAdapter(tiktokVideoResult())))
	item, err := m.Enqueue(tiktokRequest())
	require.NoError(t, err)

	require.NoError(t, m.Cancel(item.DownloadID))

	got, _ := m.GetProgress(item.DownloadID)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assert.Equal(t, 0, m.queue.Len())

	outcome := m.Execute(context.Background(), item.DownloadID)
	assert.False(t, outcome.Success)
	assert.Equal(t, msgCancelled, *outcome.ErrorMessage)
}

func TestCancel_DuringProcessingDiscardsResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	m := newTestManager(tiktokAdapters(func(ctx context.Context, url string) (*domain.DownloadResult, error) {
		close(started)
		<-release
		return tiktokVideoResult(), nil
	}))

	done := make(chan domain.DownloadOutcome, 1)
	go func() {
		outcome, _ := m.Submit(context.Background(), tiktokRequest())
		done <- outcome
	}()
	<-started

	items := m.store.List()
	require.Len(t, items, 1)
	id := items[0].DownloadID
	require.NoError(t, m.Cancel(id))
	close(release)

	outcome := <-done
	assert.False(t, outcome.Success)
	assert.Nil(t, outcome.CanonicalResult)
	assert.Equal(t, msgCancelled, *outcome.ErrorMessage)

	item, _ := m.GetProgress(id)
	assert.Equal(t, domain.StatusCancelled, item.Status)
	assert.Equal(t, 0, m.history.count())
}

func TestCancel_StopsAdapterContext(t *testing.T) {
	started := make(chan struct{})
	m := newTestManager(tiktokAdapters(func(ctx context.Context, url string) (*domain.DownloadResult, error) {
		close(started)
		<-ctx.Done()
		return nil, &domain.AdapterError{Kind: domain.AdapterNetwork, Message: "provider request cancelled", Cause: ctx.Err()}
	}))

	done := make(chan domain.DownloadOutcome, 1)
	go func() {
		outcome, _ := m.Submit(context.Background(), tiktokRequest())
		done <- outcome
	}()
	<-started

	id := m.store.List()[0].DownloadID
	require.NoError(t, m.Cancel(id))

	select {
	case outcome := <-done:
		assert.False(t, outcome.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("adapter context was not cancelled")
	}
	item, _ := m.GetProgress(id)
	assert.Equal(t, domain.StatusCancelled, item.Status)
}

func TestRedownload_FreshID(t *testing.T) {
	m := newTestManager(tiktokAdapters(okAdapter(tiktokVideoResult())))
	first, err := m.Submit(context.Background(), tiktokRequest())
	require.NoError(t, err)

	second, err := m.Redownload(context.Background(), first.DownloadID)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.NotEqual(t, first.DownloadID, second.DownloadID)

	item, _ := m.GetProgress(second.DownloadID)
	assert.Equal(t, tiktokURL, item.URL)

	_, err = m.Redownload(context.Background(), "dl_missing")
	assert.True(t, domain.IsNotFound(err))
}

func TestEnqueue_PriorityOrder(t *testing.T) {
	m := newTestManager(tiktokAdapters(okAdapter(tiktokVideoResult())))

	for _, p := range []domain.Priority{domain.PriorityLow, domain.PriorityHigh, domain.PriorityNormal} {
		req := tiktokRequest()
		req.Priority = p
		_, err := m.Enqueue(req)
		require.NoError(t, err)
	}

	var got []domain.Priority
	for _, item := range m.Snapshot() {
		got = append(got, item.Priority)
	}
	assert.Equal(t, []domain.Priority{domain.PriorityHigh, domain.PriorityNormal, domain.PriorityLow}, got)
}

func TestSetPriority(t *testing.T) {
	m := newTestManager(tiktokAdapters(okAdapter(tiktokVideoResult())))
	first, err := m.Enqueue(tiktokRequest())
	require.NoError(t, err)
	second, err := m.Enqueue(tiktokRequest())
	require.NoError(t, err)

	updated, err := m.SetPriority(second.DownloadID, domain.PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityHigh, updated.Priority)

	snapshot := m.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, second.DownloadID, snapshot[0].DownloadID)

	outcome := m.Execute(context.Background(), first.DownloadID)
	require.True(t, outcome.Success)
	_, err = m.SetPriority(first.DownloadID, domain.PriorityLow)
	assert.ErrorIs(t, err, ErrNotQueued)

	_, err = m.SetPriority("dl_missing", domain.PriorityLow)
	assert.True(t, domain.IsNotFound(err))
}

func TestClearFinished(t *testing.T) {
	m := newTestManager(tiktokAdapters(okAdapter(tiktokVideoResult())))
	_, err := m.Submit(context.Background(), tiktokRequest())
	require.NoError(t, err)
	queued, err := m.Enqueue(tiktokRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, m.ClearFinished())

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Queued)
	_, ok := m.GetProgress(queued.DownloadID)
	assert.True(t, ok)
}

func TestEstimateOutcome(t *testing.T) {
	slide := &domain.DownloadResult{Items: []domain.MediaItem{
		{Kind: domain.KindImage}, {Kind: domain.KindImage}, {Kind: domain.KindImage}, {Kind: domain.KindAudio},
	}}

	tests := []struct {
		platform, contentType string
		result                *domain.DownloadResult
		size                  int64
		quality               string
	}{
		{"youtube", "mp4", &domain.DownloadResult{}, 10_000_000, "HD"},
		{"youtube", "mp3-backup", &domain.DownloadResult{}, 3_000_000, "HD"},
		{"instagram", "reels", &domain.DownloadResult{}, 2_000_000, "HD"},
		{"tiktok", "video", &domain.DownloadResult{}, 5_000_000, "SD"},
		{"tiktok", "slide", slide, 1_500_000, "HD"},
		{"spotify", "track", &domain.DownloadResult{}, 1_000_000, "SD"},
		{"mediafire", "file", &domain.DownloadResult{SizeHintBytes: 42}, 42, "SD"},
	}

	for _, tt := range tests {
		t.Run(tt.platform+"-"+tt.contentType, func(t *testing.T) {
			size, quality := estimateOutcome(tt.platform, tt.contentType, tt.result)
			assert.Equal(t, tt.size, size)
			assert.Equal(t, tt.quality, quality)
		})
	}
}
