package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levtools/mediagrab/internal/domain"
	"github.com/levtools/mediagrab/internal/infrastructure"
)

func setupHistoryService(t *testing.T) (*HistoryService, *infrastructure.SQLRepository) {
	t.Helper()
	repo, err := infrastructure.NewSQLiteRepository(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	cfg := domain.DefaultConfig().History
	return NewHistoryService(repo, repo, &cfg, nil), repo
}

func completedItem(url string) (domain.QueueItem, domain.DownloadOutcome) {
	item := domain.NewQueueItem(domain.NewDownloadID(), domain.DownloadRequest{
		URL: url, Platform: "tiktok", ContentType: "video", Priority: domain.PriorityNormal,
	})
	size := int64(5_000_000)
	quality := "SD"
	_ = item.MarkProcessing()
	_ = item.MarkCompleted("clip", &size, quality)
	return item, domain.DownloadOutcome{
		DownloadID:         item.DownloadID,
		Success:            true,
		CanonicalResult:    &domain.DownloadResult{Kind: domain.KindVideo},
		EstimatedSizeBytes: &size,
		Quality:            &quality,
	}
}

func failedItem(url string) (domain.QueueItem, domain.DownloadOutcome) {
	item := domain.NewQueueItem(domain.NewDownloadID(), domain.DownloadRequest{
		URL: url, Platform: "tiktok", ContentType: "video", Priority: domain.PriorityNormal,
	})
	_ = item.MarkProcessing()
	_ = item.MarkFailed("video unavailable")
	return item, domain.FailedOutcome(item.DownloadID, "video unavailable", false)
}

func TestHistoryService_RecordCompleted(t *testing.T) {
	svc, _ := setupHistoryService(t)

	svc.Record(completedItem(tiktokURL))

	entries, err := svc.List("", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.Equal(t, "clip", entries[0].Title)
	assert.Equal(t, int64(5_000_000), entries[0].EstimatedSizeBytes)
	assert.Equal(t, "SD", entries[0].Quality)

	quick, err := svc.QuickAccess()
	require.NoError(t, err)
	require.Len(t, quick, 1)
	assert.Equal(t, tiktokURL, quick[0].URL)
}

func TestHistoryService_RecordFailedSkipsQuickAccess(t *testing.T) {
	svc, _ := setupHistoryService(t)

	svc.Record(failedItem(tiktokURL))

	entries, err := svc.List("tiktok", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "video unavailable", entries[0].ErrorMessage)

	quick, err := svc.QuickAccess()
	require.NoError(t, err)
	assert.Empty(t, quick)
}

func TestHistoryService_RecordIgnoresNonTerminal(t *testing.T) {
	svc, _ := setupHistoryService(t)

	item := domain.NewQueueItem("dl_x", domain.DownloadRequest{URL: tiktokURL, Platform: "tiktok", ContentType: "video"})
	svc.Record(item, domain.DownloadOutcome{DownloadID: "dl_x"})
	_ = item.MarkCancelled()
	svc.Record(item, domain.FailedOutcome("dl_x", msgCancelled, false))

	entries, err := svc.List("", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryService_AutoSaveDisabled(t *testing.T) {
	svc, _ := setupHistoryService(t)

	prefs := domain.DefaultPreferences()
	prefs.AutoSaveHistory = false
	_, err := svc.SetPreferences(prefs)
	require.NoError(t, err)

	svc.Record(completedItem(tiktokURL))

	entries, err := svc.List("", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryService_Preferences(t *testing.T) {
	svc, _ := setupHistoryService(t)

	prefs, err := svc.GetPreferences()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPreferences(), prefs)

	saved, err := svc.SetPreferences(domain.UserPreferences{
		FavoritePlatforms: []string{"tiktok", "youtube"},
		BatchSize:         8,
		AutoSaveHistory:   true,
		MaxHistoryItems:   2,
	})
	require.NoError(t, err)

	loaded, err := svc.GetPreferences()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	_, err = svc.SetPreferences(domain.UserPreferences{BatchSize: 0, MaxHistoryItems: 10})
	assert.True(t, domain.IsValidation(err))
	_, err = svc.SetPreferences(domain.UserPreferences{BatchSize: 1, MaxHistoryItems: 5000})
	assert.True(t, domain.IsValidation(err))
}

func TestHistoryService_MaxItemsAppliesOnRecordAndSave(t *testing.T) {
	svc, _ := setupHistoryService(t)

	for i := 0; i < 4; i++ {
		svc.Record(completedItem(tiktokURL + "?n=" + string(rune('a'+i))))
	}
	entries, err := svc.List("", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	prefs := domain.DefaultPreferences()
	prefs.MaxHistoryItems = 2
	_, err = svc.SetPreferences(prefs)
	require.NoError(t, err)

	entries, err = svc.List("", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	svc.Record(completedItem(tiktokURL + "?n=z"))
	entries, err = svc.List("", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, tiktokURL+"?n=z", entries[0].URL)
}

func TestHistoryService_Cleanup(t *testing.T) {
	svc, repo := setupHistoryService(t)

	stale := &domain.QuickAccessEntry{
		ID: "old", URL: tiktokURL + "?old", Platform: "tiktok", ContentType: "video",
		CreatedAt: time.Now().Add(-45 * 24 * time.Hour),
	}
	require.NoError(t, repo.AddQuickAccess(stale, 20))
	svc.Record(completedItem(tiktokURL))

	require.NoError(t, svc.Cleanup())

	quick, err := svc.QuickAccess()
	require.NoError(t, err)
	require.Len(t, quick, 1)
	assert.Equal(t, tiktokURL, quick[0].URL)
}

func TestHistoryService_StatsAndClear(t *testing.T) {
	svc, _ := setupHistoryService(t)
	svc.Record(completedItem(tiktokURL))
	svc.Record(failedItem(tiktokURL + "?2"))

	stats, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Successful)
	assert.InDelta(t, 50.0, stats.SuccessRate, 0.01)

	require.NoError(t, svc.Clear())
	entries, err := svc.List("", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryService_Schedule(t *testing.T) {
	svc, _ := setupHistoryService(t)

	require.NoError(t, svc.Start())
	assert.Error(t, svc.Start())
	svc.Stop()
	svc.Stop()

	svc.config.CleanupSchedule = "every tuesday-ish"
	assert.Error(t, svc.Start())
}
