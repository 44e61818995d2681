package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/levtools/mediagrab/internal/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const maxHistoryItemsLimit = 1000

// HistoryService records finished downloads, serves the history and
// preference views and runs the scheduled cleanup
type HistoryService struct {
	repo   domain.HistoryRepository
	prefs  domain.PreferenceRepository
	config *domain.HistoryConfig
	logger *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewHistoryService creates a new history service
func NewHistoryService(
	repo domain.HistoryRepository,
	prefs domain.PreferenceRepository,
	config *domain.HistoryConfig,
	log *zap.Logger,
) *HistoryService {
	if log == nil {
		log = zap.NewNop()
	}
	if config == nil {
		config = &domain.DefaultConfig().History
	}
	return &HistoryService{
		repo:   repo,
		prefs:  prefs,
		config: config,
		logger: log,
	}
}

// Record appends a completed or failed download to the history. Failures
// are logged and never reach the caller.
func (h *HistoryService) Record(item domain.QueueItem, outcome domain.DownloadOutcome) {
	if item.Status != domain.StatusCompleted && item.Status != domain.StatusFailed {
		return
	}

	prefs, err := h.GetPreferences()
	if err != nil {
		h.logger.Warn("Failed to load preferences, using defaults", zap.Error(err))
	}
	if !prefs.AutoSaveHistory {
		return
	}

	entry := &domain.HistoryEntry{
		ID:          newEntryID(),
		URL:         item.URL,
		Platform:    item.Platform,
		ContentType: item.ContentType,
		DownloadID:  item.DownloadID,
		Success:     outcome.Success,
		Title:       item.Title,
		Quality:     item.Quality,
		CreatedAt:   time.Now(),
	}
	if outcome.EstimatedSizeBytes != nil {
		entry.EstimatedSizeBytes = *outcome.EstimatedSizeBytes
	}
	if outcome.ErrorMessage != nil {
		entry.ErrorMessage = *outcome.ErrorMessage
	}

	if err := h.repo.Append(entry, prefs.MaxHistoryItems); err != nil {
		h.logger.Error("Failed to save history entry",
			zap.String("download_id", item.DownloadID),
			zap.Error(err))
		return
	}

	if !outcome.Success {
		return
	}
	quick := &domain.QuickAccessEntry{
		ID:          newEntryID(),
		URL:         item.URL,
		Platform:    item.Platform,
		ContentType: item.ContentType,
		Title:       item.Title,
		CreatedAt:   entry.CreatedAt,
	}
	if err := h.repo.AddQuickAccess(quick, h.quickAccessLimit()); err != nil {
		h.logger.Error("Failed to update quick access",
			zap.String("download_id", item.DownloadID),
			zap.Error(err))
	}
}

// List returns history entries newest first, optionally for one platform
func (h *HistoryService) List(platform string, limit int) ([]*domain.HistoryEntry, error) {
	return h.repo.List(platform, limit)
}

// Delete removes one history entry
func (h *HistoryService) Delete(id string) error {
	return h.repo.Delete(id)
}

// Clear removes the whole history
func (h *HistoryService) Clear() error {
	return h.repo.Clear()
}

// Stats summarizes the history
func (h *HistoryService) Stats() (*domain.HistoryStats, error) {
	return h.repo.Stats(time.Now())
}

// QuickAccess returns recently successful URLs
func (h *HistoryService) QuickAccess() ([]*domain.QuickAccessEntry, error) {
	return h.repo.ListQuickAccess()
}

// GetPreferences returns the stored preferences over the defaults. Values
// that cannot be parsed keep their default.
func (h *HistoryService) GetPreferences() (domain.UserPreferences, error) {
	prefs := domain.DefaultPreferences()
	if h.config.DefaultMaxItems > 0 {
		prefs.MaxHistoryItems = h.config.DefaultMaxItems
	}

	stored, err := h.prefs.AllPreferences()
	if err != nil {
		return prefs, fmt.Errorf("failed to load preferences: %w", err)
	}

	if v, ok := stored[domain.PrefFavoritePlatforms]; ok {
		var platforms []string
		if err := json.Unmarshal([]byte(v), &platforms); err == nil && platforms != nil {
			prefs.FavoritePlatforms = platforms
		}
	}
	if v, ok := stored[domain.PrefBatchSize]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			prefs.BatchSize = n
		}
	}
	if v, ok := stored[domain.PrefAutoSaveHistory]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			prefs.AutoSaveHistory = b
		}
	}
	if v, ok := stored[domain.PrefMaxHistoryItems]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			prefs.MaxHistoryItems = n
		}
	}
	return prefs, nil
}

// SetPreferences validates and stores prefs. Lowering the history limit
// trims the history right away.
func (h *HistoryService) SetPreferences(prefs domain.UserPreferences) (domain.UserPreferences, error) {
	if prefs.BatchSize < 1 {
		return prefs, domain.NewValidationError("batchSize must be at least 1")
	}
	if prefs.MaxHistoryItems < 1 || prefs.MaxHistoryItems > maxHistoryItemsLimit {
		return prefs, domain.NewValidationError(fmt.Sprintf("maxHistoryItems must be between 1 and %d", maxHistoryItemsLimit))
	}
	if prefs.FavoritePlatforms == nil {
		prefs.FavoritePlatforms = []string{}
	}

	favorites, err := json.Marshal(prefs.FavoritePlatforms)
	if err != nil {
		return prefs, fmt.Errorf("failed to encode favorite platforms: %w", err)
	}
	values := map[string]string{
		domain.PrefFavoritePlatforms: string(favorites),
		domain.PrefBatchSize:         strconv.Itoa(prefs.BatchSize),
		domain.PrefAutoSaveHistory:   strconv.FormatBool(prefs.AutoSaveHistory),
		domain.PrefMaxHistoryItems:   strconv.Itoa(prefs.MaxHistoryItems),
	}
	for key, value := range values {
		if err := h.prefs.SetPreference(key, value); err != nil {
			return prefs, fmt.Errorf("failed to save preference %s: %w", key, err)
		}
	}

	if removed, err := h.repo.Trim(prefs.MaxHistoryItems); err != nil {
		h.logger.Error("Failed to trim history", zap.Error(err))
	} else if removed > 0 {
		h.logger.Info("Trimmed history", zap.Int64("removed", removed))
	}
	return prefs, nil
}

// Cleanup trims the history to the configured size and drops stale quick
// access entries
func (h *HistoryService) Cleanup() error {
	prefs, err := h.GetPreferences()
	if err != nil {
		h.logger.Warn("Failed to load preferences, using defaults", zap.Error(err))
	}

	trimmed, err := h.repo.Trim(prefs.MaxHistoryItems)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	var pruned int64
	if h.config.QuickAccessMaxAge > 0 {
		pruned, err = h.repo.PruneQuickAccess(time.Now().Add(-h.config.QuickAccessMaxAge))
		if err != nil {
			return fmt.Errorf("failed to prune quick access: %w", err)
		}
	}

	h.logger.Info("History cleanup finished",
		zap.Int64("trimmed", trimmed),
		zap.Int64("quick_access_pruned", pruned))
	return nil
}

// Start schedules the cleanup job
func (h *HistoryService) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cron != nil {
		return fmt.Errorf("history cleanup already scheduled")
	}
	schedule := h.config.CleanupSchedule
	if schedule == "" {
		schedule = "@daily"
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := h.Cleanup(); err != nil {
			h.logger.Error("Scheduled history cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	c.Start()
	h.cron = c

	h.logger.Info("History cleanup scheduled", zap.String("schedule", schedule))
	return nil
}

// Stop stops the scheduler and waits for a running cleanup
func (h *HistoryService) Stop() {
	h.mu.Lock()
	c := h.cron
	h.cron = nil
	h.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (h *HistoryService) quickAccessLimit() int {
	if h.config.QuickAccessLimit > 0 {
		return h.config.QuickAccessLimit
	}
	return 20
}

func newEntryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
