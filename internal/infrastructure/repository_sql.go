package infrastructure

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/levtools/mediagrab/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// recentActivityWindow is the window counted as recent activity in stats
const recentActivityWindow = 7 * 24 * time.Hour

// SQLRepository implements HistoryRepository and PreferenceRepository on
// SQLite or PostgreSQL
type SQLRepository struct {
	db *gorm.DB
}

// NewSQLRepository opens the database selected by cfg.DatabaseDriver
func NewSQLRepository(cfg domain.QueueConfig) (*SQLRepository, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.DatabasePath)
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.HistoryEntry{}, &domain.QuickAccessEntry{}, &domain.Preference{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLRepository{db: db}, nil
}

// NewSQLiteRepository opens a SQLite database at dbPath
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	return NewSQLRepository(domain.QueueConfig{DatabaseDriver: "sqlite", DatabasePath: dbPath})
}

// Append stores entry, replacing an older entry for the same URL and platform
func (r *SQLRepository) Append(entry *domain.HistoryEntry, maxItems int) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("url = ? AND platform = ?", entry.URL, entry.Platform).
			Delete(&domain.HistoryEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		_, err := trimTable(tx, &domain.HistoryEntry{}, maxItems)
		return err
	})
}

// List returns entries newest first, optionally for one platform
func (r *SQLRepository) List(platform string, limit int) ([]*domain.HistoryEntry, error) {
	var entries []*domain.HistoryEntry
	query := r.db.Order("created_at DESC, id DESC")
	if platform != "" {
		query = query.Where("platform = ?", platform)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, err
}

// Delete removes one entry
func (r *SQLRepository) Delete(id string) error {
	res := r.db.Delete(&domain.HistoryEntry{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError("history entry", id)
	}
	return nil
}

// Clear removes the whole history and the quick access list
func (r *SQLRepository) Clear() error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.HistoryEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&domain.QuickAccessEntry{}).Error
	})
}

// Trim keeps the newest maxItems entries
func (r *SQLRepository) Trim(maxItems int) (int64, error) {
	return trimTable(r.db, &domain.HistoryEntry{}, maxItems)
}

// AddQuickAccess stores entry at the head of the quick access list
func (r *SQLRepository) AddQuickAccess(entry *domain.QuickAccessEntry, limit int) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("url = ? AND platform = ?", entry.URL, entry.Platform).
			Delete(&domain.QuickAccessEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		_, err := trimTable(tx, &domain.QuickAccessEntry{}, limit)
		return err
	})
}

// ListQuickAccess returns the quick access list newest first
func (r *SQLRepository) ListQuickAccess() ([]*domain.QuickAccessEntry, error) {
	var entries []*domain.QuickAccessEntry
	err := r.db.Order("created_at DESC, id DESC").Find(&entries).Error
	return entries, err
}

// PruneQuickAccess removes quick access entries created before cutoff
func (r *SQLRepository) PruneQuickAccess(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&domain.QuickAccessEntry{})
	return res.RowsAffected, res.Error
}

// Stats summarizes the history as of now
func (r *SQLRepository) Stats(now time.Time) (*domain.HistoryStats, error) {
	rows := []struct {
		Platform   string
		Total      int
		Successful int
	}{}
	if err := r.db.Model(&domain.HistoryEntry{}).
		Select("platform, count(*) as total, sum(case when success then 1 else 0 end) as successful").
		Group("platform").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &domain.HistoryStats{
		Platforms:         []domain.PlatformStats{},
		MostUsedPlatforms: []domain.PlatformStats{},
	}
	for _, row := range rows {
		stats.Total += row.Total
		stats.Successful += row.Successful
		stats.Platforms = append(stats.Platforms, domain.PlatformStats{
			Platform:   row.Platform,
			Total:      row.Total,
			Successful: row.Successful,
		})
	}
	stats.Failed = stats.Total - stats.Successful
	if stats.Total == 0 {
		return stats, nil
	}
	stats.SuccessRate = math.Round(float64(stats.Successful)/float64(stats.Total)*10000) / 100

	sort.Slice(stats.Platforms, func(i, j int) bool {
		if stats.Platforms[i].Total != stats.Platforms[j].Total {
			return stats.Platforms[i].Total > stats.Platforms[j].Total
		}
		return stats.Platforms[i].Platform < stats.Platforms[j].Platform
	})
	top := len(stats.Platforms)
	if top > 5 {
		top = 5
	}
	stats.MostUsedPlatforms = append(stats.MostUsedPlatforms, stats.Platforms[:top]...)

	var recent int64
	if err := r.db.Model(&domain.HistoryEntry{}).
		Where("created_at >= ?", now.Add(-recentActivityWindow)).
		Count(&recent).Error; err != nil {
		return nil, err
	}
	stats.RecentActivity = int(recent)

	var oldest domain.HistoryEntry
	if err := r.db.Order("created_at ASC").First(&oldest).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	days := math.Ceil(now.Sub(oldest.CreatedAt).Hours() / 24)
	if days < 1 {
		days = 1
	}
	stats.AveragePerDay = math.Round(float64(stats.Total)/days*100) / 100

	return stats, nil
}

// GetPreference returns a stored preference
func (r *SQLRepository) GetPreference(key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	var pref domain.Preference
	err := r.db.Where(&domain.Preference{Key: key}).First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return pref.Value, true, nil
}

// SetPreference inserts or updates a preference
func (r *SQLRepository) SetPreference(key, value string) error {
	pref := &domain.Preference{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(pref).Error
}

// AllPreferences returns every stored preference
func (r *SQLRepository) AllPreferences() (map[string]string, error) {
	var prefs []domain.Preference
	if err := r.db.Find(&prefs).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(prefs))
	for _, p := range prefs {
		out[p.Key] = p.Value
	}
	return out, nil
}

// Close closes the database connection
func (r *SQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// trimTable deletes all but the newest keep rows of model's table
func trimTable(db *gorm.DB, model any, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var ids []string
	if err := db.Model(model).Order("created_at DESC, id DESC").Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) <= keep {
		return 0, nil
	}
	res := db.Where("id IN ?", ids[keep:]).Delete(model)
	return res.RowsAffected, res.Error
}
