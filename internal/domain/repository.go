package domain

import "time"

// HistoryEntry is one finished download in the history log
type HistoryEntry struct {
	ID                 string    `json:"id" gorm:"primaryKey"`
	URL                string    `json:"url" gorm:"not null;index:idx_history_url_platform"`
	Platform           string    `json:"platform" gorm:"not null;index:idx_history_url_platform"`
	ContentType        string    `json:"contentType"`
	DownloadID         string    `json:"downloadId"`
	Success            bool      `json:"success" gorm:"index"`
	Title              string    `json:"title,omitempty"`
	Quality            string    `json:"quality,omitempty"`
	EstimatedSizeBytes int64     `json:"estimatedSizeBytes,omitempty"`
	ErrorMessage       string    `json:"errorMessage,omitempty"`
	CreatedAt          time.Time `json:"createdAt" gorm:"index"`
}

// TableName specifies the table name for GORM
func (HistoryEntry) TableName() string {
	return "download_history"
}

// QuickAccessEntry is a recently successful URL kept for one-click reuse
type QuickAccessEntry struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	URL         string    `json:"url" gorm:"not null"`
	Platform    string    `json:"platform" gorm:"not null"`
	ContentType string    `json:"contentType"`
	Title       string    `json:"title,omitempty"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
}

// TableName specifies the table name for GORM
func (QuickAccessEntry) TableName() string {
	return "quick_access"
}

// Preference is one stored key/value preference
type Preference struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Preference) TableName() string {
	return "preferences"
}

// HistoryRepository persists finished downloads
type HistoryRepository interface {
	// Append inserts entry, replacing any older entry with the same URL and
	// platform, and keeps at most maxItems entries (newest first)
	Append(entry *HistoryEntry, maxItems int) error

	// List returns entries newest first; limit <= 0 means all
	List(platform string, limit int) ([]*HistoryEntry, error)

	// Delete removes one entry by ID
	Delete(id string) error

	// Clear removes all entries
	Clear() error

	// Trim keeps only the newest maxItems entries and returns how many were removed
	Trim(maxItems int) (int64, error)

	// AddQuickAccess inserts entry with URL+platform de-duplication, keeping at most limit entries
	AddQuickAccess(entry *QuickAccessEntry, limit int) error

	// ListQuickAccess returns quick access entries newest first
	ListQuickAccess() ([]*QuickAccessEntry, error)

	// PruneQuickAccess removes quick access entries created before cutoff
	PruneQuickAccess(cutoff time.Time) (int64, error)

	// Stats summarizes the log as of now
	Stats(now time.Time) (*HistoryStats, error)
}

// PreferenceRepository is a simple string key/value store
type PreferenceRepository interface {
	// GetPreference returns the value and whether the key exists
	GetPreference(key string) (string, bool, error)

	// SetPreference stores a value
	SetPreference(key, value string) error

	// AllPreferences returns all stored values
	AllPreferences() (map[string]string, error)
}

// PlatformStats counts history entries for one platform
type PlatformStats struct {
	Platform   string `json:"platform"`
	Total      int    `json:"total"`
	Successful int    `json:"successful"`
}

// HistoryStats summarizes the history log
type HistoryStats struct {
	Total             int             `json:"total"`
	Successful        int             `json:"successful"`
	Failed            int             `json:"failed"`
	SuccessRate       float64         `json:"successRate"`
	Platforms         []PlatformStats `json:"platforms"`
	MostUsedPlatforms []PlatformStats `json:"mostUsedPlatforms"`
	RecentActivity    int             `json:"recentActivity"`
	AveragePerDay     float64         `json:"averagePerDay"`
}

// UserPreferences is the typed view over the preference store
type UserPreferences struct {
	FavoritePlatforms []string `json:"favoritePlatforms"`
	BatchSize         int      `json:"batchSize"`
	AutoSaveHistory   bool     `json:"autoSaveHistory"`
	MaxHistoryItems   int      `json:"maxHistoryItems"`
}

// Preference keys
const (
	PrefFavoritePlatforms = "favorite_platforms"
	PrefBatchSize         = "batch_size"
	PrefAutoSaveHistory   = "auto_save_history"
	PrefMaxHistoryItems   = "max_history_items"
)

// DefaultPreferences returns the preferences used when nothing is stored
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		FavoritePlatforms: []string{},
		BatchSize:         5,
		AutoSaveHistory:   true,
		MaxHistoryItems:   100,
	}
}
