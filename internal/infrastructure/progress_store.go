package infrastructure

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/levtools/mediagrab/internal/domain"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// ErrDuplicateDownload is returned when an id is already tracked
var ErrDuplicateDownload = errors.New("download id already tracked")

// progressEntry holds the current snapshot of one download. Writers of the
// same id serialize on mu; readers load the snapshot without locking.
type progressEntry struct {
	mu   sync.Mutex
	item atomic.Pointer[domain.QueueItem]
}

func (e *progressEntry) load() domain.QueueItem {
	return *e.item.Load()
}

// ProgressStore tracks the lifecycle of every download known to the process.
// Active entries never expire; terminal entries are kept for the retention
// period and then evicted.
type ProgressStore struct {
	cache     *cache.Cache
	retention time.Duration
	logger    *zap.Logger
}

// NewProgressStore creates a progress store
func NewProgressStore(retention time.Duration, log *zap.Logger) *ProgressStore {
	if log == nil {
		log = zap.NewNop()
	}
	if retention <= 0 {
		retention = time.Hour
	}
	cleanup := retention / 2
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &ProgressStore{
		cache:     cache.New(cache.NoExpiration, cleanup),
		retention: retention,
		logger:    log,
	}
}

// Create starts tracking a new item
func (s *ProgressStore) Create(item domain.QueueItem) error {
	entry := &progressEntry{}
	entry.item.Store(&item)
	if err := s.cache.Add(item.DownloadID, entry, cache.NoExpiration); err != nil {
		return ErrDuplicateDownload
	}
	return nil
}

// Get returns a copy of the current state. The boolean is false for
// unknown ids. Reads have no side effects.
func (s *ProgressStore) Get(id string) (domain.QueueItem, bool) {
	entry, ok := s.entry(id)
	if !ok {
		return domain.QueueItem{}, false
	}
	return entry.load(), true
}

// Update applies fn to a copy of the item and publishes the result. If fn
// returns an error nothing is published.
func (s *ProgressStore) Update(id string, fn func(item *domain.QueueItem) error) (domain.QueueItem, error) {
	entry, ok := s.entry(id)
	if !ok {
		return domain.QueueItem{}, domain.NewNotFoundError("download", id)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := entry.load()
	if err := fn(&next); err != nil {
		return entry.load(), err
	}
	entry.item.Store(&next)

	if next.IsTerminal() {
		// restart the clock so terminal items stay readable for the retention period
		s.cache.Set(id, entry, s.retention)
		s.logger.Debug("Download reached terminal state",
			zap.String("id", id),
			zap.String("status", string(next.Status)))
	}
	return next, nil
}

// List returns all tracked items ordered by creation
func (s *ProgressStore) List() []domain.QueueItem {
	items := make([]domain.QueueItem, 0, s.cache.ItemCount())
	for _, it := range s.cache.Items() {
		if entry, ok := it.Object.(*progressEntry); ok {
			items = append(items, entry.load())
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].DownloadID < items[j].DownloadID
	})
	return items
}

// Stats counts tracked items by status
func (s *ProgressStore) Stats() domain.QueueStats {
	var stats domain.QueueStats
	for _, item := range s.List() {
		stats.Add(item.Status)
	}
	return stats
}

// Delete stops tracking id
func (s *ProgressStore) Delete(id string) {
	s.cache.Delete(id)
}

// DeleteFinished removes every terminal item and returns how many were removed
func (s *ProgressStore) DeleteFinished() int {
	removed := 0
	for id, it := range s.cache.Items() {
		entry, ok := it.Object.(*progressEntry)
		if !ok {
			continue
		}
		snapshot := entry.load()
		if snapshot.IsTerminal() {
			s.cache.Delete(id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("Cleared finished downloads", zap.Int("count", removed))
	}
	return removed
}

func (s *ProgressStore) entry(id string) (*progressEntry, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	entry, ok := v.(*progressEntry)
	return entry, ok
}
