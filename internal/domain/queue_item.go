package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a download request
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Progress values reported per state. Providers resolve in a single round
// trip, so processing has no byte-level progress and reports a fixed value.
const (
	ProgressQueued     = 0
	ProgressProcessing = 50
	ProgressCompleted  = 100
)

var (
	// ErrTerminalState is returned when a transition out of a terminal state is attempted
	ErrTerminalState = errors.New("download is in a terminal state")
	// ErrInvalidTransition is returned for transitions the state machine does not allow
	ErrInvalidTransition = errors.New("invalid status transition")
)

// IsTerminal reports whether no further transitions are allowed from s
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

var allowedTransitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether from -> to is an allowed transition
func CanTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Priority is a scheduling hint that only affects dequeue order
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Rank returns the ordering rank of the priority (higher first)
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// ParsePriority parses a priority string, defaulting empty input to normal
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case "":
		return PriorityNormal, nil
	case PriorityLow, PriorityNormal, PriorityHigh:
		return Priority(s), nil
	}
	return "", NewValidationError(fmt.Sprintf("invalid priority: %s", s))
}

// QueueItem is the lifecycle record of one download request.
// It is a value type: the progress store hands out copies and publishes
// new snapshots on every change.
type QueueItem struct {
	DownloadID         string     `json:"downloadId"`
	URL                string     `json:"url"`
	Platform           string     `json:"platform"`
	ContentType        string     `json:"contentType"`
	Title              string     `json:"title,omitempty"`
	Status             Status     `json:"status"`
	Priority           Priority   `json:"priority"`
	ProgressPct        int        `json:"progressPct"`
	BytesDownloaded    *int64     `json:"bytesDownloaded,omitempty"`
	TotalBytes         *int64     `json:"totalBytes,omitempty"`
	SpeedBps           *int64     `json:"speedBps,omitempty"`
	EtaSeconds         *int64     `json:"etaSeconds,omitempty"`
	Error              string     `json:"error,omitempty"`
	EstimatedSizeBytes *int64     `json:"estimatedSizeBytes,omitempty"`
	Quality            string     `json:"quality,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

// NewQueueItem creates a queued item for an accepted request
func NewQueueItem(id string, req DownloadRequest) QueueItem {
	now := time.Now()
	return QueueItem{
		DownloadID:  id,
		URL:         req.URL,
		Platform:    req.Platform,
		ContentType: req.ContentType,
		Status:      StatusQueued,
		Priority:    req.Priority,
		ProgressPct: ProgressQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewDownloadID allocates a process-unique, time-ordered download id.
// UUIDv7 ids sort lexicographically by creation time.
func NewDownloadID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "dl_" + uuid.New().String()
	}
	return "dl_" + id.String()
}

// IsTerminal checks if the item is in a terminal state
func (q *QueueItem) IsTerminal() bool {
	return q.Status.IsTerminal()
}

// Request returns the request the item was created from
func (q *QueueItem) Request() DownloadRequest {
	return DownloadRequest{
		URL:         q.URL,
		Platform:    q.Platform,
		ContentType: q.ContentType,
		Priority:    q.Priority,
	}
}

func (q *QueueItem) transition(to Status) error {
	if q.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTerminalState, q.Status)
	}
	if !CanTransition(q.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, q.Status, to)
	}
	q.Status = to
	q.UpdatedAt = time.Now()
	return nil
}

// MarkProcessing marks the item as processing
func (q *QueueItem) MarkProcessing() error {
	if err := q.transition(StatusProcessing); err != nil {
		return err
	}
	q.ProgressPct = ProgressProcessing
	started := q.UpdatedAt
	q.StartedAt = &started
	return nil
}

// MarkCompleted marks the item as completed with the estimates used for the outcome
func (q *QueueItem) MarkCompleted(title string, estimatedSize *int64, quality string) error {
	if err := q.transition(StatusCompleted); err != nil {
		return err
	}
	q.ProgressPct = ProgressCompleted
	q.Title = title
	q.EstimatedSizeBytes = estimatedSize
	q.TotalBytes = estimatedSize
	q.Quality = quality
	completed := q.UpdatedAt
	q.CompletedAt = &completed
	return nil
}

// MarkFailed marks the item as failed
func (q *QueueItem) MarkFailed(message string) error {
	if err := q.transition(StatusFailed); err != nil {
		return err
	}
	q.ProgressPct = 0
	q.Error = message
	completed := q.UpdatedAt
	q.CompletedAt = &completed
	return nil
}

// MarkCancelled marks the item as cancelled
func (q *QueueItem) MarkCancelled() error {
	if err := q.transition(StatusCancelled); err != nil {
		return err
	}
	q.ProgressPct = 0
	completed := q.UpdatedAt
	q.CompletedAt = &completed
	return nil
}

// QueueStats summarizes tracked items by status
type QueueStats struct {
	Total      int64 `json:"total"`
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Cancelled  int64 `json:"cancelled"`
}

// Add counts one item with the given status
func (s *QueueStats) Add(status Status) {
	s.Total++
	switch status {
	case StatusQueued:
		s.Queued++
	case StatusProcessing:
		s.Processing++
	case StatusCompleted:
		s.Completed++
	case StatusFailed:
		s.Failed++
	case StatusCancelled:
		s.Cancelled++
	}
}
