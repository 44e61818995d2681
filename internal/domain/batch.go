package domain

import "time"

// BatchItemStatus is the per-item status inside a batch report
type BatchItemStatus string

const (
	BatchItemPending    BatchItemStatus = "pending"
	BatchItemProcessing BatchItemStatus = "processing"
	BatchItemCompleted  BatchItemStatus = "completed"
	BatchItemFailed     BatchItemStatus = "failed"
	BatchItemSkipped    BatchItemStatus = "skipped"
)

// BatchState is the state of a batch run
type BatchState string

const (
	BatchRunning   BatchState = "running"
	BatchFinished  BatchState = "finished"
	BatchCancelled BatchState = "cancelled"
)

// BatchItem records what happened to one URL of a batch
type BatchItem struct {
	Index      int              `json:"index"`
	URL        string           `json:"url"`
	Status     BatchItemStatus  `json:"status"`
	DownloadID string           `json:"downloadId,omitempty"`
	Outcome    *DownloadOutcome `json:"outcome,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// BatchReport aggregates the outcomes of a batch. The counters are only
// filled in once the batch has stopped.
type BatchReport struct {
	BatchID        string      `json:"batchId"`
	Platform       string      `json:"platform"`
	ContentType    string      `json:"contentType"`
	State          BatchState  `json:"state"`
	Items          []BatchItem `json:"items"`
	CompletedCount int         `json:"completedCount"`
	FailedCount    int         `json:"failedCount"`
	SkippedCount   int         `json:"skippedCount"`
	StartedAt      time.Time   `json:"startedAt"`
	FinishedAt     *time.Time  `json:"finishedAt,omitempty"`
}

// Tally computes the aggregate counters from the items
func (r *BatchReport) Tally() {
	r.CompletedCount, r.FailedCount, r.SkippedCount = 0, 0, 0
	for _, it := range r.Items {
		switch it.Status {
		case BatchItemCompleted:
			r.CompletedCount++
		case BatchItemFailed:
			r.FailedCount++
		case BatchItemSkipped:
			r.SkippedCount++
		}
	}
}

// Clone returns a deep copy safe to hand to readers
func (r *BatchReport) Clone() BatchReport {
	c := *r
	c.Items = make([]BatchItem, len(r.Items))
	copy(c.Items, r.Items)
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}
	return c
}
