package app

import (
	"container/heap"
	"errors"
	"sort"
	"sync"

	"github.com/levtools/mediagrab/internal/domain"
)

var (
	// ErrNotQueued is returned when a queued-only operation targets an item that is not waiting
	ErrNotQueued = errors.New("download is not queued")
	// ErrAlreadyTracked is returned when an id is pushed twice
	ErrAlreadyTracked = errors.New("download already in queue")
)

// QueueEntry is one tracked item as seen by the priority queue
type QueueEntry struct {
	DownloadID string          `json:"downloadId"`
	Priority   domain.Priority `json:"priority"`
	Sequence   uint64          `json:"sequence"`
	Processing bool            `json:"processing"`
}

type queueEntry struct {
	QueueEntry
	index int
}

// entryHeap orders entries by priority rank, then arrival sequence
type entryHeap []*queueEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	return before(&h[i].QueueEntry, &h[j].QueueEntry)
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*queueEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

func before(a, b *QueueEntry) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() > b.Priority.Rank()
	}
	return a.Sequence < b.Sequence
}

// PriorityQueue tracks queued and processing downloads. Queued items are
// handed out highest priority first, FIFO within a priority. The mutex is
// only held for heap operations.
type PriorityQueue struct {
	mu         sync.Mutex
	queued     entryHeap
	byID       map[string]*queueEntry
	processing map[string]*queueEntry
	seq        uint64
}

// NewPriorityQueue creates an empty queue
func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{
		byID:       make(map[string]*queueEntry),
		processing: make(map[string]*queueEntry),
	}
}

// Push adds a queued item
func (q *PriorityQueue) Push(id string, priority domain.Priority) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.byID[id]; ok {
		return ErrAlreadyTracked
	}
	if _, ok := q.processing[id]; ok {
		return ErrAlreadyTracked
	}
	q.seq++
	e := &queueEntry{QueueEntry: QueueEntry{DownloadID: id, Priority: priority, Sequence: q.seq}}
	heap.Push(&q.queued, e)
	q.byID[id] = e
	return nil
}

// PopNext moves the top queued item to processing and returns its id
func (q *PriorityQueue) PopNext() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.queued.Len() == 0 {
		return "", false
	}
	e := heap.Pop(&q.queued).(*queueEntry)
	delete(q.byID, e.DownloadID)
	e.Processing = true
	q.processing[e.DownloadID] = e
	return e.DownloadID, true
}

// Claim moves a specific queued item to processing
func (q *PriorityQueue) Claim(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&q.queued, e.index)
	delete(q.byID, id)
	e.Processing = true
	q.processing[id] = e
	return true
}

// Remove stops tracking id, whatever its state
func (q *PriorityQueue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e, ok := q.byID[id]; ok {
		heap.Remove(&q.queued, e.index)
		delete(q.byID, id)
	}
	delete(q.processing, id)
}

// SetPriority changes the priority of a queued item
func (q *PriorityQueue) SetPriority(id string, priority domain.Priority) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.byID[id]
	if !ok {
		return ErrNotQueued
	}
	e.Priority = priority
	heap.Fix(&q.queued, e.index)
	return nil
}

// Len returns the number of queued items
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queued.Len()
}

// Snapshot returns every tracked item ordered by priority, then arrival
func (q *PriorityQueue) Snapshot() []QueueEntry {
	q.mu.Lock()
	out := make([]QueueEntry, 0, len(q.byID)+len(q.processing))
	for _, e := range q.queued {
		out = append(out, e.QueueEntry)
	}
	for _, e := range q.processing {
		out = append(out, e.QueueEntry)
	}
	q.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return before(&out[i], &out[j]) })
	return out
}
