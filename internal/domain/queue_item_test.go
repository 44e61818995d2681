package domain

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestItem() QueueItem {
	return NewQueueItem(NewDownloadID(), DownloadRequest{
		URL:         "https://www.tiktok.com/@a/video/1",
		Platform:    "tiktok",
		ContentType: "video",
		Priority:    PriorityNormal,
	})
}

func TestNewQueueItem(t *testing.T) {
	item := newTestItem()

	assert.True(t, strings.HasPrefix(item.DownloadID, "dl_"))
	assert.Equal(t, StatusQueued, item.Status)
	assert.Equal(t, PriorityNormal, item.Priority)
	assert.Equal(t, ProgressQueued, item.ProgressPct)
	assert.False(t, item.CreatedAt.IsZero())
	assert.Nil(t, item.StartedAt)
}

func TestNewDownloadID_Sortable(t *testing.T) {
	prev := NewDownloadID()
	for i := 0; i < 100; i++ {
		next := NewDownloadID()
		assert.NotEqual(t, prev, next)
		assert.True(t, prev < next, "ids must sort by creation order")
		prev = next
	}
}

func TestQueueItem_Lifecycle(t *testing.T) {
	item := newTestItem()

	require.NoError(t, item.MarkProcessing())
	assert.Equal(t, StatusProcessing, item.Status)
	assert.Equal(t, ProgressProcessing, item.ProgressPct)
	assert.NotNil(t, item.StartedAt)

	size := int64(5 * 1024 * 1024)
	require.NoError(t, item.MarkCompleted("clip", &size, "SD"))
	assert.Equal(t, StatusCompleted, item.Status)
	assert.Equal(t, ProgressCompleted, item.ProgressPct)
	assert.Equal(t, "clip", item.Title)
	assert.Equal(t, "SD", item.Quality)
	assert.NotNil(t, item.CompletedAt)
}

func TestQueueItem_MarkFailed(t *testing.T) {
	item := newTestItem()
	require.NoError(t, item.MarkProcessing())

	require.NoError(t, item.MarkFailed("provider unavailable"))

	assert.Equal(t, StatusFailed, item.Status)
	assert.Equal(t, "provider unavailable", item.Error)
	assert.Equal(t, 0, item.ProgressPct)
}

func TestQueueItem_CancelFromQueued(t *testing.T) {
	item := newTestItem()

	require.NoError(t, item.MarkCancelled())
	assert.Equal(t, StatusCancelled, item.Status)
}

func TestQueueItem_InvalidTransition(t *testing.T) {
	item := newTestItem()

	err := item.MarkCompleted("", nil, "")
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, StatusQueued, item.Status)
}

func TestQueueItem_TerminalStateIsFinal(t *testing.T) {
	item := newTestItem()
	require.NoError(t, item.MarkCancelled())

	assert.ErrorIs(t, item.MarkProcessing(), ErrTerminalState)
	assert.ErrorIs(t, item.MarkFailed("x"), ErrTerminalState)
	assert.ErrorIs(t, item.MarkCompleted("", nil, ""), ErrTerminalState)
	assert.Equal(t, StatusCancelled, item.Status)
}

func TestQueueItem_RandomTransitionsNeverLeaveTerminal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	moves := []func(*QueueItem) error{
		func(q *QueueItem) error { return q.MarkProcessing() },
		func(q *QueueItem) error { return q.MarkCompleted("t", nil, "SD") },
		func(q *QueueItem) error { return q.MarkFailed("boom") },
		func(q *QueueItem) error { return q.MarkCancelled() },
	}

	for run := 0; run < 500; run++ {
		item := newTestItem()
		var terminal Status
		for step := 0; step < 12; step++ {
			before := item
			err := moves[rng.Intn(len(moves))](&item)

			if terminal != "" {
				require.ErrorIs(t, err, ErrTerminalState)
				require.Equal(t, before, item, "terminal item must not change")
				continue
			}
			if err != nil {
				require.Equal(t, before.Status, item.Status)
				continue
			}
			require.True(t, CanTransition(before.Status, item.Status))
			if item.IsTerminal() {
				terminal = item.Status
			}
		}
		if terminal != "" {
			assert.Equal(t, terminal, item.Status)
		}
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"", PriorityNormal, false},
		{"low", PriorityLow, false},
		{"high", PriorityHigh, false},
		{"urgent", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriority(tt.in)
			if tt.wantErr {
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriority_Rank(t *testing.T) {
	assert.Greater(t, PriorityHigh.Rank(), PriorityNormal.Rank())
	assert.Greater(t, PriorityNormal.Rank(), PriorityLow.Rank())
}

func TestQueueStats_Add(t *testing.T) {
	var stats QueueStats
	stats.Add(StatusQueued)
	stats.Add(StatusCompleted)
	stats.Add(StatusCompleted)
	stats.Add(StatusFailed)

	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.Queued)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
}
