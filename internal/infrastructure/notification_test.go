package infrastructure

import (
	"errors"
	"testing"

	"github.com/levtools/mediagrab/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedCommand struct {
	name string
	args []string
}

func newRecordingNotifier(cfg *domain.NotificationConfig, fail error) (*NotificationService, *[]recordedCommand) {
	svc := NewNotificationService(cfg, zap.NewNop())
	var calls []recordedCommand
	svc.run = func(name string, args ...string) error {
		calls = append(calls, recordedCommand{name: name, args: args})
		return fail
	}
	return svc, &calls
}

func TestNotificationService_DisabledIsNoop(t *testing.T) {
	svc, calls := newRecordingNotifier(&domain.NotificationConfig{Enabled: false, Method: "notify-send"}, nil)

	assert.NoError(t, svc.Send("title", "message"))
	svc.NotifyBatchFinished(domain.BatchReport{Platform: "tiktok", Items: make([]domain.BatchItem, 3), CompletedCount: 2})
	svc.NotifyDownloadFailed("https://www.tiktok.com/@a/video/1", "tiktok", "provider unavailable")
	assert.Empty(t, *calls)
}

func TestNotificationService_UnknownMethod(t *testing.T) {
	svc, calls := newRecordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "pigeon"}, nil)

	assert.NoError(t, svc.Send("title", "message"))
	assert.Empty(t, *calls)
}

func TestNotificationService_NotifySend(t *testing.T) {
	svc, calls := newRecordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)

	svc.NotifyBatchFinished(domain.BatchReport{
		Platform:       "tiktok",
		State:          domain.BatchCancelled,
		Items:          make([]domain.BatchItem, 5),
		CompletedCount: 2,
	})

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "notify-send", call.name)
	assert.Equal(t, []string{"--app-name=mediagrab", "Batch Cancelled", "2/5 completed (tiktok)"}, call.args)
}

func TestNotificationService_OSAScriptWithSound(t *testing.T) {
	svc, calls := newRecordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "osascript", Sound: true}, errors.New("exit 1"))

	err := svc.Send("Download Failed", "boom")
	assert.Error(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "osascript", call.name)
	require.Len(t, call.args, 2)
	assert.Equal(t, `display notification "boom" with title "Download Failed" sound name "Glass"`, call.args[1])
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
	assert.Equal(t, "日本...", truncateString("日本語です", 2))
}
