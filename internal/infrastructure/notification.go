package infrastructure

import (
	"fmt"
	"os/exec"

	"github.com/levtools/mediagrab/internal/domain"
	"go.uber.org/zap"
)

// NotificationService sends desktop notifications about failed downloads
// and finished batches. Delivery is best effort.
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// notifyCommand builds the command line for a notification method
func notifyCommand(method, title, message string, sound bool) (string, []string, bool) {
	switch method {
	case "osascript":
		script := fmt.Sprintf(`display notification %q with title %q`, message, title)
		if sound {
			script += ` sound name "Glass"`
		}
		return "osascript", []string{"-e", script}, true
	case "notify-send":
		args := []string{"--app-name=mediagrab"}
		if sound {
			args = append(args, "--hint=string:sound-name:message-new-instant")
		}
		return "notify-send", append(args, title, message), true
	}
	return "", nil, false
}

// Send delivers one notification with the configured method
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping", zap.String("title", title))
		return nil
	}

	name, args, ok := notifyCommand(n.config.Method, title, message, n.config.Sound)
	if !ok {
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err := n.run(name, args...); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}
	n.logger.Debug("Notification sent",
		zap.String("method", n.config.Method),
		zap.String("title", title))
	return nil
}

// NotifyDownloadFailed implements app.Notifier
func (n *NotificationService) NotifyDownloadFailed(url, platform, reason string) {
	_ = n.Send("Download Failed",
		fmt.Sprintf("%s (%s): %s", truncateString(url, 30), platform, truncateString(reason, 60)))
}

// NotifyBatchFinished implements app.Notifier
func (n *NotificationService) NotifyBatchFinished(report domain.BatchReport) {
	title := "Batch Finished"
	if report.State == domain.BatchCancelled {
		title = "Batch Cancelled"
	}
	_ = n.Send(title, fmt.Sprintf("%d/%d completed (%s)", report.CompletedCount, len(report.Items), report.Platform))
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
