package infrastructure

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService sends desktop notifications for terminal job outcomes
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	switch n.config.Method {
	case "osascript":
		return n.sendOSAScript(title, message)
	case "notify-send":
		return n.sendNotifySend(title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}
}

// sendOSAScript sends notification using macOS osascript
func (n *NotificationService) sendOSAScript(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	cmd := exec.Command("osascript", "-e", script)

	if err := cmd.Run(); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", "osascript"),
			zap.Error(err))
		return err
	}
	return nil
}

// sendNotifySend sends notification using Linux notify-send
func (n *NotificationService) sendNotifySend(title, message string) error {
	cmd := exec.Command("notify-send", title, message)

	if err := cmd.Run(); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", "notify-send"),
			zap.Error(err))
		return err
	}
	return nil
}

// NotifyJobSucceeded sends a notification when a job completes
func (n *NotificationService) NotifyJobSucceeded(job *domain.Job) {
	title := "Download Completed"
	message := fmt.Sprintf("Saved: %s", filepath.Base(job.FilePath))
	n.Send(title, message)
}

// NotifyJobFailed sends a notification when a job fails
func (n *NotificationService) NotifyJobFailed(job *domain.Job) {
	title := "Download Failed"
	message := fmt.Sprintf("%s: %s", job.FailureKind, truncateString(job.ErrorMessage, 60))
	n.Send(title, message)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
