package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"inksync/internal/config"
	"inksync/internal/logging"
)

// Service delivers user-facing event notifications. Implementations must be
// safe for concurrent use; delivery failures are logged, never fatal.
type Service interface {
	NotifySyncCompleted(ctx context.Context, synced, failed int)
	NotifySyncStopped(ctx context.Context, reason string)
	NotifyUploadCompleted(ctx context.Context, queued, failed int)
	NotifyError(ctx context.Context, where string, err error)
	TestNotification(ctx context.Context) error
}

// HTTPDoer abstracts the HTTP client for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewService returns an ntfy-backed service when a topic is configured and a
// no-op service otherwise, so callers never branch on configuration.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return &noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		topicURL: strings.TrimRight(cfg.Notifications.NtfyTopic, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "notifications"),
		sync:     cfg.Notifications.Sync,
		upload:   cfg.Notifications.Upload,
		errors:   cfg.Notifications.Errors,
	}
}

type ntfyService struct {
	topicURL string
	client   HTTPDoer
	logger   *slog.Logger
	sync     bool
	upload   bool
	errors   bool
}

func (s *ntfyService) NotifySyncCompleted(ctx context.Context, synced, failed int) {
	if !s.sync {
		return
	}
	message := fmt.Sprintf("Synced %d note(s)", synced)
	if failed > 0 {
		message = fmt.Sprintf("Synced %d note(s), %d failed", synced, failed)
	}
	s.send(ctx, "Sync complete", message, "arrows_counterclockwise", "default")
}

func (s *ntfyService) NotifySyncStopped(ctx context.Context, reason string) {
	if !s.errors {
		return
	}
	s.send(ctx, "Sync stopped", "Automatic sync halted: "+reason, "rotating_light", "high")
}

func (s *ntfyService) NotifyUploadCompleted(ctx context.Context, queued, failed int) {
	if !s.upload {
		return
	}
	message := fmt.Sprintf("Queued %d file(s) for processing", queued)
	if failed > 0 {
		message = fmt.Sprintf("Queued %d file(s), %d failed", queued, failed)
	}
	s.send(ctx, "Upload complete", message, "outbox_tray", "default")
}

func (s *ntfyService) NotifyError(ctx context.Context, where string, err error) {
	if !s.errors || err == nil {
		return
	}
	s.send(ctx, "Error", where+": "+err.Error(), "warning", "high")
}

func (s *ntfyService) TestNotification(ctx context.Context) error {
	return s.publish(ctx, "Test notification", "inksync notifications are working", "white_check_mark", "default")
}

func (s *ntfyService) send(ctx context.Context, title, message, tags, priority string) {
	if err := s.publish(ctx, title, message, tags, priority); err != nil {
		s.logger.Warn("notification delivery failed",
			logging.String("title", title),
			logging.Error(err))
	}
}

func (s *ntfyService) publish(ctx context.Context, title, message, tags, priority string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.topicURL, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Title", title)
	req.Header.Set("Tags", tags)
	req.Header.Set("Priority", priority)
	req.Header.Set("User-Agent", "inksync/0.1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification rejected with status %d", resp.StatusCode)
	}
	return nil
}

type noopService struct{}

func (*noopService) NotifySyncCompleted(context.Context, int, int)   {}
func (*noopService) NotifySyncStopped(context.Context, string)       {}
func (*noopService) NotifyUploadCompleted(context.Context, int, int) {}
func (*noopService) NotifyError(context.Context, string, error)      {}
func (*noopService) TestNotification(context.Context) error          { return nil }
