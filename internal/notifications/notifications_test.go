package notifications

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"inksync/internal/config"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T) (*httptest.Server, *[]captured) {
	t.Helper()
	var seen []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = append(seen, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &seen
}

func newTestService(t *testing.T, topicURL string) Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topicURL
	cfg.Notifications.RequestTimeout = 2
	cfg.Notifications.Sync = true
	cfg.Notifications.Upload = true
	cfg.Notifications.Errors = true
	return NewService(&cfg, nil)
}

func TestNtfySyncCompleted(t *testing.T) {
	server, seen := newCaptureServer(t)
	service := newTestService(t, server.URL)

	service.NotifySyncCompleted(context.Background(), 3, 1)

	if len(*seen) != 1 {
		t.Fatalf("requests = %d, want 1", len(*seen))
	}
	got := (*seen)[0]
	if got.title != "Sync complete" || got.body != "Synced 3 note(s), 1 failed" {
		t.Fatalf("unexpected notification: %+v", got)
	}
}

func TestNtfySyncStoppedUsesHighPriority(t *testing.T) {
	server, seen := newCaptureServer(t)
	service := newTestService(t, server.URL)

	service.NotifySyncStopped(context.Background(), "5 consecutive failures")

	if len(*seen) != 1 {
		t.Fatalf("requests = %d, want 1", len(*seen))
	}
	if got := (*seen)[0]; got.priority != "high" {
		t.Fatalf("priority = %q, want high", got.priority)
	}
}

func TestDisabledEventsAreNotSent(t *testing.T) {
	server, seen := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Sync = false
	cfg.Notifications.Upload = false
	cfg.Notifications.Errors = false
	service := NewService(&cfg, nil)

	ctx := context.Background()
	service.NotifySyncCompleted(ctx, 1, 0)
	service.NotifyUploadCompleted(ctx, 1, 0)
	service.NotifySyncStopped(ctx, "reason")

	if len(*seen) != 0 {
		t.Fatalf("requests = %d, want 0", len(*seen))
	}
}

func TestNoopServiceWithoutTopic(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	service := NewService(&cfg, nil)
	if _, ok := service.(*noopService); !ok {
		t.Fatalf("service = %T, want noop", service)
	}
	if err := service.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
}
