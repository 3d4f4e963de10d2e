package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kinobot/internal/config"
	"kinobot/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyStorageFailure(context.Background(), errors.New("disk full")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title, body, tags, priority string
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.body = string(body)
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "started",
			send:          func(s notifications.Service) error { return s.NotifyStarted(context.Background(), 12) },
			expectTitle:   "kinobot - Started",
			expectMessage: "Bot is online with 12 catalog entries",
			expectTags:    "kinobot,daemon,started",
		},
		{
			name:           "storage failure",
			send:           func(s notifications.Service) error { return s.NotifyStorageFailure(context.Background(), errors.New("read-only fs")) },
			expectTitle:    "kinobot - Catalog Unwritable",
			expectMessage:  "read-only fs",
			expectTags:     "kinobot,storage,alert",
			expectPriority: "urgent",
		},
		{
			name:           "backup failed",
			send:           func(s notifications.Service) error { return s.NotifyBackupFailed(context.Background(), nil) },
			expectTitle:    "kinobot - Backup Failed",
			expectMessage:  "Catalog snapshot failed: unknown",
			expectTags:     "kinobot,backup,failed",
			expectPriority: "high",
		},
		{
			name:           "generic error",
			send:           func(s notifications.Service) error { return s.NotifyError(context.Background(), errors.New("boom"), "router") },
			expectTitle:    "kinobot - Error",
			expectMessage:  "❌ Error in router: boom",
			expectTags:     "kinobot,error,alert",
			expectPriority: "high",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := newNtfyServer(t, http.StatusOK)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = srv.URL
			svc := notifications.NewService(&cfg)

			if err := tt.send(svc); err != nil {
				t.Fatalf("send: %v", err)
			}
			if got.title != tt.expectTitle {
				t.Fatalf("title = %q, want %q", got.title, tt.expectTitle)
			}
			if !strings.Contains(got.body, tt.expectMessage) {
				t.Fatalf("body = %q, want it to contain %q", got.body, tt.expectMessage)
			}
			if got.tags != tt.expectTags {
				t.Fatalf("tags = %q, want %q", got.tags, tt.expectTags)
			}
			if got.priority != tt.expectPriority {
				t.Fatalf("priority = %q, want %q", got.priority, tt.expectPriority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newNtfyServer(t, http.StatusForbidden)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
