package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kinobot/internal/config"
)

const userAgent = "kinobot/1.0"

// Service defines the operator notification surface.
type Service interface {
	NotifyStarted(ctx context.Context, entries int) error
	NotifyStorageFailure(ctx context.Context, err error) error
	NotifyBackupFailed(ctx context.Context, err error) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// NewNoop returns a Service that drops every notification.
func NewNoop() Service { return noopService{} }

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyStarted(ctx context.Context, entries int) error {
	return n.send(ctx, payload{
		title:   "kinobot - Started",
		message: fmt.Sprintf("Bot is online with %d catalog entries", entries),
		tags:    []string{"kinobot", "daemon", "started"},
	})
}

func (n *ntfyService) NotifyStorageFailure(ctx context.Context, err error) error {
	return n.send(ctx, payload{
		title:    "kinobot - Catalog Unwritable",
		message:  "🚨 Catalog writes are failing, admin changes are not being saved: " + errorText(err),
		tags:     []string{"kinobot", "storage", "alert"},
		priority: "urgent",
	})
}

func (n *ntfyService) NotifyBackupFailed(ctx context.Context, err error) error {
	return n.send(ctx, payload{
		title:    "kinobot - Backup Failed",
		message:  "Catalog snapshot failed: " + errorText(err),
		tags:     []string{"kinobot", "backup", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" in ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	builder.WriteString(errorText(err))

	return n.send(ctx, payload{
		title:    "kinobot - Error",
		message:  builder.String(),
		tags:     []string{"kinobot", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "kinobot - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"kinobot", "test"},
		priority: "low",
	})
}

func errorText(err error) string {
	if err == nil {
		return "unknown"
	}
	return strings.TrimSpace(err.Error())
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyStarted(context.Context, int) error          { return nil }
func (noopService) NotifyStorageFailure(context.Context, error) error { return nil }
func (noopService) NotifyBackupFailed(context.Context, error) error   { return nil }
func (noopService) NotifyError(context.Context, error, string) error  { return nil }
func (noopService) TestNotification(context.Context) error            { return nil }
