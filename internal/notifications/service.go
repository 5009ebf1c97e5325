package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"truvideo/internal/capture"
	"truvideo/internal/config"
	"truvideo/internal/services"
)

const userAgent = "TruVideo-Go/0.1.0"

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

// Ntfy publishes messages to an ntfy topic URL.
type Ntfy struct {
	endpoint string
	client   *http.Client
}

// NewNtfy returns a publisher for the configured topic, or nil when none is
// configured.
func NewNtfy(cfg *config.Config) *Ntfy {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return nil
	}
	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Ntfy{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

// SessionFinished reports a terminal outcome.
func (n *Ntfy) SessionFinished(ctx context.Context, outcome capture.Outcome) error {
	return n.send(ctx, outcomePayload(outcome))
}

// Test sends a low priority probe message.
func (n *Ntfy) Test(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "TruVideo - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"truvideo", "test"},
		priority: "low",
	})
}

func outcomePayload(outcome capture.Outcome) payload {
	if outcome.Success {
		name := filepath.Base(strings.TrimSpace(outcome.Path))
		if name == "." || name == "" {
			name = "video"
		}
		return payload{
			title:   "TruVideo - Uploaded",
			message: fmt.Sprintf("✅ Video uploaded: %s", name),
			tags:    []string{"truvideo", "upload", "completed"},
		}
	}

	var builder strings.Builder
	builder.WriteString("❌ Error with ")
	builder.WriteString(failureStage(outcome.Err))
	builder.WriteString(": ")
	if outcome.Err != nil {
		builder.WriteString(strings.TrimSpace(outcome.Err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	if outcome.Path != "" {
		builder.WriteString("\nFile kept: ")
		builder.WriteString(outcome.Path)
	}
	return payload{
		title:    "TruVideo - Recording Failed",
		message:  builder.String(),
		tags:     []string{"truvideo", "error", "alert"},
		priority: "high",
	}
}

func failureStage(err error) string {
	switch {
	case errors.Is(err, services.ErrUpload):
		return "upload"
	case errors.Is(err, services.ErrEmptySegments):
		return "recording (nothing captured)"
	case errors.Is(err, services.ErrExport):
		return "merge"
	case errors.Is(err, services.ErrWriteFinalize), errors.Is(err, services.ErrWriterConfig):
		return "segment"
	default:
		return "recording"
	}
}

func (n *Ntfy) send(ctx context.Context, data payload) error {
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
