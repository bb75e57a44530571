// Package notifications pushes job lifecycle events to an ntfy topic when
// one is configured.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"courtreel/internal/config"
)

const userAgent = "Courtreel/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyJobQueued(ctx context.Context, jobName string) error
	NotifyJobCompleted(ctx context.Context, jobName string, degraded bool) error
	NotifyJobFailed(ctx context.Context, jobName, errorMessage string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
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

func (n *ntfyService) NotifyJobQueued(ctx context.Context, jobName string) error {
	data := payload{
		title:   "Courtreel - Job Queued",
		message: fmt.Sprintf("Queued for processing: %s", strings.TrimSpace(jobName)),
		tags:    []string{"courtreel", "job", "queued"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobName string, degraded bool) error {
	jobName = strings.TrimSpace(jobName)
	data := payload{
		title:    "Courtreel - Job Complete",
		message:  fmt.Sprintf("Reels and reports ready: %s", jobName),
		tags:     []string{"courtreel", "job", "completed"},
		priority: "high",
	}
	if degraded {
		data.title = "Courtreel - Job Complete (analytics only)"
		data.message = fmt.Sprintf("No session id in telemetry; analytics only: %s", jobName)
		data.priority = ""
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobName, errorMessage string) error {
	var builder strings.Builder
	builder.WriteString("Job failed")
	if jobName = strings.TrimSpace(jobName); jobName != "" {
		builder.WriteString(": ")
		builder.WriteString(jobName)
	}
	if errorMessage = strings.TrimSpace(errorMessage); errorMessage != "" {
		builder.WriteString("\n")
		builder.WriteString(errorMessage)
	}
	data := payload{
		title:    "Courtreel - Job Failed",
		message:  builder.String(),
		tags:     []string{"courtreel", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Courtreel - Test",
		message:  "Notification system test",
		tags:     []string{"courtreel", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

func (noopService) NotifyJobQueued(context.Context, string) error          { return nil }
func (noopService) NotifyJobCompleted(context.Context, string, bool) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error  { return nil }
func (noopService) TestNotification(context.Context) error                 { return nil }
