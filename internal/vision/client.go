// Package vision submits source recordings to the upstream vision service
// for telemetry extraction.
package vision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"courtreel/internal/config"
	"courtreel/internal/queue"
	"courtreel/internal/services"
)

// Client initiates telemetry extraction for a job's source recording.
type Client interface {
	// InitiateUpload streams the job's source video to the ingest endpoint.
	// The service posts telemetry back to callbackURL when analysis is done.
	InitiateUpload(ctx context.Context, job *queue.Job, callbackURL string) error
}

// HTTPClient talks to the ingest endpoint over HTTP.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewClient builds an ingest client, or nil when no endpoint is configured.
func NewClient(cfg *config.Config) *HTTPClient {
	endpoint := strings.TrimSpace(cfg.Vision.IngestEndpoint)
	if endpoint == "" {
		return nil
	}
	timeout := time.Duration(cfg.Vision.IngestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) InitiateUpload(ctx context.Context, job *queue.Job, callbackURL string) error {
	file, err := os.Open(job.SourceVideo)
	if err != nil {
		return services.Wrap(services.ErrValidation, "ingest", "open source video", "", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return services.Wrap(services.ErrValidation, "ingest", "stat source video", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, file)
	if err != nil {
		return fmt.Errorf("build ingest request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Job-ID", strconv.FormatInt(job.ID, 10))
	req.Header.Set("X-Job-Name", job.Name)
	req.Header.Set("X-Callback-URL", callbackURL)

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "ingest", "upload source video", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return services.Wrap(services.ErrTransient, "ingest", "upload source video", readError(resp.Body, resp.StatusCode), nil)
	}
	if resp.StatusCode >= 300 {
		return services.Wrap(services.ErrValidation, "ingest", "upload source video", readError(resp.Body, resp.StatusCode), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func readError(body io.Reader, status int) string {
	data, _ := io.ReadAll(io.LimitReader(body, 2048))
	text := strings.TrimSpace(string(data))
	if text == "" {
		return fmt.Sprintf("ingest endpoint returned %d", status)
	}
	return fmt.Sprintf("ingest endpoint returned %d: %s", status, text)
}
