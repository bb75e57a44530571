package api

import (
	"encoding/json"
	"time"

	"courtreel/internal/queue"
)

// JobView is the wire representation of a queued job.
type JobView struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	VID             string          `json:"vid,omitempty"`
	Status          string          `json:"status"`
	ProgressStage   string          `json:"progress_stage,omitempty"`
	ProgressMessage string          `json:"progress_message,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	Attempts        int             `json:"attempts"`
	Result          json.RawMessage `json:"result,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// FromJob converts a stored job into its wire form.
func FromJob(job *queue.Job) JobView {
	view := JobView{
		ID:              job.ID,
		Name:            job.Name,
		VID:             job.VID,
		Status:          string(job.Status),
		ProgressStage:   job.ProgressStage,
		ProgressMessage: job.ProgressMsg,
		ErrorMessage:    job.ErrorMessage,
		Attempts:        job.Attempts,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
		CompletedAt:     job.CompletedAt,
	}
	if json.Valid([]byte(job.ResultJSON)) && job.ResultJSON != "" {
		view.Result = json.RawMessage(job.ResultJSON)
	}
	return view
}

// CreateJobRequest is the POST /api/jobs payload.
type CreateJobRequest struct {
	Name          string `json:"name"`
	SourceVideo   string `json:"source_video"`
	TelemetryPath string `json:"telemetry_path"`
}

// JobListResponse wraps job listings.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// WebhookResponse acknowledges a telemetry callback.
type WebhookResponse struct {
	Status string `json:"status"`
}

// HealthResponse reports queue health.
type HealthResponse struct {
	Total      int       `json:"total"`
	Pending    int       `json:"pending"`
	Processing int       `json:"processing"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	CheckedAt  time.Time `json:"checked_at"`
}
