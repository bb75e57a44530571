package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job represents a processing job persisted in SQLite.
type Job struct {
	ID            int64
	Name          string
	VID           string
	SourceVideo   string
	TelemetryPath string
	WebhookToken  string
	Status        Status
	ErrorMessage  string
	ProgressStage string
	ProgressMsg   string
	Attempts      int
	ResultJSON    string
	WorkDir       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// IsTerminal reports whether the job has reached a final state.
func (j *Job) IsTerminal() bool {
	return j != nil && j.Status.IsTerminal()
}

// SetProgress updates both progress fields together.
func (j *Job) SetProgress(stage, message string) {
	j.ProgressStage = stage
	j.ProgressMsg = message
}

// SetFailed marks the job failed with the given message. It has no effect on
// a job that already completed.
func (j *Job) SetFailed(message string) {
	if j.Status == StatusCompleted {
		return
	}
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressStage = "failed"
	j.ProgressMsg = message
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
