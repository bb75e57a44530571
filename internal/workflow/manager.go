// Package workflow drives queued jobs through the pipeline: it claims
// pending work, runs each job under the retry policy, and records terminal
// states.
package workflow

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"courtreel/internal/config"
	"courtreel/internal/logging"
	"courtreel/internal/notifications"
	"courtreel/internal/pipeline"
	"courtreel/internal/queue"
	"courtreel/internal/retry"
	"courtreel/internal/services"
	"courtreel/internal/vision"
)

// StageIngest covers the vision-service upload; it runs before the pipeline
// stages and leaves the job awaiting the telemetry callback.
const StageIngest = "ingest"

// Runner abstracts the pipeline for tests.
type Runner interface {
	Run(ctx context.Context, job *queue.Job, progress pipeline.ProgressFunc) (*pipeline.Outcome, error)
}

// CallbackResult reports how a telemetry webhook was handled.
type CallbackResult struct {
	// AlreadyTerminal is set when the job had already completed or failed;
	// the callback is acknowledged but has no effect.
	AlreadyTerminal bool
}

// Manager polls the queue and processes jobs on a fixed-size worker pool.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	runner   Runner
	notifier notifications.Service
	vision   vision.Client
	logger   *slog.Logger

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewManager wires a manager around the given store and runner.
func NewManager(cfg *config.Config, store *queue.Store, runner Runner, notifier notifications.Service, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	m := &Manager{
		cfg:      cfg,
		store:    store,
		runner:   runner,
		notifier: notifier,
		logger:   logger,
	}
	if client := vision.NewClient(cfg); client != nil {
		m.vision = client
	}
	return m
}

// SetVisionClient overrides the ingest client; used by tests.
func (m *Manager) SetVisionClient(client vision.Client) {
	m.vision = client
}

// Start recovers interrupted jobs and launches the worker pool. It returns
// immediately; workers run until Stop or context cancellation.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("workflow manager already started")
	}

	reset, err := m.store.ResetStuckProcessing(ctx)
	if err != nil {
		return fmt.Errorf("reset interrupted jobs: %w", err)
	}
	if reset > 0 {
		m.logger.Info("requeued interrupted jobs", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.baseCtx = runCtx
	m.cancel = cancel
	m.started = true

	workers := m.cfg.Workflow.JobWorkers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.workerLoop(runCtx, i)
	}
	m.logger.Info("workflow manager started", logging.Int("workers", workers))
	return nil
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.started = false
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

func (m *Manager) workerLoop(ctx context.Context, worker int) {
	defer m.wg.Done()

	pollInterval := time.Duration(m.cfg.Workflow.QueuePollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	logger := m.logger.With(logging.Int("worker", worker))

	for {
		processed, err := m.ProcessNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("queue poll failed", logging.Error(err))
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
	}
}

// ProcessNext claims and runs at most one pending job. It reports whether a
// job was processed.
func (m *Manager) ProcessNext(ctx context.Context) (bool, error) {
	job, err := m.store.NextPending(ctx)
	if err != nil || job == nil {
		return false, err
	}
	claimed, err := m.store.Claim(ctx, job.ID)
	if err != nil {
		return false, err
	}
	if !claimed {
		// Another worker won the race.
		return false, nil
	}
	// Claim moved the row to processing and bumped attempts; mirror that in
	// the struct so later Updates cannot regress the row to pending.
	job.Status = queue.StatusProcessing
	job.Attempts++
	m.process(ctx, job)
	return true, nil
}

func (m *Manager) process(ctx context.Context, job *queue.Job) {
	jobCtx := services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(jobCtx, m.logger)
	logger.Info("processing job", logging.String("name", job.Name))

	if err := m.prepareWorkDir(ctx, job); err != nil {
		m.fail(ctx, job, err)
		return
	}

	if strings.TrimSpace(job.TelemetryPath) == "" {
		m.ingest(jobCtx, job)
		return
	}
	m.runPipeline(ctx, job)
}

// ingest uploads the source video to the vision service and leaves the job
// in processing until the telemetry callback arrives.
func (m *Manager) ingest(ctx context.Context, job *queue.Job) {
	logger := logging.WithContext(ctx, m.logger)
	if m.vision == nil {
		m.fail(ctx, job, services.Wrap(services.ErrConfiguration, StageIngest, "upload source video",
			"job has no telemetry and no vision ingest endpoint is configured", nil))
		return
	}

	job.SetProgress(StageIngest, "uploading source video for analysis")
	if err := m.store.Update(ctx, job); err != nil {
		logger.Warn("persisting job progress failed", logging.Error(err))
	}

	callbackURL := m.callbackURL(job)
	err := retry.Do(ctx, m.cfg.Retry, logger, StageIngest, func(ctx context.Context) error {
		return m.vision.InitiateUpload(ctx, job, callbackURL)
	})
	if err != nil {
		m.fail(ctx, job, err)
		return
	}

	job.SetProgress(StageIngest, "awaiting vision service callback")
	if err := m.store.Update(ctx, job); err != nil {
		logger.Warn("persisting job progress failed", logging.Error(err))
	}
	logger.Info("source video uploaded, awaiting callback")
}

// HandleCallback validates a telemetry webhook and, when accepted, persists
// the telemetry and runs the pipeline in the background. Token mismatch and
// unknown job ids are rejected with the same error so callers cannot probe
// which jobs exist.
func (m *Manager) HandleCallback(ctx context.Context, jobID int64, token string, telemetry io.Reader) (*CallbackResult, error) {
	rejected := services.Wrap(services.ErrValidation, "webhook", "authenticate", "callback rejected", nil)

	job, err := m.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, rejected
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(job.WebhookToken)) != 1 {
		return nil, rejected
	}
	if job.IsTerminal() {
		return &CallbackResult{AlreadyTerminal: true}, nil
	}

	if err := m.prepareWorkDir(ctx, job); err != nil {
		return nil, err
	}
	telemetryPath := filepath.Join(job.WorkDir, "telemetry.jsonl")
	out, err := os.Create(telemetryPath)
	if err != nil {
		return nil, fmt.Errorf("create telemetry file: %w", err)
	}
	if _, err := io.Copy(out, telemetry); err != nil {
		out.Close()
		return nil, fmt.Errorf("write telemetry: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("write telemetry: %w", err)
	}

	job.TelemetryPath = telemetryPath
	job.SetProgress(pipeline.StageParse, "telemetry received")
	if err := m.store.Update(ctx, job); err != nil {
		return nil, err
	}

	runCtx := m.runContext()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runPipeline(runCtx, job)
	}()
	return &CallbackResult{}, nil
}

func (m *Manager) runContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseCtx != nil {
		return m.baseCtx
	}
	return context.Background()
}

func (m *Manager) callbackURL(job *queue.Job) string {
	return fmt.Sprintf("http://%s/api/webhook/%d?token=%s", m.cfg.Paths.APIBind, job.ID, job.WebhookToken)
}

func (m *Manager) runPipeline(ctx context.Context, job *queue.Job) {
	jobCtx := services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(jobCtx, m.logger)

	progress := func(stage, message string) {
		job.SetProgress(stage, message)
		if err := m.store.Update(ctx, job); err != nil {
			logger.Warn("persisting job progress failed", logging.Error(err))
		}
	}

	var outcome *pipeline.Outcome
	err := retry.Do(jobCtx, m.cfg.Retry, logger, "pipeline", func(ctx context.Context) error {
		var runErr error
		outcome, runErr = m.runner.Run(ctx, job, progress)
		return runErr
	})
	if err != nil {
		m.fail(ctx, job, err)
		return
	}

	resultJSON, err := outcome.JSON()
	if err != nil {
		m.fail(ctx, job, err)
		return
	}
	if _, err := m.store.MarkCompleted(ctx, job.ID, resultJSON); err != nil {
		logger.Error("marking job completed failed", logging.Error(err))
		return
	}
	logger.Info("job completed", logging.Bool("degraded", outcome.Degraded))
	if err := m.notifier.NotifyJobCompleted(ctx, job.Name, outcome.Degraded); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}
}

func (m *Manager) prepareWorkDir(ctx context.Context, job *queue.Job) error {
	workDir := m.cfg.JobDir(job.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create job directory: %w", err)
	}
	if job.WorkDir != workDir {
		job.WorkDir = workDir
		return m.store.Update(ctx, job)
	}
	return nil
}

func (m *Manager) fail(ctx context.Context, job *queue.Job, cause error) {
	logger := logging.WithContext(services.WithJobID(ctx, job.ID), m.logger)
	logger.Error("job failed", logging.Error(cause))
	if _, err := m.store.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		logger.Error("marking job failed failed", logging.Error(err))
	}
	if err := m.notifier.NotifyJobFailed(ctx, job.Name, cause.Error()); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
}
