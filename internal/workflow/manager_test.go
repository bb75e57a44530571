package workflow_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"courtreel/internal/config"
	"courtreel/internal/logging"
	"courtreel/internal/pipeline"
	"courtreel/internal/queue"
	"courtreel/internal/services"
	"courtreel/internal/testsupport"
	"courtreel/internal/workflow"
)

type fakeRunner struct {
	mu       sync.Mutex
	outcomes map[int64]*pipeline.Outcome
	failWith error
	failures int
	runs     []int64
}

func (f *fakeRunner) Run(_ context.Context, job *queue.Job, progress pipeline.ProgressFunc) (*pipeline.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, job.ID)
	if progress != nil {
		progress(pipeline.StageParse, "reading telemetry envelopes")
	}
	if f.failWith != nil && f.failures != 0 {
		if f.failures > 0 {
			f.failures--
		}
		return nil, f.failWith
	}
	if outcome, ok := f.outcomes[job.ID]; ok {
		return outcome, nil
	}
	return &pipeline.Outcome{VID: "vid-1", ShotCount: 4}, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
}

func (f *fakeNotifier) NotifyJobQueued(context.Context, string) error { return nil }

func (f *fakeNotifier) NotifyJobCompleted(_ context.Context, name string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, name)
	return nil
}

func (f *fakeNotifier) NotifyJobFailed(_ context.Context, name, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, name)
	return nil
}

func (f *fakeNotifier) TestNotification(context.Context) error { return nil }

func newManager(t *testing.T, runner workflow.Runner) (*workflow.Manager, *queue.Store, *fakeNotifier) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Retry.MaxAttempts = 1
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &fakeNotifier{}
	return workflow.NewManager(cfg, store, runner, notifier, logging.NewNop()), store, notifier
}

func TestProcessNextCompletesJob(t *testing.T) {
	ctx := context.Background()
	manager, store, notifier := newManager(t, &fakeRunner{})

	job, err := store.NewJob(ctx, "morning match", "match.mp4", "telemetry.jsonl")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	processed, err := manager.ProcessNext(ctx)
	if err != nil {
		t.Fatalf("process next: %v", err)
	}
	if !processed {
		t.Fatal("expected a job to be processed")
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != queue.StatusCompleted {
		t.Fatalf("unexpected status: %s", stored.Status)
	}
	if !strings.Contains(stored.ResultJSON, `"vid":"vid-1"`) {
		t.Fatalf("expected outcome in result column, got %q", stored.ResultJSON)
	}
	if stored.WorkDir == "" {
		t.Fatal("expected work directory to be assigned")
	}
	if len(notifier.completed) != 1 || notifier.completed[0] != "morning match" {
		t.Fatalf("unexpected completion notifications: %v", notifier.completed)
	}
}

func TestProcessNextRecordsFailure(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{
		failWith: services.Wrap(services.ErrMalformedInput, "envelope", "read", "no valid envelopes", nil),
		failures: -1,
	}
	manager, store, notifier := newManager(t, runner)

	job, err := store.NewJob(ctx, "broken telemetry", "", "telemetry.jsonl")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if _, err := manager.ProcessNext(ctx); err != nil {
		t.Fatalf("process next: %v", err)
	}
	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != queue.StatusFailed {
		t.Fatalf("unexpected status: %s", stored.Status)
	}
	if !strings.Contains(stored.ErrorMessage, "no valid envelopes") {
		t.Fatalf("expected error message on job, got %q", stored.ErrorMessage)
	}
	if len(notifier.failed) != 1 {
		t.Fatalf("unexpected failure notifications: %v", notifier.failed)
	}
}

func TestProcessNextRetriesRetryableFailures(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	cfg.Retry = queueFriendlyRetry()
	store := testsupport.MustOpenStore(t, cfg)
	runner := &fakeRunner{
		failWith: services.Wrap(services.ErrExternalTool, "clips", "trim", "", nil),
		failures: 2,
	}
	manager := workflow.NewManager(cfg, store, runner, &fakeNotifier{}, logging.NewNop())

	job, err := store.NewJob(ctx, "flaky tools", "match.mp4", "telemetry.jsonl")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if _, err := manager.ProcessNext(ctx); err != nil {
		t.Fatalf("process next: %v", err)
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != queue.StatusCompleted {
		t.Fatalf("expected recovery after retries, got %s", stored.Status)
	}
	if len(runner.runs) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(runner.runs))
	}
}

func TestProcessNextReturnsFalseOnEmptyQueue(t *testing.T) {
	manager, _, _ := newManager(t, &fakeRunner{})
	processed, err := manager.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("process next: %v", err)
	}
	if processed {
		t.Fatal("expected no work on an empty queue")
	}
}

func TestStartRequeuesInterruptedJobs(t *testing.T) {
	ctx := context.Background()
	manager, store, _ := newManager(t, &fakeRunner{})

	job, err := store.NewJob(ctx, "interrupted", "", "telemetry.jsonl")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if _, err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := manager.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer manager.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		stored, err := store.GetByID(ctx, job.ID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if stored.Status == queue.StatusCompleted {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job was not recovered and completed in time")
}

func TestStartRejectsDoubleStart(t *testing.T) {
	manager, _, _ := newManager(t, &fakeRunner{})
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer manager.Stop()
	if err := manager.Start(context.Background()); err == nil {
		t.Fatal("expected second start to fail")
	}
}

func queueFriendlyRetry() config.Retry {
	return config.Retry{MaxAttempts: 3, BackoffBase: 1, BackoffCeiling: 1}
}

type fakeVision struct {
	mu        sync.Mutex
	callbacks []string
	err       error
}

func (f *fakeVision) InitiateUpload(_ context.Context, _ *queue.Job, callbackURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.callbacks = append(f.callbacks, callbackURL)
	return nil
}

func TestProcessNextUploadsWhenNoTelemetry(t *testing.T) {
	ctx := context.Background()
	manager, store, _ := newManager(t, &fakeRunner{})
	ingest := &fakeVision{}
	manager.SetVisionClient(ingest)

	job, err := store.NewJob(ctx, "awaiting analysis", "match.mp4", "")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if _, err := manager.ProcessNext(ctx); err != nil {
		t.Fatalf("process next: %v", err)
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != queue.StatusProcessing {
		t.Fatalf("job should await the callback in processing, got %s", stored.Status)
	}
	if stored.ProgressStage != workflow.StageIngest {
		t.Fatalf("unexpected progress stage: %s", stored.ProgressStage)
	}
	if len(ingest.callbacks) != 1 {
		t.Fatalf("expected one upload, got %d", len(ingest.callbacks))
	}
	if !strings.Contains(ingest.callbacks[0], stored.WebhookToken) {
		t.Fatalf("callback URL must carry the webhook token: %s", ingest.callbacks[0])
	}
}

func TestProcessNextFailsWithoutIngestEndpoint(t *testing.T) {
	ctx := context.Background()
	manager, store, _ := newManager(t, &fakeRunner{})

	job, err := store.NewJob(ctx, "no telemetry", "match.mp4", "")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if _, err := manager.ProcessNext(ctx); err != nil {
		t.Fatalf("process next: %v", err)
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != queue.StatusFailed {
		t.Fatalf("expected failure without an ingest endpoint, got %s", stored.Status)
	}
}

func TestHandleCallbackRejectsBadToken(t *testing.T) {
	ctx := context.Background()
	manager, store, _ := newManager(t, &fakeRunner{})

	job, err := store.NewJob(ctx, "secure", "", "telemetry.jsonl")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	_, badToken := manager.HandleCallback(ctx, job.ID, "wrong-token", strings.NewReader("{}"))
	_, badID := manager.HandleCallback(ctx, job.ID+100, job.WebhookToken, strings.NewReader("{}"))
	if badToken == nil || badID == nil {
		t.Fatal("expected rejection for bad token and unknown job")
	}
	if badToken.Error() != badID.Error() {
		t.Fatalf("rejections must not reveal the failure case: %q vs %q", badToken, badID)
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != queue.StatusPending {
		t.Fatalf("rejected callbacks must not change state, got %s", stored.Status)
	}
}

func TestHandleCallbackAcknowledgesTerminalJobs(t *testing.T) {
	ctx := context.Background()
	manager, store, _ := newManager(t, &fakeRunner{})

	job, err := store.NewJob(ctx, "done already", "", "telemetry.jsonl")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if _, err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := store.MarkCompleted(ctx, job.ID, "{}"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	result, err := manager.HandleCallback(ctx, job.ID, job.WebhookToken, strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("callback for terminal job must be acknowledged: %v", err)
	}
	if !result.AlreadyTerminal {
		t.Fatal("expected terminal acknowledgement")
	}
}

func TestHandleCallbackRunsPipeline(t *testing.T) {
	ctx := context.Background()
	manager, store, notifier := newManager(t, &fakeRunner{})

	job, err := store.NewJob(ctx, "callback match", "match.mp4", "")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if _, err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	result, err := manager.HandleCallback(ctx, job.ID, job.WebhookToken, strings.NewReader(`{"stats": {}}`))
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if result.AlreadyTerminal {
		t.Fatal("unexpected terminal acknowledgement")
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		stored, err := store.GetByID(ctx, job.ID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if stored.Status == queue.StatusCompleted {
			if stored.TelemetryPath == "" {
				t.Fatal("telemetry path should be recorded")
			}
			if len(notifier.completed) != 1 {
				t.Fatalf("expected completion notification, got %v", notifier.completed)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("pipeline did not complete after callback")
}

func TestProcessNextDoesNotReclaimAwaitingJob(t *testing.T) {
	ctx := context.Background()
	manager, store, _ := newManager(t, &fakeRunner{})
	ingest := &fakeVision{}
	manager.SetVisionClient(ingest)

	job, err := store.NewJob(ctx, "awaiting analysis", "match.mp4", "")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if _, err := manager.ProcessNext(ctx); err != nil {
		t.Fatalf("process next: %v", err)
	}

	// The job is parked in processing until the callback arrives; another
	// poll must not re-claim and re-upload it.
	processed, err := manager.ProcessNext(ctx)
	if err != nil {
		t.Fatalf("second process next: %v", err)
	}
	if processed {
		t.Fatal("awaiting job must not be claimed twice")
	}
	if len(ingest.callbacks) != 1 {
		t.Fatalf("expected a single upload, got %d", len(ingest.callbacks))
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != queue.StatusProcessing || stored.Attempts != 1 {
		t.Fatalf("expected one processing attempt, got %s attempts=%d", stored.Status, stored.Attempts)
	}
}
