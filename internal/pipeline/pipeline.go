// Package pipeline runs the full telemetry-to-deliverable sequence for one
// job: parse envelopes, derive analytics, write reports, cut reels, and
// bundle the delivery archives.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"courtreel/internal/clips"
	"courtreel/internal/config"
	"courtreel/internal/delivery"
	"courtreel/internal/envelope"
	"courtreel/internal/fileutil"
	"courtreel/internal/grading"
	"courtreel/internal/highlights"
	"courtreel/internal/kitchen"
	"courtreel/internal/logging"
	"courtreel/internal/media/ffmpeg"
	"courtreel/internal/media/ffprobe"
	"courtreel/internal/media/rclone"
	"courtreel/internal/queue"
	"courtreel/internal/report"
	"courtreel/internal/services"
	"courtreel/internal/shots"
)

// Stage names reported through job progress and structured logs.
const (
	StageParse    = "parse"
	StageAnalyze  = "analyze"
	StageReport   = "report"
	StageValidate = "validate"
	StageClips    = "clips"
	StageDeliver  = "deliver"
)

// ProgressFunc receives stage transitions for persistence on the job record.
type ProgressFunc func(stage, message string)

// InspectFunc probes a media file; swapped in tests.
type InspectFunc func(ctx context.Context, binary, path string) (*ffprobe.Result, error)

// Outcome summarizes a completed run and serializes into the job's result
// column.
type Outcome struct {
	VID         string             `json:"vid"`
	Degraded    bool               `json:"degraded"`
	ShotCount   int                `json:"shot_count"`
	SkippedRows int                `json:"skipped_rows"`
	ReportDir   string             `json:"report_dir"`
	Clips       *clips.Results     `json:"clips,omitempty"`
	Delivery    *delivery.Manifest `json:"delivery,omitempty"`
}

// JSON renders the outcome for storage.
func (o *Outcome) JSON() (string, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("marshal outcome: %w", err)
	}
	return string(data), nil
}

// Runner executes the pipeline stages in dependency order.
type Runner struct {
	cfg      *config.Config
	ffmpeg   ffmpeg.Client
	uploader rclone.Client
	inspect  InspectFunc
	bundler  *delivery.Bundler
	logger   *slog.Logger
	now      func() time.Time
}

// Option overrides a runner collaborator.
type Option func(*Runner)

// WithFFmpeg swaps the clipping client.
func WithFFmpeg(client ffmpeg.Client) Option {
	return func(r *Runner) { r.ffmpeg = client }
}

// WithUploader swaps the remote storage client.
func WithUploader(client rclone.Client) Option {
	return func(r *Runner) { r.uploader = client }
}

// WithInspector swaps the media probe.
func WithInspector(inspect InspectFunc) Option {
	return func(r *Runner) { r.inspect = inspect }
}

// WithClock swaps the delivery timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner wires a runner from configuration.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	runner := &Runner{
		cfg:     cfg,
		ffmpeg:  ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.Tools.FFmpegBinary)),
		inspect: ffprobe.Inspect,
		bundler: delivery.NewBundler(logger),
		logger:  logger,
		now:     time.Now,
	}
	if cfg.Upload.Enabled {
		runner.uploader = rclone.NewCLI(
			rclone.WithBinary(cfg.Tools.RcloneBinary),
			rclone.WithLinkTimeout(time.Duration(cfg.Upload.LinkTimeout)*time.Second),
		)
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Run executes every stage for the job. A missing session id downgrades the
// run: analytics and reports are still produced, but the video and delivery
// stages are skipped.
func (r *Runner) Run(ctx context.Context, job *queue.Job, progress ProgressFunc) (*Outcome, error) {
	if progress == nil {
		progress = func(string, string) {}
	}

	progress(StageParse, "reading telemetry envelopes")
	doc, err := envelope.Read(job.TelemetryPath, r.stageLogger(ctx, job, StageParse))
	if err != nil {
		return nil, err
	}

	progress(StageAnalyze, "deriving shot and player analytics")
	logger := r.stageLogger(ctx, job, StageAnalyze)
	rows, skipped := shots.Classify(doc, logger)
	records := kitchen.Records(doc)
	percentages := kitchen.RolePercentages(records)
	windows := highlights.BuildWindows(rows)
	candidates := highlights.Candidates(doc)
	bestShots := highlights.SelectTop(candidates, r.cfg.Grading.TopShotsPerPlayer)
	heroes := highlights.SelectHeroes(candidates)
	averages := grading.Averages(rows, percentages, r.cfg.Grading)

	progress(StageReport, "writing analytics reports")
	reportDir := filepath.Join(job.WorkDir, "reports")
	if err := writeReports(reportDir, rows, records, windows, bestShots, averages); err != nil {
		return nil, err
	}
	stagingDir := filepath.Join(job.WorkDir, "delivery_staging")
	if err := report.StagePlayerData(stagingDir, records, bestShots, averages); err != nil {
		return nil, err
	}

	outcome := &Outcome{
		VID:         doc.VID,
		ShotCount:   len(rows),
		SkippedRows: skipped,
		ReportDir:   reportDir,
	}
	if doc.VID == "" {
		outcome.Degraded = true
		r.stageLogger(ctx, job, StageAnalyze).Warn("missing session id, skipping video and delivery stages")
		return outcome, nil
	}

	if strings.TrimSpace(job.SourceVideo) != "" {
		progress(StageValidate, "validating source recording")
		if err := r.validateSource(ctx, job.SourceVideo); err != nil {
			return nil, err
		}

		progress(StageClips, "cutting and assembling reels")
		plan := clips.Build(windows, bestShots, heroes, r.cfg.Clips)
		engine := clips.NewEngine(r.ffmpeg, r.uploader, r.cfg, r.stageLogger(ctx, job, StageClips))
		results, err := engine.Run(ctx, job.SourceVideo, job.WorkDir, doc.VID, plan)
		if err != nil {
			return nil, err
		}
		outcome.Clips = results

		if err := stageMedia(stagingDir, results); err != nil {
			return nil, err
		}
		if err := writeLinkManifest(reportDir, results); err != nil {
			return nil, err
		}
	}

	progress(StageDeliver, "bundling delivery archives")
	manifest, err := r.bundler.Deliver(stagingDir, filepath.Join(job.WorkDir, "deliveries"), r.now())
	if err != nil {
		return nil, err
	}
	outcome.Delivery = manifest

	if r.cfg.Delivery.CleanupOnDelivery {
		cleanupDirs := []string{stagingDir, filepath.Join(job.WorkDir, "clips")}
		if err := delivery.Cleanup(r.stageLogger(ctx, job, StageDeliver), job.SourceVideo, cleanupDirs...); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

func (r *Runner) validateSource(ctx context.Context, path string) error {
	result, err := r.inspect(ctx, r.cfg.Tools.FFprobeBinary, path)
	if err != nil {
		return err
	}
	if result.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, StageValidate, "inspect source", "no video streams in "+path, nil)
	}
	return nil
}

// stageMedia copies locally produced reels and heroes into each player's
// staging directory so the delivery archives carry them alongside the data
// files. Uploaded reels are referenced by link and have no local path.
func stageMedia(stagingDir string, results *clips.Results) error {
	for _, group := range results.Groups {
		if group.Status != clips.StatusSuccess || group.ReelPath == "" {
			continue
		}
		videoDir := filepath.Join(stagingDir, report.PlayerDirName(group.PlayerID), "Videos")
		if err := os.MkdirAll(videoDir, 0o755); err != nil {
			return err
		}
		dst := filepath.Join(videoDir, filepath.Base(group.ReelPath))
		if err := fileutil.CopyFileVerified(group.ReelPath, dst); err != nil {
			return fmt.Errorf("stage reel %s: %w", group.ReelPath, err)
		}
	}
	for _, hero := range results.Heroes {
		playerDir := filepath.Join(stagingDir, report.PlayerDirName(hero.PlayerID))
		if err := os.MkdirAll(playerDir, 0o755); err != nil {
			return err
		}
		dst := filepath.Join(playerDir, filepath.Base(hero.Path))
		if err := fileutil.CopyFile(hero.Path, dst); err != nil {
			return fmt.Errorf("stage hero %s: %w", hero.Path, err)
		}
	}
	return nil
}

// writeLinkManifest records where each finished reel ended up, either a
// shared upload link or a local path.
func writeLinkManifest(reportDir string, results *clips.Results) error {
	manifest := make(map[string]string, len(results.Groups))
	for _, group := range results.Groups {
		if group.Status != clips.StatusSuccess {
			continue
		}
		key := fmt.Sprintf("%s_player_%d", group.Category, group.PlayerID)
		switch {
		case group.Link != nil:
			manifest[key] = *group.Link
		case group.ReelPath != "":
			manifest[key] = group.ReelPath
		}
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(reportDir, "video_links.json"), data, 0o644)
}

func (r *Runner) stageLogger(ctx context.Context, job *queue.Job, stage string) *slog.Logger {
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithStage(ctx, stage)
	return logging.WithContext(ctx, r.logger)
}

func writeReports(dir string, rows []shots.Row, records []kitchen.Record, windows []highlights.Window, bestShots []highlights.Candidate, averages []grading.Average) error {
	if _, err := report.WriteShotRows(dir, rows); err != nil {
		return err
	}
	if _, err := report.WriteKitchenRecords(dir, records); err != nil {
		return err
	}
	if _, err := report.WriteWindows(dir, windows); err != nil {
		return err
	}
	if _, err := report.WriteBestShots(dir, bestShots); err != nil {
		return err
	}
	if _, err := report.WriteAverages(dir, averages); err != nil {
		return err
	}
	return nil
}
