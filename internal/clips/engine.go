package clips

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"courtreel/internal/config"
	"courtreel/internal/logging"
	"courtreel/internal/media/ffmpeg"
	"courtreel/internal/media/rclone"
	"courtreel/internal/services"
)

// Group outcome statuses recorded in the job result manifest.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Hero deliverable kinds.
const (
	HeroKindVideo = "video"
	HeroKindStill = "still"
)

// GroupResult records the outcome for one reel. Link is set only for
// uploaded reels; ReelPath only for local ones.
type GroupResult struct {
	Category Category `json:"type"`
	PlayerID int      `json:"player_id"`
	ReelPath string   `json:"reel_path,omitempty"`
	Link     *string  `json:"link"`
	Status   string   `json:"status"`
	Error    string   `json:"error,omitempty"`
}

// HeroResult records one produced hero deliverable.
type HeroResult struct {
	PlayerID int    `json:"player_id"`
	Kind     string `json:"kind"`
	Path     string `json:"path"`
}

// Results aggregates every deliverable outcome for a job.
type Results struct {
	Groups []GroupResult `json:"groups"`
	Heroes []HeroResult  `json:"heroes"`
}

// Engine turns a plan into files on disk and, when configured, uploaded
// reels with shareable links.
type Engine struct {
	ffmpeg   ffmpeg.Client
	uploader rclone.Client
	upload   config.Upload
	clips    config.Clips
	logger   *slog.Logger
}

// NewEngine wires an engine. uploader may be nil when uploads are disabled.
func NewEngine(ffmpegClient ffmpeg.Client, uploader rclone.Client, cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		ffmpeg:   ffmpegClient,
		uploader: uploader,
		upload:   cfg.Upload,
		clips:    cfg.Clips,
		logger:   logger,
	}
}

// Run produces every reel and hero in the plan. A failing group is recorded
// with StatusFailure and does not stop the remaining groups. Reel filenames
// and upload destinations embed the session id, so an empty vid is refused.
func (e *Engine) Run(ctx context.Context, source, workDir, vid string, plan Plan) (*Results, error) {
	if strings.TrimSpace(vid) == "" {
		return nil, services.Wrap(services.ErrMissingIdentity, "clips", "run", "session id required for reel naming", nil)
	}
	clipDir := filepath.Join(workDir, "clips")
	reelDir := filepath.Join(workDir, "reels")
	heroDir := filepath.Join(workDir, "heroes")
	for _, dir := range []string{clipDir, reelDir, heroDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create clip directory %s: %w", dir, err)
		}
	}

	results := &Results{}
	for _, group := range plan.Groups {
		result := e.produceGroup(ctx, source, clipDir, reelDir, vid, group)
		if result.Status == StatusFailure {
			e.logger.Warn("reel production failed",
				logging.String("group", group.Name()),
				logging.String("error", result.Error))
		}
		results.Groups = append(results.Groups, result)
	}

	for _, hero := range plan.Heroes {
		result, err := e.produceHero(ctx, source, heroDir, hero)
		if err != nil {
			e.logger.Warn("hero production failed",
				logging.Int("player", hero.PlayerID),
				logging.Error(err))
			continue
		}
		results.Heroes = append(results.Heroes, result)
	}

	if e.clips.CleanupIntermediates {
		if err := os.RemoveAll(clipDir); err != nil {
			e.logger.Warn("cleanup of intermediate clips failed", logging.Error(err))
		}
	}
	return results, nil
}

func (e *Engine) produceGroup(ctx context.Context, source, clipDir, reelDir, vid string, group Group) GroupResult {
	result := GroupResult{Category: group.Category, PlayerID: group.PlayerID, Status: StatusSuccess}

	clipPaths := make([]string, 0, len(group.Clips))
	for _, clip := range group.Clips {
		dst := filepath.Join(clipDir, clip.Name()+".mp4")
		if err := e.ffmpeg.Trim(ctx, source, clip.StartMS, clip.EndMS, dst); err != nil {
			return failedGroup(result, err)
		}
		clipPaths = append(clipPaths, dst)
	}

	listFile := filepath.Join(clipDir, group.Name()+".txt")
	if err := ffmpeg.WriteConcatList(clipPaths, listFile); err != nil {
		return failedGroup(result, err)
	}
	defer os.Remove(listFile)

	if e.upload.Enabled && e.uploader != nil {
		remotePath := rclone.JoinRemote(e.upload.Remote, vid, group.Name()+".mp4")
		link, err := e.uploadReel(ctx, listFile, remotePath)
		if err != nil {
			return failedGroup(result, err)
		}
		result.Link = &link
		return result
	}

	reelPath := filepath.Join(reelDir, group.Name()+".mp4")
	if err := e.ffmpeg.Concat(ctx, listFile, reelPath); err != nil {
		return failedGroup(result, err)
	}
	result.ReelPath = reelPath
	return result
}

// uploadReel streams the concatenated reel straight into the remote without
// materializing it on disk.
func (e *Engine) uploadReel(ctx context.Context, listFile, remotePath string) (string, error) {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(e.ffmpeg.ConcatTo(ctx, listFile, pw))
	}()
	if err := e.uploader.Upload(ctx, pr, remotePath); err != nil {
		pr.CloseWithError(err)
		return "", err
	}
	return e.uploader.Link(ctx, remotePath)
}

func (e *Engine) produceHero(ctx context.Context, source, heroDir string, hero Clip) (HeroResult, error) {
	if e.clips.HeroMode == HeroKindStill {
		dst := filepath.Join(heroDir, fmt.Sprintf("hero_player_%d.jpg", hero.PlayerID))
		midpoint := hero.StartMS + (hero.EndMS-hero.StartMS)/2
		if err := e.ffmpeg.Still(ctx, source, midpoint, dst); err != nil {
			return HeroResult{}, err
		}
		return HeroResult{PlayerID: hero.PlayerID, Kind: HeroKindStill, Path: dst}, nil
	}

	dst := filepath.Join(heroDir, fmt.Sprintf("hero_player_%d.mp4", hero.PlayerID))
	if err := e.ffmpeg.EncodeHero(ctx, source, hero.StartMS, hero.EndMS, dst); err != nil {
		return HeroResult{}, err
	}
	return HeroResult{PlayerID: hero.PlayerID, Kind: HeroKindVideo, Path: dst}, nil
}

func failedGroup(result GroupResult, err error) GroupResult {
	result.Status = StatusFailure
	result.Error = err.Error()
	return result
}
