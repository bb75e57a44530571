package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Vision contains configuration for the upstream vision service.
type Vision struct {
	IngestEndpoint string `toml:"ingest_endpoint"`
	IngestTimeout  int    `toml:"ingest_timeout"`
}

// Tools contains external binary overrides.
type Tools struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	RcloneBinary  string `toml:"rclone_binary"`
}

// Upload contains remote storage configuration for finished reels.
type Upload struct {
	Enabled     bool   `toml:"enabled"`
	Remote      string `toml:"remote"`
	LinkTimeout int    `toml:"link_timeout"`
}

// Clips contains pad constants and hero clip behavior.
type Clips struct {
	PadServeContextMS    int64  `toml:"pad_serve_context_ms"`
	PadReturnContextMS   int64  `toml:"pad_return_context_ms"`
	PadBestShotMS        int64  `toml:"pad_best_shot_ms"`
	PadHeroMS            int64  `toml:"pad_hero_ms"`
	HeroMode             string `toml:"hero_mode"` // "video" or "still"
	CleanupIntermediates bool   `toml:"cleanup_intermediates"`
}

// GradeBand is one (bound, label) step in a grading table.
type GradeBand struct {
	Bound float64 `toml:"bound"`
	Label string  `toml:"label"`
}

// Grading contains band tables and selection limits for player analytics.
type Grading struct {
	TopShotsPerPlayer  int         `toml:"top_shots_per_player"`
	ServeDepthBands    []GradeBand `toml:"serve_depth_bands"`
	HeightBands        []GradeBand `toml:"height_bands"`
	ServeKitchenBands  []GradeBand `toml:"serve_kitchen_bands"`
	ReturnKitchenBands []GradeBand `toml:"return_kitchen_bands"`
}

// Delivery contains bundling and cleanup behavior.
type Delivery struct {
	CleanupOnDelivery bool `toml:"cleanup_on_delivery"`
}

// Retry contains the backoff policy applied to externally-retryable stages.
type Retry struct {
	MaxAttempts    int `toml:"max_attempts"`
	BackoffBase    int `toml:"backoff_base_seconds"`
	BackoffCeiling int `toml:"backoff_ceiling_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	JobWorkers         int `toml:"job_workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Courtreel.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Vision: upstream vision-service ingest endpoint
//   - Tools: ffmpeg/ffprobe/rclone binary overrides
//   - Upload: remote storage for finished reels
//   - Clips: pad constants and hero clip behavior
//   - Grading: band tables and best-shot selection limits
//   - Delivery: bundling and cleanup behavior
//   - Retry: backoff policy for retryable job stages
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals and worker count
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Vision        Vision        `toml:"vision"`
	Tools         Tools         `toml:"tools"`
	Upload        Upload        `toml:"upload"`
	Clips         Clips         `toml:"clips"`
	Grading       Grading       `toml:"grading"`
	Delivery      Delivery      `toml:"delivery"`
	Retry         Retry         `toml:"retry"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/courtreel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("courtreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the pipeline relies on.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// JobDir returns the isolated working directory for a job.
func (c *Config) JobDir(jobID int64) string {
	return filepath.Join(c.Paths.DataDir, fmt.Sprintf("job_%d", jobID))
}

// ExpandPath resolves ~ prefixes and produces an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
