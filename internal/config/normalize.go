package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeVision()
	c.normalizeTools()
	c.normalizeUpload()
	c.normalizeClips()
	c.normalizeGrading()
	c.normalizeRetry()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeVision() {
	c.Vision.IngestEndpoint = strings.TrimSpace(c.Vision.IngestEndpoint)
	if c.Vision.IngestEndpoint == "" {
		if value, ok := os.LookupEnv("COURTREEL_INGEST_ENDPOINT"); ok {
			c.Vision.IngestEndpoint = strings.TrimSpace(value)
		}
	}
	if c.Vision.IngestTimeout <= 0 {
		c.Vision.IngestTimeout = defaultIngestTimeout
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpegBinary = strings.TrimSpace(c.Tools.FFmpegBinary)
	if c.Tools.FFmpegBinary == "" {
		c.Tools.FFmpegBinary = defaultFFmpegBinary
	}
	c.Tools.FFprobeBinary = strings.TrimSpace(c.Tools.FFprobeBinary)
	if c.Tools.FFprobeBinary == "" {
		c.Tools.FFprobeBinary = defaultFFprobeBinary
	}
	c.Tools.RcloneBinary = strings.TrimSpace(c.Tools.RcloneBinary)
	if c.Tools.RcloneBinary == "" {
		c.Tools.RcloneBinary = defaultRcloneBinary
	}
}

func (c *Config) normalizeUpload() {
	c.Upload.Remote = strings.TrimSpace(c.Upload.Remote)
	if c.Upload.LinkTimeout <= 0 {
		c.Upload.LinkTimeout = defaultLinkTimeout
	}
}

func (c *Config) normalizeClips() {
	if c.Clips.PadServeContextMS < 0 {
		c.Clips.PadServeContextMS = defaultPadServeContextMS
	}
	if c.Clips.PadReturnContextMS < 0 {
		c.Clips.PadReturnContextMS = defaultPadReturnContextMS
	}
	if c.Clips.PadBestShotMS < 0 {
		c.Clips.PadBestShotMS = defaultPadBestShotMS
	}
	if c.Clips.PadHeroMS < 0 {
		c.Clips.PadHeroMS = defaultPadHeroMS
	}
	c.Clips.HeroMode = strings.ToLower(strings.TrimSpace(c.Clips.HeroMode))
	if c.Clips.HeroMode == "" {
		c.Clips.HeroMode = defaultHeroMode
	}
}

func (c *Config) normalizeGrading() {
	if c.Grading.TopShotsPerPlayer <= 0 {
		c.Grading.TopShotsPerPlayer = defaultTopShotsPerPlayer
	}
	defaults := Default().Grading
	if len(c.Grading.ServeDepthBands) == 0 {
		c.Grading.ServeDepthBands = defaults.ServeDepthBands
	}
	if len(c.Grading.HeightBands) == 0 {
		c.Grading.HeightBands = defaults.HeightBands
	}
	if len(c.Grading.ServeKitchenBands) == 0 {
		c.Grading.ServeKitchenBands = defaults.ServeKitchenBands
	}
	if len(c.Grading.ReturnKitchenBands) == 0 {
		c.Grading.ReturnKitchenBands = defaults.ReturnKitchenBands
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultRetryMaxAttempts
	}
	if c.Retry.BackoffBase <= 0 {
		c.Retry.BackoffBase = defaultRetryBackoffBase
	}
	if c.Retry.BackoffCeiling <= 0 {
		c.Retry.BackoffCeiling = defaultRetryBackoffCeil
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.JobWorkers <= 0 {
		c.Workflow.JobWorkers = defaultJobWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
