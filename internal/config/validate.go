package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateClips(); err != nil {
		return err
	}
	if err := c.validateGrading(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateClips() error {
	switch c.Clips.HeroMode {
	case "video", "still":
	default:
		return fmt.Errorf("clips.hero_mode must be \"video\" or \"still\", got %q", c.Clips.HeroMode)
	}
	return nil
}

func (c *Config) validateGrading() error {
	tables := map[string][]GradeBand{
		"grading.serve_depth_bands":    c.Grading.ServeDepthBands,
		"grading.height_bands":         c.Grading.HeightBands,
		"grading.serve_kitchen_bands":  c.Grading.ServeKitchenBands,
		"grading.return_kitchen_bands": c.Grading.ReturnKitchenBands,
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		bands := tables[name]
		if len(bands) == 0 {
			return fmt.Errorf("%s must not be empty", name)
		}
		for _, band := range bands {
			if strings.TrimSpace(band.Label) == "" {
				return fmt.Errorf("%s contains a band without a label", name)
			}
		}
	}
	return nil
}

func (c *Config) validateUpload() error {
	if !c.Upload.Enabled {
		return nil
	}
	if c.Upload.Remote == "" {
		return errors.New("upload.remote must be set when upload.enabled is true")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.job_workers":          c.Workflow.JobWorkers,
		"retry.max_attempts":            c.Retry.MaxAttempts,
		"retry.backoff_base_seconds":    c.Retry.BackoffBase,
		"retry.backoff_ceiling_seconds": c.Retry.BackoffCeiling,
		"vision.ingest_timeout":         c.Vision.IngestTimeout,
		"upload.link_timeout":           c.Upload.LinkTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
