// Package ffprobe validates job source videos before clipping starts.
package ffprobe

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"

	"courtreel/internal/services"
)

var commandContext = exec.CommandContext

// Stream is the subset of ffprobe stream fields the pipeline inspects.
type Stream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// Format carries container-level metadata.
type Format struct {
	Filename string `json:"filename"`
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

// Result is a parsed ffprobe report.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// VideoStreamCount reports how many video streams the source carries.
func (r *Result) VideoStreamCount() int {
	if r == nil {
		return 0
	}
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration, or 0 when unknown.
func (r *Result) DurationSeconds() float64 {
	if r == nil {
		return 0
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(r.Format.Duration), 64)
	if err != nil {
		return 0
	}
	return value
}

// SizeBytes returns the container size in bytes, or 0 when unknown.
func (r *Result) SizeBytes() int64 {
	if r == nil {
		return 0
	}
	value, err := strconv.ParseInt(strings.TrimSpace(r.Format.Size), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

// Inspect runs ffprobe against path and parses the JSON report.
func Inspect(ctx context.Context, binary, path string) (*Result, error) {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	args := []string{
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", path,
	}
	cmd := commandContext(ctx, binary, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "media", "inspect source", "ffprobe failed for "+path, err)
	}
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "media", "inspect source", "parse ffprobe output", err)
	}
	return &result, nil
}
