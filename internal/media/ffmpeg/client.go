// Package ffmpeg wraps the ffmpeg binary behind a narrow clipping interface
// so the clip engine can be tested against a fake implementation.
package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"courtreel/internal/services"
)

var commandContext = exec.CommandContext

// Hero clips are re-encoded to a compact fixed profile for report embedding.
const (
	heroScaleFilter = "scale=1280:-2"
	heroVideoCodec  = "libx264"
	heroBitrate     = "2000k"
	heroAudioCodec  = "aac"
)

// Client defines the clipping operations the pipeline needs.
type Client interface {
	// Trim copies the [startMS, endMS] range of source into dst without
	// re-encoding.
	Trim(ctx context.Context, source string, startMS, endMS int64, dst string) error
	// Concat joins the clips listed in listFile into dst via the concat
	// demuxer, stream-copied.
	Concat(ctx context.Context, listFile, dst string) error
	// ConcatTo streams the concatenation as fragmented MP4 into w, for
	// piping into an uploader without an intermediate file.
	ConcatTo(ctx context.Context, listFile string, w io.Writer) error
	// EncodeHero re-encodes the range to the compact hero profile.
	EncodeHero(ctx context.Context, source string, startMS, endMS int64, dst string) error
	// Still extracts one representative frame at atMS.
	Still(ctx context.Context, source string, atMS int64, dst string) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the ffmpeg binary path.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if trimmed := strings.TrimSpace(binary); trimmed != "" {
			c.binary = trimmed
		}
	}
}

// CLI shells out to ffmpeg.
type CLI struct {
	binary string
}

// NewCLI constructs an ffmpeg-backed client.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

func (c *CLI) Trim(ctx context.Context, source string, startMS, endMS int64, dst string) error {
	args := []string{
		"-loglevel", "error",
		"-ss", formatSeconds(startMS),
		"-to", formatSeconds(endMS),
		"-i", source,
		"-c", "copy",
		"-y", dst,
	}
	return c.run(ctx, "trim", args)
}

func (c *CLI) Concat(ctx context.Context, listFile, dst string) error {
	args := []string{
		"-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-y", dst,
	}
	return c.run(ctx, "concat", args)
}

func (c *CLI) ConcatTo(ctx context.Context, listFile string, w io.Writer) error {
	args := []string{
		"-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-movflags", "frag_keyframe+empty_moov",
		"-f", "mp4", "pipe:1",
	}
	cmd := commandContext(ctx, c.binary, args...)
	cmd.Stdout = w
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "concat stream", strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

func (c *CLI) EncodeHero(ctx context.Context, source string, startMS, endMS int64, dst string) error {
	args := []string{
		"-loglevel", "error",
		"-ss", formatSeconds(startMS),
		"-to", formatSeconds(endMS),
		"-i", source,
		"-vf", heroScaleFilter,
		"-c:v", heroVideoCodec,
		"-b:v", heroBitrate,
		"-c:a", heroAudioCodec,
		"-y", dst,
	}
	return c.run(ctx, "encode hero", args)
}

func (c *CLI) Still(ctx context.Context, source string, atMS int64, dst string) error {
	args := []string{
		"-loglevel", "error",
		"-ss", formatSeconds(atMS),
		"-i", source,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", dst,
	}
	return c.run(ctx, "still", args)
}

func (c *CLI) run(ctx context.Context, op string, args []string) error {
	cmd := commandContext(ctx, c.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", op, strings.TrimSpace(string(output)), err)
	}
	return nil
}

// WriteConcatList writes an ffmpeg concat demuxer list referencing each clip
// by absolute path.
func WriteConcatList(clipPaths []string, outfile string) error {
	var b strings.Builder
	for _, clip := range clipPaths {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return fmt.Errorf("resolve clip path %s: %w", clip, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	if err := os.WriteFile(outfile, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

// formatSeconds renders a millisecond offset as fractional seconds with
// millisecond precision.
func formatSeconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000.0, 'f', 3, 64)
}
