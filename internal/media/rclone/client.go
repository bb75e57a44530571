// Package rclone publishes finished reels to the configured remote and
// resolves shareable links for them.
package rclone

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"

	"courtreel/internal/services"
)

var commandContext = exec.CommandContext

// DefaultLinkTimeout bounds how long link resolution may take; some remotes
// hang indefinitely when the share API is unreachable.
const DefaultLinkTimeout = 30 * time.Second

// Client defines the upload operations the clip engine needs.
type Client interface {
	// Upload streams r into the remote path via rcat.
	Upload(ctx context.Context, r io.Reader, remotePath string) error
	// Link resolves a shareable URL for an uploaded object.
	Link(ctx context.Context, remotePath string) (string, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the rclone binary path.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if trimmed := strings.TrimSpace(binary); trimmed != "" {
			c.binary = trimmed
		}
	}
}

// WithLinkTimeout overrides the link resolution deadline.
func WithLinkTimeout(timeout time.Duration) Option {
	return func(c *CLI) {
		if timeout > 0 {
			c.linkTimeout = timeout
		}
	}
}

// CLI shells out to rclone.
type CLI struct {
	binary      string
	linkTimeout time.Duration
}

// NewCLI constructs an rclone-backed client.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "rclone", linkTimeout: DefaultLinkTimeout}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

func (c *CLI) Upload(ctx context.Context, r io.Reader, remotePath string) error {
	cmd := commandContext(ctx, c.binary, "rcat", remotePath)
	cmd.Stdin = r
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return services.Wrap(services.ErrExternalTool, "upload", "rcat", strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

func (c *CLI) Link(ctx context.Context, remotePath string) (string, error) {
	linkCtx, cancel := context.WithTimeout(ctx, c.linkTimeout)
	defer cancel()

	cmd := commandContext(linkCtx, c.binary, "link", remotePath)
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(linkCtx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "upload", "link", "rclone link timed out for "+remotePath, err)
		}
		return "", services.Wrap(services.ErrExternalTool, "upload", "link", "rclone link failed for "+remotePath, err)
	}
	link := strings.TrimSpace(string(output))
	if link == "" {
		return "", services.Wrap(services.ErrExternalTool, "upload", "link", "rclone returned an empty link for "+remotePath, nil)
	}
	return link, nil
}

// JoinRemote appends path elements to a remote root such as "drive:reels".
func JoinRemote(remote string, elements ...string) string {
	parts := append([]string{strings.TrimRight(remote, "/")}, elements...)
	return strings.Join(parts, "/")
}
