package ffprobe

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"courtreel/internal/services"
)

const sampleReport = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080},
    {"index": 1, "codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"filename": "match.mp4", "duration": "1325.400000", "size": "734003200"}
}`

func stubProbe(t *testing.T, calls *[][]string, script string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		*calls = append(*calls, append([]string{name}, args...))
		return exec.CommandContext(ctx, "sh", "-c", script)
	}
	t.Cleanup(func() { commandContext = original })
}

func TestInspectParsesReport(t *testing.T) {
	var calls [][]string
	stubProbe(t, &calls, "cat <<'EOF'\n"+sampleReport+"\nEOF")

	result, err := Inspect(context.Background(), "", "match.mp4")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if got := result.VideoStreamCount(); got != 1 {
		t.Fatalf("expected 1 video stream, got %d", got)
	}
	if got := result.DurationSeconds(); got != 1325.4 {
		t.Fatalf("unexpected duration: %v", got)
	}
	if got := result.SizeBytes(); got != 734003200 {
		t.Fatalf("unexpected size: %d", got)
	}
	command := strings.Join(calls[0], " ")
	want := "ffprobe -v error -hide_banner -show_format -show_streams -of json -- match.mp4"
	if command != want {
		t.Fatalf("unexpected command:\n got %s\nwant %s", command, want)
	}
}

func TestInspectWrapsFailure(t *testing.T) {
	var calls [][]string
	stubProbe(t, &calls, "exit 1")

	_, err := Inspect(context.Background(), "ffprobe", "missing.mp4")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestInspectRejectsMalformedOutput(t *testing.T) {
	var calls [][]string
	stubProbe(t, &calls, "printf 'not json'")

	_, err := Inspect(context.Background(), "ffprobe", "match.mp4")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestAccessorsHandleEmptyResult(t *testing.T) {
	var result *Result
	if result.VideoStreamCount() != 0 || result.DurationSeconds() != 0 || result.SizeBytes() != 0 {
		t.Fatal("nil result accessors should report zero values")
	}
	empty := &Result{}
	if empty.DurationSeconds() != 0 {
		t.Fatal("empty duration should parse to zero")
	}
}
