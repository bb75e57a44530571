package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"courtreel/internal/config"
	"courtreel/internal/queue"
	"courtreel/internal/testsupport"
)

// writeTestConfig writes a minimal config file rooted in a temp dir and
// returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	path := filepath.Join(base, "courtreel.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[logging]
format = "json"
level = "error"
`, filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// runCommand executes the CLI with args and returns combined output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

const (
	statsLine = `{"payload": {"stats": {"session": {"vid": "vid-9"}}}}`

	insightsLine = `{"insights": {"rallies": [{"shots": [` +
		`{"player_id": 1, "shot_type": "serve", "start_ms": 1000, "end_ms": 1800, ` +
		`"resulting_ball_movement": {"trajectory": {"x": 1}, "distance": 38, "height_over_net": 2.4, "speed": 28}, ` +
		`"quality": {"overall": 0.7}}` +
		`]}], "player_data": [` +
		`{"team": 0, "kitchen_arrival_percentage": {"serving": {"oneself": {"numerator": 4, "denominator": 5}}}}` +
		`]}}`
)

// writeTelemetryFile writes a small valid telemetry file and returns its path.
func writeTelemetryFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "telemetry.jsonl")
	testsupport.WriteLines(t, path, statsLine, insightsLine)
	return path
}

func openTestStore(t *testing.T, configPath string) *queue.Store {
	t.Helper()

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return testsupport.MustOpenStore(t, cfg)
}
