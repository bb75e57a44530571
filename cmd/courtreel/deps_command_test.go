package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func stubBinaries(t *testing.T, names ...string) {
	t.Helper()

	binDir := t.TempDir()
	script := []byte("#!/bin/sh\nexit 0\n")
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(binDir, name), script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	t.Setenv("PATH", binDir)
}

func TestDepsCommandReportsAvailability(t *testing.T) {
	configPath := writeTestConfig(t)
	stubBinaries(t, "ffmpeg", "ffprobe")

	out, err := runCommand(t, "--config", configPath, "deps")
	if err != nil {
		t.Fatalf("deps: %v\n%s", err, out)
	}
	if !strings.Contains(out, "FFmpeg") || !strings.Contains(out, "[OK]") {
		t.Fatalf("unexpected deps output: %s", out)
	}
	if !strings.Contains(out, "[WARN]") {
		t.Fatalf("missing rclone should warn when uploads are disabled: %s", out)
	}
}

func TestDepsCommandFailsOnMissingRequired(t *testing.T) {
	configPath := writeTestConfig(t)
	stubBinaries(t, "ffprobe")

	out, err := runCommand(t, "--config", configPath, "deps")
	if err == nil {
		t.Fatalf("expected failure when ffmpeg is missing, got: %s", out)
	}
	if !strings.Contains(err.Error(), "FFmpeg") {
		t.Fatalf("unexpected error: %v", err)
	}
}
