package logs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestTailReturnsLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courtreel.log")
	writeLog(t, path, "one\ntwo\nthree\nfour\n")

	lines, offset, err := Tail(path, 2)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(lines) != 2 || lines[0] != "three" || lines[1] != "four" {
		t.Fatalf("unexpected lines: %v", lines)
	}
	if offset == 0 {
		t.Fatal("expected non-zero offset after reading")
	}
}

func TestTailShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courtreel.log")
	writeLog(t, path, "only\n")

	lines, _, err := Tail(path, 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(lines) != 1 || lines[0] != "only" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	lines, offset, err := Tail(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %v offset %d", lines, offset)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courtreel.log")
	writeLog(t, path, "existing\n")

	_, offset, err := Tail(path, 0)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan string, 4)
	go func() {
		_ = Follow(ctx, path, offset, func(line string) { got <- line })
	}()

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := file.WriteString("fresh\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	file.Close()

	select {
	case line := <-got:
		if line != "fresh" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for followed line")
	}
}
