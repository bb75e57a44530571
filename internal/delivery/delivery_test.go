package delivery_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"courtreel/internal/delivery"
	"courtreel/internal/logging"
	"courtreel/internal/testsupport"
)

var deliveryDate = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func stageFixture(t *testing.T) string {
	t.Helper()
	stagingDir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(stagingDir, "Player_1", "Data", "player_averages.csv"), 64)
	testsupport.WriteFile(t, filepath.Join(stagingDir, "Player_1", "Data", "best_shots.csv"), 64)
	testsupport.WriteFile(t, filepath.Join(stagingDir, "Player_2", "Data", "player_averages.csv"), 64)
	testsupport.WriteFile(t, filepath.Join(stagingDir, "notes.txt"), 16)
	return stagingDir
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	reader, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip %s: %v", path, err)
	}
	defer reader.Close()
	var names []string
	for _, file := range reader.File {
		names = append(names, file.Name)
	}
	return names
}

func TestDeliverProducesPlayerAndMasterArchives(t *testing.T) {
	stagingDir := stageFixture(t)
	deliveriesDir := filepath.Join(t.TempDir(), "deliveries")

	bundler := delivery.NewBundler(logging.NewNop())
	manifest, err := bundler.Deliver(stagingDir, deliveriesDir, deliveryDate)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if len(manifest.ZipFiles) != 2 {
		t.Fatalf("expected 2 player archives, got %v", manifest.ZipFiles)
	}
	for i, want := range []string{"Courtreel_Player_1_2026-03-14.zip", "Courtreel_Player_2_2026-03-14.zip"} {
		if got := filepath.Base(manifest.ZipFiles[i]); got != want {
			t.Fatalf("archive %d: got %q want %q", i, got, want)
		}
	}
	if got := filepath.Base(manifest.MasterZip); got != "Courtreel_All_2026-03-14.zip" {
		t.Fatalf("unexpected master zip name: %q", got)
	}
	if manifest.GeneratedAt != deliveryDate {
		t.Fatalf("unexpected generated_at: %v", manifest.GeneratedAt)
	}

	names := zipNames(t, manifest.ZipFiles[0])
	if len(names) != 2 {
		t.Fatalf("player 1 archive should hold 2 files, got %v", names)
	}
	for _, name := range names {
		if !strings.HasPrefix(name, "Data/") {
			t.Fatalf("entries must be relative to the player directory, got %q", name)
		}
	}

	masterNames := zipNames(t, manifest.MasterZip)
	if len(masterNames) != 2 {
		t.Fatalf("master zip should hold the player archives, got %v", masterNames)
	}
}

func TestBundleMasterIgnoresForeignFiles(t *testing.T) {
	deliveriesDir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(deliveriesDir, "Courtreel_Player_1_2026-03-14.zip"), 32)
	testsupport.WriteFile(t, filepath.Join(deliveriesDir, "Courtreel_All_2026-03-13.zip"), 32)
	testsupport.WriteFile(t, filepath.Join(deliveriesDir, "readme.txt"), 8)
	testsupport.WriteFile(t, filepath.Join(deliveriesDir, "player_1.zip"), 8)

	bundler := delivery.NewBundler(logging.NewNop())
	masterPath, err := bundler.BundleMaster(deliveriesDir, deliveryDate)
	if err != nil {
		t.Fatalf("bundle master: %v", err)
	}
	names := zipNames(t, masterPath)
	if len(names) != 1 || names[0] != "Courtreel_Player_1_2026-03-14.zip" {
		t.Fatalf("unexpected master members: %v", names)
	}
}

func TestBundleMasterRequiresPlayerArchives(t *testing.T) {
	bundler := delivery.NewBundler(logging.NewNop())
	if _, err := bundler.BundleMaster(t.TempDir(), deliveryDate); err == nil {
		t.Fatal("expected error for empty deliveries directory")
	}
}

func TestCleanupRemovesSourceAndDirs(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "match.mp4")
	testsupport.WriteFile(t, source, 128)
	workDir := filepath.Join(base, "job_7")
	testsupport.WriteFile(t, filepath.Join(workDir, "clips", "c.mp4"), 16)

	if err := delivery.Cleanup(logging.NewNop(), source, workDir); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatal("source video should be removed")
	}
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatal("work directory should be removed")
	}
}

func TestCleanupToleratesMissingPaths(t *testing.T) {
	if err := delivery.Cleanup(logging.NewNop(), filepath.Join(t.TempDir(), "gone.mp4"), filepath.Join(t.TempDir(), "gone")); err != nil {
		t.Fatalf("cleanup of missing paths should succeed: %v", err)
	}
}
