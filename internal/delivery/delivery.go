// Package delivery bundles staged player data into dated zip archives and
// assembles the final delivery manifest.
package delivery

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"courtreel/internal/logging"
)

const (
	playerZipPrefix = "Courtreel_Player_"
	masterZipPrefix = "Courtreel_All_"
	dateLayout      = "2006-01-02"
)

// playerZipPattern matches per-player archives so stray files in the
// deliveries directory never end up in the master bundle.
var playerZipPattern = regexp.MustCompile(`^Courtreel_Player_(.+?)_\d{4}-\d{2}-\d{2}\.zip$`)

// Manifest is the delivery summary persisted on the completed job.
type Manifest struct {
	ZipFiles    []string  `json:"zipfiles"`
	MasterZip   string    `json:"master_zip"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Bundler produces the delivery archives for one job.
type Bundler struct {
	logger *slog.Logger
}

// NewBundler constructs a bundler.
func NewBundler(logger *slog.Logger) *Bundler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bundler{logger: logger}
}

// Deliver zips every staged player directory, bundles the player archives
// into a master zip, and returns the manifest.
func (b *Bundler) Deliver(stagingDir, deliveriesDir string, now time.Time) (*Manifest, error) {
	if err := os.MkdirAll(deliveriesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create deliveries directory: %w", err)
	}

	zipFiles, err := b.BundlePlayers(stagingDir, deliveriesDir, now)
	if err != nil {
		return nil, err
	}
	masterZip, err := b.BundleMaster(deliveriesDir, now)
	if err != nil {
		return nil, err
	}
	return &Manifest{ZipFiles: zipFiles, MasterZip: masterZip, GeneratedAt: now.UTC()}, nil
}

// BundlePlayers zips each Player_<id> directory under stagingDir into a
// dated per-player archive. It returns the archive paths in player order.
func (b *Bundler) BundlePlayers(stagingDir, deliveriesDir string, now time.Time) ([]string, error) {
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return nil, fmt.Errorf("read staging directory: %w", err)
	}

	date := now.Format(dateLayout)
	var zipFiles []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "Player_") {
			continue
		}
		playerID := strings.TrimPrefix(entry.Name(), "Player_")
		zipPath := filepath.Join(deliveriesDir, fmt.Sprintf("%s%s_%s.zip", playerZipPrefix, playerID, date))
		if err := zipDirectory(filepath.Join(stagingDir, entry.Name()), zipPath); err != nil {
			return nil, fmt.Errorf("bundle player %s: %w", playerID, err)
		}
		b.logger.Info("bundled player archive", logging.String("zip", filepath.Base(zipPath)))
		zipFiles = append(zipFiles, zipPath)
	}
	sort.Strings(zipFiles)
	return zipFiles, nil
}

// BundleMaster collects every per-player archive in deliveriesDir into a
// dated master zip. Earlier master zips and unrelated files are ignored.
func (b *Bundler) BundleMaster(deliveriesDir string, now time.Time) (string, error) {
	entries, err := os.ReadDir(deliveriesDir)
	if err != nil {
		return "", fmt.Errorf("read deliveries directory: %w", err)
	}

	var members []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, masterZipPrefix) {
			continue
		}
		if !playerZipPattern.MatchString(name) {
			continue
		}
		members = append(members, name)
	}
	sort.Strings(members)
	if len(members) == 0 {
		return "", fmt.Errorf("no player archives found in %s", deliveriesDir)
	}

	masterPath := filepath.Join(deliveriesDir, fmt.Sprintf("%s%s.zip", masterZipPrefix, now.Format(dateLayout)))
	out, err := os.Create(masterPath)
	if err != nil {
		return "", fmt.Errorf("create master zip: %w", err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	for _, member := range members {
		if err := addFileToZip(writer, filepath.Join(deliveriesDir, member), member); err != nil {
			writer.Close()
			return "", fmt.Errorf("bundle master zip: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize master zip: %w", err)
	}
	b.logger.Info("bundled master archive", logging.String("zip", filepath.Base(masterPath)))
	return masterPath, nil
}

// Cleanup removes the job's source video and working directories once the
// delivery has been produced. Missing paths are not errors.
func Cleanup(logger *slog.Logger, sourceVideo string, dirs ...string) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	if strings.TrimSpace(sourceVideo) != "" {
		if err := os.Remove(sourceVideo); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove source video: %w", err)
		}
		logger.Info("removed source video", logging.String("path", sourceVideo))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove directory %s: %w", dir, err)
		}
	}
	return nil
}

// zipDirectory archives every regular file under dir, storing paths relative
// to dir.
func zipDirectory(dir, zipPath string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addFileToZip(writer, path, filepath.ToSlash(rel))
	})
	if err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func addFileToZip(writer *zip.Writer, path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	entry, err := writer.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, file)
	return err
}
