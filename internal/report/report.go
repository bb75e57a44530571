// Package report writes the fixed-name tabular artifacts consumed by the
// downstream templating layer, keyed by session and player id for joins.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"courtreel/internal/grading"
	"courtreel/internal/highlights"
	"courtreel/internal/kitchen"
	"courtreel/internal/shots"
)

// Artifact file names are fixed: downstream joins reference them by name.
const (
	ShotLevelFile      = "shot_level_data.csv"
	KitchenStatsFile   = "kitchen_role_stats.csv"
	HighlightFile      = "highlight_registry.csv"
	BestShotsFile      = "player_best_shots.csv"
	PlayerAveragesFile = "player_averages.csv"
)

// WriteShotRows writes the classified shot rows.
func WriteShotRows(dir string, rows []shots.Row) (string, error) {
	header := []string{
		"vid", "rally_idx", "shot_idx", "player_id", "shot_type", "shot_role",
		"start_ms", "end_ms", "depth", "height_over_net", "quality",
		"advantage_scale", "is_final", "speed", "is_volleyed",
	}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.VID,
			strconv.Itoa(row.RallyIdx),
			strconv.Itoa(row.ShotIdx),
			intField(row.PlayerID),
			row.ShotType,
			string(row.Role),
			msField(row.StartMS),
			msField(row.EndMS),
			floatField(row.Depth),
			floatField(row.HeightOverNet),
			floatField(row.Quality),
			floatField(row.AdvantageScale),
			boolField(row.IsFinal),
			floatField(row.Speed),
			boolField(row.IsVolleyed),
		})
	}
	return writeCSV(dir, ShotLevelFile, header, records)
}

// WriteKitchenRecords writes per-player kitchen arrival ratios.
func WriteKitchenRecords(dir string, records []kitchen.Record) (string, error) {
	header := []string{
		"vid", "player_id", "team_id", "role", "perspective",
		"kitchen_arrivals", "opportunities", "kitchen_pct",
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.VID,
			strconv.Itoa(rec.PlayerID),
			strconv.Itoa(rec.TeamID),
			rec.Role,
			rec.Perspective,
			formatFloat(rec.Arrivals),
			formatFloat(rec.Opportunities),
			formatFloat(rec.Pct),
		})
	}
	return writeCSV(dir, KitchenStatsFile, header, rows)
}

// WriteWindows writes the highlight window registry.
func WriteWindows(dir string, windows []highlights.Window) (string, error) {
	header := []string{
		"vid", "rally_idx", "highlight_type", "start_ms", "end_ms",
		"player_id", "start_shot_idx", "end_shot_idx",
	}
	rows := make([][]string, 0, len(windows))
	for _, w := range windows {
		rows = append(rows, []string{
			w.VID,
			strconv.Itoa(w.RallyIdx),
			string(w.Type),
			strconv.FormatInt(w.StartMS, 10),
			strconv.FormatInt(w.EndMS, 10),
			intField(w.PlayerID),
			strconv.Itoa(w.StartShotIdx),
			strconv.Itoa(w.EndShotIdx),
		})
	}
	return writeCSV(dir, HighlightFile, header, rows)
}

// WriteBestShots writes the ranked best-shot selection.
func WriteBestShots(dir string, candidates []highlights.Candidate) (string, error) {
	header := []string{
		"vid", "player_id", "rally_idx", "shot_idx", "shot_start_idx",
		"shot_end_idx", "start_ms", "end_ms", "kind", "score", "tier",
		"rally_ending", "short_description", "source",
	}
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, []string{
			c.VID,
			intField(c.PlayerID),
			strconv.Itoa(c.RallyIdx),
			intField(c.ShotIdx),
			intField(c.ShotStartIdx),
			intField(c.ShotEndIdx),
			msField(c.StartMS),
			msField(c.EndMS),
			c.Kind,
			formatFloat(c.Score),
			string(c.Tier),
			boolField(c.RallyEnding),
			c.Description,
			string(c.Source),
		})
	}
	return writeCSV(dir, BestShotsFile, header, rows)
}

// WriteAverages writes per-player averages and grades.
func WriteAverages(dir string, averages []grading.Average) (string, error) {
	header := []string{
		"vid", "player_id",
		"serve_depth_avg", "serve_height_avg", "serve_kitchen_pct",
		"return_depth_avg", "return_height_avg", "return_kitchen_pct",
		"serve_depth_grade", "serve_height_grade", "serve_kitchen_grade",
		"return_depth_grade", "return_height_grade", "return_kitchen_grade",
		"overall_grade",
	}
	rows := make([][]string, 0, len(averages))
	for _, avg := range averages {
		rows = append(rows, []string{
			avg.VID,
			strconv.Itoa(avg.PlayerID),
			floatField(avg.ServeDepthAvg),
			floatField(avg.ServeHeightAvg),
			floatField(avg.ServeKitchenPct),
			floatField(avg.ReturnDepthAvg),
			floatField(avg.ReturnHeightAvg),
			floatField(avg.ReturnKitchenPct),
			stringField(avg.ServeDepthGrade),
			stringField(avg.ServeHeightGrade),
			stringField(avg.ServeKitchenGrade),
			stringField(avg.ReturnDepthGrade),
			stringField(avg.ReturnHeightGrade),
			stringField(avg.ReturnKitchenGrade),
			avg.OverallGrade,
		})
	}
	return writeCSV(dir, PlayerAveragesFile, header, rows)
}

func writeCSV(dir, name string, header []string, rows [][]string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write %s header: %w", name, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("write %s rows: %w", name, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush %s: %w", name, err)
	}
	return path, nil
}

func intField(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func msField(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func floatField(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func boolField(v bool) string {
	return strconv.FormatBool(v)
}

func stringField(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
