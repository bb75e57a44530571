package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"courtreel/internal/clips"
	"courtreel/internal/config"
	"courtreel/internal/logging"
	"courtreel/internal/pipeline"
	"courtreel/internal/queue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var videoPath string
	var workDir string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run <telemetry.jsonl>",
		Short: "Run the pipeline once over a local telemetry file",
		Long: "Run parses the telemetry file, derives per-player analytics, and " +
			"writes reports and delivery archives to a working directory. With " +
			"--video it also cuts highlight reels from the recording. The daemon " +
			"and job queue are not involved.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			telemetry, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(telemetry); err != nil {
				return fmt.Errorf("telemetry file: %w", err)
			}

			video := strings.TrimSpace(videoPath)
			if video != "" {
				video, err = config.ExpandPath(video)
				if err != nil {
					return err
				}
				if _, err := os.Stat(video); err != nil {
					return fmt.Errorf("video file: %w", err)
				}
			}

			dir := strings.TrimSpace(workDir)
			if dir == "" {
				dir = filepath.Join(cfg.Paths.DataDir, "run_"+time.Now().UTC().Format("20060102_150405"))
			} else if dir, err = config.ExpandPath(dir); err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create work directory: %w", err)
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			job := &queue.Job{
				Name:          strings.TrimSuffix(filepath.Base(telemetry), filepath.Ext(telemetry)),
				SourceVideo:   video,
				TelemetryPath: telemetry,
				WorkDir:       dir,
			}

			out := cmd.OutOrStdout()
			runner := pipeline.NewRunner(cfg, logger)
			outcome, err := runner.Run(cmd.Context(), job, func(stage, message string) {
				fmt.Fprintf(out, "[%s] %s\n", stage, message)
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, outcome)
			}
			printOutcome(out, dir, outcome)
			return nil
		},
	}

	cmd.Flags().StringVarP(&videoPath, "video", "v", "", "Match recording to cut reels from")
	cmd.Flags().StringVarP(&workDir, "workdir", "w", "", "Working directory for run artifacts")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run outcome as JSON")
	return cmd
}

func printOutcome(out io.Writer, workDir string, outcome *pipeline.Outcome) {
	fmt.Fprintln(out)
	if outcome.Degraded {
		fmt.Fprintln(out, "Session id missing from telemetry; reels and delivery were skipped")
	}
	printer := message.NewPrinter(language.English)
	fmt.Fprintf(out, "Session:       %s\n", valueOrDash(outcome.VID))
	printer.Fprintf(out, "Shots:         %d (%d rows skipped)\n", outcome.ShotCount, outcome.SkippedRows)
	fmt.Fprintf(out, "Reports:       %s\n", outcome.ReportDir)
	if outcome.Clips != nil {
		produced := 0
		for _, group := range outcome.Clips.Groups {
			if group.Status == clips.StatusSuccess {
				produced++
			}
		}
		fmt.Fprintf(out, "Reels:         %d of %d groups\n", produced, len(outcome.Clips.Groups))
		for _, group := range outcome.Clips.Groups {
			if group.Link != nil {
				fmt.Fprintf(out, "  %s_player_%d: %s\n", group.Category, group.PlayerID, *group.Link)
			}
		}
	}
	if outcome.Delivery != nil {
		fmt.Fprintf(out, "Archives:      %d player zips\n", len(outcome.Delivery.ZipFiles))
		fmt.Fprintf(out, "Master:        %s\n", outcome.Delivery.MasterZip)
	}
	fmt.Fprintf(out, "Work dir:      %s\n", workDir)
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
