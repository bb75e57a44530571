package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"courtreel/internal/api"
	"courtreel/internal/config"
	"courtreel/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage queued jobs",
	}

	jobsCmd.AddCommand(newJobsAddCommand(ctx))
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	jobsCmd.AddCommand(newJobsHealthCommand(ctx))

	return jobsCmd
}

func newJobsAddCommand(ctx *commandContext) *cobra.Command {
	var name string
	var videoPath string
	var telemetryPath string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Queue a job for the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			video := strings.TrimSpace(videoPath)
			telemetry := strings.TrimSpace(telemetryPath)
			if video == "" && telemetry == "" {
				return fmt.Errorf("at least one of --video or --telemetry is required")
			}
			var err error
			if video != "" {
				if video, err = config.ExpandPath(video); err != nil {
					return err
				}
			}
			if telemetry != "" {
				if telemetry, err = config.ExpandPath(telemetry); err != nil {
					return err
				}
			}
			jobName := strings.TrimSpace(name)
			if jobName == "" {
				return fmt.Errorf("--name is required")
			}

			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				job, err := store.NewJob(cmd.Context(), jobName, video, telemetry)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %d (%s)\n", job.ID, job.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Job name")
	cmd.Flags().StringVarP(&videoPath, "video", "v", "", "Match recording to upload for vision processing")
	cmd.Flags().StringVarP(&telemetryPath, "telemetry", "t", "", "Telemetry file to process directly")
	return cmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			for _, raw := range listStatuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.Name,
						string(job.Status),
						job.ProgressStage,
						job.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				table := renderTable(
					[]string{"ID", "Name", "Status", "Stage", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <jobID>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				job, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", id)
				}
				if jsonOutput {
					// The API view omits the webhook token.
					return writeJSON(cmd, api.FromJob(job))
				}
				printJob(cmd, job)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the job as JSON")
	return cmd
}

func printJob(cmd *cobra.Command, job *queue.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %d: %s\n", job.ID, job.Name)
	fmt.Fprintf(out, "  Status:      %s\n", job.Status)
	if job.VID != "" {
		fmt.Fprintf(out, "  Session:     %s\n", job.VID)
	}
	if job.ProgressStage != "" {
		fmt.Fprintf(out, "  Stage:       %s (%s)\n", job.ProgressStage, job.ProgressMsg)
	}
	if job.SourceVideo != "" {
		fmt.Fprintf(out, "  Video:       %s\n", job.SourceVideo)
	}
	if job.TelemetryPath != "" {
		fmt.Fprintf(out, "  Telemetry:   %s\n", job.TelemetryPath)
	}
	if job.WorkDir != "" {
		fmt.Fprintf(out, "  Work dir:    %s\n", job.WorkDir)
	}
	if job.Attempts > 0 {
		fmt.Fprintf(out, "  Attempts:    %d\n", job.Attempts)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:       %s\n", job.ErrorMessage)
	}
	fmt.Fprintf(out, "  Created:     %s\n", job.CreatedAt.Local().Format(time.RFC1123))
	if job.CompletedAt != nil {
		fmt.Fprintf(out, "  Completed:   %s\n", job.CompletedAt.Local().Format(time.RFC1123))
	}
	if job.ResultJSON != "" {
		fmt.Fprintf(out, "  Result:      %s\n", job.ResultJSON)
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Retry failed jobs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid job id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed jobs\n", updated)
					return nil
				}
				for _, id := range ids {
					job, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if job == nil {
						fmt.Fprintf(out, "Job %d not found\n", id)
						continue
					}
					if job.Status != queue.StatusFailed {
						fmt.Fprintf(out, "Job %d is not in failed state\n", id)
						continue
					}
					updated, err := store.RetryFailed(cmd.Context(), id)
					if err != nil {
						return err
					}
					if updated > 0 {
						fmt.Fprintf(out, "Job %d reset for retry\n", id)
					} else {
						fmt.Fprintf(out, "Job %d is not in failed state\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				var removed int64
				var err error
				if clearCompleted {
					removed, err = store.ClearCompleted(cmd.Context())
				} else {
					removed, err = store.Clear(cmd.Context())
				}
				if err != nil {
					return err
				}
				label := "jobs"
				if clearCompleted {
					label = "completed jobs"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed jobs")
	return cmd
}

func newJobsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPending: %d\nProcessing: %d\nCompleted: %d\nFailed: %d\n",
					health.Total,
					health.Pending,
					health.Processing,
					health.Completed,
					health.Failed,
				)
				return nil
			})
		},
	}
}
