package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"courtreel/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lineCount int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			path := logs.Path(cfg)
			lines, offset, err := logs.Tail(path, lineCount)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			err = logs.Follow(cmd.Context(), path, offset, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lineCount, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new log lines")
	return cmd
}
