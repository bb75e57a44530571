package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"courtreel/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			statuses := deps.CheckBinaries(deps.Required(cfg))
			for _, status := range statuses {
				kind := statusOK
				message := "Ready"
				if status.Command != "" && status.Available {
					message = fmt.Sprintf("Ready (command: %s)", status.Command)
				}
				if !status.Available {
					kind = statusError
					if status.Optional {
						kind = statusWarn
					}
					message = status.Detail
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, message, colorize))
			}

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required dependencies: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}
