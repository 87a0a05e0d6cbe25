package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check remote service availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureAPI()
			if err != nil {
				return err
			}
			health, err := api.CheckHealth(cmd.Context())
			if err != nil {
				return fmt.Errorf("health check: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			kind := statusOK
			if !strings.HasPrefix(health.Status, "ok") {
				kind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Service", kind, health.Status, colorize))
			fmt.Fprintln(out, renderStatusLine("Reported at", statusInfo, formatTime(health.Timestamp), colorize))
			return nil
		},
	}
}
