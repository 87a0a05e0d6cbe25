package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"inksync/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			// Prefer the daemon so the test exercises its configuration.
			if client, err := ctx.dialClient(); err == nil {
				defer client.Close()
				resp, err := client.TestNotification()
				if err != nil {
					return fmt.Errorf("test notification: %w", err)
				}
				if !resp.Sent {
					return fmt.Errorf("test notification: %s", resp.Message)
				}
				fmt.Fprintln(out, resp.Message)
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := notifications.NewService(cfg, nil).TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("test notification: %w", err)
			}
			fmt.Fprintln(out, "notification sent")
			return nil
		},
	}
}
