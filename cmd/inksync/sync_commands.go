package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"inksync/internal/ipc"
	"inksync/internal/ledger"
	"inksync/internal/materializer"
	"inksync/internal/notifications"
	"inksync/internal/syncer"
	"inksync/internal/vault"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Control background synchronization",
	}

	syncCmd.AddCommand(newSyncNowCommand(ctx))
	syncCmd.AddCommand(newSyncStatusCommand(ctx))
	syncCmd.AddCommand(newSyncPauseCommand(ctx))
	syncCmd.AddCommand(newSyncResumeCommand(ctx))
	syncCmd.AddCommand(newSyncResumeAfterErrorCommand(ctx))
	syncCmd.AddCommand(newSyncPruneCommand(ctx))

	return syncCmd
}

func newSyncNowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Run one sync cycle immediately",
		Long:  "Runs a sync cycle through the daemon when it is reachable, otherwise directly against the remote service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if client, err := ctx.dialClient(); err == nil {
				defer client.Close()
				resp, err := client.SyncNow()
				if err != nil {
					return fmt.Errorf("sync: %w", err)
				}
				printSyncOutcome(out, resp.Total, resp.Synced, resp.Failures)
				return nil
			}

			// No daemon; run the cycle in-process.
			scheduler, store, err := buildLocalEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			report, err := scheduler.SyncNow(cmd.Context(), func(index, total int) {
				fmt.Fprintf(out, "syncing %d/%d\n", index+1, total)
			})
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			printSyncOutcome(out, report.Total, report.Synced, report.Failures)
			return nil
		},
	}
}

// buildLocalEngine wires a one-shot sync engine against the configured
// remote service, sharing the daemon's ledger database.
func buildLocalEngine(ctx *commandContext) (*syncer.Scheduler, *ledger.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	api, err := ctx.ensureAPI()
	if err != nil {
		return nil, nil, err
	}
	store, err := ledger.OpenStore(cfg.LedgerDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger store: %w", err)
	}
	state, err := store.Load(context.Background())
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("load ledger state: %w", err)
	}
	ldg := ledger.NewFromState(state, store)

	v, err := vault.NewDir(cfg.Output.Dir)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	mat, err := materializer.NewFromConfig(cfg, v, nil)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	notifier := notifications.NewService(cfg, nil)
	scheduler := syncer.New(api, ldg, mat, notifier,
		time.Duration(cfg.Sync.IntervalSeconds)*time.Second, false, nil)
	return scheduler, store, nil
}

func printSyncOutcome(out io.Writer, total, synced int, failures []syncer.JobFailure) {
	fmt.Fprintf(out, "synced %d of %d note(s)\n", synced, total)
	if len(failures) > 0 {
		rows := make([][]string, 0, len(failures))
		for _, failure := range failures {
			rows = append(rows, []string{failure.JobID, truncate(failure.Reason, 60)})
		}
		fmt.Fprintln(out, renderTable([]string{"Job", "Reason"}, rows, nil))
	}
}

func newSyncStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show scheduler and ledger status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(ctx, cmd)
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(ctx, cmd)
		},
	}
}

func runStatus(ctx *commandContext, cmd *cobra.Command) error {
	return ctx.withClient(func(client *ipc.Client) error {
		status, err := client.Status()
		if err != nil {
			return fmt.Errorf("query status: %w", err)
		}

		out := cmd.OutOrStdout()
		colorize := shouldColorize(out)

		for _, line := range renderSectionHeader("Daemon", colorize) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, renderStatusLine("Running", boolKind(status.Running), fmt.Sprintf("pid %d", status.PID), colorize))
		fmt.Fprintln(out, renderStatusLine("Started", statusInfo, formatTime(status.StartedAt), colorize))
		fmt.Fprintln(out, renderStatusLine("Ledger", statusInfo, status.LedgerDBPath, colorize))
		fmt.Fprintln(out, renderStatusLine("Vault", statusInfo, status.VaultDir, colorize))

		for _, line := range renderSectionHeader("Sync", colorize) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, renderStatusLine("State", stateKind(status.State), status.State, colorize))
		fmt.Fprintln(out, renderStatusLine("Auto-sync", boolKind(status.AutoSync), "", colorize))
		fmt.Fprintln(out, renderStatusLine("Paused", statusInfo, yesNo(status.Paused), colorize))
		fmt.Fprintln(out, renderStatusLine("Interval", statusInfo, fmt.Sprintf("%ds", status.IntervalSeconds), colorize))
		if status.NextRunInSeconds > 0 {
			fmt.Fprintln(out, renderStatusLine("Next poll", statusInfo, fmt.Sprintf("in %ds", status.NextRunInSeconds), colorize))
		}
		fmt.Fprintln(out, renderStatusLine("Synced notes", statusInfo, fmt.Sprintf("%d", status.SyncedCount), colorize))
		fmt.Fprintln(out, renderStatusLine("Last sync", statusInfo, formatTime(status.LastSync), colorize))
		if status.ConsecutiveFailures > 0 {
			fmt.Fprintln(out, renderStatusLine("Failures", statusWarn, fmt.Sprintf("%d consecutive", status.ConsecutiveFailures), colorize))
		}
		if status.LastError != "" {
			fmt.Fprintln(out, renderStatusLine("Last error", statusError, status.LastError, colorize))
		}
		return nil
	})
}

func boolKind(value bool) statusKind {
	if value {
		return statusOK
	}
	return statusWarn
}

func stateKind(state string) statusKind {
	switch state {
	case string(syncer.StateStoppedOnError):
		return statusError
	case string(syncer.StateIdle):
		return statusWarn
	default:
		return statusOK
	}
}

func newSyncPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Suspend automatic polling",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Pause(); err != nil {
					return fmt.Errorf("pause: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "automatic sync paused")
				return nil
			})
		},
	}
}

func newSyncResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume automatic polling",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Resume(); err != nil {
					return fmt.Errorf("resume: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "automatic sync resumed")
				return nil
			})
		},
	}
}

func newSyncResumeAfterErrorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume-after-error",
		Short: "Restart automatic sync after repeated failures stopped it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.ResumeAfterError(); err != nil {
					return fmt.Errorf("resume after error: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "automatic sync restarted")
				return nil
			})
		},
	}
}

func newSyncPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove ledger records past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Prune()
				if err != nil {
					return fmt.Errorf("prune: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d ledger record(s)\n", resp.Removed)
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return fmt.Errorf("stop daemon: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "daemon stopping")
				return nil
			})
		},
	}
}
