package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"inksync/internal/ledger"
	"inksync/internal/scanner"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage remote processing jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsResultCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryAllCommand(ctx))
	jobsCmd.AddCommand(newJobsDeleteCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List processing jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status scanner.JobStatus
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				parsed, ok := scanner.ParseJobStatus(trimmed)
				if !ok {
					return fmt.Errorf("unknown status %q (expected pending, processing, completed, or failed)", trimmed)
				}
				status = parsed
			}

			api, err := ctx.ensureAPI()
			if err != nil {
				return err
			}
			jobs, err := api.ListJobs(cmd.Context(), status)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs found")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.ID,
					string(job.Status),
					formatTime(job.CreatedAt),
					strconv.Itoa(job.Attempts),
					truncate(job.SourceFile, 30),
					truncate(job.Error, 40),
				})
			}
			headers := []string{"ID", "Status", "Created", "Attempts", "Source", "Error"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Filter by status (pending, processing, completed, failed)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show details for a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureAPI()
			if err != nil {
				return err
			}
			job, err := api.GetJob(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get job: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:         %s\n", job.ID)
			fmt.Fprintf(out, "Status:     %s\n", job.Status)
			fmt.Fprintf(out, "Created:    %s\n", formatTime(job.CreatedAt))
			fmt.Fprintf(out, "Started:    %s\n", formatTimePtr(job.StartedAt))
			fmt.Fprintf(out, "Completed:  %s\n", formatTimePtr(job.CompletedAt))
			fmt.Fprintf(out, "Attempts:   %d\n", job.Attempts)
			fmt.Fprintf(out, "Source:     %s\n", job.SourceFile)
			fmt.Fprintf(out, "Has result: %s\n", yesNo(job.HasResult))
			if job.Error != "" {
				fmt.Fprintf(out, "Error:      %s\n", job.Error)
			}
			return nil
		},
	}
}

func newJobsResultCommand(ctx *commandContext) *cobra.Command {
	var showMeta bool

	cmd := &cobra.Command{
		Use:   "result <job-id>",
		Short: "Print the processed note for a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureAPI()
			if err != nil {
				return err
			}
			note, err := api.GetResult(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get result: %w", err)
			}

			out := cmd.OutOrStdout()
			if showMeta {
				fmt.Fprintf(out, "Title:     %s\n", note.Title)
				fmt.Fprintf(out, "Category:  %s\n", categoryLabel(note.Category))
				fmt.Fprintf(out, "Date:      %s\n", valueOr(note.Date, "-"))
				fmt.Fprintf(out, "Tags:      %s\n", valueOr(strings.Join(note.Tags, ", "), "-"))
				fmt.Fprintf(out, "Summary:   %s\n", valueOr(note.Summary, "-"))
				fmt.Fprintf(out, "Processed: %s\n\n", formatTime(note.ProcessedAt))
			}
			fmt.Fprintln(out, note.Markdown)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMeta, "meta", false, "Print extracted metadata before the markdown body")
	return cmd
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>...",
		Short: "Retry failed jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureAPI()
			if err != nil {
				return err
			}
			return retryJobs(cmd, api, args)
		},
	}
}

func newJobsRetryAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry-all",
		Short: "Retry every failed job",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureAPI()
			if err != nil {
				return err
			}
			jobs, err := api.ListJobs(cmd.Context(), scanner.JobStatusFailed)
			if err != nil {
				return fmt.Errorf("list failed jobs: %w", err)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No failed jobs to retry")
				return nil
			}
			ids := make([]string, 0, len(jobs))
			for _, job := range jobs {
				ids = append(ids, job.ID)
			}
			return retryJobs(cmd, api, ids)
		},
	}
}

// retryJobs retries each job independently: one refusal does not abort the
// rest, and the command fails only if nothing was retried.
func retryJobs(cmd *cobra.Command, api scanner.API, ids []string) error {
	out := cmd.OutOrStdout()
	retried := 0
	for _, id := range ids {
		if err := api.RetryJob(cmd.Context(), id); err != nil {
			if errors.Is(err, scanner.ErrJobNotFailed) {
				fmt.Fprintf(out, "skipped %s: job is not in the failed state\n", id)
				continue
			}
			fmt.Fprintf(out, "failed to retry %s: %v\n", id, err)
			continue
		}
		fmt.Fprintf(out, "retrying %s\n", id)
		retried++
	}
	fmt.Fprintf(out, "%d of %d job(s) queued for retry\n", retried, len(ids))
	if retried == 0 {
		return fmt.Errorf("no jobs were retried")
	}
	return nil
}

func newJobsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>...",
		Short: "Delete jobs and their stored results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureAPI()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			deleted := make([]string, 0, len(args))
			for _, id := range args {
				if err := api.DeleteJob(cmd.Context(), id); err != nil {
					fmt.Fprintf(out, "failed to delete %s: %v\n", id, err)
					continue
				}
				fmt.Fprintf(out, "deleted %s\n", id)
				deleted = append(deleted, id)
			}
			if len(deleted) > 0 {
				if err := forgetSyncedJobs(cmd.Context(), ctx, deleted); err != nil {
					fmt.Fprintf(out, "warning: %v\n", err)
				}
			}
			if len(deleted) < len(args) {
				return fmt.Errorf("deleted %d of %d job(s)", len(deleted), len(args))
			}
			return nil
		},
	}
}

// forgetSyncedJobs drops ledger entries for jobs that no longer exist
// remotely, so the next poll can never skip a re-uploaded note. A running
// daemon owns the ledger, so the removal goes through it; writing to the
// store directly would be undone by the daemon's next write-through.
func forgetSyncedJobs(cmdCtx context.Context, ctx *commandContext, jobIDs []string) error {
	if client, err := ctx.dialClient(); err == nil {
		defer client.Close()
		if _, err := client.Forget(jobIDs); err != nil {
			return fmt.Errorf("forget ledger entries: %w", err)
		}
		return nil
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ledger.OpenStore(cfg.LedgerDBPath())
	if err != nil {
		return fmt.Errorf("open ledger store: %w", err)
	}
	defer store.Close()
	state, err := store.Load(cmdCtx)
	if err != nil {
		return fmt.Errorf("load ledger state: %w", err)
	}
	ldg := ledger.NewFromState(state, store)
	for _, id := range jobIDs {
		if err := ldg.RemoveSynced(cmdCtx, id); err != nil {
			return fmt.Errorf("remove ledger entry %s: %w", id, err)
		}
	}
	return nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
