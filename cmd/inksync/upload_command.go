package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"inksync/internal/notifications"
	"inksync/internal/scanner"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload note scans for processing",
		Long:  "Uploads one or more scanned note images to the processing service and prints the queued job IDs.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureAPI()
			if err != nil {
				return err
			}

			files := make([]scanner.UploadFile, 0, len(args))
			for _, arg := range args {
				data, err := os.ReadFile(arg)
				if err != nil {
					return fmt.Errorf("read %s: %w", arg, err)
				}
				files = append(files, scanner.UploadFile{
					Name:        filepath.Base(arg),
					ContentType: contentTypeFor(arg),
					Data:        data,
				})
			}

			result, err := api.Upload(cmd.Context(), files)
			if err != nil {
				return fmt.Errorf("upload: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, id := range result.JobIDs {
				fmt.Fprintf(out, "queued %s\n", id)
			}
			if len(result.Failures) > 0 {
				rows := make([][]string, 0, len(result.Failures))
				for _, failure := range result.Failures {
					rows = append(rows, []string{failure.Filename, failure.Reason})
				}
				fmt.Fprintln(out, renderTable([]string{"File", "Reason"}, rows, nil))
			}
			fmt.Fprintf(out, "%d queued, %d failed\n", len(result.JobIDs), len(result.Failures))

			if cfg, cfgErr := ctx.ensureConfig(); cfgErr == nil {
				notifications.NewService(cfg, nil).NotifyUploadCompleted(cmd.Context(), len(result.JobIDs), len(result.Failures))
			}

			if len(result.JobIDs) == 0 && len(result.Failures) > 0 {
				return fmt.Errorf("all %d file(s) failed to upload", len(result.Failures))
			}
			return nil
		},
	}
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
