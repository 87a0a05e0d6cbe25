package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"inksync/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())
	configCmd.AddCommand(newConfigPathCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if err := config.WriteSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set api_key (or export INKSYNC_API_KEY); without one inksync runs against a local mock service.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file does not exist; showing defaults")
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "data_dir:            %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "api.base_url:        %s\n", cfg.API.BaseURL)
			fmt.Fprintf(out, "api.api_key:         %s\n", maskKey(cfg.API.APIKey))
			fmt.Fprintf(out, "upload.max_batch:    %d\n", cfg.Upload.MaxBatchSize)
			fmt.Fprintf(out, "upload.max_file_mib: %d\n", cfg.Upload.MaxFileSizeMiB)
			fmt.Fprintf(out, "sync.auto_sync:      %s\n", yesNo(cfg.Sync.AutoSync))
			fmt.Fprintf(out, "sync.interval:       %ds\n", cfg.Sync.IntervalSeconds)
			fmt.Fprintf(out, "sync.retention:      %dd\n", cfg.Sync.RetentionDays)
			fmt.Fprintf(out, "output.dir:          %s\n", cfg.Output.Dir)
			fmt.Fprintf(out, "output.organization: %s\n", cfg.Output.Organization)
			fmt.Fprintf(out, "output.metadata:     %s\n", yesNo(cfg.Output.IncludeMetadata))
			fmt.Fprintf(out, "notifications.topic: %s\n", valueOr(cfg.Notifications.NtfyTopic, "-"))
			fmt.Fprintf(out, "logging.format:      %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "logging.level:       %s\n", cfg.Logging.Level)
			return nil
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the default configuration file path",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func maskKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "(not set; mock service active)"
	}
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
