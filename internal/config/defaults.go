package config

const (
	defaultDataDir           = "~/.local/share/inksync"
	defaultOutputDir         = "~/notes/inbox"
	defaultBaseURL           = "https://api.inkwell.dev"
	defaultRequestTimeout    = 30
	defaultMaxBatchSize      = 10
	defaultMaxFileSizeMiB    = 10
	defaultSyncInterval      = 30
	defaultRetentionDays     = 30
	defaultOrganization      = "flat"
	defaultMaxFilenameLength = 120
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"

	// MinSyncIntervalSeconds and MaxSyncIntervalSeconds bound the poll cadence.
	MinSyncIntervalSeconds = 10
	MaxSyncIntervalSeconds = 300
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		API: API{
			BaseURL:        defaultBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Upload: Upload{
			MaxBatchSize:   defaultMaxBatchSize,
			MaxFileSizeMiB: defaultMaxFileSizeMiB,
		},
		Sync: Sync{
			AutoSync:        true,
			IntervalSeconds: defaultSyncInterval,
			RetentionDays:   defaultRetentionDays,
		},
		Output: Output{
			Dir:               defaultOutputDir,
			Organization:      defaultOrganization,
			IncludeMetadata:   true,
			MaxFilenameLength: defaultMaxFilenameLength,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Sync:           true,
			Upload:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
