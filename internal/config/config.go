package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// DataDir holds the ledger database, daemon lock, control socket, and logs.
	DataDir string `toml:"data_dir"`
}

// API contains configuration for the remote scanning service.
type API struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Upload contains limits enforced before files enter the upload pipeline.
type Upload struct {
	MaxBatchSize   int `toml:"max_batch_size"`
	MaxFileSizeMiB int `toml:"max_file_size_mib"`
}

// Sync contains configuration for the background synchronization engine.
type Sync struct {
	AutoSync        bool `toml:"auto_sync"`
	IntervalSeconds int  `toml:"interval_seconds"`
	RetentionDays   int  `toml:"retention_days"`
}

// Output contains configuration for materialized note artifacts.
type Output struct {
	Dir               string `toml:"dir"`
	Organization      string `toml:"organization"`
	Template          string `toml:"template"`
	IncludeMetadata   bool   `toml:"include_metadata"`
	MaxFilenameLength int    `toml:"max_filename_length"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Sync           bool   `toml:"sync"`
	Upload         bool   `toml:"upload"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for inksync.
//
// Configuration sections by subsystem:
//   - Paths: data directory for daemon state
//   - API: remote scanning service endpoint and credentials
//   - Upload: batch and file size limits
//   - Sync: auto-sync flag, poll interval, ledger retention
//   - Output: vault directory, organization strategy, note template
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Upload        Upload        `toml:"upload"`
	Sync          Sync          `toml:"sync"`
	Output        Output        `toml:"output"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/inksync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all defaults applied and paths expanded. The boolean reports
// whether a config file was found; when it is false the defaults are used.
func Load(path string) (*Config, string, bool, error) {
	resolved := strings.TrimSpace(path)
	var err error
	if resolved == "" {
		resolved, err = DefaultConfigPath()
		if err != nil {
			return nil, "", false, fmt.Errorf("resolve config path: %w", err)
		}
	} else {
		resolved, err = ExpandPath(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("expand config path: %w", err)
		}
	}

	cfg := Default()
	found := true
	data, readErr := os.ReadFile(resolved)
	switch {
	case readErr == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolved, true, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(readErr, fs.ErrNotExist):
		if strings.TrimSpace(path) != "" {
			return nil, resolved, false, fmt.Errorf("config file %s not found", resolved)
		}
		found = false
	default:
		return nil, resolved, false, fmt.Errorf("read config %s: %w", resolved, readErr)
	}

	applyEnvOverrides(&cfg)
	if err := cfg.normalize(); err != nil {
		return nil, resolved, found, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, found, err
	}
	return &cfg, resolved, found, nil
}

func applyEnvOverrides(cfg *Config) {
	if key := strings.TrimSpace(os.Getenv("INKSYNC_API_KEY")); key != "" {
		cfg.API.APIKey = key
	}
	if url := strings.TrimSpace(os.Getenv("INKSYNC_API_URL")); url != "" {
		cfg.API.BaseURL = url
	}
}

// WriteSample writes the embedded sample configuration to the given path,
// refusing to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file %s already exists", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the application writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Output.Dir} {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LedgerDBPath returns the path of the SQLite ledger database.
func (c *Config) LedgerDBPath() string {
	return filepath.Join(c.Paths.DataDir, "ledger.db")
}

// LockPath returns the daemon single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "inksyncd.lock")
}

// SocketPath returns the daemon control socket path.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "inksyncd.sock")
}

// LogPath returns the daemon log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.DataDir, "inksync.log")
}

// ExpandPath expands a leading ~ to the current user's home directory and
// returns an absolute path.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path must not be empty")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = ExpandPath(defaultString(c.Paths.DataDir, defaultDataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Output.Dir, err = ExpandPath(defaultString(c.Output.Dir, defaultOutputDir)); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	c.API.APIKey = strings.TrimSpace(c.API.APIKey)
	c.Output.Organization = strings.ToLower(strings.TrimSpace(c.Output.Organization))
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
