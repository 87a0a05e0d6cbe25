package config

import (
	"errors"
	"fmt"
)

var validOrganizations = map[string]struct{}{
	"flat":     {},
	"date":     {},
	"category": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url must be set")
	}
	if c.API.RequestTimeout <= 0 {
		return errors.New("api.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.MaxBatchSize <= 0 {
		return errors.New("upload.max_batch_size must be positive")
	}
	if c.Upload.MaxFileSizeMiB <= 0 {
		return errors.New("upload.max_file_size_mib must be positive")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.IntervalSeconds < MinSyncIntervalSeconds || c.Sync.IntervalSeconds > MaxSyncIntervalSeconds {
		return fmt.Errorf("sync.interval_seconds must be between %d and %d", MinSyncIntervalSeconds, MaxSyncIntervalSeconds)
	}
	if c.Sync.RetentionDays <= 0 {
		return errors.New("sync.retention_days must be positive")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.Dir == "" {
		return errors.New("output.dir must be set")
	}
	if _, ok := validOrganizations[c.Output.Organization]; !ok {
		return fmt.Errorf("output.organization must be one of flat, date, category (got %q)", c.Output.Organization)
	}
	if c.Output.MaxFilenameLength <= 0 {
		return errors.New("output.max_filename_length must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}
