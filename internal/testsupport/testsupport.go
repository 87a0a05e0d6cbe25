// Package testsupport provides helpers for constructing test fixtures.
package testsupport

import (
	"path/filepath"
	"testing"

	"inksync/internal/config"
)

// NewConfig returns a validated configuration rooted in temp directories,
// suitable for tests that touch the filesystem.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Output.Dir = filepath.Join(base, "vault")
	cfg.API.APIKey = "test-key"
	cfg.Sync.AutoSync = false
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	return &cfg
}
