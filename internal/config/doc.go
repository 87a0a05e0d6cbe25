// Package config loads, validates, and defaults the TOML configuration that
// drives the CLI and daemon.
package config
