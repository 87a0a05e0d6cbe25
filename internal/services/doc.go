// Package services defines shared utilities consumed by the sync engine and
// external integrations: context helpers that stamp job and correlation
// identifiers for logging, and structured error markers plus the Wrap helper
// for consistent failure classification.
package services
