// Package logging builds the application's slog loggers and provides attr
// helpers plus context-derived structured fields used across components.
package logging
