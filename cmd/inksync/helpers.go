package main

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"inksync/internal/scanner"
)

var titleCaser = cases.Title(language.English)

// categoryLabel renders a canonical category for display.
func categoryLabel(category scanner.Category) string {
	return titleCaser.String(string(scanner.CanonicalCategory(string(category))))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func truncate(value string, maxLen int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if maxLen <= 3 || len(runes) <= maxLen {
		return value
	}
	return string(runes[:maxLen-3]) + "..."
}
