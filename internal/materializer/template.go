package materializer

import (
	"strings"
	"time"

	"inksync/internal/scanner"
)

// DefaultTemplate is the note layout used when the configuration does not
// supply one. The leading frontmatter block is dropped when include_metadata
// is disabled.
const DefaultTemplate = `---
title: "{{title}}"
date: {{date}}
category: {{category}}
tags: [{{tags}}]
job: {{job_id}}
synced: {{synced_at}}
---

{{body}}
`

const frontmatterDelimiter = "---"

// render fills the template placeholders from the note.
func (m *Materializer) render(jobID string, note *scanner.Note) string {
	date := "unknown"
	if parsed, ok := note.ParsedDate(); ok {
		date = parsed.Format("2006-01-02")
	}

	replacer := strings.NewReplacer(
		"{{title}}", strings.ReplaceAll(note.Title, `"`, `'`),
		"{{body}}", strings.TrimRight(note.Markdown, "\n"),
		"{{summary}}", note.Summary,
		"{{date}}", date,
		"{{tags}}", strings.Join(note.Tags, ", "),
		"{{category}}", string(scanner.CanonicalCategory(string(note.Category))),
		"{{job_id}}", jobID,
		"{{synced_at}}", m.now().UTC().Format(time.RFC3339),
	)

	template := m.template
	if !m.includeMetadata {
		template = stripMetadataHeader(template)
	}
	out := replacer.Replace(template)
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

// stripMetadataHeader removes a leading frontmatter block from the template.
// Templates without one are returned unchanged.
func stripMetadataHeader(template string) string {
	trimmed := strings.TrimLeft(template, "\n")
	if !strings.HasPrefix(trimmed, frontmatterDelimiter+"\n") {
		return template
	}
	rest := trimmed[len(frontmatterDelimiter)+1:]
	idx := strings.Index(rest, "\n"+frontmatterDelimiter+"\n")
	if idx < 0 {
		return template
	}
	return strings.TrimLeft(rest[idx+len(frontmatterDelimiter)+2:], "\n")
}
