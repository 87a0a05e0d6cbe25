package materializer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"inksync/internal/materializer"
	"inksync/internal/scanner"
	"inksync/internal/vault"
)

func newVault(t *testing.T) *vault.Dir {
	t.Helper()
	dir, err := vault.NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	return dir
}

func sampleNote() *scanner.Note {
	return &scanner.Note{
		Title:       "Meeting Notes",
		Markdown:    "# Meeting Notes\n\nDiscussed roadmap.",
		Tags:        []string{"work", "roadmap"},
		Date:        "2026-08-14",
		Category:    scanner.CategoryWork,
		Summary:     "Roadmap discussion",
		ProcessedAt: time.Now().UTC(),
	}
}

func TestMaterializeFlatWritesMarkdown(t *testing.T) {
	v := newVault(t)
	m := materializer.New(v, materializer.OrganizationFlat, "", true, 120, nil)

	location, err := m.Materialize(context.Background(), "job-1", sampleNote())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if filepath.Base(location) != "Meeting Notes.md" {
		t.Fatalf("location = %q", location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	content := string(data)
	for _, want := range []string{"title: \"Meeting Notes\"", "date: 2026-08-14", "category: work", "tags: [work, roadmap]", "job: job-1", "Discussed roadmap."} {
		if !strings.Contains(content, want) {
			t.Fatalf("content missing %q:\n%s", want, content)
		}
	}
}

func TestMaterializeWithoutMetadataOmitsFrontmatter(t *testing.T) {
	v := newVault(t)
	m := materializer.New(v, materializer.OrganizationFlat, "", false, 120, nil)

	location, err := m.Materialize(context.Background(), "job-1", sampleNote())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "---") {
		t.Fatalf("frontmatter not stripped:\n%s", content)
	}
	if !strings.HasPrefix(content, "# Meeting Notes") {
		t.Fatalf("body missing:\n%s", content)
	}
}

func TestMaterializeCollisionsGetNumericSuffix(t *testing.T) {
	v := newVault(t)
	m := materializer.New(v, materializer.OrganizationFlat, "", true, 120, nil)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		location, err := m.Materialize(ctx, "job-1", sampleNote())
		if err != nil {
			t.Fatalf("Materialize %d: %v", i, err)
		}
		if seen[location] {
			t.Fatalf("location %q reused", location)
		}
		seen[location] = true
	}
	for _, name := range []string{"Meeting Notes.md", "Meeting Notes-1.md", "Meeting Notes-2.md"} {
		if !seen[filepath.Join(v.Root(), name)] {
			t.Fatalf("missing %q, got %v", name, seen)
		}
	}
}

func TestMaterializeCollisionBound(t *testing.T) {
	v := newVault(t)
	m := materializer.New(v, materializer.OrganizationFlat, "", true, 120, nil)
	ctx := context.Background()

	// Exactly 100 distinct names: the base plus suffixes -1 through -99.
	for i := 0; i < 100; i++ {
		if _, err := m.Materialize(ctx, "job-1", sampleNote()); err != nil {
			t.Fatalf("Materialize %d: %v", i+1, err)
		}
	}
	if _, err := m.Materialize(ctx, "job-1", sampleNote()); err == nil {
		t.Fatal("expected materialization 101 to fail")
	}
	if _, err := os.Stat(filepath.Join(v.Root(), "Meeting Notes-99.md")); err != nil {
		t.Fatalf("highest suffix missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(v.Root(), "Meeting Notes-100.md")); err == nil {
		t.Fatal("suffix -100 must not be written")
	}
}

func TestMaterializeDateOrganization(t *testing.T) {
	v := newVault(t)
	m := materializer.New(v, materializer.OrganizationDate, "", true, 120, nil)

	location, err := m.Materialize(context.Background(), "job-1", sampleNote())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	want := filepath.Join(v.Root(), "2026", "08", "Meeting Notes.md")
	if location != want {
		t.Fatalf("location = %q, want %q", location, want)
	}
}

func TestMaterializeDateOrganizationFallsBackToClock(t *testing.T) {
	v := newVault(t)
	fixed := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	m := materializer.New(v, materializer.OrganizationDate, "", true, 120, nil,
		materializer.WithClock(func() time.Time { return fixed }))

	note := sampleNote()
	note.Date = "not-a-date"
	location, err := m.Materialize(context.Background(), "job-1", note)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	want := filepath.Join(v.Root(), "2026", "03", "Meeting Notes.md")
	if location != want {
		t.Fatalf("location = %q, want %q", location, want)
	}
}

func TestMaterializeCategoryOrganization(t *testing.T) {
	v := newVault(t)
	m := materializer.New(v, materializer.OrganizationCategory, "", true, 120, nil)

	note := sampleNote()
	note.Category = scanner.Category("WORK") // canonicalized downstream
	location, err := m.Materialize(context.Background(), "job-1", note)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	want := filepath.Join(v.Root(), "work", "Meeting Notes.md")
	if location != want {
		t.Fatalf("location = %q, want %q", location, want)
	}
}

func TestMaterializeEmptyTitleFallsBackToJobID(t *testing.T) {
	v := newVault(t)
	m := materializer.New(v, materializer.OrganizationFlat, "", true, 120, nil)

	note := sampleNote()
	note.Title = "???"
	location, err := m.Materialize(context.Background(), "Job 42", note)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if filepath.Base(location) != "note-job_42.md" {
		t.Fatalf("location = %q", location)
	}
}

func TestMaterializeCustomTemplate(t *testing.T) {
	v := newVault(t)
	template := "{{title}}\n\n{{summary}}\n\n{{body}}"
	m := materializer.New(v, materializer.OrganizationFlat, template, true, 120, nil)

	location, err := m.Materialize(context.Background(), "job-1", sampleNote())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "Meeting Notes\n\nRoadmap discussion\n\n# Meeting Notes\n\nDiscussed roadmap.\n"
	if string(data) != want {
		t.Fatalf("content = %q, want %q", data, want)
	}
}

func TestParseOrganization(t *testing.T) {
	for _, value := range []string{"flat", "Date", " CATEGORY "} {
		if _, err := materializer.ParseOrganization(value); err != nil {
			t.Fatalf("ParseOrganization(%q): %v", value, err)
		}
	}
	if _, err := materializer.ParseOrganization("alphabetical"); err == nil {
		t.Fatal("expected error for unknown organization")
	}
}
