package materializer

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"inksync/internal/config"
	"inksync/internal/logging"
	"inksync/internal/scanner"
	"inksync/internal/services"
	"inksync/internal/textutil"
	"inksync/internal/vault"
)

// Organization selects how materialized notes are laid out inside the vault.
type Organization string

const (
	// OrganizationFlat writes every note directly into the vault root.
	OrganizationFlat Organization = "flat"
	// OrganizationDate buckets notes by their extracted date, YYYY/MM.
	OrganizationDate Organization = "date"
	// OrganizationCategory buckets notes by canonical category.
	OrganizationCategory Organization = "category"
)

// ParseOrganization validates an organization mode from configuration.
func ParseOrganization(value string) (Organization, error) {
	normalized := Organization(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case OrganizationFlat, OrganizationDate, OrganizationCategory:
		return normalized, nil
	}
	return "", services.Wrap(services.ErrValidation, "materializer", "parse organization",
		fmt.Sprintf("unknown organization %q", value), nil)
}

// maxCollisionAttempts bounds the filename collision probe. A hundred notes
// sharing a sanitized title in one directory means something upstream is
// broken, so we fail instead of probing forever.
const maxCollisionAttempts = 100

// Materializer turns fetched note results into markdown files in the vault.
type Materializer struct {
	vault             vault.Vault
	organization      Organization
	template          string
	includeMetadata   bool
	maxFilenameLength int
	logger            *slog.Logger
	now               func() time.Time
}

// Option adjusts materializer construction.
type Option func(*Materializer)

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Materializer) { m.now = now }
}

// New creates a materializer writing through the given vault.
func New(v vault.Vault, organization Organization, template string, includeMetadata bool, maxFilenameLength int, logger *slog.Logger, opts ...Option) *Materializer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if template == "" {
		template = DefaultTemplate
	}
	if maxFilenameLength <= 0 {
		maxFilenameLength = 120
	}
	m := &Materializer{
		vault:             v,
		organization:      organization,
		template:          template,
		includeMetadata:   includeMetadata,
		maxFilenameLength: maxFilenameLength,
		logger:            logger,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewFromConfig builds a materializer from the output configuration section.
func NewFromConfig(cfg *config.Config, v vault.Vault, logger *slog.Logger, opts ...Option) (*Materializer, error) {
	organization, err := ParseOrganization(cfg.Output.Organization)
	if err != nil {
		return nil, err
	}
	template := cfg.Output.Template
	if template == "" {
		template = DefaultTemplate
	}
	return New(v, organization, template, cfg.Output.IncludeMetadata, cfg.Output.MaxFilenameLength, logger, opts...), nil
}

// Materialize renders the note and writes it into the vault, returning the
// resolved location of the written file. Existing files are never overwritten;
// colliding names get a numeric suffix.
func (m *Materializer) Materialize(ctx context.Context, jobID string, note *scanner.Note) (string, error) {
	if note == nil {
		return "", services.Wrap(services.ErrValidation, "materializer", "materialize", "note is nil", nil)
	}

	dir := m.targetDir(note)
	if dir != "" {
		if err := m.vault.MkdirAll(ctx, dir); err != nil {
			return "", services.Wrap(nil, "materializer", "materialize", "create target directory", err)
		}
	}

	base := textutil.SanitizeFileName(note.Title, m.maxFilenameLength)
	if base == "" {
		base = "note-" + textutil.SanitizeToken(jobID)
	}

	relPath, err := m.resolveCollision(ctx, dir, base)
	if err != nil {
		return "", err
	}

	content := m.render(jobID, note)
	location, err := m.vault.WriteFile(ctx, relPath, []byte(content))
	if err != nil {
		return "", services.Wrap(nil, "materializer", "materialize", "write note", err)
	}

	m.logger.Info("materialized note",
		logging.String(logging.FieldJobID, jobID),
		logging.String("path", relPath),
		logging.String("category", string(note.Category)))
	return location, nil
}

// targetDir returns the vault-relative directory for the note, or "" for the
// vault root.
func (m *Materializer) targetDir(note *scanner.Note) string {
	switch m.organization {
	case OrganizationDate:
		date, ok := note.ParsedDate()
		if !ok {
			date = m.now().UTC()
		}
		return path.Join(date.Format("2006"), date.Format("01"))
	case OrganizationCategory:
		return textutil.SanitizeToken(string(scanner.CanonicalCategory(string(note.Category))))
	default:
		return ""
	}
}

// resolveCollision finds the first free filename for base in dir. Attempts are
// bounded so a pathological directory fails loudly instead of spinning.
func (m *Materializer) resolveCollision(ctx context.Context, dir, base string) (string, error) {
	for attempt := 0; attempt < maxCollisionAttempts; attempt++ {
		name := base + ".md"
		if attempt > 0 {
			name = fmt.Sprintf("%s-%d.md", base, attempt)
		}
		candidate := path.Join(dir, name)
		exists, err := m.vault.Exists(ctx, candidate)
		if err != nil {
			return "", services.Wrap(nil, "materializer", "materialize", "probe existing file", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", services.Wrap(nil, "materializer", "materialize",
		fmt.Sprintf("no free filename for %q after %d attempts", base, maxCollisionAttempts), nil)
}
