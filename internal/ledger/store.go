package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current ledger schema version. Bump this when the
// schema changes; mismatched databases are rejected rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("ledger schema version mismatch")

const lastSyncKey = "last_sync_time"

// Store persists ledger state in SQLite. It implements Persister with a
// full-state write-through save, matching the ledger's persistence contract.
type Store struct {
	db   *sql.DB
	path string
}

var _ Persister = (*Store)(nil)

// OpenStore initializes or connects to the ledger database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Save replaces the persisted ledger state atomically.
func (s *Store) Save(ctx context.Context, state State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM synced_records"); err != nil {
		return fmt.Errorf("clear synced records: %w", err)
	}
	for _, record := range state.Records {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO synced_records (job_id, synced_at, location) VALUES (?, ?, ?)",
			record.JobID, record.SyncedAt.UTC().Format(time.RFC3339Nano), record.Location,
		)
		if err != nil {
			return fmt.Errorf("insert record %s: %w", record.JobID, err)
		}
	}

	lastSync := ""
	if !state.LastSync.IsZero() {
		lastSync = state.LastSync.UTC().Format(time.RFC3339Nano)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO sync_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		lastSyncKey, lastSync,
	)
	if err != nil {
		return fmt.Errorf("record last sync time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load reads the persisted ledger state in insertion order.
func (s *Store) Load(ctx context.Context) (State, error) {
	var state State

	rows, err := s.db.QueryContext(ctx,
		"SELECT job_id, synced_at, location FROM synced_records ORDER BY position ASC")
	if err != nil {
		return state, fmt.Errorf("query synced records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var record Record
		var syncedAt string
		if err := rows.Scan(&record.JobID, &syncedAt, &record.Location); err != nil {
			return state, fmt.Errorf("scan record: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, syncedAt)
		if err != nil {
			return state, fmt.Errorf("parse synced_at for %s: %w", record.JobID, err)
		}
		record.SyncedAt = parsed
		state.Records = append(state.Records, record)
	}
	if err := rows.Err(); err != nil {
		return state, fmt.Errorf("iterate records: %w", err)
	}

	var lastSync string
	err = s.db.QueryRowContext(ctx,
		"SELECT value FROM sync_meta WHERE key = ?", lastSyncKey).Scan(&lastSync)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return state, fmt.Errorf("read last sync time: %w", err)
	case lastSync != "":
		parsed, parseErr := time.Parse(time.RFC3339Nano, lastSync)
		if parseErr != nil {
			return state, fmt.Errorf("parse last sync time: %w", parseErr)
		}
		state.LastSync = parsed
	}
	return state, nil
}
