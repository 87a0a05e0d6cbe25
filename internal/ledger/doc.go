// Package ledger tracks which remote jobs' results have already been
// materialized locally. The in-memory Ledger enforces idempotence and writes
// through an injected Persister on every mutation; Store is the SQLite-backed
// Persister used by the daemon.
package ledger
