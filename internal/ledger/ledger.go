package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Record is one ledger entry: a job whose result has been materialized.
type Record struct {
	JobID    string    `json:"jobId"`
	SyncedAt time.Time `json:"syncedAt"`
	Location string    `json:"location"`
}

// State is the full persisted ledger: ordered records plus the last sync
// timestamp. It is the sole persisted state of the sync core.
type State struct {
	Records  []Record  `json:"syncedRecords"`
	LastSync time.Time `json:"lastSyncTime"`
}

// Persister saves the full ledger state. Every mutation writes through before
// returning, so an interrupted process loses at most the in-flight mutation.
type Persister interface {
	Save(ctx context.Context, state State) error
}

// Ledger is the idempotent record of which remote jobs have already been
// materialized locally. The timer and user actions can touch it from
// different goroutines, so access is serialized with a mutex.
type Ledger struct {
	mu        sync.Mutex
	records   map[string]Record
	order     []string
	lastSync  time.Time
	persister Persister
}

// New creates an empty ledger writing through the given persister.
func New(persister Persister) *Ledger {
	return NewFromState(State{}, persister)
}

// NewFromState restores a ledger from previously persisted state.
func NewFromState(state State, persister Persister) *Ledger {
	l := &Ledger{
		records:   make(map[string]Record, len(state.Records)),
		order:     make([]string, 0, len(state.Records)),
		lastSync:  state.LastSync,
		persister: persister,
	}
	for _, record := range state.Records {
		if _, ok := l.records[record.JobID]; ok {
			continue
		}
		l.records[record.JobID] = record
		l.order = append(l.order, record.JobID)
	}
	return l
}

// IsSynced reports whether the job's result has already been materialized.
func (l *Ledger) IsSynced(jobID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[jobID]
	return ok
}

// MarkSynced records a materialized job. Marking an already-synced job is a
// silent no-op, preserving at most one record per job without requiring
// callers to check first.
func (l *Ledger) MarkSynced(ctx context.Context, jobID, location string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[jobID]; ok {
		return nil
	}
	l.records[jobID] = Record{JobID: jobID, SyncedAt: time.Now().UTC(), Location: location}
	l.order = append(l.order, jobID)
	return l.persistLocked(ctx)
}

// RemoveSynced deletes the record for a job if present; absent is a no-op.
func (l *Ledger) RemoveSynced(ctx context.Context, jobID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[jobID]; !ok {
		return nil
	}
	delete(l.records, jobID)
	for i, id := range l.order {
		if id == jobID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return l.persistLocked(ctx)
}

// Prune removes records older than maxAgeDays and returns the removed count.
// Nothing is persisted when no record is removed.
func (l *Ledger) Prune(ctx context.Context, maxAgeDays int) (int, error) {
	if maxAgeDays <= 0 {
		return 0, fmt.Errorf("prune: max age must be positive, got %d", maxAgeDays)
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.order[:0]
	removed := 0
	for _, id := range l.order {
		if l.records[id].SyncedAt.Before(cutoff) {
			delete(l.records, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	l.order = kept
	if removed == 0 {
		return 0, nil
	}
	if err := l.persistLocked(ctx); err != nil {
		return removed, err
	}
	return removed, nil
}

// SetLastSync records the completion time of a sync cycle.
func (l *Ledger) SetLastSync(ctx context.Context, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastSync = at.UTC()
	return l.persistLocked(ctx)
}

// LastSync returns the completion time of the most recent sync cycle.
func (l *Ledger) LastSync() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSync
}

// Len returns the number of synced records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Snapshot returns a copy of the full ledger state in insertion order.
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() State {
	records := make([]Record, 0, len(l.order))
	for _, id := range l.order {
		records = append(records, l.records[id])
	}
	return State{Records: records, LastSync: l.lastSync}
}

func (l *Ledger) persistLocked(ctx context.Context) error {
	if l.persister == nil {
		return nil
	}
	if err := l.persister.Save(ctx, l.snapshotLocked()); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}
