package ledger_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"inksync/internal/ledger"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	syncedAt := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	state := ledger.State{
		Records: []ledger.Record{
			{JobID: "job-1", SyncedAt: syncedAt, Location: "/vault/a.md"},
			{JobID: "job-2", SyncedAt: syncedAt.Add(time.Minute), Location: "/vault/b.md"},
		},
		LastSync: syncedAt.Add(2 * time.Minute),
	}
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(loaded.Records))
	}
	for i, want := range state.Records {
		got := loaded.Records[i]
		if got.JobID != want.JobID || got.Location != want.Location || !got.SyncedAt.Equal(want.SyncedAt) {
			t.Fatalf("record %d = %+v, want %+v", i, got, want)
		}
	}
	if !loaded.LastSync.Equal(state.LastSync) {
		t.Fatalf("lastSync = %v, want %v", loaded.LastSync, state.LastSync)
	}
}

func TestStoreSaveReplacesState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	first := ledger.State{Records: []ledger.Record{
		{JobID: "job-1", SyncedAt: time.Now().UTC(), Location: "/vault/a.md"},
		{JobID: "job-2", SyncedAt: time.Now().UTC(), Location: "/vault/b.md"},
	}}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	second := ledger.State{Records: first.Records[:1]}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Records) != 1 || loaded.Records[0].JobID != "job-1" {
		t.Fatalf("loaded = %+v, want single job-1 record", loaded.Records)
	}
}

func TestStoreLoadEmptyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Records) != 0 || !loaded.LastSync.IsZero() {
		t.Fatalf("loaded = %+v, want empty state", loaded)
	}
}

func TestStoreReopenKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	ctx := context.Background()
	state := ledger.State{Records: []ledger.Record{
		{JobID: "job-1", SyncedAt: time.Now().UTC(), Location: "/vault/a.md"},
	}}
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := ledger.OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	loaded, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if len(loaded.Records) != 1 || loaded.Records[0].JobID != "job-1" {
		t.Fatalf("loaded = %+v", loaded.Records)
	}
}
