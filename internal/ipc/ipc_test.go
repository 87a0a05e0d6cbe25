package ipc_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"inksync/internal/daemon"
	"inksync/internal/ipc"
	"inksync/internal/ledger"
	"inksync/internal/materializer"
	"inksync/internal/scanner"
	"inksync/internal/syncer"
	"inksync/internal/testsupport"
	"inksync/internal/vault"
)

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	api := scanner.NewMock()
	ldg := ledger.New(nil)
	v, err := vault.NewDir(cfg.Output.Dir)
	if err != nil {
		t.Fatalf("vault.NewDir: %v", err)
	}
	mat, err := materializer.NewFromConfig(cfg, v, nil)
	if err != nil {
		t.Fatalf("materializer.NewFromConfig: %v", err)
	}
	scheduler := syncer.New(api, ldg, mat, nil, 30*time.Second, false, nil)

	d, err := daemon.New(cfg, api, ldg, nil, scheduler, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	socket := filepath.Join(cfg.Paths.DataDir, "inksyncd.sock")
	srv, err := ipc.NewServer(ctx, socket, d, cancel, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected Running=true")
	}
	if status.State != string(syncer.StateIdle) {
		t.Fatalf("state = %q, want idle with auto-sync off", status.State)
	}

	pauseResp, err := client.Pause()
	if err != nil || !pauseResp.Paused {
		t.Fatalf("Pause RPC = (%+v, %v)", pauseResp, err)
	}
	status, err = client.Status()
	if err != nil || !status.Paused {
		t.Fatalf("Status after pause = (%+v, %v)", status, err)
	}

	resumeResp, err := client.Resume()
	if err != nil || !resumeResp.Resumed {
		t.Fatalf("Resume RPC = (%+v, %v)", resumeResp, err)
	}

	syncResp, err := client.SyncNow()
	if err != nil {
		t.Fatalf("SyncNow RPC failed: %v", err)
	}
	if syncResp.Total != syncResp.Synced {
		t.Fatalf("sync response = %+v, want all pending jobs synced", syncResp)
	}

	pruneResp, err := client.Prune()
	if err != nil {
		t.Fatalf("Prune RPC failed: %v", err)
	}
	if pruneResp.Removed != 0 {
		t.Fatalf("removed = %d, want 0 for fresh records", pruneResp.Removed)
	}

	// ResumeAfterError outside the stopped-on-error state must surface an error.
	if _, err := client.ResumeAfterError(); err == nil {
		t.Fatal("expected ResumeAfterError to fail outside stopped-on-error")
	}
}

func TestForgetRemovesRecordFromLiveLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	api := scanner.NewMock()
	ctx := context.Background()

	store, err := ledger.OpenStore(cfg.LedgerDBPath())
	if err != nil {
		t.Fatalf("ledger.OpenStore: %v", err)
	}
	ldg := ledger.New(store)
	if err := ldg.MarkSynced(ctx, "job-1", "/vault/note.md"); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	v, err := vault.NewDir(cfg.Output.Dir)
	if err != nil {
		t.Fatalf("vault.NewDir: %v", err)
	}
	mat, err := materializer.NewFromConfig(cfg, v, nil)
	if err != nil {
		t.Fatalf("materializer.NewFromConfig: %v", err)
	}
	scheduler := syncer.New(api, ldg, mat, nil, 30*time.Second, false, nil)

	d, err := daemon.New(cfg, api, ldg, store, scheduler, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	runCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	if err := d.Start(runCtx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	socket := filepath.Join(cfg.Paths.DataDir, "inksyncd.sock")
	srv, err := ipc.NewServer(runCtx, socket, d, cancel, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	resp, err := client.Forget([]string{"job-1"})
	if err != nil || !resp.Forgotten {
		t.Fatalf("Forget RPC = (%+v, %v)", resp, err)
	}
	if ldg.IsSynced("job-1") {
		t.Fatal("record still in the daemon's live ledger")
	}

	// A later write-through, like the end-of-cycle last-sync update, must
	// not bring the record back.
	if err := ldg.SetLastSync(ctx, time.Now()); err != nil {
		t.Fatalf("SetLastSync: %v", err)
	}
	state, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("store.Load: %v", err)
	}
	for _, record := range state.Records {
		if record.JobID == "job-1" {
			t.Fatal("forgotten record resurrected in persisted state")
		}
	}
}
