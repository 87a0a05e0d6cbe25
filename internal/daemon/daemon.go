package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"inksync/internal/config"
	"inksync/internal/ledger"
	"inksync/internal/logging"
	"inksync/internal/notifications"
	"inksync/internal/scanner"
	"inksync/internal/syncer"
)

// pruneCheckInterval is how often the retention pruner runs. Pruning is cheap
// and idempotent, so a coarse cadence is enough.
const pruneCheckInterval = 6 * time.Hour

// Daemon coordinates the sync scheduler, ledger retention, and control socket
// lifecycle, and enforces single-instance execution through a file lock.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	api       scanner.API
	ledger    *ledger.Ledger
	store     *ledger.Store
	scheduler *syncer.Scheduler
	notifier  notifications.Service

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	pruneDone chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	Scheduler    syncer.Status
	LedgerDBPath string
	LockPath     string
	VaultDir     string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, api scanner.API, ldg *ledger.Ledger, store *ledger.Store, scheduler *syncer.Scheduler, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || api == nil || ldg == nil || scheduler == nil {
		return nil, errors.New("daemon requires config, api, ledger, and scheduler")
	}
	if notifier == nil {
		notifier = notifications.NewService(nil, nil)
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		api:       api,
		ledger:    ldg,
		store:     store,
		scheduler: scheduler,
		notifier:  notifier,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the single-instance lock and launches the scheduler and the
// retention pruner.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another inksyncd instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.pruneDone = make(chan struct{})
	d.startedAt = time.Now()
	d.scheduler.Start()
	go d.pruneLoop(d.ctx, d.pruneDone)

	d.running.Store(true)
	d.logger.Info("inksyncd started",
		logging.String("lock", d.lockPath),
		logging.String("ledger", d.cfg.LedgerDBPath()),
		logging.String("vault", d.cfg.Output.Dir))
	return nil
}

// Stop halts background work and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.pruneDone != nil {
		<-d.pruneDone
		d.pruneDone = nil
	}
	d.scheduler.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("inksyncd stopped")
}

// Close stops the daemon and closes the ledger store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information for status commands.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    d.startedAt,
		Scheduler:    d.scheduler.Status(),
		LedgerDBPath: d.cfg.LedgerDBPath(),
		LockPath:     d.lockPath,
		VaultDir:     d.cfg.Output.Dir,
	}
}

// SyncNow triggers an immediate sync cycle.
func (d *Daemon) SyncNow(ctx context.Context) (*syncer.Report, error) {
	return d.scheduler.SyncNow(ctx, nil)
}

// Pause suspends automatic polling.
func (d *Daemon) Pause() { d.scheduler.Pause() }

// Resume lifts a pause.
func (d *Daemon) Resume() { d.scheduler.Resume() }

// ResumeAfterError restarts automatic sync after the circuit breaker tripped.
func (d *Daemon) ResumeAfterError() error { return d.scheduler.ResumeAfterError() }

// ForgetSynced drops ledger records for jobs deleted by the user. Going
// through the daemon keeps its in-memory ledger and the store in step; a
// direct store write would be overwritten by the daemon's next write-through.
func (d *Daemon) ForgetSynced(ctx context.Context, jobIDs []string) error {
	for _, id := range jobIDs {
		if err := d.ledger.RemoveSynced(ctx, id); err != nil {
			return fmt.Errorf("remove ledger entry %s: %w", id, err)
		}
	}
	return nil
}

// PruneLedger removes ledger records older than the retention window.
func (d *Daemon) PruneLedger(ctx context.Context) (int, error) {
	if d.cfg.Sync.RetentionDays <= 0 {
		return 0, nil
	}
	return d.ledger.Prune(ctx, d.cfg.Sync.RetentionDays)
}

// TestNotification delivers a test notification through the configured service.
func (d *Daemon) TestNotification(ctx context.Context) error {
	return d.notifier.TestNotification(ctx)
}

func (d *Daemon) pruneLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(pruneCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := d.PruneLedger(ctx)
			if err != nil {
				d.logger.Warn("ledger prune failed", logging.Error(err))
				continue
			}
			if removed > 0 {
				d.logger.Info("pruned ledger records", logging.Int("removed", removed))
			}
		}
	}
}
