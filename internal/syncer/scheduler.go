package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"inksync/internal/config"
	"inksync/internal/ledger"
	"inksync/internal/logging"
	"inksync/internal/materializer"
	"inksync/internal/notifications"
	"inksync/internal/scanner"
)

// State describes what the scheduler is doing right now.
type State string

const (
	// StateIdle means automatic sync is not running.
	StateIdle State = "idle"
	// StateScheduled means a timer is armed for the next poll.
	StateScheduled State = "scheduled"
	// StatePolling means a sync cycle is executing.
	StatePolling State = "polling"
	// StateStoppedOnError means the circuit breaker tripped; automatic sync
	// stays halted until ResumeAfterError.
	StateStoppedOnError State = "stopped-on-error"
)

var (
	// ErrSyncInFlight is returned when a manual sync is requested while a
	// cycle is already running.
	ErrSyncInFlight = errors.New("a sync cycle is already running")
	// ErrNotStoppedOnError is returned when ResumeAfterError is called in any
	// state other than stopped-on-error.
	ErrNotStoppedOnError = errors.New("automatic sync is not stopped on error")
)

// Status is a point-in-time snapshot of the scheduler and ledger.
type Status struct {
	State               State     `json:"state"`
	Paused              bool      `json:"paused"`
	AutoSync            bool      `json:"autoSync"`
	IntervalSeconds     int       `json:"intervalSeconds"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	NextRunInSeconds    int       `json:"nextRunInSeconds"`
	LastError           string    `json:"lastError,omitempty"`
	LastSync            time.Time `json:"lastSync"`
	SyncedCount         int       `json:"syncedCount"`
	LastReport          *Report   `json:"lastReport,omitempty"`
}

// Scheduler drives periodic sync cycles with failure-aware backoff. Timer
// callbacks fire on their own goroutines, so all state transitions go through
// the mutex; the generation counter lets Stop and Reconfigure win races
// against a cycle that is still finishing.
type Scheduler struct {
	api          scanner.API
	ledger       *ledger.Ledger
	materializer *materializer.Materializer
	notifier     notifications.Service
	logger       *slog.Logger

	mu       sync.Mutex
	interval time.Duration
	autoSync bool
	state    State
	paused   bool
	failures int
	gen      uint64
	timer    *time.Timer
	nextRun  time.Time

	lastError  string
	lastReport *Report
}

// New creates a scheduler. The interval is clamped to the configured bounds.
func New(api scanner.API, ldg *ledger.Ledger, mat *materializer.Materializer, notifier notifications.Service, interval time.Duration, autoSync bool, logger *slog.Logger) *Scheduler {
	if notifier == nil {
		notifier = notifications.NewService(nil, nil)
	}
	return &Scheduler{
		api:          api,
		ledger:       ldg,
		materializer: mat,
		notifier:     notifier,
		logger:       logging.NewComponentLogger(logger, "syncer"),
		interval:     clampInterval(interval),
		autoSync:     autoSync,
		state:        StateIdle,
	}
}

func clampInterval(interval time.Duration) time.Duration {
	lower := config.MinSyncIntervalSeconds * time.Second
	upper := config.MaxSyncIntervalSeconds * time.Second
	if interval < lower {
		return lower
	}
	if interval > upper {
		return upper
	}
	return interval
}

// Start arms the first poll timer. A no-op when auto-sync is disabled or the
// scheduler is already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return
	}
	if !s.autoSync {
		s.logger.Info("automatic sync disabled")
		return
	}
	s.gen++
	s.state = StateScheduled
	s.armLocked(s.interval)
	s.logger.Info("automatic sync started", logging.Duration("interval", s.interval))
}

// Stop cancels the poll timer and returns to idle. An in-flight cycle is
// allowed to finish but its outcome is discarded.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.stopTimerLocked()
	s.state = StateIdle
	s.paused = false
	s.logger.Info("automatic sync stopped")
}

// Pause suspends polling without disturbing the timer cadence: the timer
// keeps firing but fires skip the poll until Resume.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	s.logger.Info("automatic sync paused")
}

// Resume lifts a pause. The next timer fire polls normally.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	s.logger.Info("automatic sync resumed")
}

// ResumeAfterError restarts automatic sync after the circuit breaker tripped.
// Valid only in the stopped-on-error state.
func (s *Scheduler) ResumeAfterError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStoppedOnError {
		return ErrNotStoppedOnError
	}
	s.gen++
	s.failures = 0
	s.lastError = ""
	s.state = StateScheduled
	s.armLocked(s.interval)
	s.logger.Info("automatic sync resumed after error stop")
	return nil
}

// Reconfigure applies a new interval and auto-sync flag, resetting the
// failure counter and restarting the timer from scratch.
func (s *Scheduler) Reconfigure(interval time.Duration, autoSync bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.stopTimerLocked()
	s.interval = clampInterval(interval)
	s.autoSync = autoSync
	s.failures = 0
	s.paused = false
	if autoSync {
		s.state = StateScheduled
		s.armLocked(s.interval)
	} else {
		s.state = StateIdle
	}
	s.logger.Info("scheduler reconfigured",
		logging.Duration("interval", s.interval),
		logging.Bool("auto_sync", autoSync))
}

// SyncNow runs one cycle immediately, independent of the timer. Returns
// ErrSyncInFlight when a cycle is already running. A successful manual sync
// resets the failure counter but never lifts a stopped-on-error state.
func (s *Scheduler) SyncNow(ctx context.Context, progress Progress) (*Report, error) {
	s.mu.Lock()
	if s.state == StatePolling {
		s.mu.Unlock()
		return nil, ErrSyncInFlight
	}
	prev := s.state
	gen := s.gen
	s.state = StatePolling
	s.mu.Unlock()

	report, err := s.runCycle(ctx, progress)

	s.mu.Lock()
	if s.gen == gen {
		s.state = prev
		if err == nil {
			s.failures = 0
			s.lastError = ""
			s.lastReport = report
		} else {
			// Manual failures are visible in status but never feed the
			// consecutive-failure counter.
			s.lastError = err.Error()
		}
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if report.Synced > 0 || len(report.Failures) > 0 {
		s.notifier.NotifySyncCompleted(ctx, report.Synced, len(report.Failures))
	}
	return report, nil
}

// Status returns a snapshot of scheduler and ledger state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	status := Status{
		State:               s.state,
		Paused:              s.paused,
		AutoSync:            s.autoSync,
		IntervalSeconds:     int(s.interval / time.Second),
		ConsecutiveFailures: s.failures,
		LastError:           s.lastError,
	}
	if s.lastReport != nil {
		report := *s.lastReport
		status.LastReport = &report
	}
	if s.state == StateScheduled && !s.nextRun.IsZero() {
		if remaining := time.Until(s.nextRun); remaining > 0 {
			status.NextRunInSeconds = int(remaining / time.Second)
		}
	}
	s.mu.Unlock()

	status.LastSync = s.ledger.LastSync()
	status.SyncedCount = s.ledger.Len()
	return status
}

func (s *Scheduler) timerFired() {
	s.mu.Lock()
	if s.state != StateScheduled {
		if s.state == StatePolling {
			// A manual sync is running; try again a full interval later.
			s.armLocked(s.interval)
		}
		s.mu.Unlock()
		return
	}
	if s.paused {
		s.armLocked(s.interval)
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.state = StatePolling
	s.mu.Unlock()

	report, err := s.runCycle(context.Background(), nil)

	s.mu.Lock()
	if s.gen != gen {
		// Stopped or reconfigured while polling; that operation owns the
		// state now.
		s.mu.Unlock()
		return
	}
	if err != nil {
		notify := s.handleFailureLocked(err)
		s.mu.Unlock()
		if notify != nil {
			notify()
		}
		return
	}
	s.failures = 0
	s.lastError = ""
	s.lastReport = report
	s.state = StateScheduled
	s.armLocked(s.interval)
	s.mu.Unlock()

	if report.Synced > 0 || len(report.Failures) > 0 {
		s.notifier.NotifySyncCompleted(context.Background(), report.Synced, len(report.Failures))
	}
}

// handleFailureLocked processes a failed cycle: either re-arm with backoff or
// trip the circuit breaker. Returns a notification closure to run unlocked.
func (s *Scheduler) handleFailureLocked(err error) func() {
	s.failures++
	s.lastError = err.Error()

	if s.failures >= maxConsecutiveFailures {
		s.stopTimerLocked()
		s.state = StateStoppedOnError
		reason := fmt.Sprintf("%d consecutive failures, last: %s", s.failures, err.Error())
		s.logger.Error("automatic sync stopped after repeated failures",
			logging.Int("failures", s.failures),
			logging.Error(err))
		return func() { s.notifier.NotifySyncStopped(context.Background(), reason) }
	}

	delay := backoffDelay(s.interval, s.failures)
	s.state = StateScheduled
	s.armLocked(delay)
	s.logger.Warn("sync cycle failed, backing off",
		logging.Int("failures", s.failures),
		logging.Duration("retry_in", delay),
		logging.Error(err))
	return nil
}

func (s *Scheduler) armLocked(delay time.Duration) {
	s.stopTimerLocked()
	s.timer = time.AfterFunc(delay, s.timerFired)
	s.nextRun = time.Now().Add(delay)
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.nextRun = time.Time{}
}
