package ipc

import (
	"time"

	"inksync/internal/syncer"
)

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and scheduler status.
type StatusResponse struct {
	Running             bool      `json:"running"`
	PID                 int       `json:"pid"`
	StartedAt           time.Time `json:"started_at"`
	State               string    `json:"state"`
	Paused              bool      `json:"paused"`
	AutoSync            bool      `json:"auto_sync"`
	IntervalSeconds     int       `json:"interval_seconds"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	NextRunInSeconds    int       `json:"next_run_in_seconds"`
	LastError           string    `json:"last_error"`
	LastSync            time.Time `json:"last_sync"`
	SyncedCount         int       `json:"synced_count"`
	LedgerDBPath        string    `json:"ledger_db_path"`
	LockPath            string    `json:"lock_path"`
	VaultDir            string    `json:"vault_dir"`
}

// SyncNowRequest triggers an immediate sync cycle.
type SyncNowRequest struct{}

// SyncNowResponse reports the outcome of one sync cycle.
type SyncNowResponse struct {
	Total    int                 `json:"total"`
	Synced   int                 `json:"synced"`
	Failures []syncer.JobFailure `json:"failures,omitempty"`
}

// PauseRequest suspends automatic polling.
type PauseRequest struct{}

// PauseResponse acknowledges a pause.
type PauseResponse struct {
	Paused bool `json:"paused"`
}

// ResumeRequest lifts a pause.
type ResumeRequest struct{}

// ResumeResponse acknowledges a resume.
type ResumeResponse struct {
	Resumed bool `json:"resumed"`
}

// ResumeAfterErrorRequest restarts sync after a circuit breaker stop.
type ResumeAfterErrorRequest struct{}

// ResumeAfterErrorResponse acknowledges the restart.
type ResumeAfterErrorResponse struct {
	Resumed bool `json:"resumed"`
}

// ForgetRequest drops ledger records for jobs the user deleted.
type ForgetRequest struct {
	JobIDs []string `json:"job_ids"`
}

// ForgetResponse acknowledges the removal.
type ForgetResponse struct {
	Forgotten bool `json:"forgotten"`
}

// PruneRequest removes ledger records past the retention window.
type PruneRequest struct{}

// PruneResponse reports how many records were removed.
type PruneResponse struct {
	Removed int `json:"removed"`
}

// StopRequest shuts the daemon down.
type StopRequest struct{}

// StopResponse acknowledges shutdown.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
