package syncer

import (
	"context"
	"time"

	"inksync/internal/logging"
	"inksync/internal/scanner"
	"inksync/internal/services"
)

// JobFailure records why a single job failed during a sync cycle.
type JobFailure struct {
	JobID  string `json:"jobId"`
	Reason string `json:"reason"`
}

// Report summarizes one sync cycle. Total counts the completed jobs that were
// not yet in the ledger; Synced counts those materialized this cycle.
type Report struct {
	Total    int           `json:"total"`
	Synced   int           `json:"synced"`
	Failures []JobFailure  `json:"failures,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Progress is invoked before each job is processed during a cycle.
type Progress func(index, total int)

// runCycle performs one full sync pass. A non-nil error means the listing
// call itself failed and the whole cycle counts as a failure; per-job errors
// are collected in the report and do not fail the cycle.
func (s *Scheduler) runCycle(ctx context.Context, progress Progress) (*Report, error) {
	start := time.Now()

	jobs, err := s.api.ListJobs(ctx, scanner.JobStatusCompleted)
	if err != nil {
		return nil, services.Wrap(nil, "syncer", "list jobs", "", err)
	}

	pending := make([]scanner.Job, 0, len(jobs))
	for _, job := range jobs {
		if s.ledger.IsSynced(job.ID) {
			continue
		}
		pending = append(pending, job)
	}

	report := &Report{Total: len(pending)}
	for i, job := range pending {
		if progress != nil {
			progress(i, len(pending))
		}
		if err := s.syncJob(ctx, job.ID); err != nil {
			s.logger.Warn("job sync failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err))
			report.Failures = append(report.Failures, JobFailure{JobID: job.ID, Reason: err.Error()})
			continue
		}
		report.Synced++
	}
	report.Duration = time.Since(start)

	if err := s.ledger.SetLastSync(ctx, time.Now()); err != nil {
		// Best effort; the synced records themselves were persisted per job.
		s.logger.Warn("failed to persist last sync time", logging.Error(err))
	}

	s.logger.Info("sync cycle finished",
		logging.Int("total", report.Total),
		logging.Int("synced", report.Synced),
		logging.Int("failed", len(report.Failures)),
		logging.Duration("duration", report.Duration))
	return report, nil
}

// syncJob fetches one job's result, materializes it, and records it in the
// ledger. Jobs are processed one at a time; there is no fetch concurrency.
func (s *Scheduler) syncJob(ctx context.Context, jobID string) error {
	note, err := s.api.GetResult(ctx, jobID)
	if err != nil {
		return services.Wrap(nil, "syncer", "fetch result", "", err)
	}
	location, err := s.materializer.Materialize(ctx, jobID, note)
	if err != nil {
		return err
	}
	if err := s.ledger.MarkSynced(ctx, jobID, location); err != nil {
		return err
	}
	return nil
}
