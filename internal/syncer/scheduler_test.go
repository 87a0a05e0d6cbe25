package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"inksync/internal/ledger"
	"inksync/internal/materializer"
	"inksync/internal/scanner"
	"inksync/internal/vault"
)

type fakeAPI struct {
	mu          sync.Mutex
	jobs        []scanner.Job
	notes       map[string]*scanner.Note
	listErr     error
	resultErr   map[string]error
	listCalls   int
	resultCalls map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		notes:       map[string]*scanner.Note{},
		resultErr:   map[string]error{},
		resultCalls: map[string]int{},
	}
}

func (f *fakeAPI) addJob(id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, scanner.Job{ID: id, Status: scanner.JobStatusCompleted, HasResult: true})
	f.notes[id] = &scanner.Note{Title: title, Markdown: "# " + title, Category: scanner.CategoryOther}
}

func (f *fakeAPI) ListJobs(_ context.Context, _ scanner.JobStatus) ([]scanner.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]scanner.Job, len(f.jobs))
	copy(out, f.jobs)
	return out, nil
}

func (f *fakeAPI) GetResult(_ context.Context, id string) (*scanner.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultCalls[id]++
	if err := f.resultErr[id]; err != nil {
		return nil, err
	}
	note, ok := f.notes[id]
	if !ok {
		return nil, scanner.ErrNotFound
	}
	return note, nil
}

func (f *fakeAPI) Upload(context.Context, []scanner.UploadFile) (*scanner.UploadResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) GetJob(context.Context, string) (*scanner.Job, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) RetryJob(context.Context, string) error  { return errors.New("not implemented") }
func (f *fakeAPI) DeleteJob(context.Context, string) error { return errors.New("not implemented") }

func (f *fakeAPI) CheckHealth(context.Context) (*scanner.Health, error) {
	return &scanner.Health{Status: "ok"}, nil
}

func (f *fakeAPI) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func newTestScheduler(t *testing.T, api scanner.API) *Scheduler {
	t.Helper()
	v, err := vault.NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	mat := materializer.New(v, materializer.OrganizationFlat, "", true, 120, nil)
	s := New(api, ledger.New(nil), mat, nil, 30*time.Second, true, nil)
	t.Cleanup(s.Stop)
	return s
}

func TestSyncNowMaterializesPendingJobs(t *testing.T) {
	api := newFakeAPI()
	api.addJob("job-1", "First")
	api.addJob("job-2", "Second")
	s := newTestScheduler(t, api)

	report, err := s.SyncNow(context.Background(), nil)
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if report.Total != 2 || report.Synced != 2 || len(report.Failures) != 0 {
		t.Fatalf("report = %+v", report)
	}
	if !s.ledger.IsSynced("job-1") || !s.ledger.IsSynced("job-2") {
		t.Fatal("ledger missing synced jobs")
	}
}

func TestSyncNowSkipsAlreadySyncedJobs(t *testing.T) {
	api := newFakeAPI()
	api.addJob("job-1", "First")
	s := newTestScheduler(t, api)
	ctx := context.Background()

	if _, err := s.SyncNow(ctx, nil); err != nil {
		t.Fatalf("first SyncNow: %v", err)
	}
	report, err := s.SyncNow(ctx, nil)
	if err != nil {
		t.Fatalf("second SyncNow: %v", err)
	}
	if report.Total != 0 {
		t.Fatalf("Total = %d, want 0", report.Total)
	}
	if api.resultCalls["job-1"] != 1 {
		t.Fatalf("result fetched %d times, want 1", api.resultCalls["job-1"])
	}
}

func TestSyncNowCollectsPerJobFailures(t *testing.T) {
	api := newFakeAPI()
	api.addJob("job-1", "First")
	api.addJob("job-2", "Second")
	api.resultErr["job-1"] = errors.New("result expired")
	s := newTestScheduler(t, api)

	report, err := s.SyncNow(context.Background(), nil)
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if report.Total != 2 || report.Synced != 1 || len(report.Failures) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if report.Failures[0].JobID != "job-1" {
		t.Fatalf("failure = %+v", report.Failures[0])
	}
	if s.ledger.IsSynced("job-1") {
		t.Fatal("failed job must not enter the ledger")
	}
}

func TestSyncNowWhilePollingReturnsInFlight(t *testing.T) {
	s := newTestScheduler(t, newFakeAPI())
	s.mu.Lock()
	s.state = StatePolling
	s.mu.Unlock()

	if _, err := s.SyncNow(context.Background(), nil); !errors.Is(err, ErrSyncInFlight) {
		t.Fatalf("err = %v, want ErrSyncInFlight", err)
	}
}

func TestCircuitBreakerStopsAfterConsecutiveFailures(t *testing.T) {
	api := newFakeAPI()
	api.listErr = errors.New("service unavailable")
	s := newTestScheduler(t, api)
	s.Start()

	for i := 0; i < maxConsecutiveFailures; i++ {
		s.timerFired()
	}

	status := s.Status()
	if status.State != StateStoppedOnError {
		t.Fatalf("state = %s, want stopped-on-error", status.State)
	}
	if status.ConsecutiveFailures != maxConsecutiveFailures {
		t.Fatalf("failures = %d, want %d", status.ConsecutiveFailures, maxConsecutiveFailures)
	}

	// Once tripped, further timer fires must not touch the service.
	before := api.listCount()
	s.timerFired()
	if api.listCount() != before {
		t.Fatalf("list called after circuit breaker tripped")
	}
}

func TestFailureCounterResetsOnSuccess(t *testing.T) {
	api := newFakeAPI()
	api.listErr = errors.New("service unavailable")
	s := newTestScheduler(t, api)
	s.Start()

	s.timerFired()
	s.timerFired()
	if got := s.Status().ConsecutiveFailures; got != 2 {
		t.Fatalf("failures = %d, want 2", got)
	}

	api.mu.Lock()
	api.listErr = nil
	api.mu.Unlock()
	s.timerFired()

	status := s.Status()
	if status.ConsecutiveFailures != 0 {
		t.Fatalf("failures = %d, want 0 after success", status.ConsecutiveFailures)
	}
	if status.State != StateScheduled {
		t.Fatalf("state = %s, want scheduled", status.State)
	}
}

func TestManualSyncDoesNotLiftErrorStop(t *testing.T) {
	api := newFakeAPI()
	api.listErr = errors.New("service unavailable")
	s := newTestScheduler(t, api)
	s.Start()

	for i := 0; i < maxConsecutiveFailures; i++ {
		s.timerFired()
	}
	if s.Status().State != StateStoppedOnError {
		t.Fatalf("state = %s, want stopped-on-error", s.Status().State)
	}

	api.mu.Lock()
	api.listErr = nil
	api.mu.Unlock()
	api.addJob("job-1", "First")

	report, err := s.SyncNow(context.Background(), nil)
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if report.Synced != 1 {
		t.Fatalf("synced = %d, want 1", report.Synced)
	}

	status := s.Status()
	if status.State != StateStoppedOnError {
		t.Fatalf("state = %s, manual sync must not lift the error stop", status.State)
	}
	if status.ConsecutiveFailures != 0 {
		t.Fatalf("failures = %d, want 0 after manual success", status.ConsecutiveFailures)
	}

	if err := s.ResumeAfterError(); err != nil {
		t.Fatalf("ResumeAfterError: %v", err)
	}
	if got := s.Status().State; got != StateScheduled {
		t.Fatalf("state = %s after resume, want scheduled", got)
	}
}

func TestFailedManualSyncRecordsErrorWithoutCountingIt(t *testing.T) {
	api := newFakeAPI()
	api.listErr = errors.New("service unavailable")
	s := newTestScheduler(t, api)

	if _, err := s.SyncNow(context.Background(), nil); err == nil {
		t.Fatal("expected manual sync to fail")
	}

	status := s.Status()
	if status.LastError == "" {
		t.Fatal("failed manual sync must surface in status")
	}
	if status.ConsecutiveFailures != 0 {
		t.Fatalf("failures = %d, manual failures must not feed the counter", status.ConsecutiveFailures)
	}
}

func TestResumeAfterErrorRequiresErrorStop(t *testing.T) {
	s := newTestScheduler(t, newFakeAPI())
	if err := s.ResumeAfterError(); !errors.Is(err, ErrNotStoppedOnError) {
		t.Fatalf("err = %v, want ErrNotStoppedOnError", err)
	}
}

func TestPausedTimerFireSkipsPoll(t *testing.T) {
	api := newFakeAPI()
	s := newTestScheduler(t, api)
	s.Start()
	s.Pause()

	s.timerFired()

	if api.listCount() != 0 {
		t.Fatalf("list called %d times while paused, want 0", api.listCount())
	}
	status := s.Status()
	if status.State != StateScheduled || !status.Paused {
		t.Fatalf("status = %+v, want scheduled and paused", status)
	}

	s.Resume()
	s.timerFired()
	if api.listCount() != 1 {
		t.Fatalf("list called %d times after resume, want 1", api.listCount())
	}
}

func TestStartWithAutoSyncDisabledStaysIdle(t *testing.T) {
	v, err := vault.NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	mat := materializer.New(v, materializer.OrganizationFlat, "", true, 120, nil)
	s := New(newFakeAPI(), ledger.New(nil), mat, nil, 30*time.Second, false, nil)
	t.Cleanup(s.Stop)

	s.Start()
	if got := s.Status().State; got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
}

func TestReconfigureClampsIntervalAndResets(t *testing.T) {
	s := newTestScheduler(t, newFakeAPI())
	s.Start()

	s.Reconfigure(2*time.Second, true)
	status := s.Status()
	if status.IntervalSeconds != 10 {
		t.Fatalf("interval = %ds, want clamped to 10s", status.IntervalSeconds)
	}

	s.Reconfigure(20*time.Minute, false)
	status = s.Status()
	if status.IntervalSeconds != 300 {
		t.Fatalf("interval = %ds, want clamped to 300s", status.IntervalSeconds)
	}
	if status.State != StateIdle {
		t.Fatalf("state = %s, want idle with auto-sync off", status.State)
	}
}
