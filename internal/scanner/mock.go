package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mockProcessingDelay is how long a mock job stays pending/processing before
// it completes.
const mockProcessingDelay = 5 * time.Second

// Mock is an in-memory stand-in for the remote service used when no API key
// is configured. Jobs complete after a short simulated processing delay; the
// generated note is derived from the uploaded filename. State is advanced
// lazily on read, so the mock needs no background goroutines.
type Mock struct {
	mu    sync.Mutex
	jobs  map[string]*mockJob
	now   func() time.Time
	delay time.Duration
}

type mockJob struct {
	job  Job
	note Note
}

var _ API = (*Mock)(nil)

// NewMock creates an empty mock service.
func NewMock() *Mock {
	return &Mock{
		jobs:  make(map[string]*mockJob),
		now:   time.Now,
		delay: mockProcessingDelay,
	}
}

func (m *Mock) advanceLocked() {
	now := m.now()
	for _, entry := range m.jobs {
		if entry.job.Status.IsTerminal() {
			continue
		}
		started := entry.job.CreatedAt.Add(m.delay / 5)
		completed := entry.job.CreatedAt.Add(m.delay)
		if entry.job.Status == JobStatusPending && !now.Before(started) {
			entry.job.Status = JobStatusProcessing
			startCopy := started
			entry.job.StartedAt = &startCopy
			entry.job.Attempts++
		}
		if entry.job.Status == JobStatusProcessing && !now.Before(completed) {
			entry.job.Status = JobStatusCompleted
			completedCopy := completed
			entry.job.CompletedAt = &completedCopy
			entry.job.HasResult = true
			entry.note.ProcessedAt = completed
		}
	}
}

func (m *Mock) Upload(_ context.Context, files []UploadFile) (*UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &UploadResult{}
	for _, file := range files {
		if len(file.Data) == 0 {
			result.Failures = append(result.Failures, UploadFailure{Filename: file.Name, Reason: "empty file"})
			continue
		}
		id := uuid.NewString()
		title := strings.TrimSuffix(filepath.Base(file.Name), filepath.Ext(file.Name))
		if title == "" {
			title = "Untitled note"
		}
		m.jobs[id] = &mockJob{
			job: Job{
				ID:         id,
				Status:     JobStatusPending,
				CreatedAt:  m.now(),
				SourceFile: file.Name,
			},
			note: Note{
				Title:    title,
				Markdown: fmt.Sprintf("# %s\n\nTranscribed contents of %s.\n", title, file.Name),
				Tags:     []string{"mock", "inksync"},
				Category: CategoryOther,
				Summary:  fmt.Sprintf("Mock transcription of %s", file.Name),
			},
		}
		result.JobIDs = append(result.JobIDs, id)
	}
	return result, nil
}

func (m *Mock) ListJobs(_ context.Context, status JobStatus) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked()

	jobs := make([]Job, 0, len(m.jobs))
	for _, entry := range m.jobs {
		if status != "" && entry.job.Status != status {
			continue
		}
		jobs = append(jobs, entry.job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs, nil
}

func (m *Mock) GetJob(_ context.Context, id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked()

	entry, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	jobCopy := entry.job
	return &jobCopy, nil
}

func (m *Mock) GetResult(_ context.Context, id string) (*Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked()

	entry, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: result %s", ErrNotFound, id)
	}
	if entry.job.Status != JobStatusCompleted {
		return nil, fmt.Errorf("%w: result %s not ready", ErrNotFound, id)
	}
	noteCopy := entry.note
	noteCopy.Tags = append([]string(nil), entry.note.Tags...)
	return &noteCopy, nil
}

func (m *Mock) RetryJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked()

	entry, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	if entry.job.Status != JobStatusFailed {
		return fmt.Errorf("%w: job %s is %s", ErrJobNotFailed, id, entry.job.Status)
	}
	entry.job.Status = JobStatusPending
	entry.job.Attempts = 0
	entry.job.Error = ""
	entry.job.StartedAt = nil
	entry.job.CompletedAt = nil
	entry.job.CreatedAt = m.now()
	return nil
}

func (m *Mock) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; !ok {
		return fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	delete(m.jobs, id)
	return nil
}

func (m *Mock) CheckHealth(_ context.Context) (*Health, error) {
	return &Health{Status: "ok (mock)", Timestamp: m.now()}, nil
}

// FailJob marks a job failed with the given reason. Test hook.
func (m *Mock) FailJob(id, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.jobs[id]; ok {
		entry.job.Status = JobStatusFailed
		entry.job.Error = reason
	}
}

// SetClock overrides the mock's time source. Test hook.
func (m *Mock) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
