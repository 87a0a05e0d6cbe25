package scanner

import (
	"strings"
	"time"
)

// JobStatus represents the lifecycle of a remote processing job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

var allJobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusProcessing,
	JobStatusCompleted,
	JobStatusFailed,
}

// ParseJobStatus validates a status string from user input.
func ParseJobStatus(value string) (JobStatus, bool) {
	normalized := JobStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allJobStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether the status can no longer change on its own.
// Only failed jobs may be retried, which resets them to pending.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is a snapshot of one remote processing unit. Jobs are created and
// mutated only by the remote service; the local system reads snapshots.
type Job struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Attempts    int        `json:"attempts"`
	Error       string     `json:"error,omitempty"`
	SourceFile  string     `json:"sourceFile,omitempty"`
	HasResult   bool       `json:"hasResult"`
}

// Category classifies a processed note. Closed enum; unrecognized values
// canonicalize to CategoryOther.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryIdeas    Category = "ideas"
	CategoryTasks    Category = "tasks"
	CategoryJournal  Category = "journal"
	CategoryOther    Category = "other"
)

var allCategories = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryIdeas,
	CategoryTasks,
	CategoryJournal,
	CategoryOther,
}

// Categories returns the closed set of note categories.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// CanonicalCategory maps an arbitrary string onto the closed category enum.
func CanonicalCategory(value string) Category {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat
		}
	}
	return CategoryOther
}

// Note is the structured output tied 1:1 to a completed job. Immutable once
// fetched.
type Note struct {
	Title       string    `json:"title"`
	Markdown    string    `json:"markdown"`
	Tags        []string  `json:"tags"`
	Date        string    `json:"date,omitempty"`
	Category    Category  `json:"category"`
	Summary     string    `json:"summary"`
	ProcessedAt time.Time `json:"processedAt"`
}

// ParsedDate returns the extracted note date when present and well formed.
func (n *Note) ParsedDate() (time.Time, bool) {
	trimmed := strings.TrimSpace(n.Date)
	if trimmed == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// Health reports the remote service health endpoint response.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// UploadFile is one file entering the upload pipeline.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadFailure records why a single file failed to upload.
type UploadFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// UploadResult reports the per-file outcome of one upload call.
type UploadResult struct {
	JobIDs   []string        `json:"jobIds"`
	Failures []UploadFailure `json:"failures,omitempty"`
}
