package jobs

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a caption job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ParseStatus converts a wire value to a Status.
func ParseStatus(value string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(value))); s {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed:
		return s, true
	default:
		return "", false
	}
}

// Terminal reports whether no further work happens for the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether the state machine permits from -> to.
// Completion may overwrite an earlier terminal outcome (last write wins);
// nothing returns to queued and terminal jobs never run again.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusRunning:
		return from == StatusQueued || from == StatusRunning
	case StatusCompleted, StatusFailed:
		return from != ""
	default:
		return false
	}
}

// Result is the outcome for one input URL.
type Result struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Filename string  `json:"filename"`
	Text     *string `json:"text"`
	Warning  *string `json:"warning"`
}

// Job is the persisted record for one caption extraction batch.
type Job struct {
	ID           string            `json:"id"`
	Status       Status            `json:"status"`
	URLs         []string          `json:"urls"`
	CookieSecret string            `json:"cookie_secret,omitempty"`
	Headers      map[string]string `json:"headers"`
	Results      []Result          `json:"results"`
	Error        string            `json:"error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// New builds a queued job with a fresh id.
func New(urls []string, cookieSecret string, headers map[string]string, now time.Time) *Job {
	now = now.UTC()
	if headers == nil {
		headers = map[string]string{}
	}
	return &Job{
		ID:           NewID(now),
		Status:       StatusQueued,
		URLs:         append([]string(nil), urls...),
		CookieSecret: cookieSecret,
		Headers:      headers,
		Results:      []Result{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// MarkRunning records that a worker picked up the job.
func (j *Job) MarkRunning(now time.Time) error {
	if !CanTransition(j.Status, StatusRunning) {
		return fmt.Errorf("job %s is %s", j.ID, j.Status)
	}
	j.Status = StatusRunning
	j.UpdatedAt = now.UTC()
	return nil
}

// Fail marks the job failed and discards the cookie secret.
func (j *Job) Fail(message string, now time.Time) {
	j.Status = StatusFailed
	j.Error = message
	j.CookieSecret = ""
	j.UpdatedAt = now.UTC()
}

// Complete stores a worker's outcome and discards the cookie secret
// regardless of the outcome.
func (j *Job) Complete(status Status, results []Result, message string, now time.Time) error {
	if status != StatusCompleted && status != StatusFailed {
		return fmt.Errorf("invalid completion status %q", status)
	}
	j.Status = status
	if results == nil {
		results = []Result{}
	}
	j.Results = results
	j.Error = ""
	if status == StatusFailed {
		j.Error = message
	}
	j.CookieSecret = ""
	j.UpdatedAt = now.UTC()
	return nil
}

// View is the caller-facing projection of a job. It never carries cookie
// material or request headers.
type View struct {
	JobID     string    `json:"job_id"`
	Status    Status    `json:"status"`
	Results   []Result  `json:"results"`
	Error     *string   `json:"error"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View returns the read-only projection of j.
func (j *Job) View() View {
	v := View{
		JobID:     j.ID,
		Status:    j.Status,
		Results:   append([]Result{}, j.Results...),
		UpdatedAt: j.UpdatedAt,
	}
	if j.Error != "" {
		msg := j.Error
		v.Error = &msg
	}
	return v
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// NewID returns a time-prefixed id such as 20260102T150405Z-1a2b3c4d5e6f.
// Ids sort by creation time.
func NewID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return now.UTC().Format("20060102T150405Z") + "-" + random[:12]
}

// ValidID reports whether id is safe to use as a store key and file name.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
