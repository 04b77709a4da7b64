package coordinator

import (
	"captionjob/internal/jobs"
)

// CreateRequest is a caller's job submission.
type CreateRequest struct {
	URLs       []string `json:"urls"`
	CookieText string   `json:"cookie_text"`
}

// CreateResult acknowledges a submission.
type CreateResult struct {
	JobID   string      `json:"job_id"`
	Status  jobs.Status `json:"status"`
	Message string      `json:"message"`
}

// WorkPayload is what the worker receives when it picks up a job.
type WorkPayload struct {
	JobID       string            `json:"job_id"`
	URLs        []string          `json:"urls"`
	CookieText  string            `json:"cookie_text"`
	HTTPHeaders map[string]string `json:"http_headers"`
}

// Completion is the worker's report for a job.
type Completion struct {
	Status  string        `json:"status"`
	Results []jobs.Result `json:"results"`
	Error   string        `json:"error"`
}

// CompleteResult acknowledges a completion.
type CompleteResult struct {
	JobID  string      `json:"job_id"`
	Status jobs.Status `json:"status"`
}
