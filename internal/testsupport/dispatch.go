package testsupport

import (
	"context"
	"sync"

	"captionjob/internal/dispatch"
)

// RecordingDispatcher captures dispatch requests and optionally fails them.
type RecordingDispatcher struct {
	mu       sync.Mutex
	Err      error
	requests []dispatch.Request
}

// Dispatch records req and returns Err when set.
func (d *RecordingDispatcher) Dispatch(_ context.Context, req dispatch.Request) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	if d.Err != nil {
		return "", d.Err
	}
	return "dispatched " + req.JobID, nil
}

// Requests returns a copy of the recorded requests.
func (d *RecordingDispatcher) Requests() []dispatch.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatch.Request(nil), d.requests...)
}
