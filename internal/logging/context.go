package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for caption job identifiers.
	FieldJobID = "job_id"
	// FieldStatus carries a job status value.
	FieldStatus = "status"
	// FieldURL carries the video URL being processed.
	FieldURL = "url"
	// FieldRemoteAddr carries the client address of an HTTP request.
	FieldRemoteAddr = "remote_addr"
)

type jobIDKey struct{}

// WithJobID returns a context tagged with a job identifier for log correlation.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey{}, id)
}

// JobIDFromContext returns the job identifier stored by WithJobID.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(jobIDKey{}).(string)
	return id, ok && id != ""
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := JobIDFromContext(ctx); ok {
		return logger.With(String(FieldJobID, id))
	}
	return logger
}
