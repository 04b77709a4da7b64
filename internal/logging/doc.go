// Package logging assembles structured slog loggers used by the coordinator
// daemon, the CLI, and the extraction worker.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// standard field keys (component, job_id, url, status). Both handlers replace
// values whose keys name credentials (cookies, tokens, authorization) so
// cookie jars and shared secrets never reach log output. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
