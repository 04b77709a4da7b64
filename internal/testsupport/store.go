package testsupport

import (
	"context"
	"testing"
	"time"

	"captionjob/internal/config"
	"captionjob/internal/jobs"
)

// MustOpenStore opens the configured job store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) jobs.Store {
	t.Helper()

	store, err := jobs.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob persists a queued job for tests.
func NewJob(t testing.TB, store jobs.Store, cookieText string, urls ...string) *jobs.Job {
	t.Helper()

	job := jobs.New(urls, cookieText, nil, time.Now())
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}
