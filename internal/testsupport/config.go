package testsupport

import (
	"path/filepath"
	"testing"

	"captionjob/internal/config"
)

// TestJobToken is the shared worker token set by NewConfig.
const TestJobToken = "test-job-token"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Dispatch settings are filled with placeholders so job creation is allowed.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Server.DataDir = filepath.Join(base, "data")
	cfgVal.Server.PublicBaseURL = "http://coordinator.test"
	cfgVal.Server.JobToken = TestJobToken
	cfgVal.Server.CreateRatePerMinute = 0
	cfgVal.Store.Dir = filepath.Join(base, "data", "jobs")
	cfgVal.Store.SQLitePath = filepath.Join(base, "data", "jobs.db")
	cfgVal.Dispatch.GitHubToken = "gh-test"
	cfgVal.Dispatch.GitHubRepo = "acme/captions"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithStoreBackend selects the job store backend.
func WithStoreBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Backend = backend
	}
}

// WithDispatchAPI points the GitHub dispatcher at a test server.
func WithDispatchAPI(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dispatch.APIBaseURL = baseURL
	}
}

// WithoutDispatch clears the dispatch credentials.
func WithoutDispatch() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dispatch.GitHubToken = ""
		b.cfg.Dispatch.GitHubRepo = ""
	}
}

// WithCreateRate enables the per-client creation limit.
func WithCreateRate(perMinute, burst int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.CreateRatePerMinute = perMinute
		b.cfg.Server.CreateRateBurst = burst
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Server.DataDir)
}
