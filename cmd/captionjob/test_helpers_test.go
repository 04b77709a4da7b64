package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"captionjob/internal/config"
	"captionjob/internal/daemon"
	"captionjob/internal/jobs"
	"captionjob/internal/logging"
	"captionjob/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      jobs.Store
	dispatcher *testsupport.RecordingDispatcher
	server     *httptest.Server
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Chdir(base)

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	configPath := filepath.Join(homeDir, ".config", "captionjob", "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	dispatcher := &testsupport.RecordingDispatcher{}
	d, err := daemon.New(cfg, store, dispatcher, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	server := httptest.NewServer(d.Handler())
	t.Cleanup(server.Close)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		server:     server,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, server, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if server != "" {
		flags = append(flags, "--server", server)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[server]
bind = %q
public_base_url = %q
job_token = %q
data_dir = %q

[store]
dir = %q

[dispatch]
github_token = %q
github_repo = %q
`,
		cfg.Server.Bind,
		cfg.Server.PublicBaseURL,
		cfg.Server.JobToken,
		cfg.Server.DataDir,
		cfg.Store.Dir,
		cfg.Dispatch.GitHubToken,
		cfg.Dispatch.GitHubRepo,
	)
	testsupport.WriteFile(t, path, content)
}

// appendConfig adds lines to the last table of the test config.
func appendConfig(t *testing.T, path, lines string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	testsupport.WriteFile(t, path, string(data)+lines)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
