package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"captionjob/internal/config"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDirectoryAccess("test", dir); !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
	if result := CheckDirectoryAccess("test", filepath.Join(dir, "nope")); result.Passed || result.Detail == "" {
		t.Fatalf("expected failure for missing dir, got %+v", result)
	}
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", file); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBinaries(t *testing.T) {
	present := filepath.Join(t.TempDir(), "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	results := CheckBinaries([]Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Optional: true},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Passed || results[0].Detail != present {
		t.Fatalf("present = %+v", results[0])
	}
	if results[1].Passed || !strings.Contains(results[1].Detail, "not found") {
		t.Fatalf("missing = %+v", results[1])
	}
	if results[2].Passed || results[2].Detail != "command not configured" {
		t.Fatalf("unset = %+v", results[2])
	}

	err := Failed(results)
	if err == nil || !strings.Contains(err.Error(), "Missing") || strings.Contains(err.Error(), "Unset") {
		t.Fatalf("Failed = %v", err)
	}
	if Failed(results[:1]) != nil {
		t.Fatal("all passing checks should not fail")
	}
}

func TestCheckGitHub(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Header.Get("Authorization") != "Bearer good":
			w.WriteHeader(http.StatusUnauthorized)
		case r.URL.Path != "/repos/acme/captions/actions/workflows/caption-job.yml":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	cfg := config.Dispatch{APIBaseURL: srv.URL, GitHubRepo: "acme/captions", Workflow: "caption-job.yml", GitHubToken: "good"}
	if result := CheckGitHub(context.Background(), cfg); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}

	bad := cfg
	bad.GitHubToken = "bad"
	if result := CheckGitHub(context.Background(), bad); result.Passed || !strings.Contains(result.Detail, "auth failed") {
		t.Fatalf("bad token = %+v", result)
	}

	missing := cfg
	missing.Workflow = "other.yml"
	if result := CheckGitHub(context.Background(), missing); result.Passed || !strings.Contains(result.Detail, "not found") {
		t.Fatalf("missing workflow = %+v", result)
	}
}

func TestCheckSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	if result := CheckSQLite(context.Background(), path); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if result := CheckSQLite(context.Background(), filepath.Join(t.TempDir(), "missing", "jobs.db")); result.Passed {
		t.Fatal("expected failure for missing parent directory")
	}
}

func TestCheckRedisInvalidURL(t *testing.T) {
	if result := CheckRedis(context.Background(), "not-a-url"); result.Passed || !strings.Contains(result.Detail, "invalid redis url") {
		t.Fatalf("result = %+v", result)
	}
}

func TestCoordinatorReportsMissingDispatch(t *testing.T) {
	cfg := config.Default()
	cfg.Server.DataDir = t.TempDir()
	cfg.Store.Dir = t.TempDir()

	results := Coordinator(context.Background(), &cfg)
	if len(results) != 3 {
		t.Fatalf("results = %+v", results)
	}
	if !results[0].Passed || !results[1].Passed {
		t.Fatalf("directory checks = %+v", results[:2])
	}
	if results[2].Name != "Dispatch" || results[2].Passed || !strings.Contains(results[2].Detail, "dispatch.github_token") {
		t.Fatalf("dispatch = %+v", results[2])
	}
}
