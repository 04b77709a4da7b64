package dispatch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"captionjob/internal/config"
	"captionjob/internal/dispatch"
)

func TestGitHubDispatchSendsWorkflowInputs(t *testing.T) {
	var (
		gotPath   string
		gotAuth   string
		gotAccept string
		gotBody   map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d, err := dispatch.NewGitHub(config.Dispatch{
		GitHubToken: "gh-token",
		GitHubRepo:  "acme/captions",
		Workflow:    "caption-job.yml",
		Ref:         "release",
		APIBaseURL:  server.URL,
	}, server.Client())
	if err != nil {
		t.Fatalf("NewGitHub: %v", err)
	}

	msg, err := d.Dispatch(context.Background(), dispatch.Request{JobID: "job-1", BaseURL: "https://coord.example.com"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(msg, "caption-job.yml") {
		t.Fatalf("unexpected message: %q", msg)
	}
	if gotPath != "/repos/acme/captions/actions/workflows/caption-job.yml/dispatches" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotAuth != "Bearer gh-token" || gotAccept != "application/vnd.github+json" {
		t.Fatalf("unexpected headers: auth=%q accept=%q", gotAuth, gotAccept)
	}
	if gotBody["ref"] != "release" {
		t.Fatalf("unexpected ref: %v", gotBody["ref"])
	}
	inputs, _ := gotBody["inputs"].(map[string]any)
	if inputs["job_id"] != "job-1" || inputs["base_url"] != "https://coord.example.com" {
		t.Fatalf("unexpected inputs: %v", inputs)
	}
}

func TestGitHubDispatchReportsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Workflow does not have 'workflow_dispatch' trigger"}`))
	}))
	defer server.Close()

	d, err := dispatch.NewGitHub(config.Dispatch{GitHubToken: "t", GitHubRepo: "a/b", APIBaseURL: server.URL}, nil)
	if err != nil {
		t.Fatalf("NewGitHub: %v", err)
	}
	_, err = d.Dispatch(context.Background(), dispatch.Request{JobID: "j", BaseURL: "http://x"})
	if err == nil {
		t.Fatal("expected dispatch error")
	}
	if !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "workflow_dispatch") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewGitHubValidatesSettings(t *testing.T) {
	if _, err := dispatch.NewGitHub(config.Dispatch{GitHubToken: "t", GitHubRepo: "nope"}, nil); err == nil {
		t.Fatal("expected error for malformed repo")
	}
	if _, err := dispatch.NewGitHub(config.Dispatch{GitHubRepo: "a/b"}, nil); err == nil {
		t.Fatal("expected error for missing token")
	}
}
