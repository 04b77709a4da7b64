package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"captionjob/internal/config"
	"captionjob/internal/daemon"
	"captionjob/internal/jobs"
	"captionjob/internal/logging"
	"captionjob/internal/testsupport"
)

type harness struct {
	cfg        *config.Config
	store      jobs.Store
	dispatcher *testsupport.RecordingDispatcher
	daemon     *daemon.Daemon
	server     *httptest.Server
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	dispatcher := &testsupport.RecordingDispatcher{}
	d, err := daemon.New(cfg, store, dispatcher, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	server := httptest.NewServer(d.Handler())
	t.Cleanup(server.Close)
	return &harness{cfg: cfg, store: store, dispatcher: dispatcher, daemon: d, server: server}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("X-Job-Token", token)
	}
	resp, err := h.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func TestAPIJobLifecycle(t *testing.T) {
	h := newHarness(t)

	resp, created := h.do(t, http.MethodPost, "/api/caption_jobs", "", map[string]any{
		"urls":        []string{" https://youtu.be/a ", "", "https://youtu.be/b"},
		"cookie_text": "SAPISID=secret; SID=abc",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d (%v)", resp.StatusCode, created)
	}
	id, _ := created["job_id"].(string)
	if id == "" || created["status"] != "queued" {
		t.Fatalf("create payload = %v", created)
	}
	if reqs := h.dispatcher.Requests(); len(reqs) != 1 || reqs[0].JobID != id || reqs[0].BaseURL != "http://coordinator.test" {
		t.Fatalf("dispatch requests = %+v", reqs)
	}

	resp, _ = h.do(t, http.MethodGet, "/internal/caption_jobs/"+id, "wrong", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong token status = %d", resp.StatusCode)
	}

	resp, work := h.do(t, http.MethodGet, "/internal/caption_jobs/"+id, testsupport.TestJobToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fetch status = %d (%v)", resp.StatusCode, work)
	}
	urls, _ := work["urls"].([]any)
	if len(urls) != 2 || urls[0] != "https://youtu.be/a" {
		t.Fatalf("work urls = %v", work["urls"])
	}
	if cookie, _ := work["cookie_text"].(string); !strings.Contains(cookie, "SAPISID\tsecret") {
		t.Fatalf("cookie_text = %q", cookie)
	}
	headers, _ := work["http_headers"].(map[string]any)
	if auth, _ := headers["Authorization"].(string); !strings.HasPrefix(auth, "SAPISIDHASH ") {
		t.Fatalf("http_headers = %v", headers)
	}

	_, polled := h.do(t, http.MethodGet, "/api/caption_jobs/"+id, "", nil)
	if polled["status"] != "running" {
		t.Fatalf("poll after fetch = %v", polled)
	}

	resp, done := h.do(t, http.MethodPost, "/internal/caption_jobs/"+id+"/complete", testsupport.TestJobToken, map[string]any{
		"status": "completed",
		"results": []map[string]any{
			{"url": "https://youtu.be/a", "title": "A", "filename": "A.txt", "text": "hello", "warning": nil},
			{"url": "https://youtu.be/b", "title": "(unknown)", "filename": "video.txt", "text": nil, "warning": "no captions"},
		},
	})
	if resp.StatusCode != http.StatusOK || done["status"] != "completed" {
		t.Fatalf("complete = %d %v", resp.StatusCode, done)
	}

	_, polled = h.do(t, http.MethodGet, "/api/caption_jobs/"+id, "", nil)
	results, _ := polled["results"].([]any)
	if polled["status"] != "completed" || len(results) != 2 || polled["error"] != nil {
		t.Fatalf("final view = %v", polled)
	}
	if _, ok := polled["cookie_secret"]; ok {
		t.Fatal("view leaked cookie material")
	}

	stored, err := h.store.Load(context.Background(), id)
	if err != nil || stored == nil {
		t.Fatalf("load: %v", err)
	}
	if stored.CookieSecret != "" {
		t.Fatal("cookie secret not erased")
	}

	resp, _ = h.do(t, http.MethodGet, "/internal/caption_jobs/"+id, testsupport.TestJobToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("fetch after completion status = %d", resp.StatusCode)
	}

	_, listed := h.do(t, http.MethodGet, "/api/caption_jobs?limit=10", "", nil)
	if items, _ := listed["jobs"].([]any); len(items) != 1 {
		t.Fatalf("list = %v", listed)
	}
}

func TestAPICreateValidation(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodPost, "/api/caption_jobs", "", map[string]any{"urls": []string{" ", ""}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d (%v)", resp.StatusCode, body)
	}
	if len(h.dispatcher.Requests()) != 0 {
		t.Fatal("dispatch must not run for invalid input")
	}

	req, _ := http.NewRequest(http.MethodPost, h.server.URL+"/api/caption_jobs", strings.NewReader("{"))
	raw, err := h.server.Client().Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", raw.StatusCode)
	}
}

func TestAPICreateWithoutDispatchConfig(t *testing.T) {
	h := newHarness(t, testsupport.WithoutDispatch())

	resp, body := h.do(t, http.MethodPost, "/api/caption_jobs", "", map[string]any{"urls": []string{"https://youtu.be/a"}})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d (%v)", resp.StatusCode, body)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "dispatch.github_token") {
		t.Fatalf("error = %v", body["error"])
	}
	list, err := h.store.List(context.Background(), 10)
	if err != nil || len(list) != 0 {
		t.Fatalf("jobs persisted = %d (%v)", len(list), err)
	}
}

func TestAPICreateDispatchFailure(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.Err = errors.New("github returned 404: Not Found")

	resp, body := h.do(t, http.MethodPost, "/api/caption_jobs", "", map[string]any{
		"urls":        []string{"https://youtu.be/a"},
		"cookie_text": "SID=abc",
	})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d (%v)", resp.StatusCode, body)
	}
	id, _ := body["job_id"].(string)
	if id == "" || body["error"] == nil {
		t.Fatalf("body = %v", body)
	}
	stored, err := h.store.Load(context.Background(), id)
	if err != nil || stored == nil {
		t.Fatalf("load: %v", err)
	}
	if stored.Status != jobs.StatusFailed || stored.CookieSecret != "" || !strings.Contains(stored.Error, "404") {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestAPICreateRateLimited(t *testing.T) {
	h := newHarness(t, testsupport.WithCreateRate(1, 1))

	body := map[string]any{"urls": []string{"https://youtu.be/a"}}
	if resp, payload := h.do(t, http.MethodPost, "/api/caption_jobs", "", body); resp.StatusCode != http.StatusOK {
		t.Fatalf("first create = %d (%v)", resp.StatusCode, payload)
	}
	if resp, _ := h.do(t, http.MethodPost, "/api/caption_jobs", "", body); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second create = %d", resp.StatusCode)
	}
}

func TestAPICreateRateLimitIgnoresSpoofedForwardingHeaders(t *testing.T) {
	h := newHarness(t, testsupport.WithCreateRate(1, 1))

	statuses := make([]int, 0, 5)
	for i := range 5 {
		data, _ := json.Marshal(map[string]any{"urls": []string{"https://youtu.be/a"}})
		req, err := http.NewRequest(http.MethodPost, h.server.URL+"/api/caption_jobs", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.1.0.%d", i+1))
		resp, err := h.server.Client().Do(req)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}
	if statuses[0] != http.StatusOK {
		t.Fatalf("first create = %d", statuses[0])
	}
	for i, status := range statuses[1:] {
		if status != http.StatusTooManyRequests {
			t.Fatalf("create %d = %d, want 429 (all %v)", i+1, status, statuses)
		}
	}
}

func TestAPIUnknownJobAndHealth(t *testing.T) {
	h := newHarness(t)

	if resp, _ := h.do(t, http.MethodGet, "/api/caption_jobs/20260101T000000Z-000000000000", "", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("poll unknown = %d", resp.StatusCode)
	}
	if resp, _ := h.do(t, http.MethodGet, "/internal/caption_jobs/missing", testsupport.TestJobToken, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("fetch unknown = %d", resp.StatusCode)
	}
	if resp, _ := h.do(t, http.MethodGet, "/internal/caption_jobs/missing", "", nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("fetch without token = %d", resp.StatusCode)
	}
	if resp, _ := h.do(t, http.MethodGet, "/api/caption_jobs?limit=zero", "", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit = %d", resp.StatusCode)
	}
	resp, body := h.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health = %d %v", resp.StatusCode, body)
	}
}

func TestAPICompleteRejectsBadStatus(t *testing.T) {
	h := newHarness(t)
	job := testsupport.NewJob(t, h.store, "", "https://youtu.be/a")

	resp, _ := h.do(t, http.MethodPost, "/internal/caption_jobs/"+job.ID+"/complete", testsupport.TestJobToken, map[string]any{"status": "running"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestDaemonStartStop(t *testing.T) {
	h := newHarness(t)
	t.Cleanup(func() { _ = h.daemon.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := h.daemon.Status()
	if !status.Running || !status.DispatchReady {
		t.Fatalf("status = %+v", status)
	}
	if _, err := os.Stat(status.LockFilePath); err != nil {
		t.Fatalf("lock file: %v", err)
	}

	resp, err := http.Get("http://" + status.Address + "/health")
	if err != nil {
		t.Fatalf("health over listener: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	if err := h.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	other, err := daemon.New(h.cfg, h.store, h.dispatcher, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := other.Start(ctx); err == nil {
		other.Stop()
		t.Fatal("expected lock contention")
	}

	h.daemon.Stop()
	if h.daemon.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}
