// Package dispatch starts the external extraction worker for a job.
//
// The only trigger implemented is a GitHub Actions workflow_dispatch call;
// the workflow receives the job id and the coordinator callback URL as
// inputs and runs `captionjob worker run` on a hosted runner.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"captionjob/internal/config"
)

// Request carries the inputs handed to the worker run.
type Request struct {
	JobID   string
	BaseURL string
}

// Dispatcher triggers one worker run per job. Dispatch is attempted once;
// an error means the worker will not run.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (string, error)
}

// HTTPDoer describes the HTTP client used by the GitHub dispatcher.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GitHub triggers a workflow_dispatch event on a repository workflow.
type GitHub struct {
	apiBase  string
	owner    string
	repo     string
	workflow string
	ref      string
	token    string
	client   HTTPDoer
}

// NewGitHub builds a dispatcher from the [dispatch] section. A nil client
// uses http.DefaultClient; callers bound the call through ctx.
func NewGitHub(cfg config.Dispatch, client HTTPDoer) (*GitHub, error) {
	owner, repo, ok := strings.Cut(strings.Trim(cfg.GitHubRepo, "/"), "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("dispatch: github_repo must be owner/repo, got %q", cfg.GitHubRepo)
	}
	if strings.TrimSpace(cfg.GitHubToken) == "" {
		return nil, errors.New("dispatch: github_token must be set")
	}
	if client == nil {
		client = http.DefaultClient
	}
	apiBase := strings.TrimRight(cfg.APIBaseURL, "/")
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}
	workflow := cfg.Workflow
	if workflow == "" {
		workflow = "caption-job.yml"
	}
	ref := cfg.Ref
	if ref == "" {
		ref = "main"
	}
	return &GitHub{
		apiBase:  apiBase,
		owner:    owner,
		repo:     repo,
		workflow: workflow,
		ref:      ref,
		token:    strings.TrimSpace(cfg.GitHubToken),
		client:   client,
	}, nil
}

type dispatchBody struct {
	Ref    string            `json:"ref"`
	Inputs map[string]string `json:"inputs"`
}

// Dispatch sends the workflow_dispatch request and returns a human-readable
// confirmation message. GitHub answers 204 No Content on success.
func (g *GitHub) Dispatch(ctx context.Context, req Request) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/dispatches",
		g.apiBase, url.PathEscape(g.owner), url.PathEscape(g.repo), url.PathEscape(g.workflow))

	payload, err := json.Marshal(dispatchBody{
		Ref: g.ref,
		Inputs: map[string]string{
			"job_id":   req.JobID,
			"base_url": req.BaseURL,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode dispatch body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build dispatch request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.token)
	httpReq.Header.Set("Accept", "application/vnd.github+json")
	httpReq.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("dispatch workflow: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("github returned %d: %s", resp.StatusCode, summarize(body))
	}
	return fmt.Sprintf("dispatched workflow %s on %s/%s@%s", g.workflow, g.owner, g.repo, g.ref), nil
}

func summarize(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty response"
	}
	return text
}
