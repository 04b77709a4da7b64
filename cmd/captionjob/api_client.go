package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"captionjob/internal/coordinator"
	"captionjob/internal/jobs"
)

const apiTimeout = 30 * time.Second

// apiClient talks to the coordinator's public job endpoints.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: apiTimeout}}
}

// apiError carries the status and body of a non-2xx response.
type apiError struct {
	Status  int
	Message string
	JobID   string
}

func (e *apiError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("coordinator returned %d for job %s: %s", e.Status, e.JobID, e.Message)
	}
	return fmt.Sprintf("coordinator returned %d: %s", e.Status, e.Message)
}

func (c *apiClient) create(ctx context.Context, req coordinator.CreateRequest) (coordinator.CreateResult, error) {
	var result coordinator.CreateResult
	err := c.do(ctx, http.MethodPost, "/api/caption_jobs", req, &result)
	return result, err
}

func (c *apiClient) get(ctx context.Context, id string) (jobs.View, error) {
	var view jobs.View
	err := c.do(ctx, http.MethodGet, "/api/caption_jobs/"+url.PathEscape(id), nil, &view)
	return view, err
}

func (c *apiClient) list(ctx context.Context, limit int) ([]jobs.View, error) {
	var payload struct {
		Jobs []jobs.View `json:"jobs"`
	}
	err := c.do(ctx, http.MethodGet, "/api/caption_jobs?limit="+strconv.Itoa(limit), nil, &payload)
	return payload.Jobs, err
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact coordinator at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
			JobID string `json:"job_id"`
		}
		_ = json.Unmarshal(data, &payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &apiError{Status: resp.StatusCode, Message: payload.Error, JobID: payload.JobID}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
