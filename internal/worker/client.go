package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"captionjob/internal/coordinator"
	"captionjob/internal/jobs"
)

// TokenHeader carries the shared job token on callback requests.
const TokenHeader = "X-Job-Token"

// HTTPDoer describes the HTTP client used for callbacks.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the coordinator's internal job endpoints.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    HTTPDoer
}

// NewClient constructs a callback client. A nil doer uses a default client.
func NewClient(baseURL, token string, timeout time.Duration, doer HTTPDoer) *Client {
	if doer == nil {
		doer = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
		http:    doer,
	}
}

// FetchJob retrieves the work payload for id.
func (c *Client) FetchJob(ctx context.Context, id string) (coordinator.WorkPayload, error) {
	var payload coordinator.WorkPayload
	if err := c.do(ctx, http.MethodGet, c.jobURL(id), nil, &payload); err != nil {
		return coordinator.WorkPayload{}, fmt.Errorf("fetch job %s: %w", id, err)
	}
	return payload, nil
}

// PostResult reports the job outcome.
func (c *Client) PostResult(ctx context.Context, id string, completion coordinator.Completion) (coordinator.CompleteResult, error) {
	if completion.Results == nil {
		completion.Results = []jobs.Result{}
	}
	body, err := json.Marshal(completion)
	if err != nil {
		return coordinator.CompleteResult{}, fmt.Errorf("encode completion: %w", err)
	}
	var ack coordinator.CompleteResult
	if err := c.do(ctx, http.MethodPost, c.jobURL(id)+"/complete", body, &ack); err != nil {
		return coordinator.CompleteResult{}, fmt.Errorf("post result %s: %w", id, err)
	}
	return ack, nil
}

func (c *Client) jobURL(id string) string {
	return c.baseURL + "/internal/caption_jobs/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(TokenHeader, c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("coordinator returned %d: %s", resp.StatusCode, errorMessage(data))
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(data []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}
