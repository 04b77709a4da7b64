package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"sort"
	"strings"
	"time"

	"captionjob/internal/config"
	"captionjob/internal/cookies"
	"captionjob/internal/services"
)

const (
	maxTrackBytes = 8 << 20
	stderrTail    = 2 << 10
)

// Stable client selection and the option that drops adaptive (DASH/HLS)
// manifests from the probe.
const (
	playerClients   = "youtube:player_client=android,ios"
	skipAdaptiveArg = ";skip=dash,hls"
)

// formatUnavailableMarkers are the yt-dlp diagnostics that indicate the
// offered formats, not the video itself, were the problem.
var formatUnavailableMarkers = []string{
	"format is not available",
	"no video formats found",
	"video unavailable",
}

// HTTPDoer describes the HTTP client used for track downloads.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// YtDlp implements Source with the yt-dlp binary.
type YtDlp struct {
	Binary       string
	ProbeTimeout time.Duration
	FetchTimeout time.Duration
	Proxy        string
	Client       HTTPDoer
	Now          func() time.Time
}

// NewYtDlp builds a YtDlp source from the [worker] section.
func NewYtDlp(cfg *config.Config) (*YtDlp, error) {
	client := &http.Client{}
	if cfg.Worker.ProxyURL != "" {
		proxy, err := url.Parse(cfg.Worker.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("worker.proxy_url: %w", err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}
	return &YtDlp{
		Binary:       cfg.Worker.YtDlpBinary,
		ProbeTimeout: cfg.ProbeTimeout(),
		FetchTimeout: cfg.FetchTimeout(),
		Proxy:        cfg.Worker.ProxyURL,
		Client:       client,
		Now:          time.Now,
	}, nil
}

// Args returns the yt-dlp argument list for a metadata probe.
func (y *YtDlp) Args(videoURL string, req Request) []string {
	extractorArgs := playerClients
	if !req.Adaptive {
		extractorArgs += skipAdaptiveArg
	}
	args := []string{
		"--dump-single-json",
		"--skip-download",
		"--no-warnings",
		"--no-playlist",
		"--write-subs",
		"--write-auto-subs",
		"--extractor-args", extractorArgs,
	}
	if req.CookieJar != "" {
		args = append(args, "--cookies", req.CookieJar)
	}
	if y.Proxy != "" {
		args = append(args, "--proxy", y.Proxy)
	}
	keys := make([]string, 0, len(req.Headers))
	for k := range req.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--add-header", k+":"+req.Headers[k])
	}
	return append(args, "--", videoURL)
}

// Probe runs yt-dlp and decodes its JSON report.
func (y *YtDlp) Probe(ctx context.Context, videoURL string, req Request) (*VideoInfo, error) {
	if y.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.ProbeTimeout)
		defer cancel()
	}
	binary := y.Binary
	if binary == "" {
		binary = "yt-dlp"
	}

	cmd := exec.CommandContext(ctx, binary, y.Args(videoURL, req)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diag := tail(stderr.String())
		kind := classifyDiagnostics(diag)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = FailureOther
			diag = "timed out"
		}
		if diag == "" {
			diag = err.Error()
		}
		return nil, &Failure{Kind: kind, Op: "yt-dlp", Err: services.Wrap(services.ErrExternalTool, "", "", diag, nil)}
	}

	var info VideoInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, &Failure{Kind: FailureOther, Op: "decode yt-dlp output", Err: err}
	}
	return &info, nil
}

// Download fetches a caption track with the job headers and the jar cookies
// that apply to the track URL.
func (y *YtDlp) Download(ctx context.Context, trackURL string, req Request) (string, error) {
	if y.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.FetchTimeout)
		defer cancel()
	}
	target, err := url.Parse(trackURL)
	if err != nil {
		return "", &Failure{Kind: FailureOther, Op: "parse track url", Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", &Failure{Kind: FailureOther, Op: "build track request", Err: err}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.CookieJar != "" {
		entries, err := cookies.ReadJar(req.CookieJar)
		if err != nil {
			return "", &Failure{Kind: FailureOther, Op: "load cookies", Err: err}
		}
		now := time.Now
		if y.Now != nil {
			now = y.Now
		}
		if header := cookies.HeaderFor(entries, target, now()); header != "" {
			httpReq.Header.Set("Cookie", header)
		}
	}

	client := y.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", &Failure{Kind: FailureOther, Op: "download track", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &Failure{Kind: FailureOther, Op: "download track", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTrackBytes))
	if err != nil {
		return "", &Failure{Kind: FailureOther, Op: "read track", Err: err}
	}
	return string(body), nil
}

func classifyDiagnostics(stderr string) FailureKind {
	lower := strings.ToLower(stderr)
	for _, marker := range formatUnavailableMarkers {
		if strings.Contains(lower, marker) {
			return FailureFormatUnavailable
		}
	}
	return FailureOther
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = s[len(s)-stderrTail:]
	}
	return s
}
