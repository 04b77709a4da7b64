package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"captionjob/internal/config"
	"captionjob/internal/coordinator"
	"captionjob/internal/cookies"
	"captionjob/internal/extract"
	"captionjob/internal/jobs"
	"captionjob/internal/logging"
	"captionjob/internal/sapisid"
	"captionjob/internal/services"
)

const component = "worker"

// Environment variables read by SettingsFromEnv.
const (
	EnvJobID   = "CAPTION_JOB_ID"
	EnvBaseURL = "CAPTION_JOB_BASE_URL"
	EnvToken   = "CAPTION_JOB_TOKEN"
)

// DefaultHeaders are sent with every platform request unless the job
// overrides them.
var DefaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
	"Referer":         "https://www.youtube.com/",
}

// Settings identifies the job and how to reach the coordinator.
type Settings struct {
	JobID           string
	BaseURL         string
	Token           string
	CallbackTimeout time.Duration
	Origin          string
	CookieDomain    string
}

// SettingsFromEnv reads the job identity from the environment and the rest
// from cfg.
func SettingsFromEnv(cfg *config.Config) Settings {
	return Settings{
		JobID:           strings.TrimSpace(os.Getenv(EnvJobID)),
		BaseURL:         strings.TrimSpace(os.Getenv(EnvBaseURL)),
		Token:           strings.TrimSpace(os.Getenv(EnvToken)),
		CallbackTimeout: cfg.CallbackTimeout(),
		Origin:          cfg.YouTube.Origin,
		CookieDomain:    cfg.YouTube.CookieDomain,
	}
}

// Validate reports missing required settings.
func (s Settings) Validate() error {
	var missing []string
	if s.JobID == "" {
		missing = append(missing, EnvJobID)
	}
	if s.BaseURL == "" {
		missing = append(missing, EnvBaseURL)
	}
	if s.Token == "" {
		missing = append(missing, EnvToken)
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrConfiguration, component, "settings",
			"missing required settings: "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// Extractor produces a transcript for one URL.
type Extractor interface {
	Extract(ctx context.Context, url string, req extract.Request) (extract.Transcript, error)
}

// Report summarizes a finished run.
type Report struct {
	JobID    string
	Status   jobs.Status
	Outcomes []Outcome
	Error    string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logging.NewComponentLogger(logger, component) }
}

// WithClock overrides the time source used for auth signatures.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithHTTPDoer overrides the callback HTTP client.
func WithHTTPDoer(doer HTTPDoer) Option {
	return func(r *Runner) { r.doer = doer }
}

// WithPreflight registers a readiness check that runs after the job is
// fetched. A failing check is reported as a failed job.
func WithPreflight(check func() error) Option {
	return func(r *Runner) { r.preflight = check }
}

// Runner executes a single job.
type Runner struct {
	settings  Settings
	extractor Extractor
	preflight func() error
	doer      HTTPDoer
	client    *Client
	logger    *slog.Logger
	now       func() time.Time
}

// NewRunner validates settings and builds a runner.
func NewRunner(settings Settings, extractor Extractor, opts ...Option) (*Runner, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if extractor == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "settings", "no extractor configured", nil)
	}
	r := &Runner{
		settings:  settings,
		extractor: extractor,
		logger:    logging.NewComponentLogger(nil, component),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.client = NewClient(settings.BaseURL, settings.Token, settings.CallbackTimeout, r.doer)
	return r, nil
}

// Run fetches, processes, and reports the job. It returns an error when the
// job could not be fetched, when posting fails, or when the posted status
// is failed.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	id := r.settings.JobID
	ctx = logging.WithJobID(ctx, id)
	logger := logging.WithContext(ctx, r.logger)
	report := Report{JobID: id}

	payload, err := r.client.FetchJob(ctx, id)
	if err != nil {
		return report, services.Wrap(services.ErrTransient, component, "fetch", "", err)
	}
	logger.Info("job fetched", logging.Int("url_count", len(payload.URLs)))

	outcomes, setupErr := r.process(ctx, payload)
	completion := coordinator.Completion{Status: string(jobs.StatusCompleted), Results: Results(outcomes)}
	if setupErr != nil {
		logger.Error("job setup failed", logging.Error(setupErr))
		completion = coordinator.Completion{Status: string(jobs.StatusFailed), Results: []jobs.Result{}, Error: setupErr.Error()}
	}
	report.Outcomes = outcomes
	report.Status = jobs.Status(completion.Status)
	report.Error = completion.Error

	if _, err := r.client.PostResult(ctx, id, completion); err != nil {
		return report, services.Wrap(services.ErrTransient, component, "complete", "", err)
	}
	logger.Info("job reported", logging.String(logging.FieldStatus, completion.Status), logging.Int("result_count", len(completion.Results)))
	if setupErr != nil {
		return report, fmt.Errorf("job %s failed: %w", id, setupErr)
	}
	return report, nil
}

func (r *Runner) process(ctx context.Context, payload coordinator.WorkPayload) ([]Outcome, error) {
	if r.preflight != nil {
		if err := r.preflight(); err != nil {
			return nil, err
		}
	}
	normalizer := cookies.Normalizer{Domain: r.settings.CookieDomain}
	jarText := normalizer.Normalize(payload.CookieText)
	jarPath, cleanup, err := cookies.WriteTempJar(jarText)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	req := extract.Request{
		CookieJar: jarPath,
		Headers:   r.headers(payload.HTTPHeaders, cookies.ExtractMap(jarText)),
	}
	logger := logging.WithContext(ctx, r.logger)

	outcomes := make([]Outcome, 0, len(payload.URLs))
	for _, u := range payload.URLs {
		transcript, err := r.extractor.Extract(ctx, u, req)
		outcome := Outcome{URL: u, Transcript: transcript, Err: err}
		switch {
		case err != nil:
			logger.Warn("extraction failed",
				logging.String(logging.FieldURL, u),
				logging.String("failure", extract.KindOf(err).String()),
				logging.Error(err))
		case !transcript.HasCaptions:
			logger.Info("no captions", logging.String(logging.FieldURL, u))
		default:
			logger.Info("captions extracted",
				logging.String(logging.FieldURL, u),
				logging.String("language", transcript.Language),
				logging.Bool("automatic", transcript.Automatic))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// headers layers the defaults, then the job headers, then a signature
// computed now from the cookies.
func (r *Runner) headers(job map[string]string, cookieMap map[string]string) map[string]string {
	merged := make(map[string]string, len(DefaultHeaders)+len(job)+5)
	for k, v := range DefaultHeaders {
		merged[k] = v
	}
	for k, v := range job {
		merged[k] = v
	}
	for k, v := range sapisid.Headers(cookieMap, r.settings.Origin, r.now()) {
		merged[k] = v
	}
	return merged
}
