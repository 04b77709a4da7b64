package coordinator

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"captionjob/internal/config"
	"captionjob/internal/cookies"
	"captionjob/internal/dispatch"
	"captionjob/internal/jobs"
	"captionjob/internal/logging"
	"captionjob/internal/sapisid"
	"captionjob/internal/services"
)

const component = "coordinator"

// Settings is the immutable subset of configuration the coordinator reads.
type Settings struct {
	PublicBaseURL     string
	JobToken          string
	Origin            string
	CookieDomain      string
	DefaultCookieText string
	DispatchTimeout   time.Duration
	// Missing lists dispatch settings absent at startup; job creation fails
	// with a configuration error while it is non-nil.
	Missing error
}

// SettingsFromConfig extracts coordinator settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		PublicBaseURL:     cfg.Server.PublicBaseURL,
		JobToken:          cfg.Server.JobToken,
		Origin:            cfg.YouTube.Origin,
		CookieDomain:      cfg.YouTube.CookieDomain,
		DefaultCookieText: cfg.YouTube.DefaultCookieText,
		DispatchTimeout:   cfg.DispatchTimeout(),
		Missing:           cfg.DispatchReady(),
	}
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.NewComponentLogger(logger, component) }
}

// Service implements the job lifecycle operations.
type Service struct {
	settings   Settings
	store      jobs.Store
	dispatcher dispatch.Dispatcher
	normalizer cookies.Normalizer
	now        func() time.Time
	logger     *slog.Logger
}

// New constructs a Service. dispatcher may be nil when dispatch settings are
// missing; Create then reports a configuration error.
func New(settings Settings, store jobs.Store, dispatcher dispatch.Dispatcher, opts ...Option) *Service {
	if settings.DispatchTimeout <= 0 {
		settings.DispatchTimeout = 15 * time.Second
	}
	s := &Service{
		settings:   settings,
		store:      store,
		dispatcher: dispatcher,
		normalizer: cookies.Normalizer{Domain: settings.CookieDomain},
		now:        time.Now,
		logger:     logging.NewComponentLogger(nil, component),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists a job, then dispatches the worker. When the
// dispatch fails the job is recorded as failed and the returned error wraps
// services.ErrDispatch; the result still carries the job id.
func (s *Service) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	urls := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return CreateResult{}, services.Wrap(services.ErrValidation, component, "create", "at least one url is required", nil)
	}
	if err := s.dispatchReady(); err != nil {
		return CreateResult{}, services.Wrap(services.ErrConfiguration, component, "create", "dispatch is not configured", err)
	}

	cookieText := req.CookieText
	if strings.TrimSpace(cookieText) == "" {
		cookieText = s.settings.DefaultCookieText
	}
	jar := s.normalizer.Normalize(cookieText)
	now := s.now()
	headers := sapisid.Headers(cookies.ExtractMap(jar), s.settings.Origin, now)

	job := jobs.New(urls, jar, headers, now)
	if err := s.store.Create(ctx, job); err != nil {
		return CreateResult{}, services.Wrap(services.ErrTransient, component, "create", "persist job", err)
	}
	ctx = logging.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("job queued", logging.Int("url_count", len(urls)), logging.Bool("signed", headers != nil))

	dispatchCtx, cancel := context.WithTimeout(ctx, s.settings.DispatchTimeout)
	defer cancel()
	message, err := s.dispatcher.Dispatch(dispatchCtx, dispatch.Request{JobID: job.ID, BaseURL: s.settings.PublicBaseURL})
	if err != nil {
		job.Fail(fmt.Sprintf("dispatch failed: %v", err), s.now())
		if saveErr := s.store.Save(ctx, job); saveErr != nil {
			logger.Error("record dispatch failure", logging.Error(saveErr))
		}
		logger.Warn("dispatch failed", logging.Error(err))
		return CreateResult{JobID: job.ID, Status: jobs.StatusFailed, Message: job.Error},
			services.Wrap(services.ErrDispatch, component, "dispatch", job.ID, err)
	}

	logger.Info("job dispatched", logging.String("detail", message))
	return CreateResult{JobID: job.ID, Status: jobs.StatusQueued, Message: message}, nil
}

// FetchForWork hands the job parameters to the worker and marks it running.
// Repeated fetches keep the job running; terminal jobs are refused with a
// conflict error and left unchanged.
func (s *Service) FetchForWork(ctx context.Context, id, token string) (WorkPayload, error) {
	job, err := s.authorizedJob(ctx, "fetch", id, token)
	if err != nil {
		return WorkPayload{}, err
	}
	if err := job.MarkRunning(s.now()); err != nil {
		return WorkPayload{}, services.Wrap(services.ErrConflict, component, "fetch", "job already finished", err)
	}
	if err := s.store.Save(ctx, job); err != nil {
		return WorkPayload{}, services.Wrap(services.ErrTransient, component, "fetch", "persist job", err)
	}
	logging.WithContext(logging.WithJobID(ctx, id), s.logger).Info("job picked up by worker")

	headers := make(map[string]string, len(job.Headers))
	for k, v := range job.Headers {
		headers[k] = v
	}
	return WorkPayload{
		JobID:       job.ID,
		URLs:        append([]string(nil), job.URLs...),
		CookieText:  job.CookieSecret,
		HTTPHeaders: headers,
	}, nil
}

// Complete stores the worker's outcome. The cookie jar is discarded whatever
// the outcome. A second completion overwrites the first.
func (s *Service) Complete(ctx context.Context, id, token string, c Completion) (CompleteResult, error) {
	job, err := s.authorizedJob(ctx, "complete", id, token)
	if err != nil {
		return CompleteResult{}, err
	}
	status, ok := jobs.ParseStatus(c.Status)
	if !ok || !status.Terminal() {
		return CompleteResult{}, services.Wrap(services.ErrValidation, component, "complete",
			fmt.Sprintf("status must be completed or failed, got %q", c.Status), nil)
	}
	for i, r := range c.Results {
		if strings.TrimSpace(r.URL) == "" {
			return CompleteResult{}, services.Wrap(services.ErrValidation, component, "complete",
				fmt.Sprintf("result %d has no url", i), nil)
		}
	}

	logger := logging.WithContext(logging.WithJobID(ctx, id), s.logger)
	if job.Status.Terminal() {
		logger.Warn("overwriting finished job",
			logging.String("previous_status", string(job.Status)),
			logging.String(logging.FieldStatus, string(status)))
	}
	if err := job.Complete(status, c.Results, c.Error, s.now()); err != nil {
		return CompleteResult{}, services.Wrap(services.ErrValidation, component, "complete", "", err)
	}
	if err := s.store.Save(ctx, job); err != nil {
		return CompleteResult{}, services.Wrap(services.ErrTransient, component, "complete", "persist job", err)
	}
	logger.Info("job finished", logging.String(logging.FieldStatus, string(status)), logging.Int("result_count", len(job.Results)))
	return CompleteResult{JobID: job.ID, Status: job.Status}, nil
}

// Poll returns the caller-facing view of a job.
func (s *Service) Poll(ctx context.Context, id string) (jobs.View, error) {
	job, err := s.load(ctx, "poll", id)
	if err != nil {
		return jobs.View{}, err
	}
	return job.View(), nil
}

// List returns up to limit job views, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]jobs.View, error) {
	list, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "list", "", err)
	}
	views := make([]jobs.View, 0, len(list))
	for _, job := range list {
		views = append(views, job.View())
	}
	return views, nil
}

func (s *Service) dispatchReady() error {
	if s.settings.Missing != nil {
		return s.settings.Missing
	}
	switch {
	case s.dispatcher == nil:
		return errors.New("no dispatcher configured")
	case s.settings.PublicBaseURL == "":
		return errors.New("missing required settings: server.public_base_url")
	case s.settings.JobToken == "":
		return errors.New("missing required settings: server.job_token")
	}
	return nil
}

func (s *Service) authorizedJob(ctx context.Context, op, id, token string) (*jobs.Job, error) {
	if !s.tokenMatches(token) {
		return nil, services.Wrap(services.ErrForbidden, component, op, "invalid job token", nil)
	}
	return s.load(ctx, op, id)
}

func (s *Service) tokenMatches(token string) bool {
	expected := s.settings.JobToken
	if expected == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

func (s *Service) load(ctx context.Context, op, id string) (*jobs.Job, error) {
	job, err := s.store.Load(ctx, id)
	if errors.Is(err, jobs.ErrInvalidID) {
		return nil, services.Wrap(services.ErrNotFound, component, op, "job "+id, err)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, op, "load job", err)
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, component, op, "job "+id, nil)
	}
	return job, nil
}
