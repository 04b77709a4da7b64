package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gofrs/flock"

	"captionjob/internal/config"
	"captionjob/internal/coordinator"
	"captionjob/internal/dispatch"
	"captionjob/internal/jobs"
	"captionjob/internal/logging"
)

// Daemon owns the coordinator service and its HTTP server, and enforces
// single-instance execution per data directory.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   jobs.Store
	service *coordinator.Service
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	Address       string
	StoreBackend  string
	LockFilePath  string
	DispatchReady bool
	DispatchError string
}

// New constructs a daemon. A nil dispatcher is allowed; job creation then
// fails with a configuration error.
func New(cfg *config.Config, store jobs.Store, dispatcher dispatch.Dispatcher, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	service := coordinator.New(coordinator.SettingsFromConfig(cfg), store, dispatcher, coordinator.WithLogger(logger))
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		service:  service,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg.Server, service, logger)
	return d, nil
}

// Start acquires the daemon lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another captionjobd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)

	if err := d.cfg.DispatchReady(); err != nil {
		d.logger.Warn("job creation disabled until dispatch is configured", logging.Error(err))
	}
	d.logger.Info("captionjobd started",
		logging.String("lock", d.lockPath),
		logging.String("store", d.cfg.Store.Backend),
		logging.String("address", d.api.address()))
	return nil
}

// Stop shuts down the API and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("captionjobd stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Handler exposes the API routes without a listener.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		Address:      d.api.address(),
		StoreBackend: d.cfg.Store.Backend,
		LockFilePath: d.lockPath,
	}
	if err := d.cfg.DispatchReady(); err != nil {
		status.DispatchError = err.Error()
	} else {
		status.DispatchReady = true
	}
	return status
}
