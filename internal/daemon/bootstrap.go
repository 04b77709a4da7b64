package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"captionjob/internal/config"
	"captionjob/internal/dispatch"
	"captionjob/internal/jobs"
	"captionjob/internal/logging"
)

// NewDispatcher builds the GitHub dispatcher, or returns nil with the reason
// when dispatch settings are incomplete.
func NewDispatcher(cfg *config.Config) (dispatch.Dispatcher, error) {
	if err := cfg.DispatchReady(); err != nil {
		return nil, err
	}
	gh, err := dispatch.NewGitHub(cfg.Dispatch, &http.Client{Timeout: cfg.DispatchTimeout()})
	if err != nil {
		return nil, err
	}
	return gh, nil
}

// Run opens the store, starts the daemon, and blocks until ctx is done.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := jobs.Open(ctx, cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return fmt.Errorf("open job store: %w", err)
	}

	dispatcher, err := NewDispatcher(cfg)
	if err != nil {
		logger.Warn("dispatcher unavailable", logging.Error(err))
		dispatcher = nil
	}

	d, err := New(cfg, store, dispatcher, logger)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	logger.Info("captionjobd shutting down")
	return nil
}
