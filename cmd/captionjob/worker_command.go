package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"captionjob/internal/extract"
	"captionjob/internal/logging"
	"captionjob/internal/preflight"
	"captionjob/internal/worker"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Worker-side job execution",
	}
	workerCmd.AddCommand(newWorkerRunCommand(ctx))
	return workerCmd
}

func newWorkerRunCommand(ctx *commandContext) *cobra.Command {
	var jobID, baseURL, token string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch a dispatched job, extract captions, and report back",
		Long: "Reads the job id, coordinator base URL, and shared token from " +
			worker.EnvJobID + ", " + worker.EnvBaseURL + ", and " + worker.EnvToken +
			" unless overridden by flags.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg, "worker")
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			settings := worker.SettingsFromEnv(cfg)
			if jobID != "" {
				settings.JobID = jobID
			}
			if baseURL != "" {
				settings.BaseURL = baseURL
			}
			if token != "" {
				settings.Token = token
			}

			source, err := extract.NewYtDlp(cfg)
			if err != nil {
				return err
			}
			extractor := extract.NewExtractor(source, cfg.Languages(), logger)
			runner, err := worker.NewRunner(settings, extractor,
				worker.WithLogger(logger),
				worker.WithPreflight(func() error { return preflight.Failed(preflight.Worker(cfg)) }))
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			report, err := runner.Run(signalCtx)
			if err != nil {
				return err
			}
			captioned := 0
			for _, o := range report.Outcomes {
				if o.Err == nil && o.Transcript.HasCaptions {
					captioned++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s %s: %d of %d URLs captioned\n",
				report.JobID, report.Status, captioned, len(report.Outcomes))
			return nil
		},
	}
	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id (overrides "+worker.EnvJobID+")")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Coordinator base URL (overrides "+worker.EnvBaseURL+")")
	cmd.Flags().StringVar(&token, "token", "", "Shared job token (overrides "+worker.EnvToken+")")
	return cmd
}
