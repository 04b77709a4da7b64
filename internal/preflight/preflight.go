package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"captionjob/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Coordinator runs the checks relevant to the coordinator daemon.
func Coordinator(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Data directory", cfg.Server.DataDir)}

	switch cfg.Store.Backend {
	case config.StoreBackendFile:
		results = append(results, CheckDirectoryAccess("Job store", cfg.Store.Dir))
	case config.StoreBackendSQLite:
		results = append(results, CheckSQLite(ctx, cfg.Store.SQLitePath))
	case config.StoreBackendRedis:
		results = append(results, CheckRedis(ctx, cfg.Store.RedisURL))
	}

	if err := cfg.DispatchReady(); err != nil {
		results = append(results, Result{Name: "Dispatch", Detail: err.Error()})
	} else {
		results = append(results, CheckGitHub(ctx, cfg.Dispatch))
	}
	return results
}

// Worker runs the checks relevant to the extraction worker.
func Worker(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return CheckBinaries([]Requirement{
		{Name: "yt-dlp", Command: cfg.Worker.YtDlpBinary, Description: "Required for caption track discovery"},
	})
}

// Failed returns an error describing every required check that did not pass.
func Failed(results []Result) error {
	var problems []string
	for _, r := range results {
		if r.Passed || r.Optional {
			continue
		}
		problems = append(problems, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New("preflight failed: " + strings.Join(problems, "; "))
}
